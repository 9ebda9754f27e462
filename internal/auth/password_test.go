package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewBcryptHasher_RejectsWeakCost(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewBcryptHasher(MinBcryptCost)
	assert.NoError(t, err)
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h, err := NewBcryptHasher(MinBcryptCost)
	require.NoError(t, err)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$10$"))

	assert.True(t, h.Verify("secret1", hash))
	assert.False(t, h.Verify("secret2", hash))
	assert.False(t, h.Verify("", hash))
	assert.False(t, h.Verify("secret1", "not-a-hash"))

	other, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "each hash carries its own salt")
}

func TestBcryptHasher_RejectsEmptyPassword(t *testing.T) {
	h, err := NewBcryptHasher(MinBcryptCost)
	require.NoError(t, err)

	_, err = h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}
