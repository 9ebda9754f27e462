package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryService_PutGetList(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryService()

	require.NoError(t, m.PutObject(ctx, "blog", "a.png", strings.NewReader("png"), "image/png"))
	require.NoError(t, m.PutObject(ctx, "blog", "attachments/b.pdf", strings.NewReader("pdf!"), "application/pdf"))

	obj, err := m.GetObject(ctx, "blog", "a.png")
	require.NoError(t, err)
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "image/png", obj.ContentType)
	assert.EqualValues(t, 3, obj.ContentLength)

	_, err = m.GetObject(ctx, "blog", "missing.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	all, err := m.ListObjects(ctx, "blog", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a.png", all[0].Key)

	docs, err := m.ListObjects(ctx, "blog", "attachments/")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.EqualValues(t, 4, docs[0].Size)

	assert.Error(t, m.PutObject(ctx, "blog", " ", strings.NewReader("x"), ""))
	assert.Error(t, m.EnsureBucket(ctx, ""))
}
