package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parasite-blog/internal/auth"
	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
	"parasite-blog/internal/repository/sqlite"
	"parasite-blog/internal/service"
	"parasite-blog/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	handler *Handler
	users   service.UserService
	store   *storage.MemoryService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	roleRepo := sqlite.NewRoleRepository(db)
	userRepo := sqlite.NewUserRepository(db)
	postRepo := sqlite.NewPostRepository(db)
	require.NoError(t, roleRepo.Init(ctx))
	require.NoError(t, userRepo.Init(ctx))

	svc := Services{Roles: service.NewRoleService(roleRepo)}
	var refRepos []repository.ReferenceRepository
	for _, kind := range domain.ReferenceKinds {
		repo, err := sqlite.NewReferenceRepository(db, kind)
		require.NoError(t, err)
		require.NoError(t, repo.Init(ctx))
		refRepos = append(refRepos, repo)
		svc.References = append(svc.References, service.NewReferenceService(repo))
	}
	require.NoError(t, postRepo.Init(ctx))

	hasher, err := auth.NewBcryptHasher(auth.MinBcryptCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager("http-test-secret")
	require.NoError(t, err)

	svc.Auth, err = service.NewAuthService(userRepo, hasher, tokens)
	require.NoError(t, err)
	svc.Users = service.NewUserService(userRepo, roleRepo, hasher, domain.RoleProfessor, logger)
	svc.Posts = service.NewPostService(postRepo, refRepos, domain.RoleProfessor)
	store := storage.NewMemoryService()
	svc.Media = service.NewMediaService(store, "blog", "http://blog.test", logger)

	handler := NewHandler(svc, auth.NewGate(tokens, domain.RoleProfessor, logger), logger)
	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router, handler: handler, users: svc.Users, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) loginResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) professorToken(t *testing.T) string {
	t.Helper()
	_, _, err := s.users.EnsurePrivileged(context.Background(), "Prof", "prof@x.com", "profpass")
	require.NoError(t, err)
	return s.login(t, "prof@x.com", "profpass").Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRegisterLoginAndRoleGate(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/users", "", gin.H{
		"name": "Ana", "email": "ana@x.com", "password": "pw-ana", "roleId": domain.RoleStudent,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "ana@x.com", created["email"])
	assert.NotContains(t, created, "password")
	assert.NotContains(t, created, "passwordHash")

	ana := srv.login(t, "ana@x.com", "pw-ana")
	assert.NotEmpty(t, ana.Token)
	assert.EqualValues(t, domain.RoleStudent, ana.RoleID)
	assert.EqualValues(t, created["id"], ana.UserID)

	rec = srv.do(t, http.MethodGet, "/post/pending", ana.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Forbidden"}`, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/role", ana.Token, gin.H{"name": "guest"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	prof := srv.professorToken(t)
	rec = srv.do(t, http.MethodGet, "/post/pending", prof, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodPost, "/role", prof, gin.H{"name": "guest"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodPost, "/users", "", gin.H{"name": "Ana", "email": "ana@x.com", "password": "pw-ana"})
	require.Equal(t, http.StatusCreated, rec.Code)

	unknown := srv.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "nobody@x.com", "password": "pw-ana"})
	wrong := srv.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ana@x.com", "password": "nope"})
	empty := srv.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ana@x.com"})

	for _, rec := range []*httptest.ResponseRecorder{unknown, wrong, empty} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Invalid credentials"}`, rec.Body.String())
	}
}

func TestAuthenticatedRoutesRejectBadBearer(t *testing.T) {
	srv := newTestServer(t)

	for name, header := range map[string]string{
		"missing":   "",
		"no prefix": "abc.def.ghi",
		"malformed": "Bearer not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			srv.router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())
		})
	}
}

func TestAnonymousCannotRegisterPrivilegedUser(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/users", "", gin.H{
		"name": "Mallory", "email": "m@x.com", "password": "secret1", "roleId": domain.RoleProfessor,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	prof := srv.professorToken(t)
	rec = srv.do(t, http.MethodPost, "/users", prof, gin.H{
		"name": "Bruno", "email": "bruno@x.com", "password": "secret1", "roleId": domain.RoleProfessor,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodPost, "/users", "", gin.H{"name": "Dup", "email": "bruno@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPostModerationOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/users", "", gin.H{
		"name": "Ana", "email": "ana@x.com", "password": "pw-ana",
	}).Code)
	ana := srv.login(t, "ana@x.com", "pw-ana")
	prof := srv.professorToken(t)

	rec := srv.do(t, http.MethodPost, "/host", ana.Token, gin.H{"name": "Human"})
	require.Equal(t, http.StatusCreated, rec.Code)
	host := decode[NamedResponse](t, rec)

	rec = srv.do(t, http.MethodPost, "/post", ana.Token, gin.H{
		"title": "Toxoplasmosis", "content": "Cats.", "hostId": host.ID, "authorId": 999,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[PostResponse](t, rec)
	assert.False(t, post.Validated)
	assert.Equal(t, ana.UserID, post.AuthorID)

	feed := decode[[]PostResponse](t, srv.do(t, http.MethodGet, "/post", "", nil))
	assert.Empty(t, feed)

	path := fmt.Sprintf("/post/%d", post.ID)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, path, ana.Token, nil).Code)

	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPut, path+"/validate", ana.Token, gin.H{"validated": true}).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPut, path+"/validate", prof, gin.H{}).Code)
	rec = srv.do(t, http.MethodPut, path+"/validate", prof, gin.H{"validated": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[PostResponse](t, rec).Validated)

	feed = decode[[]PostResponse](t, srv.do(t, http.MethodGet, "/post", "", nil))
	require.Len(t, feed, 1)
	assert.Equal(t, "Ana", feed[0].Author)
	assert.Equal(t, "Human", feed[0].Host)

	hostPath := fmt.Sprintf("/host/%d", host.ID)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodDelete, hostPath, ana.Token, nil).Code)
	assert.Equal(t, http.StatusConflict, srv.do(t, http.MethodDelete, hostPath, prof, nil).Code)

	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, path, ana.Token, nil).Code)
}

func multipartUpload(t *testing.T, path, token, fileName, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestUploadAndServeMedia(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/users", "", gin.H{
		"name": "Ana", "email": "ana@x.com", "password": "pw-ana",
	}).Code)
	ana := srv.login(t, "ana@x.com", "pw-ana")

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, multipartUpload(t, "/upload", "", "egg.png", "image/png", []byte("png")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, multipartUpload(t, "/upload", ana.Token, "egg.png", "image/png", []byte("png")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	uploaded := decode[map[string]any](t, rec)
	fileName, _ := uploaded["fileName"].(string)
	assert.Equal(t, "http://blog.test/images/"+fileName, uploaded["imageUrl"])

	rec = srv.do(t, http.MethodGet, "/images/"+fileName, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, multipartUpload(t, "/upload/document", ana.Token, "notes.pdf", "application/pdf", []byte("%PDF")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decode[map[string]any](t, rec)
	assert.Equal(t, "application/pdf", doc["type"])

	docURL, _ := doc["documentUrl"].(string)
	rec = srv.do(t, http.MethodGet, "/documents/"+filepath.Base(docURL), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline")

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, multipartUpload(t, "/upload/document", ana.Token, "run.sh", "text/x-shellscript", []byte("#!")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/images/missing.png", "", nil).Code)
}

func TestPolicyTable(t *testing.T) {
	srv := newTestServer(t)
	policy := srv.handler.Policy()

	tiers := make(map[string]auth.Tier, len(policy))
	for _, r := range policy {
		key := r.Method + " " + r.Path
		_, dup := tiers[key]
		require.False(t, dup, "duplicate route %s", key)
		tiers[key] = r.Tier
	}

	expected := map[string]auth.Tier{
		"POST /auth/login":         auth.TierPublic,
		"POST /users":              auth.TierPublic,
		"GET /users":               auth.TierAuthenticated,
		"GET /post":                auth.TierPublic,
		"GET /post/pending":        auth.TierPrivileged,
		"PUT /post/:id/validate":   auth.TierPrivileged,
		"POST /post":               auth.TierAuthenticated,
		"POST /role":               auth.TierPrivileged,
		"POST /parasiteAgent":      auth.TierAuthenticated,
		"DELETE /transmission/:id": auth.TierPrivileged,
		"GET /host":                auth.TierPublic,
		"GET /upload/objects":      auth.TierPrivileged,
		"GET /documents/:fileName": auth.TierPublic,
	}
	for key, tier := range expected {
		got, ok := tiers[key]
		if assert.True(t, ok, "missing route %s", key) {
			assert.Equal(t, tier, got, key)
		}
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("x: %w", service.ErrValidation)))
	assert.Equal(t, http.StatusForbidden, statusFor(service.ErrForbidden))
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrUserAlreadyExists))
	assert.Equal(t, http.StatusNotFound, statusFor(storage.ErrObjectNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("boom")))
}

func TestOverlongPasswordIsRejectedAsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	long := strings.Repeat("a", 80)

	rec := srv.do(t, http.MethodPost, "/users", "", gin.H{"name": "Ana", "email": "ana@x.com", "password": long})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/users", "", gin.H{"name": "Ana", "email": "ana@x.com", "password": "pw-ana"})
	require.Equal(t, http.StatusCreated, rec.Code)
	ana := srv.login(t, "ana@x.com", "pw-ana")

	rec = srv.do(t, http.MethodPut, fmt.Sprintf("/users/%d", ana.UserID), ana.Token, gin.H{"password": long})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestServeDocumentQuotesFileName(t *testing.T) {
	srv := newTestServer(t)
	name := `we"ird.pdf`
	require.NoError(t, srv.store.PutObject(context.Background(), "blog", "attachments/"+name, strings.NewReader("%PDF"), "application/pdf"))

	rec := srv.do(t, http.MethodGet, "/documents/we%22ird.pdf", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "inline", disposition)
	assert.Equal(t, name, params["filename"])
}
