package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"parasite-blog/internal/auth"
	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
	"parasite-blog/internal/service"
	"parasite-blog/internal/storage"
)

// Services groups the application services exposed over HTTP.
type Services struct {
	Auth       service.AuthService
	Users      service.UserService
	Roles      service.RoleService
	Posts      service.PostService
	References []service.ReferenceService
	Media      service.MediaService
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	svc    Services
	gate   *auth.Gate
	logger logrus.FieldLogger
}

// Route is one entry of the access policy: every endpoint is reachable only through its tier.
type Route struct {
	Method  string
	Path    string
	Tier    auth.Tier
	handler gin.HandlerFunc
}

// referencePaths maps each reference kind to the collection path clients use.
var referencePaths = map[domain.ReferenceKind]string{
	domain.ReferenceHost:          "/host",
	domain.ReferenceParasiteAgent: "/parasiteAgent",
	domain.ReferenceTransmission:  "/transmission",
}

func NewHandler(svc Services, gate *auth.Gate, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		svc:    svc,
		gate:   gate,
		logger: logger,
	}
}

// Policy returns the route table in registration order.
func (h *Handler) Policy() []Route {
	routes := []Route{
		{http.MethodGet, "/health", auth.TierPublic, h.health},

		{http.MethodPost, "/auth/login", auth.TierPublic, h.login},

		{http.MethodPost, "/users", auth.TierPublic, h.createUser},
		{http.MethodGet, "/users", auth.TierAuthenticated, h.listUsers},
		{http.MethodGet, "/users/:id", auth.TierAuthenticated, h.getUser},
		{http.MethodPut, "/users/:id", auth.TierAuthenticated, h.updateUser},
		{http.MethodDelete, "/users/:id", auth.TierAuthenticated, h.deleteUser},

		{http.MethodGet, "/role", auth.TierPublic, h.listRoles},
		{http.MethodGet, "/role/:id", auth.TierPublic, h.getRole},
		{http.MethodPost, "/role", auth.TierPrivileged, h.createRole},
		{http.MethodPut, "/role/:id", auth.TierPrivileged, h.updateRole},
		{http.MethodDelete, "/role/:id", auth.TierPrivileged, h.deleteRole},

		{http.MethodGet, "/post", auth.TierPublic, h.listPosts},
		{http.MethodGet, "/post/pending", auth.TierPrivileged, h.listPendingPosts},
		{http.MethodGet, "/post/author/:authorId", auth.TierAuthenticated, h.listAuthorPosts},
		{http.MethodGet, "/post/:id", auth.TierPublic, h.getPost},
		{http.MethodPost, "/post", auth.TierAuthenticated, h.createPost},
		{http.MethodPut, "/post/:id", auth.TierAuthenticated, h.updatePost},
		{http.MethodPut, "/post/:id/validate", auth.TierPrivileged, h.validatePost},
		{http.MethodDelete, "/post/:id", auth.TierAuthenticated, h.deletePost},
	}

	for _, refs := range h.svc.References {
		base, ok := referencePaths[refs.Kind()]
		if !ok {
			continue
		}
		routes = append(routes,
			Route{http.MethodGet, base, auth.TierPublic, h.listReferences(refs)},
			Route{http.MethodGet, base + "/:id", auth.TierPublic, h.getReference(refs)},
			Route{http.MethodPost, base, auth.TierAuthenticated, h.createReference(refs)},
			Route{http.MethodPut, base + "/:id", auth.TierPrivileged, h.updateReference(refs)},
			Route{http.MethodDelete, base + "/:id", auth.TierPrivileged, h.deleteReference(refs)},
		)
	}

	return append(routes,
		Route{http.MethodPost, "/upload", auth.TierAuthenticated, h.uploadImage},
		Route{http.MethodPost, "/upload/document", auth.TierAuthenticated, h.uploadDocument},
		Route{http.MethodGet, "/upload/objects", auth.TierPrivileged, h.listObjects},
		Route{http.MethodGet, "/images/:fileName", auth.TierPublic, h.serveImage},
		Route{http.MethodGet, "/documents/:fileName", auth.TierPublic, h.serveDocument},
	)
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestLogger(h.logger))

	for _, r := range h.Policy() {
		router.Handle(r.Method, r.Path, h.gate.Require(r.Tier), r.handler)
		h.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.Path,
			"tier":   r.Tier.String(),
		}).Debug("route registered")
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": "ok"})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger records one line per request. Query strings and headers are left out
// so tokens never reach the log.
func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   status,
			"duration": time.Since(start).String(),
		})
		if id, ok := auth.CurrentIdentity(c); ok {
			entry = entry.WithField("user_id", id.UserID)
		}
		switch {
		case status >= http.StatusInternalServerError:
			entry.Warn("request failed")
		default:
			entry.Info("request")
		}
	}
}

// writeError translates service and repository errors into status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request error")
		message = "Internal server error"
	}
	c.JSON(status, gin.H{"message": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": message})
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+param)
		return 0, false
	}
	return id, true
}

// mustIdentity returns the caller on routes gated at Authenticated or above.
func mustIdentity(c *gin.Context) (auth.Identity, bool) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
	}
	return id, ok
}

func optionalIdentity(c *gin.Context) *auth.Identity {
	if id, ok := auth.CurrentIdentity(c); ok {
		return &id
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
