package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parasite-blog/internal/domain"
	"parasite-blog/internal/service"
)

type nameRequest struct {
	Name string `json:"name"`
}

type NamedResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) listRoles(c *gin.Context) {
	roles, err := h.svc.Roles.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]NamedResponse, len(roles))
	for i, r := range roles {
		resp[i] = NamedResponse{ID: r.ID, Name: r.Name}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	role, err := h.svc.Roles.Get(c.Request.Context(), id)
	h.writeRole(c, http.StatusOK, role, err)
}

func (h *Handler) createRole(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	role, err := h.svc.Roles.Create(c.Request.Context(), req.Name)
	h.writeRole(c, http.StatusCreated, role, err)
}

func (h *Handler) updateRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	role, err := h.svc.Roles.Update(c.Request.Context(), id, req.Name)
	h.writeRole(c, http.StatusOK, role, err)
}

func (h *Handler) deleteRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Roles.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeRole(c *gin.Context, status int, role *domain.Role, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(status, NamedResponse{ID: role.ID, Name: role.Name})
}

// Hosts, parasite agents and transmission routes share these handlers.

func (h *Handler) listReferences(refs service.ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		entities, err := refs.List(c.Request.Context())
		if err != nil {
			h.writeError(c, err)
			return
		}

		resp := make([]NamedResponse, len(entities))
		for i, e := range entities {
			resp[i] = NamedResponse{ID: e.ID, Name: e.Name}
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *Handler) getReference(refs service.ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		entity, err := refs.Get(c.Request.Context(), id)
		h.writeReference(c, http.StatusOK, entity, err)
	}
}

func (h *Handler) createReference(refs service.ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req nameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		entity, err := refs.Create(c.Request.Context(), req.Name)
		h.writeReference(c, http.StatusCreated, entity, err)
	}
}

func (h *Handler) updateReference(refs service.ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req nameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		entity, err := refs.Update(c.Request.Context(), id, req.Name)
		h.writeReference(c, http.StatusOK, entity, err)
	}
}

func (h *Handler) deleteReference(refs service.ReferenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := refs.Delete(c.Request.Context(), id); err != nil {
			h.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) writeReference(c *gin.Context, status int, entity *domain.ReferenceEntity, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(status, NamedResponse{ID: entity.ID, Name: entity.Name})
}
