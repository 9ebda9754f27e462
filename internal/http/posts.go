package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parasite-blog/internal/domain"
	"parasite-blog/internal/service"
)

type postRequest struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	ImageURL        string `json:"imageUrl"`
	Attachments     string `json:"attachments"`
	ParasiteAgentID *int64 `json:"parasiteAgentId"`
	HostID          *int64 `json:"hostId"`
	TransmissionID  *int64 `json:"transmissionId"`
}

type validateRequest struct {
	Validated *bool `json:"validated"`
}

// PostResponse mirrors the post payload the web client renders. Reference names are
// only present on listings.
type PostResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	ImageURL        string `json:"imageUrl"`
	Attachments     string `json:"attachments"`
	Validated       bool   `json:"validated"`
	AuthorID        int64  `json:"authorId"`
	Author          string `json:"author,omitempty"`
	ParasiteAgentID *int64 `json:"parasiteAgentId"`
	ParasiteAgent   string `json:"parasiteAgent,omitempty"`
	HostID          *int64 `json:"hostId"`
	Host            string `json:"host,omitempty"`
	TransmissionID  *int64 `json:"transmissionId"`
	Transmission    string `json:"transmission,omitempty"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func (h *Handler) listPosts(c *gin.Context) {
	posts, err := h.svc.Posts.Feed(c.Request.Context())
	h.writePostViews(c, posts, err)
}

func (h *Handler) listPendingPosts(c *gin.Context) {
	posts, err := h.svc.Posts.Pending(c.Request.Context())
	h.writePostViews(c, posts, err)
}

func (h *Handler) listAuthorPosts(c *gin.Context) {
	actor, ok := mustIdentity(c)
	if !ok {
		return
	}
	authorID, ok := parseID(c, "authorId")
	if !ok {
		return
	}

	posts, err := h.svc.Posts.ByAuthor(c.Request.Context(), actor, authorID)
	h.writePostViews(c, posts, err)
}

func (h *Handler) getPost(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	post, err := h.svc.Posts.Get(c.Request.Context(), optionalIdentity(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) createPost(c *gin.Context) {
	actor, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	post, err := h.svc.Posts.Create(c.Request.Context(), actor, req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, postToResponse(*post))
}

func (h *Handler) updatePost(c *gin.Context) {
	actor, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	post, err := h.svc.Posts.Update(c.Request.Context(), actor, id, req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) validatePost(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Validated == nil {
		badRequest(c, "validated flag is required")
		return
	}

	post, err := h.svc.Posts.SetValidated(c.Request.Context(), id, *req.Validated)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) deletePost(c *gin.Context) {
	actor, ok := mustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Posts.Delete(c.Request.Context(), actor, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writePostViews(c *gin.Context, posts []domain.PostView, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(posts[i].Post)
		resp[i].Author = posts[i].AuthorName
		resp[i].ParasiteAgent = posts[i].ParasiteAgentName
		resp[i].Host = posts[i].HostName
		resp[i].Transmission = posts[i].TransmissionName
	}
	c.JSON(http.StatusOK, resp)
}

func (r postRequest) input() service.PostInput {
	return service.PostInput{
		Title:           r.Title,
		Content:         r.Content,
		ImageURL:        r.ImageURL,
		Attachments:     r.Attachments,
		ParasiteAgentID: r.ParasiteAgentID,
		HostID:          r.HostID,
		TransmissionID:  r.TransmissionID,
	}
}

func postToResponse(p domain.Post) PostResponse {
	return PostResponse{
		ID:              p.ID,
		Title:           p.Title,
		Content:         p.Content,
		ImageURL:        p.ImageURL,
		Attachments:     p.Attachments,
		Validated:       p.Validated,
		AuthorID:        p.AuthorID,
		ParasiteAgentID: p.ParasiteAgentID,
		HostID:          p.HostID,
		TransmissionID:  p.TransmissionID,
		CreatedAt:       formatTime(p.CreatedAt),
		UpdatedAt:       formatTime(p.UpdatedAt),
	}
}
