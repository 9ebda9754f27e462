package http

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"parasite-blog/internal/service"
	"parasite-blog/internal/storage"
)

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func (h *Handler) uploadImage(c *gin.Context) {
	in, cleanup, ok := readUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	res, err := h.svc.Media.UploadImage(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Image uploaded",
		"url":      res.URL,
		"imageUrl": res.URL,
		"fileName": res.Key,
	})
}

func (h *Handler) uploadDocument(c *gin.Context) {
	in, cleanup, ok := readUpload(c)
	if !ok {
		return
	}
	defer cleanup()

	res, err := h.svc.Media.UploadDocument(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Document uploaded",
		"url":         res.URL,
		"documentUrl": res.URL,
		"fileName":    res.Key,
		"type":        res.ContentType,
		"size":        res.Size,
	})
}

func (h *Handler) listObjects(c *gin.Context) {
	objects, err := h.svc.Media.ListObjects(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) serveImage(c *gin.Context) {
	obj, err := h.svc.Media.OpenImage(c.Request.Context(), c.Param("fileName"))
	if err != nil {
		h.writeMediaError(c, err, "Image not found")
		return
	}
	defer obj.Body.Close()

	h.stream(c, obj, nil)
}

func (h *Handler) serveDocument(c *gin.Context) {
	fileName := c.Param("fileName")
	obj, err := h.svc.Media.OpenDocument(c.Request.Context(), fileName)
	if err != nil {
		h.writeMediaError(c, err, "Document not found")
		return
	}
	defer obj.Body.Close()

	h.stream(c, obj, map[string]string{
		"Content-Disposition": mime.FormatMediaType("inline", map[string]string{"filename": fileName}),
	})
}

func (h *Handler) stream(c *gin.Context, obj *storage.Object, headers map[string]string) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, obj.ContentLength, contentType, obj.Body, headers)
}

func (h *Handler) writeMediaError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, storage.ErrObjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": notFound})
		return
	}
	h.writeError(c, err)
}

// readUpload pulls the multipart "file" field, refusing bodies over the upload limit.
func readUpload(c *gin.Context) (service.UploadInput, func(), bool) {
	// multipart framing needs a little room above the file limit
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxUploadSize+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "file exceeds " + strconv.Itoa(service.MaxUploadSize) + " bytes"})
			return service.UploadInput{}, nil, false
		}
		badRequest(c, "No file uploaded")
		return service.UploadInput{}, nil, false
	}

	file, err := header.Open()
	if err != nil {
		badRequest(c, "unreadable upload")
		return service.UploadInput{}, nil, false
	}

	in := service.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return in, func() { _ = file.Close() }, true
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
