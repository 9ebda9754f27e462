package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parasite-blog/internal/storage"
)

const (
	// MaxUploadSize bounds a single uploaded file.
	MaxUploadSize = 10 << 20

	documentPrefix = "attachments/"
)

// UploadInput describes a file received from a client.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult locates a stored file.
type UploadResult struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// MediaService stores post images and attachments in object storage and serves them back.
type MediaService interface {
	UploadImage(ctx context.Context, in UploadInput) (*UploadResult, error)
	UploadDocument(ctx context.Context, in UploadInput) (*UploadResult, error)
	OpenImage(ctx context.Context, fileName string) (*storage.Object, error)
	OpenDocument(ctx context.Context, fileName string) (*storage.Object, error)
	ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

type mediaService struct {
	store     storage.Service
	bucket    string
	publicURL string
	logger    logrus.FieldLogger
}

func NewMediaService(store storage.Service, bucket, publicURL string, logger logrus.FieldLogger) MediaService {
	if logger == nil {
		logger = logrus.New()
	}
	return &mediaService{
		store:     store,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

func (s *mediaService) UploadImage(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if !strings.HasPrefix(in.ContentType, "image/") {
		return nil, invalid("only image uploads are accepted")
	}
	key, err := s.objectKey("", in)
	if err != nil {
		return nil, err
	}
	if err := s.store.PutObject(ctx, s.bucket, key, in.Body, in.ContentType); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"key": key, "size": in.Size}).Info("stored image")
	return &UploadResult{
		Key:         key,
		URL:         s.publicURL + "/images/" + key,
		ContentType: in.ContentType,
		Size:        in.Size,
	}, nil
}

func (s *mediaService) UploadDocument(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if !isDocumentType(in.ContentType) {
		return nil, invalid("only PDF and Word documents are accepted")
	}
	key, err := s.objectKey(documentPrefix, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.PutObject(ctx, s.bucket, key, in.Body, in.ContentType); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"key": key, "size": in.Size}).Info("stored document")
	return &UploadResult{
		Key:         key,
		URL:         s.publicURL + "/documents/" + strings.TrimPrefix(key, documentPrefix),
		ContentType: in.ContentType,
		Size:        in.Size,
	}, nil
}

func (s *mediaService) OpenImage(ctx context.Context, fileName string) (*storage.Object, error) {
	if err := validateObjectName(fileName); err != nil {
		return nil, err
	}
	obj, err := s.store.GetObject(ctx, s.bucket, fileName)
	if err != nil {
		return nil, err
	}
	if obj.ContentType == "" || obj.ContentType == "application/octet-stream" {
		if guessed := mime.TypeByExtension(path.Ext(fileName)); guessed != "" {
			obj.ContentType = guessed
		}
	}
	return obj, nil
}

func (s *mediaService) OpenDocument(ctx context.Context, fileName string) (*storage.Object, error) {
	if err := validateObjectName(fileName); err != nil {
		return nil, err
	}
	obj, err := s.store.GetObject(ctx, s.bucket, documentPrefix+fileName)
	if err != nil {
		return nil, err
	}
	obj.ContentType = documentContentType(fileName)
	return obj, nil
}

func (s *mediaService) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return s.store.ListObjects(ctx, s.bucket, prefix)
}

func (s *mediaService) objectKey(prefix string, in UploadInput) (string, error) {
	if in.Body == nil {
		return "", invalid("no file uploaded")
	}
	if in.Size > MaxUploadSize {
		return "", invalid("file exceeds %d bytes", MaxUploadSize)
	}
	name := sanitizeFileName(in.FileName)
	if name == "" {
		return "", invalid("file name is required")
	}
	return fmt.Sprintf("%s%s-%s", prefix, uuid.NewString(), name), nil
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20 || r == 0x7f || r == '"' || r == '?' || r == '#' || r == '%':
			return -1
		}
		return r
	}, name)
}

func validateObjectName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return invalid("invalid file name")
	}
	return nil
}

func isDocumentType(contentType string) bool {
	switch contentType {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return true
	}
	return false
}

func documentContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
