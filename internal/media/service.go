package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/storage/gcs"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxBytes applies when no limit is configured.
const DefaultMaxBytes int64 = 10 << 20

var allowedImageTypes = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/gif",
	"image/heic",
	"image/heif",
}

type uploader interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (*gcs.Object, error)
}

// Service stores item photos attached to booking submissions.
type Service interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*UploadResult, error)
}

// UploadResult is what the submission form stores as an item photo_url.
type UploadResult struct {
	URL         string `json:"url"`
	ObjectName  string `json:"object_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type service struct {
	store    uploader
	maxBytes int64
	now      func() time.Time
	newID    func() string
}

func NewService(store uploader, maxBytes int64) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("upload store required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &service{
		store:    store,
		maxBytes: maxBytes,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

func (s *service) Upload(ctx context.Context, filename string, body io.Reader) (*UploadResult, error) {
	if body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is too large").
			WithDetails(map[string]any{"max_bytes": s.maxBytes})
	}

	detected := mimetype.Detect(data)
	if !isAllowed(detected) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only image uploads are accepted").
			WithDetails(map[string]any{
				"filename":      strings.TrimSpace(filename),
				"detected_type": detected.String(),
				"allowed_types": allowedImageTypes,
			})
	}

	contentType := baseType(detected.String())
	name := s.objectName(detected.Extension())
	obj, err := s.store.Upload(ctx, name, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}

	return &UploadResult{
		URL:         obj.URL,
		ObjectName:  obj.Name,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func (s *service) objectName(ext string) string {
	now := s.now().UTC()
	return fmt.Sprintf("requests/%04d/%02d/%s%s", now.Year(), int(now.Month()), s.newID(), ext)
}

func isAllowed(mt *mimetype.MIME) bool {
	for _, allowed := range allowedImageTypes {
		if mt.Is(allowed) {
			return true
		}
	}
	return false
}

func baseType(value string) string {
	if idx := strings.Index(value, ";"); idx >= 0 {
		return strings.TrimSpace(value[:idx])
	}
	return value
}
