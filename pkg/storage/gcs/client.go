package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/angelmondragon/haulbook-backend/pkg/config"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Client uploads booking photos to a single bucket.
type Client struct {
	svc           *storage.Service
	bucket        string
	publicBaseURL string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Object describes a stored upload.
type Object struct {
	Name        string
	ContentType string
	Size        int64
	URL         string
}

// NewClient builds the storage client from explicit JSON, a credentials file,
// or application default credentials, in that order.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger, extra ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	opts := []option.ClientOption{option.WithScopes(storage.DevstorageReadWriteScope)}
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	opts = append(opts, extra...)

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs service: %w", err)
	}

	client := &Client{
		svc:           svc,
		bucket:        strings.TrimSpace(cfg.BucketName),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
	if client.publicBaseURL == "" {
		client.publicBaseURL = "https://storage.googleapis.com"
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("gcs client initialized (bucket=%s)", client.bucket))
	}
	return client, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Ping lists at most one object, which needs storage.objects.list on the bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.svc == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.svc.Objects.List(c.bucket).MaxResults(1).Context(ctx).Do(); err != nil {
		return err
	}
	return nil
}

// Upload streams body to name and returns the object's public URL.
func (c *Client) Upload(ctx context.Context, name, contentType string, body io.Reader) (*Object, error) {
	if c == nil || c.svc == nil {
		return nil, errors.New("gcs client not initialized")
	}
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return nil, errors.New("object name is required")
	}

	obj := &storage.Object{
		Name:         name,
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000",
	}
	stored, err := c.svc.Objects.Insert(c.bucket, obj).
		Media(body, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", name, err)
	}

	return &Object{
		Name:        stored.Name,
		ContentType: stored.ContentType,
		Size:        int64(stored.Size),
		URL:         c.PublicURL(stored.Name),
	}, nil
}

// Delete removes an object. Missing objects are not an error.
func (c *Client) Delete(ctx context.Context, name string) error {
	if c == nil || c.svc == nil {
		return errors.New("gcs client not initialized")
	}
	err := c.svc.Objects.Delete(c.bucket, name).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return nil
	}
	return err
}

// PublicURL joins the configured base, bucket and escaped object path.
func (c *Client) PublicURL(name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", c.publicBaseURL, c.bucket, strings.Join(segments, "/"))
}
