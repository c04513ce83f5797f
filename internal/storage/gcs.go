package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
)

// GCS is a Store backed by a Google Cloud Storage bucket. Signing uses the
// credentials the client was built with (service account key or IAM signBlob).
type GCS struct {
	client *storage.Client
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

// NewGCS builds a client from application default credentials.
func NewGCS(ctx context.Context, bucket string, ttl time.Duration) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("while creating storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, ttl: ttl, now: time.Now}, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) sign(key, method, contentType string) (string, time.Time, error) {
	expires := g.now().Add(g.ttl)
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  method,
		Expires: expires,
	}
	if contentType != "" {
		opts.ContentType = contentType
	}

	url, err := g.client.Bucket(g.bucket).SignedURL(key, opts)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("while signing %s url for %s: %w", method, key, err)
	}
	return url, expires, nil
}

// PresignPut returns a URL the browser can PUT the object to. The upload must
// send the same Content-Type.
func (g *GCS) PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error) {
	return g.sign(key, http.MethodPut, contentType)
}

func (g *GCS) PresignGet(ctx context.Context, key string) (string, time.Time, error) {
	return g.sign(key, http.MethodGet, "")
}

func (g *GCS) Exists(ctx context.Context, key string) (Object, error) {
	attrs, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return Object{}, ErrObjectNotFound
		}
		return Object{}, fmt.Errorf("while reading attrs of %s: %w", key, err)
	}
	return Object{Key: key, Size: attrs.Size, ContentType: attrs.ContentType}, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("while deleting %s: %w", key, err)
	}
	return nil
}
