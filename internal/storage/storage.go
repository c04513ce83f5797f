// Package storage hands out presigned URLs for registered users' image
// objects. Image bytes never pass through the API server on this path.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

// ErrObjectNotFound is returned when the object key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object describes a stored object.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is an object store that can presign browser uploads and downloads.
type Store interface {
	PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error)
	PresignGet(ctx context.Context, key string) (string, time.Time, error)
	Exists(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds the key of a new image object: datasets/<datasetId>/<uuid>_<filename>.
func ObjectKey(datasetID, filename string) string {
	return fmt.Sprintf("datasets/%s/%s_%s", datasetID, uuid.NewString(), utils.SanitizeFilename(filename))
}

// InDataset reports whether key was issued for datasetID.
func InDataset(key, datasetID string) bool {
	prefix := "datasets/" + datasetID + "/"
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix) && !strings.Contains(key, "..")
}
