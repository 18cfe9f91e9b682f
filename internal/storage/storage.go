// Package storage keeps certificate files outside the database. Backends
// share one contract so the mutation flow never depends on where bytes live.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"hkiapp/internal/utils"
)

var (
	ErrNotFound         = errors.New("object not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidKey       = errors.New("invalid key")
)

// DefaultSignedURLTTL matches the five minute window certificate links stay valid.
const DefaultSignedURLTTL = 300 * time.Second

// SignOptions controls how a signed URL presents the file.
type SignOptions struct {
	Attachment   bool
	DownloadName string
}

// ObjectStore is the file backend used by the mutation orchestrator.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	// Remove deletes every path; missing objects are not an error.
	Remove(ctx context.Context, paths []string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, path string, ttl time.Duration, opts SignOptions) (string, error)
}

// NewObjectPath returns a collision-free key of the form public/<owner>-<uuid>.<ext>.
func NewObjectPath(ownerID int64, filename string) string {
	return fmt.Sprintf("public/%d-%s.%s", ownerID, uuid.NewString(), utils.FileExt(filename, "pdf"))
}
