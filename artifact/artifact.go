package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested artifact does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidKey is returned when a key is empty or escapes the store root.
	ErrInvalidKey = errors.New("invalid artifact key")
)

// Store holds the artifacts a run leaves behind: captured output logs,
// error screenshots, DOM dumps. Keys are slash-separated relative paths,
// conventionally runs/<execution_id>/<name>.
type Store interface {
	// Save stores data from the reader under the key.
	Save(ctx context.Context, key string, reader io.Reader) error

	// Open retrieves the artifact stored under the key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the artifact stored under the key.
	Delete(ctx context.Context, key string) error

	// Exists checks whether an artifact is stored under the key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns a URL or path for retrieving the artifact.
	URL(ctx context.Context, key string) (string, error)
}

// Config selects and configures an artifact store backend.
type Config struct {
	// Kind is "local" or "s3".
	Kind string

	// BaseDir is the root directory for the local backend.
	BaseDir string

	// Bucket and Region configure the S3 backend.
	Bucket string
	Region string

	// PresignExpiry overrides the default presigned URL lifetime for S3.
	PresignExpiry time.Duration
}

// New creates a Store from configuration.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Kind) {
	case "local":
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("base dir is required for local artifact storage")
		}
		return NewLocalStore(cfg.BaseDir)

	case "s3":
		store, err := NewS3Store(ctx, cfg.Bucket, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 artifact storage: %w", err)
		}
		if cfg.PresignExpiry > 0 {
			store.presignExpiration = cfg.PresignExpiry
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported artifact storage kind: %s", cfg.Kind)
	}
}

// SaveText stores a string artifact under the key.
func SaveText(ctx context.Context, s Store, key, content string) error {
	return s.Save(ctx, key, strings.NewReader(content))
}

// OutputKey is the conventional key for a run's captured output.
func OutputKey(runID string) string {
	return fmt.Sprintf("runs/%s/output.log", runID)
}
