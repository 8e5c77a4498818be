// Package upload pushes canonical CSV files to an S3-compatible bucket.
//
// Two backends implement [Store]: minio-go for any S3-compatible endpoint
// and the AWS SDK for Amazon S3 proper. [Upload] is backend-agnostic.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/backmassage/dealsync/internal/config"
)

// ErrConnection marks a store that could not be constructed or whose bucket
// is unreachable. It aborts the upload phase as a whole.
var ErrConnection = errors.New("object store connection failed")

// Store is the object-store surface the adapter needs.
type Store interface {
	// Put writes size bytes from r to key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// BucketExists reports whether the configured bucket is reachable.
	BucketExists(ctx context.Context) (bool, error)
	// Name is a short description for logs, e.g. "minio://exports".
	Name() string
}

// NewStore builds the backend selected by cfg.Backend and verifies the
// bucket exists. Every failure wraps [ErrConnection].
func NewStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case config.BackendS3:
		s, err = newS3Store(ctx, cfg)
	case config.BackendMinio, "":
		s, err = newMinioStore(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrConnection, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if err := VerifyBucket(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// VerifyBucket returns an [ErrConnection] error unless s reports its bucket
// as existing.
func VerifyBucket(ctx context.Context, s Store) error {
	ok, err := s.BucketExists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnection, s.Name(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s: bucket does not exist", ErrConnection, s.Name())
	}
	return nil
}
