// Package artifact publishes serialized bytecode to content-addressed
// stores. Artifacts are keyed by the hex SHA-1 of their bytes, so
// publishing the same bytecode twice is a no-op.
package artifact

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNotFound is returned by Get for an unknown digest.
	ErrNotFound = errors.New("artifact not found")

	// ErrCorrupt is returned by Get when the stored bytes do not hash to
	// the requested digest.
	ErrCorrupt = errors.New("artifact digest mismatch")
)

// Ref identifies a published artifact.
type Ref struct {
	Digest string
	Size   int
	// Location is a store-specific address, e.g. a file path or s3:// URL.
	Location string
}

// Store is a content-addressed artifact store.
type Store interface {
	// Put stores data and returns its reference. Name is recorded as
	// metadata where the store supports it.
	Put(ctx context.Context, name string, data []byte) (Ref, error)

	// Get returns the bytes stored under digest.
	Get(ctx context.Context, digest string) ([]byte, error)
}

// Close releases the resources held by s, if any.
func Close(ctx context.Context, s Store) error {
	if c, ok := s.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}

// Digest returns the hex SHA-1 of data.
func Digest(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func validDigest(digest string) error {
	if len(digest) != 2*sha1.Size {
		return fmt.Errorf("invalid digest %q", digest)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return fmt.Errorf("invalid digest %q", digest)
	}
	return nil
}

func verify(digest string, data []byte) ([]byte, error) {
	if Digest(data) != digest {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, digest)
	}
	return data, nil
}

// Open returns the store addressed by a URL:
//
//	file:///var/lib/scriptc    (or a plain path)
//	s3://bucket/prefix
//	postgres://user@host/db
func Open(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "", "file":
		path := u.Path
		if u.Scheme == "" {
			path = rawURL
		}
		return NewFileStore(path)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket: u.Host,
			Prefix: strings.TrimPrefix(u.Path, "/"),
			Region: u.Query().Get("region"),
		})
	case "postgres", "postgresql":
		return ConnectPostgres(ctx, rawURL)
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}
