package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps artifacts in a directory tree, sharded by the first two
// digest characters: <root>/ab/abcdef....hbc
type FileStore struct {
	root string
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{root: dir}, nil
}

func (s *FileStore) path(digest string) string {
	return filepath.Join(s.root, digest[:2], digest+".hbc")
}

// Put writes data unless an artifact with the same digest exists. The file
// appears atomically.
func (s *FileStore) Put(ctx context.Context, name string, data []byte) (Ref, error) {
	digest := Digest(data)
	ref := Ref{Digest: digest, Size: len(data), Location: s.path(digest)}
	if _, err := os.Stat(ref.Location); err == nil {
		return ref, nil
	}
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}
	dir := filepath.Dir(ref.Location)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Ref{}, err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return Ref{}, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Ref{}, err
	}
	if err := tmp.Close(); err != nil {
		return Ref{}, err
	}
	if err := os.Rename(tmp.Name(), ref.Location); err != nil {
		return Ref{}, fmt.Errorf("publishing %s: %w", name, err)
	}
	return ref, nil
}

// Get reads and verifies the artifact stored under digest.
func (s *FileStore) Get(ctx context.Context, digest string) ([]byte, error) {
	if err := validDigest(digest); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(digest))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, digest)
	}
	if err != nil {
		return nil, err
	}
	return verify(digest, data)
}
