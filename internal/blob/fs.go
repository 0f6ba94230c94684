package blob

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FSStore keeps blobs as files under Root and serves them from BaseURL.
type FSStore struct {
	fs      afero.Fs
	root    string
	baseURL string
}

// NewFSStore creates a store writing under root on fs. baseURL is the public
// prefix the HTTP server mounts root at, e.g. "http://localhost:8080/uploads".
func NewFSStore(fs afero.Fs, root, baseURL string) *FSStore {
	return &FSStore{
		fs:      fs,
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Root returns the directory blobs are written to.
func (s *FSStore) Root() string { return s.root }

// Put writes data at p and returns its public URL.
func (s *FSStore) Put(ctx context.Context, p string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := Clean(p)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := s.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, full, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", clean, err)
	}
	return s.baseURL + "/" + clean, nil
}

// Remove deletes the blob at p.
func (s *FSStore) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := Clean(p)
	if err != nil {
		return err
	}
	err = s.fs.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob %s: %w", clean, err)
	}
	return nil
}

// PathFromURL maps a URL produced by Put back to the blob path.
func (s *FSStore) PathFromURL(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	clean, err := Clean(strings.TrimPrefix(url, prefix))
	if err != nil {
		return "", false
	}
	return path.Clean(clean), true
}
