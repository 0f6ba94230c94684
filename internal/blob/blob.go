// Package blob stores uploaded images and hands back public URLs for them.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrNotImage is returned when an upload is not an image.
	ErrNotImage = errors.New("upload is not an image")
	// ErrEmpty is returned for zero-length uploads.
	ErrEmpty = errors.New("upload is empty")
)

// Store persists blobs addressed by slash-separated paths.
type Store interface {
	// Put writes data at p and returns its public URL.
	Put(ctx context.Context, p string, data []byte) (string, error)
	// Remove deletes the blob at p. Removing a missing blob is not an error.
	Remove(ctx context.Context, p string) error
	// PathFromURL maps a URL returned by Put back to its path.
	PathFromURL(url string) (string, bool)
}

// ImagePath validates that data is an image and returns a fresh path for it
// under dir, with the extension of the detected type.
func ImagePath(dir string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return path.Join(dir, uuid.New().String()+mt.Extension()), nil
}

// Clean normalises p and rejects paths escaping the store root.
func Clean(p string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(p))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid blob path %q", p)
	}
	return cleaned, nil
}
