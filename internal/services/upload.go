package services

import (
	"context"
	"fmt"

	"ecofinds/internal/blob"

	"github.com/sirupsen/logrus"
)

// Upload is an image supplied with a listing or profile change.
type Upload struct {
	Filename string
	Data     []byte
}

// checkImages reports the first upload that is not an image as a validation
// failure on field.
func checkImages(field string, uploads []Upload) error {
	for _, up := range uploads {
		if _, err := blob.ImagePath("", up.Data); err != nil {
			return newValidationError(field, fmt.Sprintf("%s: %v", up.Filename, err))
		}
	}
	return nil
}

// storeImages writes every upload under dir. On the first failure the images
// already written are removed again and ErrUploadFailed is returned.
func storeImages(ctx context.Context, store blob.Store, dir string, uploads []Upload) ([]string, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: no image storage configured", ErrUploadFailed)
	}
	urls := make([]string, 0, len(uploads))
	written := make([]string, 0, len(uploads))
	for _, up := range uploads {
		p, err := blob.ImagePath(dir, up.Data)
		if err == nil {
			var url string
			url, err = store.Put(ctx, p, up.Data)
			if err == nil {
				urls = append(urls, url)
				written = append(written, p)
				continue
			}
		}
		for _, w := range written {
			if rmErr := store.Remove(ctx, w); rmErr != nil {
				logrus.WithError(rmErr).WithField("path", w).Warn("Failed to remove partially uploaded image")
			}
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUploadFailed, up.Filename, err)
	}
	return urls, nil
}

// removeImages deletes blobs by URL and collects the failures.
// URLs the store does not own (e.g. seeded remote images) are skipped.
func removeImages(ctx context.Context, store blob.Store, urls []string) []error {
	if store == nil {
		return nil
	}
	var errs []error
	for _, url := range urls {
		p, ok := store.PathFromURL(url)
		if !ok {
			continue
		}
		if err := store.Remove(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("remove image %s: %w", url, err))
		}
	}
	return errs
}
