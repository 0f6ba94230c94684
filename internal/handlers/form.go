package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"ecofinds/internal/services"

	"github.com/gofiber/fiber/v2"
)

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// formValue returns the named field of a multipart form, or nil when the
// field was not sent at all.
func formValue(form *multipart.Form, key string) *string {
	vals, ok := form.Value[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// formUploads reads every file sent under key.
func formUploads(form *multipart.Form, key string) ([]services.Upload, error) {
	files := form.File[key]
	uploads := make([]services.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, services.Upload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}
