// Package storage implements the image upload pipeline: validation of
// incoming files and their placement on a storage backend (local disk or an
// S3-compatible cloud host).
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"strings"
)

var (
	// ErrUnsupportedType rejects anything but JPEG and PNG.
	ErrUnsupportedType = errors.New("unsupported file type, only JPEG and PNG are allowed")
	// ErrTooLarge rejects files above the configured size limit.
	ErrTooLarge = errors.New("file too large")
)

// allowedTypes maps accepted MIME types to the extension used when the
// original filename carries none.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Upload is a single incoming file.  Data must be readable from the start
// and seekable, which multipart.File and bytes.Reader both are.
type Upload struct {
	FieldName string // form field the file arrived in, e.g. "image"
	Filename  string // client-supplied original name
	MimeType  string // client-declared content type
	Size      int64
	Data      io.ReadSeeker
}

// ImageRef points at a stored image.  URL is what clients fetch.  PublicID
// is only set by the cloud backend.  Handle is what Delete needs: a file
// path locally, the object key on the cloud host.
type ImageRef struct {
	URL      string
	PublicID string
	Handle   string
}

// IsZero reports whether the ref points at nothing.
func (r ImageRef) IsZero() bool { return r.URL == "" && r.Handle == "" }

// Backend stores and removes image bytes.  Put must not return before the
// bytes are durable and the URL is final.  Delete of a missing object is
// not an error.
type Backend interface {
	Name() string
	Put(ctx context.Context, up Upload) (ImageRef, error)
	Delete(ctx context.Context, ref ImageRef) error
}

// normalizeMimeType lower-cases the type and drops parameters.
func normalizeMimeType(s string) string {
	mt, _, err := mime.ParseMediaType(s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return mt
}
