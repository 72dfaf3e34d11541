package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBackend writes images into a directory that the HTTP server exposes
// under /uploads.
type LocalBackend struct {
	Dir     string
	BaseURL string // scheme://host, no trailing slash

	now func() time.Time
}

// NewLocalBackend creates dir when missing.
func NewLocalBackend(dir, baseURL string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalBackend{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), now: time.Now}, nil
}

func (l *LocalBackend) Name() string { return "local" }

// Put names the file {field}-{unix millis}{ext}.  A name already taken
// within the same millisecond moves to the next free millisecond.
func (l *LocalBackend) Put(ctx context.Context, up Upload) (ImageRef, error) {
	if err := ctx.Err(); err != nil {
		return ImageRef{}, err
	}
	field := up.FieldName
	if field == "" {
		field = "image"
	}
	if _, err := up.Data.Seek(0, io.SeekStart); err != nil {
		return ImageRef{}, err
	}
	f, name, err := l.create(field, extensionFor(up))
	if err != nil {
		return ImageRef{}, err
	}
	path := f.Name()
	if _, err := io.Copy(f, up.Data); err != nil {
		f.Close()
		os.Remove(path)
		return ImageRef{}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return ImageRef{}, err
	}
	return ImageRef{URL: l.BaseURL + "/uploads/" + name, Handle: path}, nil
}

func (l *LocalBackend) create(field, ext string) (*os.File, string, error) {
	ms := l.now().UnixMilli()
	for i := int64(0); i < 1000; i++ {
		name := fmt.Sprintf("%s-%d%s", field, ms+i, ext)
		f, err := os.OpenFile(filepath.Join(l.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !os.IsExist(err) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free file name for %s in %s", field, l.Dir)
}

// Delete removes the file behind ref.Handle.  Paths outside Dir are refused.
func (l *LocalBackend) Delete(ctx context.Context, ref ImageRef) error {
	if ref.Handle == "" {
		return nil
	}
	if !l.contains(ref.Handle) {
		return fmt.Errorf("refusing to delete %q outside %q", ref.Handle, l.Dir)
	}
	if err := os.Remove(ref.Handle); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *LocalBackend) contains(path string) bool {
	dir, err := filepath.Abs(l.Dir)
	if err != nil {
		return false
	}
	p, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// extensionFor keeps the original extension, falling back to the one implied
// by the MIME type.
func extensionFor(up Upload) string {
	if ext := filepath.Ext(up.Filename); ext != "" {
		return ext
	}
	return allowedTypes[normalizeMimeType(up.MimeType)]
}
