package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-api/internal/metrics"
)

// CleanupFailureFunc is told about every best-effort delete that failed.
type CleanupFailureFunc func(ctx context.Context, backend string, ref ImageRef, err error)

// Pipeline validates uploads and hands them to the configured backend.
type Pipeline struct {
	backend  Backend
	maxBytes int64
	log      logrus.FieldLogger

	// OnCleanupFailure is optional.
	OnCleanupFailure CleanupFailureFunc
}

// NewPipeline wraps backend.  maxBytes <= 0 disables the size check.
func NewPipeline(backend Backend, maxBytes int64, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{backend: backend, maxBytes: maxBytes, log: log.WithField("backend", backend.Name())}
}

// Backend returns the name of the active backend.
func (p *Pipeline) Backend() string { return p.backend.Name() }

// Validate checks type and size without storing anything.
func (p *Pipeline) Validate(up Upload) error {
	if _, ok := allowedTypes[normalizeMimeType(up.MimeType)]; !ok {
		return ErrUnsupportedType
	}
	if p.maxBytes > 0 && up.Size > p.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, up.Size, p.maxBytes)
	}
	return nil
}

// Accept validates and stores an upload.
func (p *Pipeline) Accept(ctx context.Context, up Upload) (ImageRef, error) {
	if err := p.Validate(up); err != nil {
		metrics.Uploads.WithLabelValues(p.backend.Name(), outcomeOf(err)).Inc()
		return ImageRef{}, err
	}
	up.MimeType = normalizeMimeType(up.MimeType)
	ref, err := p.backend.Put(ctx, up)
	if err != nil {
		metrics.Uploads.WithLabelValues(p.backend.Name(), "error").Inc()
		return ImageRef{}, fmt.Errorf("store image: %w", err)
	}
	metrics.Uploads.WithLabelValues(p.backend.Name(), "stored").Inc()
	p.log.WithFields(logrus.Fields{"url": ref.URL, "size": up.Size}).Debug("image stored")
	return ref, nil
}

// Replace stores the new upload and then removes prev.  A failed removal is
// reported through logs, metrics and OnCleanupFailure but does not fail the
// call: the new image is already in place.
func (p *Pipeline) Replace(ctx context.Context, prev ImageRef, up Upload) (ImageRef, error) {
	ref, err := p.Accept(ctx, up)
	if err != nil {
		return ImageRef{}, err
	}
	_ = p.Delete(ctx, prev)
	return ref, nil
}

// Delete removes ref best-effort.  The error is returned for callers that
// want it, and is always reported.
func (p *Pipeline) Delete(ctx context.Context, ref ImageRef) error {
	if ref.Handle == "" {
		return nil
	}
	if err := p.backend.Delete(ctx, ref); err != nil {
		metrics.ImageCleanupFailures.WithLabelValues(p.backend.Name()).Inc()
		p.log.WithError(err).WithField("handle", ref.Handle).Warn("image cleanup failed")
		if p.OnCleanupFailure != nil {
			p.OnCleanupFailure(ctx, p.backend.Name(), ref, err)
		}
		return err
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "stored"
	case errors.Is(err, ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	}
	return "error"
}
