package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-api/internal/model"
	q "github.com/iliyamo/shop-api/internal/queue"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/storage"
)

// ImageStore is the part of storage.Pipeline the catalog needs.
type ImageStore interface {
	Backend() string
	Accept(ctx context.Context, up storage.Upload) (storage.ImageRef, error)
	Replace(ctx context.Context, prev storage.ImageRef, up storage.Upload) (storage.ImageRef, error)
	Delete(ctx context.Context, ref storage.ImageRef) error
}

// ProductInput carries the form fields of a new product.  Price is the raw
// text and is parsed here.
type ProductInput struct {
	Name        string
	Price       string
	Category    string
	Subcategory string
}

// ProductPatch holds the fields to change; nil means keep.
type ProductPatch struct {
	Name        *string
	Price       *string
	Category    *string
	Subcategory *string
}

// CatalogService manages products and their images.
type CatalogService struct {
	products repository.ProductStore
	images   ImageStore
	events   EventPublisher
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewCatalogService(products repository.ProductStore, images ImageStore, events EventPublisher, log logrus.FieldLogger) *CatalogService {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CatalogService{products: products, images: images, events: events, log: log, now: time.Now}
}

// Add stores the image and then the row.  Nothing is written when the
// upload is missing or rejected.
func (s *CatalogService) Add(ctx context.Context, actor string, in ProductInput, up *storage.Upload) (model.Product, error) {
	if up == nil {
		return model.Product{}, BadRequest("image file is required")
	}
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if name == "" {
		return model.Product{}, BadRequest("name is required")
	}
	if category == "" {
		return model.Product{}, BadRequest("category is required")
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return model.Product{}, err
	}

	ref, err := s.images.Accept(ctx, *up)
	if err != nil {
		return model.Product{}, imageError(err)
	}

	p := model.Product{
		Name:          name,
		Price:         price,
		Category:      category,
		Subcategory:   strings.TrimSpace(in.Subcategory),
		ImageURL:      ref.URL,
		ImagePublicID: ref.PublicID,
		ImageHandle:   ref.Handle,
	}
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.products.Create(sctx, &p); err != nil {
		_ = s.images.Delete(ctx, ref)
		return model.Product{}, Internal("create product failed", err)
	}

	s.log.WithFields(logrus.Fields{"product_id": p.ID, "actor": actor}).Info("product created")
	s.publish(ctx, productEvent(q.ProductCreated, actor, p))
	return p, nil
}

// Update applies patch and, when up is set, swaps the image.
func (s *CatalogService) Update(ctx context.Context, actor, id string, patch ProductPatch, up *storage.Upload) (model.Product, error) {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	p, err := s.products.GetByID(sctx, id)
	if err != nil {
		return model.Product{}, lookupError(err)
	}

	if patch.Name != nil {
		v := strings.TrimSpace(*patch.Name)
		if v == "" {
			return model.Product{}, BadRequest("name must not be empty")
		}
		p.Name = v
	}
	if patch.Category != nil {
		v := strings.TrimSpace(*patch.Category)
		if v == "" {
			return model.Product{}, BadRequest("category must not be empty")
		}
		p.Category = v
	}
	if patch.Subcategory != nil {
		p.Subcategory = strings.TrimSpace(*patch.Subcategory)
	}
	if patch.Price != nil {
		price, err := parsePrice(*patch.Price)
		if err != nil {
			return model.Product{}, err
		}
		p.Price = price
	}

	if up != nil {
		prev := storage.ImageRef{URL: p.ImageURL, PublicID: p.ImagePublicID, Handle: p.ImageHandle}
		ref, err := s.images.Replace(ctx, prev, *up)
		if err != nil {
			return model.Product{}, imageError(err)
		}
		p.ImageURL, p.ImagePublicID, p.ImageHandle = ref.URL, ref.PublicID, ref.Handle
	}

	sctx2, cancel2 := context.WithTimeout(ctx, storeTimeout)
	defer cancel2()
	if err := s.products.Update(sctx2, &p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Product{}, NotFound("product not found")
		}
		return model.Product{}, Internal("update product failed", err)
	}

	s.log.WithFields(logrus.Fields{"product_id": p.ID, "actor": actor, "image_replaced": up != nil}).Info("product updated")
	s.publish(ctx, productEvent(q.ProductUpdated, actor, p))
	return p, nil
}

// Delete removes the row and then, best-effort, its image.
func (s *CatalogService) Delete(ctx context.Context, actor, id string) error {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	p, err := s.products.Delete(sctx, id)
	if err != nil {
		return lookupError(err)
	}
	ref := storage.ImageRef{URL: p.ImageURL, PublicID: p.ImagePublicID, Handle: p.ImageHandle}
	if err := s.images.Delete(ctx, ref); err != nil {
		s.log.WithError(err).WithField("product_id", p.ID).Warn("product image left behind")
	}

	s.log.WithFields(logrus.Fields{"product_id": p.ID, "actor": actor}).Info("product deleted")
	s.publish(ctx, productEvent(q.ProductDeleted, actor, p))
	return nil
}

// List returns all products, or those whose category equals category.
func (s *CatalogService) List(ctx context.Context, category string) ([]model.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	out, err := s.products.List(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, Internal("list products failed", err)
	}
	return out, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (model.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return model.Product{}, lookupError(err)
	}
	return p, nil
}

// CleanupFailureReporter turns failed image deletions into catalog events.
func (s *CatalogService) CleanupFailureReporter() storage.CleanupFailureFunc {
	return func(ctx context.Context, backend string, ref storage.ImageRef, err error) {
		s.publish(ctx, q.CatalogEvent{
			Type:       q.ImageCleanupFailed,
			ImageURL:   ref.URL,
			Backend:    backend,
			Handle:     ref.Handle,
			Error:      err.Error(),
			OccurredAt: s.now().UTC().Format(time.RFC3339),
		})
	}
}

func (s *CatalogService) publish(ctx context.Context, ev q.CatalogEvent) {
	if ev.OccurredAt == "" {
		ev.OccurredAt = s.now().UTC().Format(time.RFC3339)
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.WithError(err).WithField("event", ev.Type).Warn("publish catalog event failed")
	}
}

func productEvent(typ, actor string, p model.Product) q.CatalogEvent {
	return q.CatalogEvent{
		Type:      typ,
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Actor:     actor,
	}
}

func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, BadRequest("price is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, BadRequest("price must be a number")
	}
	if v < 0 {
		return 0, BadRequest("price must not be negative")
	}
	return v, nil
}

func lookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return NotFound("product not found")
	}
	return Internal("product lookup failed", err)
}

func imageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return UnsupportedType(storage.ErrUnsupportedType.Error())
	case errors.Is(err, storage.ErrTooLarge):
		return TooLarge(storage.ErrTooLarge.Error())
	}
	return Upstream("image upload failed", err)
}
