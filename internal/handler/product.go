package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/middleware"
	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/storage"
)

// imageField is the multipart field product images arrive in.
const imageField = "image"

// ProductHandler serves the catalog.
type ProductHandler struct {
	Catalog *service.CatalogService
}

func NewProductHandler(catalog *service.CatalogService) *ProductHandler {
	return &ProductHandler{Catalog: catalog}
}

// List returns all products, filtered by ?category= when given.
func (h *ProductHandler) List(c echo.Context) error {
	out, err := h.Catalog.List(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) Get(c echo.Context) error {
	p, err := h.Catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Create expects multipart/form-data with name, price, category,
// subcategory and the image file.
func (h *ProductHandler) Create(c echo.Context) error {
	up, closeFn, err := uploadFrom(c)
	if err != nil {
		return err
	}
	defer closeFn()

	in := service.ProductInput{
		Name:        c.FormValue("name"),
		Price:       c.FormValue("price"),
		Category:    c.FormValue("category"),
		Subcategory: c.FormValue("subcategory"),
	}
	p, err := h.Catalog.Add(c.Request().Context(), actor(c), in, up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// Update accepts multipart (optionally with a new image) or a JSON patch.
func (h *ProductHandler) Update(c echo.Context) error {
	var (
		patch service.ProductPatch
		up    *storage.Upload
	)
	if isJSON(c) {
		var err error
		if patch, err = decodeJSONPatch(c.Request().Body); err != nil {
			return err
		}
	} else {
		var closeFn func()
		var err error
		up, closeFn, err = uploadFrom(c)
		if err != nil {
			return err
		}
		defer closeFn()
		patch = service.ProductPatch{
			Name:        formValue(c, "name"),
			Price:       formValue(c, "price"),
			Category:    formValue(c, "category"),
			Subcategory: formValue(c, "subcategory"),
		}
	}

	p, err := h.Catalog.Update(c.Request().Context(), actor(c), c.Param("id"), patch, up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	if err := h.Catalog.Delete(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "product removed"})
}

// uploadFrom opens the image part.  A request without one yields a nil
// upload; the caller decides whether that is acceptable.
func uploadFrom(c echo.Context) (*storage.Upload, func(), error) {
	noop := func() {}
	fh, err := c.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return nil, noop, service.TooLarge("file too large")
		}
		return nil, noop, service.BadRequest("invalid multipart form")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, service.Internal("open upload failed", err)
	}
	return &storage.Upload{
		FieldName: imageField,
		Filename:  fh.Filename,
		MimeType:  fh.Header.Get(echo.HeaderContentType),
		Size:      fh.Size,
		Data:      f,
	}, func() { _ = f.Close() }, nil
}

// formValue treats an empty field as absent.
func formValue(c echo.Context, name string) *string {
	v := c.FormValue(name)
	if v == "" {
		return nil
	}
	return &v
}

type jsonPatch struct {
	Name        *string      `json:"name"`
	Price       *json.Number `json:"price"`
	Category    *string      `json:"category"`
	Subcategory *string      `json:"subcategory"`
}

func decodeJSONPatch(r io.Reader) (service.ProductPatch, error) {
	var req jsonPatch
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return service.ProductPatch{}, service.BadRequest("invalid body")
	}
	patch := service.ProductPatch{Name: req.Name, Category: req.Category, Subcategory: req.Subcategory}
	if req.Price != nil {
		s := req.Price.String()
		patch.Price = &s
	}
	return patch, nil
}

func isJSON(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

func actor(c echo.Context) string {
	if v, ok := c.Get(middleware.CtxUserID).(string); ok {
		return v
	}
	return ""
}
