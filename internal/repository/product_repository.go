package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/shop-api/internal/model"
)

// ProductRepo is the MySQL product store ('products' table).
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productColumns = "id,name,price,category,subcategory,image_url,image_public_id,image_handle,created_at,updated_at"

// Create inserts a product, assigning ID and timestamps when unset.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO products ("+productColumns+") VALUES (?,?,?,?,?,?,?,?,?,?)",
		p.ID, p.Name, p.Price, p.Category, p.Subcategory, p.ImageURL,
		nullString(p.ImagePublicID), nullString(p.ImageHandle), p.CreatedAt, p.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID returns ErrNotFound when no row matches.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (model.Product, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id=? LIMIT 1", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, ErrNotFound
	}
	return p, err
}

// List returns every product, or only those whose category matches exactly.
// The result is never nil so it always encodes as a JSON array.
func (r *ProductRepo) List(ctx context.Context, category string) ([]model.Product, error) {
	q := "SELECT " + productColumns + " FROM products"
	var args []any
	if category != "" {
		q += " WHERE category=?"
		args = append(args, category)
	}
	q += " ORDER BY created_at, id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update overwrites every mutable column of an existing row.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE products SET name=?, price=?, category=?, subcategory=?, image_url=?,
		 image_public_id=?, image_handle=?, updated_at=? WHERE id=?`,
		p.Name, p.Price, p.Category, p.Subcategory, p.ImageURL,
		nullString(p.ImagePublicID), nullString(p.ImageHandle), p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports 0 for unchanged rows too; confirm the row is gone.
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the row and returns its last state.  There is no
// transaction; a concurrent delete between the read and the write surfaces
// as ErrNotFound.
func (r *ProductRepo) Delete(ctx context.Context, id string) (model.Product, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return model.Product{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (model.Product, error) {
	var (
		p        model.Product
		publicID sql.NullString
		handle   sql.NullString
	)
	err := s.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Subcategory, &p.ImageURL,
		&publicID, &handle, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Product{}, err
	}
	p.ImagePublicID = publicID.String
	p.ImageHandle = handle.String
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
