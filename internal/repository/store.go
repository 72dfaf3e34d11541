package repository

import (
	"context"
	"time"

	"github.com/iliyamo/shop-api/internal/model"
)

// UserStore is the credential store.  Create assigns the ID when it is
// empty and fails with ErrDuplicate when the username or email is taken.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// ProductStore persists catalog entries.  Delete removes the row and returns
// what was removed so the caller can release the stored image.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id string) (model.Product, error)
	List(ctx context.Context, category string) ([]model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id string) (model.Product, error)
}

// TokenLedger records revoked session tokens by hash.
//
// Revoke is idempotent.  IsRevoked must observe every Revoke that returned
// before it was called.  Prune drops entries whose token expired before the
// given instant and reports how many were removed.
type TokenLedger interface {
	Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

var (
	_ UserStore    = (*UserRepo)(nil)
	_ UserStore    = (*MongoUserRepo)(nil)
	_ ProductStore = (*ProductRepo)(nil)
	_ ProductStore = (*MongoProductRepo)(nil)
	_ TokenLedger  = (*TokenRepo)(nil)
	_ TokenLedger  = (*MongoTokenRepo)(nil)
	_ TokenLedger  = (*RedisTokenRepo)(nil)
)
