// Package repotest provides in-memory implementations of the repository
// interfaces for tests in other packages.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
)

// Users is an in-memory repository.UserStore.
type Users struct {
	mu   sync.Mutex
	seq  int
	rows map[string]model.User
}

func NewUsers() *Users { return &Users{rows: map[string]model.User{}} }

func (s *Users) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, r := range s.rows {
		if r.Username == u.Username || r.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		s.seq++
		u.ID = fmt.Sprintf("user-%d", s.seq)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.rows[u.ID] = *u
	return nil
}

func (s *Users) GetByID(_ context.Context, id string) (model.User, error) {
	return s.find(func(u model.User) bool { return u.ID == id })
}

func (s *Users) GetByUsername(_ context.Context, username string) (model.User, error) {
	return s.find(func(u model.User) bool { return u.Username == username })
}

func (s *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.find(func(u model.User) bool { return u.Email == email })
}

func (s *Users) find(match func(model.User) bool) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

// Products is an in-memory repository.ProductStore.  FailCreate and
// FailUpdate, when set, are returned by the next matching call.
type Products struct {
	mu         sync.Mutex
	seq        int
	rows       map[string]model.Product
	FailCreate error
	FailUpdate error
}

func NewProducts() *Products { return &Products{rows: map[string]model.Product{}} }

func (s *Products) Create(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailCreate; err != nil {
		s.FailCreate = nil
		return err
	}
	if p.ID == "" {
		s.seq++
		p.ID = fmt.Sprintf("product-%d", s.seq)
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.rows[p.ID] = *p
	return nil
}

func (s *Products) GetByID(_ context.Context, id string) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *Products) List(_ context.Context, category string) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Product{}
	for _, p := range s.rows {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Products) Update(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailUpdate; err != nil {
		s.FailUpdate = nil
		return err
	}
	if _, ok := s.rows[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	s.rows[p.ID] = *p
	return nil
}

func (s *Products) Delete(_ context.Context, id string) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	delete(s.rows, id)
	return p, nil
}

// Len reports how many products are stored.
func (s *Products) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Ledger is an in-memory repository.TokenLedger.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewLedger() *Ledger { return &Ledger{entries: map[string]time.Time{}} }

func (l *Ledger) Revoke(_ context.Context, tokenHash string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[tokenHash]; !ok {
		l.entries[tokenHash] = expiresAt
	}
	return nil
}

func (l *Ledger) IsRevoked(_ context.Context, tokenHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[tokenHash]
	return ok, nil
}

func (l *Ledger) Prune(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for h, exp := range l.entries {
		if exp.Before(before) {
			delete(l.entries, h)
			n++
		}
	}
	return n, nil
}

// Len reports how many entries are in the ledger.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

var (
	_ repository.UserStore    = (*Users)(nil)
	_ repository.ProductStore = (*Products)(nil)
	_ repository.TokenLedger  = (*Ledger)(nil)
)
