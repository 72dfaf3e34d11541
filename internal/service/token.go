package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-api/internal/metrics"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/utils"
)

// Reasons a token ends up in the ledger.
const (
	RevokeLogout  = "logout"
	RevokeRelogin = "relogin"
)

// TokenService issues and validates session tokens.  A token is valid when
// its signature and expiry check out and its hash is not in the ledger.
type TokenService struct {
	secret string
	ttl    time.Duration
	ledger repository.TokenLedger
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, ledger repository.TokenLedger, log logrus.FieldLogger) *TokenService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TokenService{secret: secret, ttl: ttl, ledger: ledger, log: log, now: time.Now}
}

// Issue signs a new token for subject.
func (s *TokenService) Issue(subject string, isAdmin bool) (utils.SessionToken, error) {
	tok, err := utils.NewSessionToken(s.secret, subject, isAdmin, s.ttl, s.now())
	if err != nil {
		return utils.SessionToken{}, Internal("issue token failed", err)
	}
	return tok, nil
}

// Validate checks raw and consults the ledger on every call.
func (s *TokenService) Validate(ctx context.Context, raw string) (*utils.SessionClaims, error) {
	if raw == "" {
		return nil, Unauthorized("missing token")
	}
	claims, err := utils.ParseSessionToken(s.secret, raw, s.now())
	if err != nil {
		return nil, Unauthorized("invalid or expired token")
	}
	revoked, err := s.ledger.IsRevoked(ctx, utils.HashToken(raw))
	if err != nil {
		return nil, Internal("token ledger lookup failed", err)
	}
	if revoked {
		return nil, Unauthorized("token has been revoked")
	}
	return claims, nil
}

// Revoke adds raw to the ledger whether or not it is currently valid.  The
// entry expires with the token; unreadable tokens get now+ttl.
func (s *TokenService) Revoke(ctx context.Context, raw, reason string) error {
	exp, ok := utils.TokenExpiry(raw)
	if !ok {
		exp = s.now().Add(s.ttl)
	}
	if err := s.ledger.Revoke(ctx, utils.HashToken(raw), exp.UTC()); err != nil {
		return Internal("revoke token failed", err)
	}
	metrics.TokensRevoked.WithLabelValues(reason).Inc()
	return nil
}

// Prune drops ledger entries for tokens that have already expired.
func (s *TokenService) Prune(ctx context.Context) (int64, error) {
	n, err := s.ledger.Prune(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.LedgerPruned.Add(float64(n))
	}
	return n, nil
}
