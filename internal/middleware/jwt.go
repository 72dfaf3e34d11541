package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID  = "user_id"
	CtxIsAdmin = "is_admin"
	CtxClaims  = "claims"
	CtxToken   = "token"
)

// TokenValidator checks a raw session token, including the revocation
// ledger.  *service.TokenService implements it.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*utils.SessionClaims, error)
}

// BearerToken returns the token from an "Authorization: Bearer <token>"
// header, or "" when there is none.
func BearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// JWTAuth rejects requests without a valid, unrevoked bearer token and
// stores the subject, admin flag, claims and raw token in the context for
// handlers further down the chain.
func JWTAuth(v TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := v.Validate(c.Request().Context(), raw)
			if err != nil {
				if service.KindOf(err) == service.KindUnauthorized {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
				}
				// ledger unreachable; let the error handler render it
				return err
			}
			c.Set(CtxUserID, claims.Subject)
			c.Set(CtxIsAdmin, claims.IsAdmin)
			c.Set(CtxClaims, claims)
			c.Set(CtxToken, raw)
			return next(c)
		}
	}
}

// Claims returns what JWTAuth stored, or nil on unauthenticated routes.
func Claims(c echo.Context) *utils.SessionClaims {
	cl, _ := c.Get(CtxClaims).(*utils.SessionClaims)
	return cl
}
