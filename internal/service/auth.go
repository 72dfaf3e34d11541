package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-api/internal/config"
	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/utils"
)

// AdminSubject is the token subject of the configured administrator.
const AdminSubject = "admin"

const storeTimeout = 5 * time.Second

type RegisterInput struct {
	Username string `json:"username" form:"username" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,loose_email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

type RegisterResult struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

type LoginInput struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type LoginResult struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	Token    string `json:"token"`
}

// Profile describes the caller behind a validated token.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService implements registration, login and logout.  The admin is
// configuration only and never touches the user store.
type AuthService struct {
	users      repository.UserStore
	tokens     *TokenService
	admin      config.AdminConfig
	bcryptCost int
	log        logrus.FieldLogger
}

func NewAuthService(users repository.UserStore, tokens *TokenService, admin config.AdminConfig, bcryptCost int, log logrus.FieldLogger) *AuthService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthService{users: users, tokens: tokens, admin: admin, bcryptCost: bcryptCost, log: log}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(&in); err != nil {
		return RegisterResult{}, err
	}
	if in.Username == s.admin.Username {
		return RegisterResult{}, BadRequest("username is reserved")
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.ensureFree(ctx, s.users.GetByUsername, in.Username, "username already taken"); err != nil {
		return RegisterResult{}, err
	}
	if err := s.ensureFree(ctx, s.users.GetByEmail, in.Email, "email already registered"); err != nil {
		return RegisterResult{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return RegisterResult{}, Internal("hash password failed", err)
	}
	u := model.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, &u); err != nil {
		// a concurrent registration won the race past the pre-check
		if errors.Is(err, repository.ErrDuplicate) {
			return RegisterResult{}, Conflict("username or email already taken")
		}
		return RegisterResult{}, Internal("create user failed", err)
	}

	tok, err := s.tokens.Issue(u.ID, false)
	if err != nil {
		return RegisterResult{}, err
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("user registered")
	return RegisterResult{ID: u.ID, Username: u.Username, Email: u.Email, Token: tok.Token}, nil
}

func (s *AuthService) ensureFree(ctx context.Context, lookup func(context.Context, string) (model.User, error), value, msg string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return Conflict(msg)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return Internal("user lookup failed", err)
	}
}

// Login authenticates username/password.  presented is the bearer token
// sent with the request, if any; a successful user login revokes it.
func (s *AuthService) Login(ctx context.Context, in LoginInput, presented string) (LoginResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return LoginResult{}, BadRequest("username and password are required")
	}

	if in.Username == s.admin.Username {
		if !utils.VerifyPassword(s.admin.PasswordHash, in.Password) {
			return LoginResult{}, Unauthorized("invalid credentials")
		}
		tok, err := s.tokens.Issue(AdminSubject, true)
		if err != nil {
			return LoginResult{}, err
		}
		s.log.Info("admin logged in")
		return LoginResult{ID: AdminSubject, Username: s.admin.Username, Email: s.admin.Email, IsAdmin: true, Token: tok.Token}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	u, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, Unauthorized("invalid credentials")
		}
		return LoginResult{}, Internal("user lookup failed", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return LoginResult{}, Unauthorized("invalid credentials")
	}

	if presented != "" {
		if err := s.tokens.Revoke(ctx, presented, RevokeRelogin); err != nil {
			return LoginResult{}, err
		}
	}
	tok, err := s.tokens.Issue(u.ID, u.IsAdmin)
	if err != nil {
		return LoginResult{}, err
	}
	s.log.WithField("user_id", u.ID).Info("user logged in")
	return LoginResult{ID: u.ID, Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin, Token: tok.Token}, nil
}

// Logout revokes presented without checking that it is valid.
func (s *AuthService) Logout(ctx context.Context, presented string) error {
	if presented == "" {
		return BadRequest("no token provided")
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.tokens.Revoke(ctx, presented, RevokeLogout)
}

// Profile resolves validated claims to the caller's account.
func (s *AuthService) Profile(ctx context.Context, claims *utils.SessionClaims) (Profile, error) {
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if claims.IsAdmin && claims.Subject == AdminSubject {
		return Profile{ID: AdminSubject, Username: s.admin.Username, Email: s.admin.Email, IsAdmin: true, ExpiresAt: exp}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Profile{}, NotFound("user not found")
		}
		return Profile{}, Internal("user lookup failed", err)
	}
	return Profile{ID: u.ID, Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin, ExpiresAt: exp}, nil
}
