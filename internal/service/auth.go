package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/apex-career/backend/internal/auth"
	"github.com/apex-career/backend/internal/config"
	"github.com/apex-career/backend/internal/db"
	"github.com/apex-career/backend/internal/logger"
	"github.com/apex-career/backend/internal/metrics"
	"github.com/apex-career/backend/internal/model"
	"github.com/apex-career/backend/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	bearerPrefix  = "Bearer "
	lookupTimeout = 5 * time.Second
)

// UserStore is the account persistence the auth core needs.
// A missing account is reported as pgx.ErrNoRows.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string, fullName *string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

type AuthService struct {
	store     UserStore
	codec     *auth.TokenCodec
	tokenTTL  time.Duration
	limiter   ratelimit.Limiter
	metrics   *metrics.Metrics
	cookieCfg CookieConfig

	lookups   singleflight.Group
	dummyHash string
}

func NewAuthService(store UserStore, cfg config.AuthConfig, limiter ratelimit.Limiter, m *metrics.Metrics) (*AuthService, error) {
	codec, err := auth.NewTokenCodec(cfg.SecretKey, cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	ttl := cfg.AccessTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("auth service: token lifetime must be positive")
	}
	if limiter == nil {
		limiter = ratelimit.Disabled{}
	}

	// verified against when the email is unknown so both paths cost one derivation
	dummyHash, err := auth.HashPassword("apex-dummy-password")
	if err != nil {
		return nil, err
	}

	cookiePath := cfg.CookiePath
	if strings.TrimSpace(cookiePath) == "" {
		cookiePath = "/"
	}

	return &AuthService{
		store:    store,
		codec:    codec,
		tokenTTL: ttl,
		limiter:  limiter,
		metrics:  m,
		cookieCfg: CookieConfig{
			Name:     cfg.CookieName,
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(ttl.Seconds()),
		},
		dummyHash: dummyHash,
	}, nil
}

// WithClock swaps the token clock. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) {
	s.codec = s.codec.WithClock(now)
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, auth.ErrInvalidInput
	}
	var fullName *string
	if req.FullName != nil {
		if trimmed := strings.TrimSpace(*req.FullName); trimmed != "" {
			fullName = &trimmed
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, email, hash, fullName)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, auth.ErrEmailRegistered
		}
		return nil, fmt.Errorf("%w: %w", auth.ErrStoreUnavailable, err)
	}

	logger.From(ctx).Info("account registered", logger.UserID(user.ID.String()))
	return user, nil
}

// Login verifies the password and mints a session token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		s.metrics.ObserveLogin("invalid_credentials")
		return nil, auth.ErrInvalidCredentials
	}

	if err := s.throttle(ctx, email); err != nil {
		s.metrics.ObserveLogin("rate_limited")
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			auth.VerifyPassword(password, s.dummyHash)
			s.metrics.ObserveLogin("invalid_credentials")
			return nil, auth.ErrInvalidCredentials
		}
		s.metrics.ObserveLogin("store_unavailable")
		return nil, fmt.Errorf("%w: %w", auth.ErrStoreUnavailable, err)
	}

	if _, _, err := auth.ParseCredential(user.PasswordHash); err != nil {
		logger.From(ctx).Warn("stored credential is malformed", logger.UserID(user.ID.String()))
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		s.metrics.ObserveLogin("invalid_credentials")
		return nil, auth.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.metrics.ObserveLogin("inactive")
		return nil, auth.ErrAccountInactive
	}

	return s.issue(ctx, user)
}

// LoginWithEmail issues a session for an email already proven by an identity provider.
func (s *AuthService) LoginWithEmail(ctx context.Context, email string) (*Session, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if db.IsNoRows(err) {
			s.metrics.ObserveLogin("invalid_credentials")
			return nil, auth.ErrInvalidCredentials
		}
		s.metrics.ObserveLogin("store_unavailable")
		return nil, fmt.Errorf("%w: %w", auth.ErrStoreUnavailable, err)
	}
	if !user.IsActive {
		s.metrics.ObserveLogin("inactive")
		return nil, auth.ErrAccountInactive
	}
	return s.issue(ctx, user)
}

// Resolve turns a request artifact (cookie or header value, optionally
// prefixed with "Bearer ") into an active account.
func (s *AuthService) Resolve(ctx context.Context, artifact string) (*model.User, error) {
	user, err := s.resolve(ctx, artifact)
	s.metrics.ObserveResolve(resolveResult(err))
	return user, err
}

func (s *AuthService) resolve(ctx context.Context, artifact string) (*model.User, error) {
	artifact = strings.TrimSpace(artifact)
	if artifact == "" {
		return nil, auth.ErrNotAuthenticated
	}
	token := strings.TrimPrefix(artifact, bearerPrefix)

	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, auth.ErrTokenRejected
	}
	if claims.Subject == "" {
		return nil, auth.ErrTokenRejected
	}

	user, err := s.lookup(ctx, claims.Subject)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %w", auth.ErrStoreUnavailable, err)
	}
	if !user.IsActive {
		return nil, auth.ErrAccountInactive
	}
	return user, nil
}

// lookup coalesces concurrent reads of the same account. The shared call is
// detached from any single caller's cancellation.
func (s *AuthService) lookup(ctx context.Context, email string) (*model.User, error) {
	ch := s.lookups.DoChan(email, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return s.store.GetUserByEmail(lctx, email)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared, _ := res.Val.(*model.User)
		if shared == nil {
			return nil, fmt.Errorf("lookup returned no account")
		}
		user := *shared
		return &user, nil
	}
}

func (s *AuthService) issue(ctx context.Context, user *model.User) (*Session, error) {
	token, expiresAt, err := s.codec.Encode(user.Email, s.tokenTTL)
	if err != nil {
		s.metrics.ObserveLogin("error")
		return nil, err
	}
	s.metrics.ObserveLogin("success")
	logger.From(ctx).Info("session issued", logger.UserID(user.ID.String()))
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) throttle(ctx context.Context, email string) error {
	res, err := s.limiter.Allow(ctx, email)
	if err != nil {
		logger.From(ctx).Warn("login limiter unavailable, allowing attempt", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		return auth.ErrRateLimited
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", auth.ErrInvalidInput
	}
	return email, nil
}

func resolveResult(err error) string {
	switch {
	case err == nil:
		return "resolved"
	case errors.Is(err, auth.ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, auth.ErrTokenRejected):
		return "token_rejected"
	case errors.Is(err, auth.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, auth.ErrAccountInactive):
		return "inactive"
	default:
		return "error"
	}
}
