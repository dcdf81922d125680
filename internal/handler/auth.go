package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/apex-career/backend/internal/auth"
	"github.com/apex-career/backend/internal/client"
	"github.com/apex-career/backend/internal/logger"
	"github.com/apex-career/backend/internal/model"
	"github.com/apex-career/backend/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	oidcStateCookie = "oidc_state"
	oidcStateMaxAge = 300
)

// OIDCProvider is the single sign-on client. *client.OIDCClient implements it.
type OIDCProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*client.OIDCIdentity, error)
}

type AuthHandler struct {
	svc  *service.AuthService
	oidc OIDCProvider
}

// NewAuthHandler builds the auth endpoints. oidc may be nil when single sign-on is off.
func NewAuthHandler(svc *service.AuthService, oidc OIDCProvider) *AuthHandler {
	return &AuthHandler{svc: svc, oidc: oidc}
}

// Register godoc
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Email, password and optional full name"
// @Success 201 {object} model.UserRead
// @Failure 400 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user.Read())
}

// Login godoc
// @Summary Log in and receive the session cookie
// @Description Accepts the OAuth2 password form (username is the email) or the same fields as JSON.
// @Tags auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param username formData string true "Account email"
// @Param password formData string true "Password"
// @Success 200 {object} model.TokenResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token)
	c.JSON(http.StatusOK, model.TokenResponse{
		AccessToken: session.Token,
		TokenType:   "bearer",
	})
}

// Logout godoc
// @Summary Clear the session cookie
// @Description Issued tokens stay valid until they expire.
// @Tags auth
// @Produce json
// @Success 200 {object} model.MessageResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, model.MessageResponse{Message: "Successfully logged out"})
}

// Me godoc
// @Summary Current account
// @Tags users
// @Produce json
// @Security CookieAuth
// @Success 200 {object} model.UserRead
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/users/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		writeAuthError(c, auth.ErrNotAuthenticated)
		return
	}
	c.JSON(http.StatusOK, user.Read())
}

// OIDCLogin godoc
// @Summary Redirect to the identity provider
// @Tags auth
// @Success 302
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/auth/oidc/login [get]
func (h *AuthHandler) OIDCLogin(c *gin.Context) {
	if h.oidc == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "single sign-on is not configured"})
		return
	}

	state, err := newState()
	if err != nil {
		logger.From(c.Request.Context()).Error("generate oidc state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "server error"})
		return
	}

	cfg := h.svc.CookieConfig()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     oidcStateCookie,
		Value:    state,
		MaxAge:   oidcStateMaxAge,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.Redirect(http.StatusFound, h.oidc.AuthCodeURL(state))
}

// OIDCCallback godoc
// @Summary Complete single sign-on
// @Tags auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by the login redirect"
// @Success 200 {object} model.TokenResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/auth/oidc/callback [get]
func (h *AuthHandler) OIDCCallback(c *gin.Context) {
	if h.oidc == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "single sign-on is not configured"})
		return
	}

	expected, _ := c.Cookie(oidcStateCookie)
	state := c.Query("state")
	cfg := h.svc.CookieConfig()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     oidcStateCookie,
		MaxAge:   -1,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "missing code"})
		return
	}

	ctx := c.Request.Context()
	identity, err := h.oidc.Exchange(ctx, code)
	if err != nil {
		logger.From(ctx).Warn("oidc exchange failed", zap.Error(err))
		writeAuthError(c, auth.ErrTokenRejected)
		return
	}

	session, err := h.svc.LoginWithEmail(ctx, identity.Email)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token)
	c.JSON(http.StatusOK, model.TokenResponse{
		AccessToken: session.Token,
		TokenType:   "bearer",
	})
}

// setSessionCookie writes the cookie with net/http so the "Bearer <token>"
// value is quoted on the wire instead of query-escaped.
func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	cfg := h.svc.CookieConfig()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.Name,
		Value:    bearerPrefix + token,
		MaxAge:   cfg.MaxAge,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	cfg := h.svc.CookieConfig()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		MaxAge:   -1,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

func newState() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// writeAuthError maps auth failures to fixed messages. Wrapped infrastructure
// details never reach the client.
func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated),
		errors.Is(err, auth.ErrTokenRejected),
		errors.Is(err, auth.ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: authMessage(err)})
	case errors.Is(err, auth.ErrAccountInactive):
		c.JSON(http.StatusForbidden, model.ErrorResponse{Error: auth.ErrAccountInactive.Error()})
	case errors.Is(err, auth.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: auth.ErrAccountNotFound.Error()})
	case errors.Is(err, auth.ErrEmailRegistered):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: auth.ErrEmailRegistered.Error()})
	case errors.Is(err, auth.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: auth.ErrInvalidInput.Error()})
	case errors.Is(err, auth.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, model.ErrorResponse{Error: auth.ErrRateLimited.Error()})
	case errors.Is(err, auth.ErrStoreUnavailable):
		logger.From(c.Request.Context()).Error("account store unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "service unavailable"})
	default:
		logger.From(c.Request.Context()).Error("auth request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "server error"})
	}
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		return auth.ErrNotAuthenticated.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return auth.ErrInvalidCredentials.Error()
	default:
		return auth.ErrTokenRejected.Error()
	}
}

