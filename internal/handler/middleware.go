package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/apex-career/backend/internal/logger"
	"github.com/apex-career/backend/internal/model"
	"github.com/apex-career/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	authUserKey     = "auth_user"
	requestIDHeader = "X-Request-ID"
	bearerPrefix    = "Bearer "
)

// AuthMiddleware resolves the session cookie (or an Authorization: Bearer
// header) into an active account and stores it for GetAuthUser.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	cookieName := authService.CookieConfig().Name

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		user, err := authService.Resolve(ctx, requestArtifact(c, cookieName))
		if err != nil {
			writeAuthError(c, err)
			c.Abort()
			return
		}

		c.Set(authUserKey, user)
		scoped := logger.From(ctx).With(logger.UserID(user.ID.String()))
		c.Request = c.Request.WithContext(logger.ToContext(ctx, scoped))
		c.Next()
	}
}

func GetAuthUser(c *gin.Context) *model.User {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.User); ok {
			return user
		}
	}
	return nil
}

func requestArtifact(c *gin.Context, cookieName string) string {
	if value, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(value) != "" {
		return value
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		return header
	}
	return ""
}

// RequestLogger tags every request with a ULID request id and logs its outcome.
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = ulid.Make().String()
		}
		c.Header(requestIDHeader, requestID)

		l := base.With(logger.RequestID(requestID))
		c.Request = c.Request.WithContext(logger.ToContext(c.Request.Context(), l))

		c.Next()

		fields := []zap.Field{
			logger.Method(c.Request.Method),
			logger.Path(c.Request.URL.Path),
			logger.Status(c.Writer.Status()),
			logger.Duration(time.Since(start)),
			logger.ClientIP(c.ClientIP()),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			l.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("http request", fields...)
		default:
			l.Info("http request", fields...)
		}
	}
}
