package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/auth"
	"github.com/vovakirdan/roomchat-server/internal/chat"
)

const (
	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = "X-Request-ID"
	// ContextKeyRequestID is the gin context key for the request id.
	ContextKeyRequestID = "request_id"
)

// OptionalAuth attaches the caller to the request context when a valid Bearer
// token is present. Requests without a token pass through anonymously; an
// invalid token is rejected.
func OptionalAuth(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			if c.GetHeader("Authorization") != "" {
				logger.Debug().Msg("invalid authorization header format")
				abortRPC(c, chat.NewError(chat.CodeUnauthorized, "invalid authorization header format"))
				return
			}
			c.Next()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			abortRPC(c, chat.NewError(chat.CodeUnauthorized, "invalid token"))
			return
		}

		c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireAuth rejects requests that OptionalAuth did not authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.CallerFromContext(c.Request.Context()); !ok {
			abortRPC(c, chat.NewError(chat.CodeUnauthorized, "authentication required"))
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs every request with its id and latency.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		start := time.Now()
		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
