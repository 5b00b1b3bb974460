package rest

import (
	"fmt"
	chaterrors "listing-chat/errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// TokenValidator turns a bearer token into the authenticated user id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// AuthMiddleware reads the JWT from the Authorization header, or from the
// token query parameter on websocket upgrades where browsers cannot set headers.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if h := c.GetHeader("Authorization"); h != "" {
			if !strings.HasPrefix(h, "Bearer ") {
				abortWithError(c, fmt.Errorf("%w: bearer token expected", chaterrors.ErrUnauthenticated))
				return
			}
			token = strings.TrimPrefix(h, "Bearer ")
		}
		if token == "" {
			abortWithError(c, fmt.Errorf("%w: missing token", chaterrors.ErrUnauthenticated))
			return
		}

		userID, err := tokens.ValidateToken(token)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func mustUserID(c *gin.Context) string {
	return c.MustGet(userIDKey).(string)
}

// RequestLogger logs one line per request with the sdk logger.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, err error) {
	status := chaterrors.MapToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: chaterrors.Code(err), Message: message})
}
