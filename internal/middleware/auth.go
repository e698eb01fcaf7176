package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"chatroom-service/internal/auth"
)

const (
	// AuthHeader carries the caller's bearer credential.
	AuthHeader = "authtoken"
	// UserIDKey holds the verified user id in the gin context.
	UserIDKey = "userID"
)

// AuthMiddleware verifies the authtoken header. A missing header is a bad
// request; a token that does not verify is forbidden.
func AuthMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(AuthHeader))
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, "Unauthorized")
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("token rejected")
			c.AbortWithStatusJSON(http.StatusForbidden, "Unauthorized")
			return
		}

		c.Set(UserIDKey, identity.UserID)
		c.Next()
	}
}
