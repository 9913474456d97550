package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hverma/enrollhub/internal/app/models/dto"
	"github.com/hverma/enrollhub/internal/app/services"
	"github.com/hverma/enrollhub/internal/pkg/logger"
)

// Cookie names carrying the session to the client.
const (
	IDTokenCookie = "google_id_token"
	EmailCookie   = "user_email"
)

// Context key under which the verified identity is attached.
const IdentityKey = "identity"

// IdentityMiddleware attaches the caller's verified identity to the request
// context. Validation failure is never fatal here; the request continues
// unauthenticated and downstream guards reject where needed.
type IdentityMiddleware struct {
	sessions *services.SessionService
}

// NewIdentityMiddleware creates a new IdentityMiddleware
func NewIdentityMiddleware(sessions *services.SessionService) *IdentityMiddleware {
	return &IdentityMiddleware{sessions: sessions}
}

// Attach extracts the id token cookie and validates it against the provider.
// On success the identity is set on the context; on any failure the partial
// state is cleared and the chain continues.
func (m *IdentityMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken, err := c.Cookie(IDTokenCookie)
		if err != nil || idToken == "" {
			c.Next()
			return
		}

		identity, err := m.sessions.Validate(c.Request.Context(), idToken)
		if err != nil {
			logger.Debug().Err(err).Msg("Identity token validation failed")
			c.Set(IdentityKey, nil)
			c.Next()
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// RequireIdentity rejects requests that carry no verified identity.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, exists := c.Get(IdentityKey)
		if !exists || identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
			return
		}
		c.Next()
	}
}

// IdentityFromContext returns the verified identity attached to the request,
// if any.
func IdentityFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return "", false
	}
	identity, ok := value.(string)
	return identity, ok && identity != ""
}
