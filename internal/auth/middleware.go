package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const sessionContextKey = "cloudbinSession"

// CSRFHeader carries the per-action literal every API call must send.
const CSRFHeader = "X-CSRF-Token"

// SessionMiddleware validates the session cookie and injects the Session.
// Fingerprint binding is checked by the handler that reads the request body.
func SessionMiddleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(service.cfg.CookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		session, err := service.Authenticate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// CurrentSession extracts the session stored by SessionMiddleware.
func CurrentSession(c *gin.Context) (Session, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return Session{}, false
	}
	session, ok := value.(Session)
	return session, ok
}
