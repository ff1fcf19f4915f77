package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"templatefill-backend/internal/shared/auth"
	"templatefill-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	isGuestKey   = "isGuest"
	principalKey = "principal"
)

// Auth validates JWTs or guest headers and stores the caller's Principal in context.
func Auth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" || verifier == nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			setPrincipal(c, auth.User(claims.Sub))
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		setPrincipal(c, auth.Guest(guestID))
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(principalKey, p)
	c.Set(userIDKey, p.UserID)
	c.Set(isGuestKey, p.IsGuest)
}

// PrincipalFromContext returns the caller identity set by the auth middleware.
// The zero Principal is returned when none was set.
func PrincipalFromContext(c *gin.Context) auth.Principal {
	if c == nil {
		return auth.Principal{}
	}
	val, _ := c.Get(principalKey)
	if p, ok := val.(auth.Principal); ok {
		return p
	}
	return auth.Principal{}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if id := PrincipalFromContext(c).UserID; id != "" {
		return id
	}
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}
