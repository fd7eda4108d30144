package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for user data
const (
	ContextKeyUserID    = "auth_user_id"
	ContextKeyFirstName = "auth_first_name"
)

// Middleware resolves the signed-in user for each request.
type Middleware struct {
	sessionManager *SessionManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(sessionManager *SessionManager) *Middleware {
	return &Middleware{sessionManager: sessionManager}
}

// Handler copies the session's user into the gin context. Anonymous requests
// pass through with user ID 0; RequireAuth decides what they may reach.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if userID := m.sessionManager.GetUserID(ctx); userID != 0 {
			c.Set(ContextKeyUserID, userID)
			c.Set(ContextKeyFirstName, m.sessionManager.GetFirstName(ctx))
		}
		c.Next()
	}
}

// RequireAuth sends anonymous browsers to the login page and anonymous API
// clients a 401.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) != 0 {
			c.Next()
			return
		}

		if isAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// GetUserID retrieves the signed-in user's ID from the context, or 0.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetFirstName retrieves the signed-in user's first name from the context.
func GetFirstName(c *gin.Context) string {
	return c.GetString(ContextKeyFirstName)
}

// IsAuthenticated returns true if the request carries a signed-in session.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != 0
}
