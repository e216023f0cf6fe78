package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieName is the cookie carrying the session token for browser callers.
const CookieName = "cm_session"

const (
	sessionKey = "auth_session"
	userIDKey  = "user_id"
)

// SessionResolver looks up a session by token.
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*Session, error)
}

// Middleware attaches the caller's session to the request when a valid token
// is presented. It never rejects a request on its own.
func Middleware(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token != "" {
			if sess, err := resolver.GetSession(c.Request.Context(), token); err == nil {
				c.Set(sessionKey, sess)
				c.Set(userIDKey, sess.User.ID)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a session. Browser navigations are
// sent to /login; API callers get a 401 envelope.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionFrom(c); ok {
			c.Next()
			return
		}

		if strings.Contains(c.GetHeader("Accept"), "text/html") {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "unauthorized",
		})
	}
}

// TokenFromRequest reads a bearer token from the Authorization header,
// falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if ck, err := r.Cookie(CookieName); err == nil {
		return ck.Value
	}
	return ""
}

// SessionFrom returns the session attached by Middleware.
func SessionFrom(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok && sess != nil
}

// UserID returns the authenticated user's ID, or "" when anonymous.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// SetCookie stores the session token for browser callers.
func SetCookie(c *gin.Context, sess *Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, sess.Token, maxAge, "/", "", false, true)
}

// ClearCookie removes the session cookie.
func ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
}
