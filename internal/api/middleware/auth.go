package middleware

import (
	"errors"

	"civic-portal/internal/api/session"
	"civic-portal/internal/logger"
	"civic-portal/internal/models"
	"civic-portal/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	msgLoginRequired = "Por favor inicie sesión para acceder a esta página"
	msgAdminRequired = "Acceso denegado. Se requieren permisos de administrador"
)

// LoadSession resolves the session token, if any, and stores the user in the
// context. Tokens that fail verification, were revoked, or belong to a
// deactivated account are cleared; the request continues anonymously.
func LoadSession(sm *session.Manager, authService *services.AuthService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := session.TokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := sm.Parse(token)
		if err != nil {
			sm.ClearCookie(c)
			c.Next()
			return
		}

		sess, err := authService.GetSession(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrNotFound) {
				log.WithError(err).Warn("session lookup failed")
			}
			sm.ClearCookie(c)
			c.Next()
			return
		}

		if sess.UserID != claims.UserID || !sess.User.Active {
			if err := authService.DeleteSession(c.Request.Context(), token); err != nil {
				log.WithError(err).Warn("failed to revoke session")
			}
			sm.ClearCookie(c)
			c.Next()
			return
		}

		c.Set("user", &sess.User)
		c.Set("user_id", sess.UserID)
		c.Set("session", sess)

		c.Next()
	}
}

// CurrentUser returns the signed-in user or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get("user")
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// RequireSession guards a route. Anonymous visitors are sent to /login and
// brought back afterwards; signed-in users lacking the role go home.
// role 0 accepts any signed-in user.
func RequireSession(sm *session.Manager, role int) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			sm.SetNext(c, c.Request.URL.RequestURI())
			sm.AddFlash(c, session.Warning, msgLoginRequired)
			c.Redirect(303, "/login")
			c.Abort()
			return
		}

		if role != 0 && user.Role != role {
			sm.AddFlash(c, session.Error, msgAdminRequired)
			c.Redirect(303, "/")
			c.Abort()
			return
		}

		c.Next()
	}
}
