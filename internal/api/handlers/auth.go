package handlers

import (
	"errors"
	"fmt"

	"civic-portal/internal/api/middleware"
	"civic-portal/internal/api/session"
	"civic-portal/internal/config"
	"civic-portal/internal/models"
	"civic-portal/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	*Page
	authService  *services.AuthService
	resetService *services.ResetService
	cfg          *config.Config
}

func NewAuthHandler(page *Page, authService *services.AuthService, resetService *services.ResetService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		Page:         page,
		authService:  authService,
		resetService: resetService,
		cfg:          cfg,
	}
}

// alreadySignedIn bounces visitors that already hold a session.
func (h *AuthHandler) alreadySignedIn(c *gin.Context) bool {
	if middleware.CurrentUser(c) == nil {
		return false
	}
	h.flashRedirect(c, session.Info, "Ya tienes una sesión activa", "/")
	return true
}

// LoginPage shows the sign-in form, or the registration form with ?register=true.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	if h.alreadySignedIn(c) {
		return
	}
	if c.Query("registro") == "ok" {
		h.flash(c, session.Success, "¡Cuenta creada exitosamente! Ahora puedes iniciar sesión.")
	}
	h.render(c, 200, "login", gin.H{"register": c.Query("register") == "true"})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	if h.alreadySignedIn(c) {
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), c.PostForm("usuario"), c.PostForm("password"))
	if err != nil {
		h.fail(c, err, "Error al iniciar sesión", "/login")
		return
	}

	token, expiresAt, err := h.sm.Issue(user, c.PostForm("remember") != "")
	if err != nil {
		h.fail(c, err, "Error al iniciar sesión", "/login")
		return
	}
	if err := h.authService.CreateSession(c.Request.Context(), user.ID, token, expiresAt); err != nil {
		h.fail(c, err, "Error al iniciar sesión", "/login")
		return
	}
	h.sm.SetCookie(c, token, expiresAt)
	h.recordFor(c, user.ID, "login", "session", "", "")

	h.flash(c, session.Success, fmt.Sprintf("¡Bienvenido/a %s!", user.Name))
	if next := h.sm.PopNext(c); next != "" {
		h.redirect(c, next)
		return
	}
	if user.IsAdmin() {
		h.redirect(c, "/admin")
		return
	}
	h.redirect(c, "/")
}

func (h *AuthHandler) RegisterPage(c *gin.Context) {
	h.redirect(c, "/login?register=true")
}

// Register creates a citizen account. The visitor still has to sign in.
func (h *AuthHandler) Register(c *gin.Context) {
	if h.alreadySignedIn(c) {
		return
	}

	_, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Name:       c.PostForm("nombre"),
		Email:      c.PostForm("email"),
		Password:   c.PostForm("password"),
		Confirm:    c.PostForm("confirm_password"),
		Phone:      c.PostForm("telefono"),
		NationalID: c.PostForm("cedula"),
	})
	if err != nil {
		h.fail(c, err, "Error al registrar usuario", "/login?register=true")
		return
	}

	h.flashRedirect(c, session.Success, "¡Registro exitoso! Ahora puede iniciar sesión", "/login?registro=ok")
}

// Logout revokes the session server-side and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := session.TokenFromRequest(c); token != "" {
		if err := h.authService.DeleteSession(c.Request.Context(), token); err != nil {
			h.entry(c).WithError(err).Warn("failed to delete session")
		}
	}
	h.record(c, "logout", "session", "", "")
	h.sm.ClearCookie(c)
	h.flashRedirect(c, session.Info, "Sesión cerrada exitosamente", "/")
}

func (h *AuthHandler) ForgotPasswordPage(c *gin.Context) {
	h.render(c, 200, "olvido_contrasena", nil)
}

// ForgotPassword answers the same way whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	email := c.PostForm("email")
	link, err := h.resetService.RequestReset(c.Request.Context(), email, baseURL(c))
	if err != nil {
		h.fail(c, err, "Error al procesar la solicitud", "/olvido-contrasena")
		return
	}

	h.flash(c, session.Info, fmt.Sprintf("Se ha enviado un enlace de recuperación a %s", email))
	if h.cfg.Reset.ExposeLink && link != "" {
		h.flash(c, session.Info, "Enlace de prueba: "+link)
	}
	h.redirect(c, "/olvido-contrasena")
}

func (h *AuthHandler) ResetPasswordPage(c *gin.Context) {
	token := c.Param("token")
	if _, err := h.resetService.Validate(c.Request.Context(), token); err != nil {
		h.fail(c, err, "Error al procesar la solicitud", "/olvido-contrasena")
		return
	}
	h.render(c, 200, "restablecer_contrasena", gin.H{"token": token, "valid": true})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	token := c.Param("token")
	err := h.resetService.Consume(c.Request.Context(), token, c.PostForm("password"), c.PostForm("confirm_password"))
	switch {
	case err == nil:
		h.flashRedirect(c, session.Success, "Contraseña restablecida exitosamente. Ahora puede iniciar sesión.", "/login")
	case isValidation(err):
		h.fail(c, err, "", "/restablecer-contrasena/"+token)
	default:
		h.fail(c, err, "Error al procesar la solicitud", "/olvido-contrasena")
	}
}

// CheckEmail backs the live availability check of the registration form.
func (h *AuthHandler) CheckEmail(c *gin.Context) {
	available, err := h.authService.EmailAvailable(c.Request.Context(), c.Query("email"))
	switch {
	case isValidation(err):
		c.JSON(200, gin.H{"available": false, "message": "Email requerido"})
	case err != nil:
		h.entry(c).WithError(err).Warn("email availability check failed")
		c.JSON(200, gin.H{"available": false, "message": "Error al verificar email"})
	case available:
		c.JSON(200, gin.H{"available": true, "message": "Email disponible"})
	default:
		c.JSON(200, gin.H{"available": false, "message": "Email ya registrado"})
	}
}

// baseURL rebuilds the externally visible origin for links sent by mail.
func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// currentUser is the user guaranteed by RequireSession.
func currentUser(c *gin.Context) *models.User {
	user := middleware.CurrentUser(c)
	if user == nil {
		panic(errors.New("handler mounted without RequireSession"))
	}
	return user
}
