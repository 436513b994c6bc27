// Package session carries the signed-in identity and the one-shot flash
// messages between requests.
//
// Identity is an HS256 JWT kept in the "session" cookie (or sent as a Bearer
// token by API clients); every token is also stored server-side so logout
// revokes it. Flashes and the post-login redirect target live in a separate
// gorilla/sessions cookie.
package session

import (
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"civic-portal/internal/config"
	"civic-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
)

const (
	CookieName = "session"
	flashName  = "portal_flash"
	nextKey    = "next_url"
)

// Flash categories understood by the front end.
const (
	Success = "success"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

var ErrInvalidToken = errors.New("invalid session token")

type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func init() {
	gob.Register(Flash{})
}

// Claims is the payload of a session token.
type Claims struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   int    `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	cfg    config.SessionConfig
	secret []byte
	store  *sessions.CookieStore
}

func NewManager(cfg config.SessionConfig) *Manager {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{cfg: cfg, secret: []byte(cfg.Secret), store: store}
}

// Issue signs a token for user. remember stretches the lifetime to the
// configured remember_for window.
func (m *Manager) Issue(user *models.User, remember bool) (string, time.Time, error) {
	ttl := m.cfg.ExpiresIn
	if remember && m.cfg.RememberFor > 0 {
		ttl = m.cfg.RememberFor
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.cfg.Issuer,
			// unique even for two logins in the same second
			ID: fmt.Sprintf("%d-%d", user.ID, now.UnixNano()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse verifies the signature, issuer and expiry of token.
func (m *Manager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenFromRequest returns the session cookie or, failing that, a Bearer
// token from the Authorization header.
func TokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(CookieName); err == nil && token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func (m *Manager) SetCookie(c *gin.Context, token string, expiresAt time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(time.Until(expiresAt).Seconds()), "/", "", m.cfg.Secure, true)
}

func (m *Manager) ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", m.cfg.Secure, true)
}

func (m *Manager) flashSession(c *gin.Context) *sessions.Session {
	// a cookie signed with an old secret decodes to a fresh session
	s, _ := m.store.Get(c.Request, flashName)
	return s
}

func (m *Manager) save(c *gin.Context, s *sessions.Session) {
	if err := s.Save(c.Request, c.Writer); err != nil {
		c.Error(fmt.Errorf("save flash session: %w", err))
	}
}

// AddFlash queues a message for the next page rendered for this browser.
func (m *Manager) AddFlash(c *gin.Context, category, message string) {
	s := m.flashSession(c)
	s.AddFlash(Flash{Category: category, Message: message})
	m.save(c, s)
}

// Flashes drains the queued messages.
func (m *Manager) Flashes(c *gin.Context) []Flash {
	s := m.flashSession(c)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	m.save(c, s)

	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}

// SetNext remembers where to send the user after signing in.
func (m *Manager) SetNext(c *gin.Context, url string) {
	s := m.flashSession(c)
	s.Values[nextKey] = url
	m.save(c, s)
}

// PopNext returns and forgets the remembered target. Only local paths are
// returned.
func (m *Manager) PopNext(c *gin.Context) string {
	s := m.flashSession(c)
	next, _ := s.Values[nextKey].(string)
	if next == "" {
		return ""
	}
	delete(s.Values, nextKey)
	m.save(c, s)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}
