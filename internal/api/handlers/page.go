package handlers

import (
	"errors"
	"strconv"

	"civic-portal/internal/api/middleware"
	"civic-portal/internal/api/session"
	"civic-portal/internal/logger"
	"civic-portal/internal/models"
	"civic-portal/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Page renders the JSON view models and carries the flash/redirect helpers
// shared by every page handler.
type Page struct {
	sm    *session.Manager
	audit *services.AuditService
	log   *logger.Logger
}

func NewPage(sm *session.Manager, audit *services.AuditService, log *logger.Logger) *Page {
	return &Page{sm: sm, audit: audit, log: log}
}

type pageUser struct {
	ID              uint   `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	Role            int    `json:"role,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
	IsAdmin         bool   `json:"is_admin"`
}

func viewUser(u *models.User) pageUser {
	if u == nil {
		return pageUser{}
	}
	return pageUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		IsAuthenticated: true,
		IsAdmin:         u.IsAdmin(),
	}
}

func (p *Page) render(c *gin.Context, status int, page string, data gin.H) {
	flashes := p.sm.Flashes(c)
	if flashes == nil {
		flashes = []session.Flash{}
	}
	c.JSON(status, gin.H{
		"page":    page,
		"user":    viewUser(middleware.CurrentUser(c)),
		"flashes": flashes,
		"data":    data,
	})
}

func (p *Page) flash(c *gin.Context, category, message string) {
	p.sm.AddFlash(c, category, message)
}

func (p *Page) redirect(c *gin.Context, url string) {
	c.Redirect(303, url)
}

func (p *Page) flashRedirect(c *gin.Context, category, message, url string) {
	p.flash(c, category, message)
	p.redirect(c, url)
}

func (p *Page) entry(c *gin.Context) *logrus.Entry {
	return p.log.WithRequestID(c.GetString("request_id"))
}

// fail flashes the user-facing text of err (def when it must not leak) and
// redirects. Unexpected errors are logged.
func (p *Page) fail(c *gin.Context, err error, def, url string) {
	msg := services.Message(err, def)
	if msg == def {
		p.entry(c).WithError(err).Error(def)
	}
	p.flashRedirect(c, session.Error, msg, url)
}

// degrade logs a failed read whose page still renders without the data.
func (p *Page) degrade(c *gin.Context, err error, what string) {
	p.entry(c).WithError(err).WithField("data", what).Warn("page data unavailable")
}

func (p *Page) record(c *gin.Context, action, resource, resourceID, details string) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return
	}
	p.recordFor(c, user.ID, action, resource, resourceID, details)
}

func (p *Page) recordFor(c *gin.Context, userID uint, action, resource, resourceID, details string) {
	err := p.audit.Record(c.Request.Context(), services.AuditEntry{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		p.entry(c).WithError(err).Warn("failed to write audit entry")
	}
}

// NotFound is the 404 page.
func (p *Page) NotFound(c *gin.Context) {
	p.render(c, 404, "not_found", nil)
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func isNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}

func isPermission(err error) bool {
	return errors.Is(err, services.ErrPermission)
}

func isValidation(err error) bool {
	return errors.Is(err, services.ErrValidation)
}
