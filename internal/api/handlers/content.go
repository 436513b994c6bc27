package handlers

import (
	"civic-portal/internal/api/middleware"
	"civic-portal/internal/api/session"
	"civic-portal/internal/models"
	"civic-portal/internal/services"

	"github.com/gin-gonic/gin"
)

// ContentHandler serves the public pages. Listing failures degrade to empty
// pages rather than errors.
type ContentHandler struct {
	*Page
	contentService *services.ContentService
	contactService *services.ContactService
	statsService   *services.StatsService
}

func NewContentHandler(page *Page, contentService *services.ContentService, contactService *services.ContactService, statsService *services.StatsService) *ContentHandler {
	return &ContentHandler{
		Page:           page,
		contentService: contentService,
		contactService: contactService,
		statsService:   statsService,
	}
}

func (h *ContentHandler) Home(c *gin.Context) {
	ctx := c.Request.Context()
	home, err := h.contentService.Home(ctx)
	if err != nil {
		h.degrade(c, err, "home")
		home = &services.HomeContent{}
	}
	if home.Services == nil {
		home.Services = []models.Service{}
	}
	if home.Notices == nil {
		home.Notices = []models.Notice{}
	}
	if home.Projects == nil {
		home.Projects = []models.Project{}
	}

	h.render(c, 200, "index", gin.H{
		"servicios": home.Services,
		"avisos":    home.Notices,
		"proyectos": home.Projects,
		"stats":     h.statsService.Public(ctx),
	})
}

func (h *ContentHandler) Services(c *gin.Context) {
	services, err := h.contentService.Services(c.Request.Context())
	if err != nil {
		h.degrade(c, err, "services")
		services = []models.Service{}
	}
	h.render(c, 200, "servicios", gin.H{"servicios": services})
}

func (h *ContentHandler) Service(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Servicio no encontrado", "/servicios")
		return
	}
	service, err := h.contentService.Service(c.Request.Context(), id)
	if err != nil {
		if !isNotFound(err) {
			h.degrade(c, err, "service")
		}
		h.flashRedirect(c, session.Error, "Servicio no encontrado", "/servicios")
		return
	}
	h.render(c, 200, "servicio_detalle", gin.H{"servicio": service})
}

func (h *ContentHandler) Projects(c *gin.Context) {
	status := c.Query("estado")
	projects, err := h.contentService.Projects(c.Request.Context(), status)
	if err != nil {
		h.degrade(c, err, "projects")
		projects = []models.Project{}
	}
	h.render(c, 200, "proyectos", gin.H{
		"proyectos": projects,
		"estados":   models.ProjectStatuses,
		"filtros":   gin.H{"estado": status},
	})
}

func (h *ContentHandler) Project(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Proyecto no encontrado", "/proyectos")
		return
	}
	project, err := h.contentService.Project(c.Request.Context(), id)
	if err != nil {
		if !isNotFound(err) {
			h.degrade(c, err, "project")
		}
		h.flashRedirect(c, session.Error, "Proyecto no encontrado", "/proyectos")
		return
	}
	h.render(c, 200, "proyecto_detalle", gin.H{"proyecto": project})
}

func (h *ContentHandler) Notices(c *gin.Context) {
	ctx := c.Request.Context()
	noticeType := c.Query("tipo")
	notices, err := h.contentService.Notices(ctx, noticeType)
	if err != nil {
		h.degrade(c, err, "notices")
		notices = []models.Notice{}
	}
	types, err := h.contentService.NoticeTypes(ctx)
	if err != nil {
		h.degrade(c, err, "notice types")
		types = []string{}
	}
	h.render(c, 200, "avisos", gin.H{
		"avisos":  notices,
		"tipos":   types,
		"filtros": gin.H{"tipo": noticeType},
	})
}

func (h *ContentHandler) Notice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Aviso no encontrado o expirado", "/avisos")
		return
	}
	notice, err := h.contentService.Notice(c.Request.Context(), id)
	if err != nil {
		if !isNotFound(err) {
			h.degrade(c, err, "notice")
		}
		h.flashRedirect(c, session.Error, "Aviso no encontrado o expirado", "/avisos")
		return
	}
	h.render(c, 200, "aviso_detalle", gin.H{"aviso": notice})
}

// ContactPage prefills the form for signed-in users.
func (h *ContentHandler) ContactPage(c *gin.Context) {
	data := gin.H{}
	if user := middleware.CurrentUser(c); user != nil {
		data["nombre"] = user.Name
		data["email"] = user.Email
	}
	h.render(c, 200, "contacto", data)
}

func (h *ContentHandler) Contact(c *gin.Context) {
	msg, err := h.contactService.Create(c.Request.Context(), services.ContactInput{
		Name:    c.PostForm("nombre"),
		Email:   c.PostForm("email"),
		Phone:   c.PostForm("telefono"),
		Subject: c.PostForm("asunto"),
		Message: c.PostForm("mensaje"),
	})
	if err != nil {
		h.fail(c, err, "Error al enviar el mensaje", "/contacto")
		return
	}
	h.record(c, "create", "contactos", uintString(msg.ID), "")
	h.flashRedirect(c, session.Success, "¡Mensaje enviado correctamente! Nos pondremos en contacto pronto.", "/contacto")
}

func (h *ContentHandler) About(c *gin.Context) {
	h.render(c, 200, "nosotros", nil)
}

func (h *ContentHandler) Transparency(c *gin.Context) {
	h.render(c, 200, "transparencia", nil)
}
