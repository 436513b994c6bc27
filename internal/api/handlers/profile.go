package handlers

import (
	"civic-portal/internal/api/session"
	"civic-portal/internal/services"

	"github.com/gin-gonic/gin"
)

const profileRecentReports = 5

type ProfileHandler struct {
	*Page
	authService   *services.AuthService
	reportService *services.ReportService
	statsService  *services.StatsService
}

func NewProfileHandler(page *Page, authService *services.AuthService, reportService *services.ReportService, statsService *services.StatsService) *ProfileHandler {
	return &ProfileHandler{
		Page:          page,
		authService:   authService,
		reportService: reportService,
		statsService:  statsService,
	}
}

// Profile shows the account, its activity counters and the latest reports.
func (h *ProfileHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.authService.ResolveUser(ctx, currentUser(c).ID)
	if err != nil {
		if isNotFound(err) {
			h.flashRedirect(c, session.Error, "Usuario no encontrado", "/")
			return
		}
		h.fail(c, err, "Error al cargar el perfil", "/")
		return
	}

	reports, err := h.reportService.ListForUser(ctx, user.ID, services.ReportFilter{})
	if err != nil {
		h.degrade(c, err, "reports")
		reports = nil
	}
	if len(reports) > profileRecentReports {
		reports = reports[:profileRecentReports]
	}
	if reports == nil {
		reports = []services.ReportItem{}
	}

	h.render(c, 200, "perfil", gin.H{
		"usuario":          user,
		"stats":            h.statsService.ForUser(ctx, user.ID),
		"reportes_previos": reports,
	})
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	user := currentUser(c)
	_, err := h.authService.UpdateProfile(c.Request.Context(), user.ID, services.ProfileInput{
		Name:       c.PostForm("nombre"),
		Phone:      c.PostForm("telefono"),
		Address:    c.PostForm("direccion"),
		NationalID: c.PostForm("cedula"),
	})
	if err != nil {
		h.fail(c, err, "Error al actualizar el perfil", "/perfil")
		return
	}
	h.record(c, "update", "usuarios", uintString(user.ID), "perfil")
	h.flashRedirect(c, session.Success, "Perfil actualizado correctamente", "/perfil")
}

func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	user := currentUser(c)
	err := h.authService.ChangePassword(c.Request.Context(), user.ID, session.TokenFromRequest(c),
		c.PostForm("current_password"), c.PostForm("new_password"), c.PostForm("confirm_password"))
	if err != nil {
		h.fail(c, err, "Error al cambiar la contraseña", "/perfil")
		return
	}
	h.record(c, "change_password", "usuarios", uintString(user.ID), "")
	h.flashRedirect(c, session.Success, "Contraseña cambiada exitosamente", "/perfil")
}
