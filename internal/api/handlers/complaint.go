package handlers

import (
	"civic-portal/internal/api/session"
	"civic-portal/internal/services"

	"github.com/gin-gonic/gin"
)

type ComplaintHandler struct {
	*Page
	complaintService *services.ComplaintService
}

func NewComplaintHandler(page *Page, complaintService *services.ComplaintService) *ComplaintHandler {
	return &ComplaintHandler{Page: page, complaintService: complaintService}
}

func (h *ComplaintHandler) NewComplaint(c *gin.Context) {
	h.render(c, 200, "denunciar", nil)
}

func (h *ComplaintHandler) CreateComplaint(c *gin.Context) {
	complaint, err := h.complaintService.Create(c.Request.Context(), currentUser(c).ID, services.ComplaintInput{
		Title:              c.PostForm("titulo"),
		Description:        c.PostForm("descripcion"),
		Type:               c.PostForm("tipo"),
		AccusedName:        c.PostForm("denunciado_nombre"),
		AccusedPosition:    c.PostForm("denunciado_cargo"),
		AccusedInstitution: c.PostForm("denunciado_institucion"),
		Evidence:           c.PostForm("pruebas"),
		Anonymous:          c.PostForm("anonimo") != "",
	})
	if err != nil {
		h.fail(c, err, "Error al enviar la denuncia", "/denunciar")
		return
	}

	h.record(c, "create", "denuncias", uintString(complaint.ID), complaint.Type)
	h.flashRedirect(c, session.Success, "Denuncia enviada exitosamente. Será revisada por el comité correspondiente.", "/mis_denuncias")
}

func (h *ComplaintHandler) MyComplaints(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	filter := services.ComplaintFilter{Status: c.Query("estado"), Type: c.Query("tipo")}

	complaints, err := h.complaintService.ListForUser(ctx, user.ID, filter)
	if err != nil {
		h.fail(c, err, "Error al cargar las denuncias", "/")
		return
	}

	types, err := h.complaintService.Types(ctx, user.ID)
	if err != nil {
		h.degrade(c, err, "complaint types")
		types = []string{}
	}

	h.render(c, 200, "mis_denuncias", gin.H{
		"denuncias": complaints,
		"tipos":     types,
		"filtros":   gin.H{"estado": filter.Status, "tipo": filter.Type},
	})
}

func (h *ComplaintHandler) Complaint(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Denuncia no encontrada", "/mis_denuncias")
		return
	}

	complaint, err := h.complaintService.Get(c.Request.Context(), id, currentUser(c))
	switch {
	case isNotFound(err):
		h.flashRedirect(c, session.Error, "Denuncia no encontrada", "/mis_denuncias")
	case isPermission(err):
		h.flashRedirect(c, session.Error, "No tiene permisos para ver esta denuncia", "/mis_denuncias")
	case err != nil:
		h.fail(c, err, "Error al cargar la denuncia", "/mis_denuncias")
	default:
		h.render(c, 200, "ver_denuncia", gin.H{"denuncia": complaint})
	}
}
