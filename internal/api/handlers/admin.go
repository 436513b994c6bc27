package handlers

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"civic-portal/internal/api/session"
	"civic-portal/internal/models"
	"civic-portal/internal/services"

	"github.com/gin-gonic/gin"
)

const adminRecentItems = 10

// AdminHandler is the back office: dashboard, moderation of reports,
// complaints and contact messages, exports and content publishing.
// Every mutation leaves an audit entry.
type AdminHandler struct {
	*Page
	reportService    *services.ReportService
	complaintService *services.ComplaintService
	contactService   *services.ContactService
	contentService   *services.ContentService
	userService      *services.UserService
	statsService     *services.StatsService
	exportService    *services.ExportService
}

type AdminServices struct {
	Reports    *services.ReportService
	Complaints *services.ComplaintService
	Contacts   *services.ContactService
	Content    *services.ContentService
	Users      *services.UserService
	Stats      *services.StatsService
	Export     *services.ExportService
}

func NewAdminHandler(page *Page, s AdminServices) *AdminHandler {
	return &AdminHandler{
		Page:             page,
		reportService:    s.Reports,
		complaintService: s.Complaints,
		contactService:   s.Contacts,
		contentService:   s.Content,
		userService:      s.Users,
		statsService:     s.Stats,
		exportService:    s.Export,
	}
}

type UpdateReportRequest struct {
	Status   string `form:"estado"`
	Response string `form:"respuesta_admin"`
}

type UpdateComplaintRequest struct {
	Status string `form:"estado"`
	Notes  string `form:"observaciones"`
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	reports, err := h.reportService.Recent(ctx, adminRecentItems)
	if err != nil {
		h.fail(c, err, "Error al cargar el panel de administración", "/")
		return
	}
	users, err := h.userService.Recent(ctx, adminRecentItems)
	if err != nil {
		h.fail(c, err, "Error al cargar el panel de administración", "/")
		return
	}
	activity, err := h.audit.Recent(ctx, adminRecentItems)
	if err != nil {
		h.degrade(c, err, "audit log")
		activity = []models.AuditLog{}
	}

	h.render(c, 200, "admin_dashboard", gin.H{
		"stats":              h.statsService.Dashboard(ctx),
		"reportes_recientes": reports,
		"usuarios_recientes": users,
		"actividad":          activity,
	})
}

func (h *AdminHandler) Reports(c *gin.Context) {
	ctx := c.Request.Context()
	filter := services.ReportFilter{
		Status:   c.Query("estado"),
		Category: c.Query("categoria"),
		Priority: c.Query("prioridad"),
	}

	reports, err := h.reportService.ListAll(ctx, filter)
	if err != nil {
		h.fail(c, err, "Error al cargar los reportes", "/admin")
		return
	}
	categories, err := h.reportService.Categories(ctx, 0)
	if err != nil {
		h.degrade(c, err, "categories")
		categories = []string{}
	}

	h.render(c, 200, "admin_reportes", gin.H{
		"reportes":    reports,
		"categorias":  categories,
		"estados":     models.ReportStatuses,
		"prioridades": models.ReportPriorities,
		"filtros": gin.H{
			"estado":    filter.Status,
			"categoria": filter.Category,
			"prioridad": filter.Priority,
		},
	})
}

func (h *AdminHandler) EditReportPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Reporte no encontrado", "/admin/reportes")
		return
	}

	ctx := c.Request.Context()
	report, err := h.reportService.Get(ctx, id, currentUser(c))
	if err != nil {
		if isNotFound(err) {
			h.flashRedirect(c, session.Error, "Reporte no encontrado", "/admin/reportes")
			return
		}
		h.fail(c, err, "Error al editar el reporte", "/admin/reportes")
		return
	}
	comments, err := h.reportService.Comments(ctx, id)
	if err != nil {
		h.degrade(c, err, "comments")
		comments = []services.CommentItem{}
	}

	h.render(c, 200, "admin_editar_reporte", gin.H{
		"reporte":     report,
		"comentarios": comments,
		"estados":     models.ReportStatuses,
	})
}

// UpdateReport sets the status and posts the optional answer to the thread.
func (h *AdminHandler) UpdateReport(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Reporte no encontrado", "/admin/reportes")
		return
	}

	var req UpdateReportRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, err, "Error al editar el reporte", "/admin/reportes")
		return
	}

	report, err := h.reportService.AdminUpdate(c.Request.Context(), id, currentUser(c).ID, req.Status, req.Response)
	if err != nil {
		if isNotFound(err) {
			h.flashRedirect(c, session.Error, "Reporte no encontrado", "/admin/reportes")
			return
		}
		h.fail(c, err, "Error al editar el reporte", "/admin/reportes/"+c.Param("id")+"/editar")
		return
	}

	h.record(c, "update", "reportes", uintString(report.ID), "estado="+report.Status)
	h.flashRedirect(c, session.Success, "Reporte actualizado correctamente", "/admin/reportes")
}

func (h *AdminHandler) Complaints(c *gin.Context) {
	ctx := c.Request.Context()
	filter := services.ComplaintFilter{Status: c.Query("estado"), Type: c.Query("tipo")}

	complaints, err := h.complaintService.ListAll(ctx, filter)
	if err != nil {
		h.fail(c, err, "Error al cargar las denuncias", "/admin")
		return
	}
	types, err := h.complaintService.Types(ctx, 0)
	if err != nil {
		h.degrade(c, err, "complaint types")
		types = []string{}
	}

	h.render(c, 200, "admin_denuncias", gin.H{
		"denuncias": complaints,
		"tipos":     types,
		"estados":   models.ComplaintStatuses,
		"filtros":   gin.H{"estado": filter.Status, "tipo": filter.Type},
	})
}

func (h *AdminHandler) EditComplaintPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Denuncia no encontrada", "/admin/denuncias")
		return
	}

	complaint, err := h.complaintService.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		if isNotFound(err) {
			h.flashRedirect(c, session.Error, "Denuncia no encontrada", "/admin/denuncias")
			return
		}
		h.fail(c, err, "Error al editar la denuncia", "/admin/denuncias")
		return
	}

	h.render(c, 200, "admin_editar_denuncia", gin.H{
		"denuncia": complaint,
		"estados":  models.ComplaintStatuses,
	})
}

// UpdateComplaint changes the status. The reviewer's notes only go to the
// audit trail.
func (h *AdminHandler) UpdateComplaint(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Denuncia no encontrada", "/admin/denuncias")
		return
	}

	var req UpdateComplaintRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, err, "Error al editar la denuncia", "/admin/denuncias")
		return
	}

	complaint, err := h.complaintService.AdminUpdate(c.Request.Context(), id, req.Status)
	if err != nil {
		if isNotFound(err) {
			h.flashRedirect(c, session.Error, "Denuncia no encontrada", "/admin/denuncias")
			return
		}
		h.fail(c, err, "Error al editar la denuncia", "/admin/denuncias/"+c.Param("id")+"/editar")
		return
	}

	details := "estado=" + complaint.Status
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		details += "; observaciones=" + notes
	}
	h.record(c, "update", "denuncias", uintString(complaint.ID), details)
	h.flashRedirect(c, session.Success, "Denuncia actualizada correctamente", "/admin/denuncias")
}

func (h *AdminHandler) Contacts(c *gin.Context) {
	status := c.Query("estado")
	messages, err := h.contactService.List(c.Request.Context(), status)
	if err != nil {
		h.fail(c, err, "Error al cargar los mensajes", "/admin")
		return
	}

	h.render(c, 200, "admin_contactos", gin.H{
		"contactos": messages,
		"filtros":   gin.H{"estado": status},
	})
}

func (h *AdminHandler) ReplyContact(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Mensaje no encontrado", "/admin/contactos")
		return
	}

	msg, err := h.contactService.Reply(c.Request.Context(), id, c.PostForm("respuesta"))
	if err != nil {
		if isNotFound(err) {
			h.flashRedirect(c, session.Error, "Mensaje no encontrado", "/admin/contactos")
			return
		}
		h.fail(c, err, "Error al enviar la respuesta", "/admin/contactos")
		return
	}

	h.record(c, "reply", "contactos", uintString(msg.ID), "")
	h.flashRedirect(c, session.Success, "Respuesta enviada correctamente", "/admin/contactos")
}

// Export downloads a table as CSV. The file is built in memory first so a
// failed query still yields a redirect instead of a truncated download.
func (h *AdminHandler) Export(c *gin.Context) {
	kind := c.Param("tipo")
	filename, err := h.exportService.Filename(kind)
	if err != nil {
		h.fail(c, err, "Error al exportar los datos", "/admin")
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.Export(c.Request.Context(), kind, &buf, c.Query("estado")); err != nil {
		h.fail(c, err, "Error al exportar los datos", "/admin")
		return
	}

	h.record(c, "export", kind, "", "")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(200, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *AdminHandler) CreateProject(c *gin.Context) {
	percent := 0
	if v := strings.TrimSpace(c.PostForm("porcentaje_avance")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			h.flashRedirect(c, session.Error, "El porcentaje de avance debe estar entre 0 y 100", "/proyectos")
			return
		}
		percent = p
	}

	project, err := h.contentService.CreateProject(c.Request.Context(), services.ProjectInput{
		Name:              c.PostForm("nombre"),
		Description:       c.PostForm("descripcion"),
		StartDate:         c.PostForm("fecha_inicio"),
		EndDate:           c.PostForm("fecha_fin"),
		Status:            c.PostForm("estado"),
		Budget:            c.PostForm("presupuesto"),
		CompletionPercent: percent,
	})
	if err != nil {
		h.fail(c, err, "Error al crear el proyecto", "/proyectos")
		return
	}

	h.record(c, "create", "proyectos", uintString(project.ID), "")
	h.flashRedirect(c, session.Success, "Proyecto creado correctamente", "/proyecto/"+uintString(project.ID))
}

func (h *AdminHandler) CreateNotice(c *gin.Context) {
	notice, err := h.contentService.CreateNotice(c.Request.Context(), services.NoticeInput{
		Title:     c.PostForm("titulo"),
		Content:   c.PostForm("contenido"),
		Type:      c.PostForm("tipo"),
		ExpiresAt: c.PostForm("fecha_expiracion"),
		Important: c.PostForm("importante") != "",
	})
	if err != nil {
		h.fail(c, err, "Error al publicar el aviso", "/avisos")
		return
	}

	h.record(c, "create", "avisos", uintString(notice.ID), "")
	h.flashRedirect(c, session.Success, "Aviso publicado correctamente", "/aviso/"+uintString(notice.ID))
}
