package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"civic-portal/internal/api/middleware"
	"civic-portal/internal/api/session"
	"civic-portal/internal/models"
	"civic-portal/internal/services"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	*Page
	reportService *services.ReportService
	uploads       *services.UploadStore
}

func NewReportHandler(page *Page, reportService *services.ReportService, uploads *services.UploadStore) *ReportHandler {
	return &ReportHandler{
		Page:          page,
		reportService: reportService,
		uploads:       uploads,
	}
}

func (h *ReportHandler) NewReport(c *gin.Context) {
	h.render(c, 200, "reportar", gin.H{"prioridades": models.ReportPriorities})
}

// CreateReport stores a citizen report with its optional image.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	// the file must be read before any PostForm call parses the body
	fh, err := formFile(c, "imagen")
	if err != nil {
		if isTooLarge(err) {
			middleware.TooLarge(h.sm, c)
			return
		}
		h.fail(c, err, "Error al enviar el reporte", "/reportar")
		return
	}

	user := currentUser(c)
	image, err := h.uploads.Save(user.ID, fh)
	if err != nil {
		h.fail(c, err, "Error al enviar el reporte", "/reportar")
		return
	}

	in := services.ReportInput{
		Title:       c.PostForm("titulo"),
		Description: c.PostForm("descripcion"),
		Category:    c.PostForm("categoria"),
		Location:    c.PostForm("ubicacion"),
		Latitude:    c.PostForm("latitud"),
		Longitude:   c.PostForm("longitud"),
		Priority:    c.PostForm("prioridad"),
	}
	if image != "" {
		in.Image = &image
	}

	report, err := h.reportService.Create(c.Request.Context(), user.ID, in)
	if err != nil {
		if rmErr := h.uploads.Remove(image); rmErr != nil {
			h.entry(c).WithError(rmErr).Warn("failed to remove orphaned upload")
		}
		h.fail(c, err, "Error al enviar el reporte", "/reportar")
		return
	}

	h.record(c, "create", "reportes", uintString(report.ID), report.Category)
	h.flashRedirect(c, session.Success, "Reporte enviado exitosamente. Será revisado por el personal correspondiente.", "/mis_reportes")
}

// MyReports lists the signed-in user's reports with the filter drop-downs
// and per-status counters.
func (h *ReportHandler) MyReports(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	filter := services.ReportFilter{
		Status:   c.Query("estado"),
		Category: c.Query("categoria"),
		From:     c.Query("fecha_inicio"),
		To:       c.Query("fecha_fin"),
	}

	reports, err := h.reportService.ListForUser(ctx, user.ID, filter)
	if err != nil {
		h.fail(c, err, "Error al cargar los reportes", "/")
		return
	}

	categories, err := h.reportService.Categories(ctx, user.ID)
	if err != nil {
		h.degrade(c, err, "categories")
		categories = []string{}
	}

	h.render(c, 200, "mis_reportes", gin.H{
		"reportes":   reports,
		"categorias": categories,
		"totales":    services.CountReports(reports),
		"filtros": gin.H{
			"estado":       filter.Status,
			"categoria":    filter.Category,
			"fecha_inicio": filter.From,
			"fecha_fin":    filter.To,
		},
	})
}

func (h *ReportHandler) Report(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Reporte no encontrado", "/mis_reportes")
		return
	}

	ctx := c.Request.Context()
	report, err := h.reportService.Get(ctx, id, currentUser(c))
	switch {
	case isNotFound(err):
		h.flashRedirect(c, session.Error, "Reporte no encontrado", "/mis_reportes")
		return
	case isPermission(err):
		h.flashRedirect(c, session.Error, "No tiene permisos para ver este reporte", "/mis_reportes")
		return
	case err != nil:
		h.fail(c, err, "Error al cargar el reporte", "/mis_reportes")
		return
	}

	comments, err := h.reportService.Comments(ctx, id)
	if err != nil {
		h.degrade(c, err, "comments")
		comments = []services.CommentItem{}
	}

	h.render(c, 200, "ver_reporte", gin.H{"reporte": report, "comentarios": comments})
}

func (h *ReportHandler) Comment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.flashRedirect(c, session.Error, "Reporte no encontrado", "/mis_reportes")
		return
	}

	back := "/reporte/" + c.Param("id")
	_, err := h.reportService.AddComment(c.Request.Context(), id, currentUser(c), c.PostForm("comentario"), c.PostForm("tipo"))
	switch {
	case err == nil:
		h.record(c, "comment", "reportes", uintString(id), "")
		h.flashRedirect(c, session.Success, "Comentario agregado exitosamente", back)
	case isNotFound(err):
		h.flashRedirect(c, session.Error, "Reporte no encontrado", "/mis_reportes")
	case isPermission(err):
		h.flashRedirect(c, session.Error, "No tiene permisos para comentar en este reporte", "/mis_reportes")
	default:
		h.fail(c, err, "Error al agregar comentario", back)
	}
}

// formFile returns the uploaded file under field, or nil when the form
// carries none.
func formFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	return fh, err
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
