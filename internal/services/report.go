package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"civic-portal/internal/models"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

type ReportInput struct {
	Title       string `validate:"required"`
	Description string `validate:"required"`
	Category    string `validate:"required"`
	Location    string `validate:"required"`
	Latitude    string
	Longitude   string
	Priority    string
	Image       *string
}

// ReportFilter narrows report listings. Empty fields are ignored; From and To
// are inclusive calendar dates in YYYY-MM-DD form.
type ReportFilter struct {
	Status   string
	Category string
	Priority string
	From     string
	To       string
}

// ReportItem is a report together with its author's display name.
type ReportItem struct {
	models.Report
	UserName string `json:"user_name"`
}

type CommentItem struct {
	models.Comment
	UserName string `json:"user_name"`
}

// ReportCounts summarises a listing by status.
type ReportCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pendientes"`
	InProgress int `json:"en_proceso"`
	Resolved   int `json:"resueltos"`
}

func (s *ReportService) Create(ctx context.Context, userID uint, in ReportInput) (*models.Report, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Location = strings.TrimSpace(in.Location)
	if err := validateInput(in, nil); err != nil {
		return nil, err
	}

	priority := strings.TrimSpace(in.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, invalid("Prioridad no válida")
	}

	lat, err := parseCoordinate(in.Latitude)
	if err != nil {
		return nil, err
	}
	lng, err := parseCoordinate(in.Longitude)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location,
		Latitude:    lat,
		Longitude:   lng,
		Status:      models.ReportPending,
		Priority:    priority,
		Image:       in.Image,
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

func parseCoordinate(v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, invalid("Coordenadas no válidas")
	}
	return &f, nil
}

// applyDateRange adds created_at bounds for inclusive calendar dates.
func applyDateRange(q *gorm.DB, column, from, to string) (*gorm.DB, error) {
	if from != "" {
		start, err := time.ParseInLocation(dateLayout, from, time.Local)
		if err != nil {
			return nil, invalid("Fecha de inicio no válida")
		}
		q = q.Where(column+" >= ?", start)
	}
	if to != "" {
		end, err := time.ParseInLocation(dateLayout, to, time.Local)
		if err != nil {
			return nil, invalid("Fecha de fin no válida")
		}
		q = q.Where(column+" < ?", end.AddDate(0, 0, 1))
	}
	return q, nil
}

func (s *ReportService) filtered(ctx context.Context, f ReportFilter) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).Model(&models.Report{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	return applyDateRange(q, "created_at", f.From, f.To)
}

func (s *ReportService) list(q *gorm.DB) ([]ReportItem, error) {
	var reports []models.Report
	if err := q.Preload("User").Order("created_at DESC, id DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	items := make([]ReportItem, len(reports))
	for i, r := range reports {
		items[i] = ReportItem{Report: r, UserName: r.User.Name}
	}
	return items, nil
}

// ListForUser returns the reports filed by userID, newest first.
func (s *ReportService) ListForUser(ctx context.Context, userID uint, f ReportFilter) ([]ReportItem, error) {
	q, err := s.filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.list(q.Where("user_id = ?", userID))
}

// ListAll returns every report for the back office, newest first.
func (s *ReportService) ListAll(ctx context.Context, f ReportFilter) ([]ReportItem, error) {
	q, err := s.filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.list(q)
}

// Recent returns the latest limit reports across all users.
func (s *ReportService) Recent(ctx context.Context, limit int) ([]ReportItem, error) {
	return s.list(s.db.WithContext(ctx).Model(&models.Report{}).Limit(limit))
}

// Categories lists distinct categories, limited to userID's reports when
// userID is non-zero.
func (s *ReportService) Categories(ctx context.Context, userID uint) ([]string, error) {
	var categories []string
	q := s.db.WithContext(ctx).Model(&models.Report{}).Distinct("category").Order("category")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Pluck("category", &categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func CountReports(items []ReportItem) ReportCounts {
	c := ReportCounts{Total: len(items)}
	for _, r := range items {
		switch r.Status {
		case models.ReportPending:
			c.Pending++
		case models.ReportInProgress:
			c.InProgress++
		case models.ReportResolved:
			c.Resolved++
		}
	}
	return c
}

func (s *ReportService) find(ctx context.Context, db *gorm.DB, id uint) (*models.Report, error) {
	var report models.Report
	if err := db.WithContext(ctx).Preload("User").First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	return &report, nil
}

// Get returns a report visible to viewer: its author or any admin.
func (s *ReportService) Get(ctx context.Context, id uint, viewer *models.User) (*ReportItem, error) {
	report, err := s.find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if viewer == nil || (report.UserID != viewer.ID && !viewer.IsAdmin()) {
		return nil, ErrPermission
	}
	return &ReportItem{Report: *report, UserName: report.User.Name}, nil
}

// Comments returns the thread of a report, oldest first.
func (s *ReportService) Comments(ctx context.Context, reportID uint) ([]CommentItem, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("report_id = ?", reportID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	items := make([]CommentItem, len(comments))
	for i, c := range comments {
		items[i] = CommentItem{Comment: c, UserName: c.User.Name}
	}
	return items, nil
}

// AddComment appends to the thread of a report the viewer may see and bumps
// the report's updated_at. Only admins may post admin answers.
func (s *ReportService) AddComment(ctx context.Context, reportID uint, viewer *models.User, content, kind string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("El comentario no puede estar vacío")
	}
	if kind == "" {
		kind = models.CommentKindComment
	}
	switch kind {
	case models.CommentKindComment:
	case models.CommentKindAdminAnswer:
		if !viewer.IsAdmin() {
			return nil, ErrPermission
		}
	default:
		return nil, invalid("Tipo de comentario no válido")
	}

	if _, err := s.Get(ctx, reportID, viewer); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ReportID: reportID,
		UserID:   viewer.ID,
		Content:  content,
		Kind:     kind,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.insertComment(tx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *ReportService) insertComment(tx *gorm.DB, comment *models.Comment) error {
	if err := tx.Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	if err := tx.Model(&models.Report{}).Where("id = ?", comment.ReportID).Update("updated_at", time.Now()).Error; err != nil {
		return fmt.Errorf("touch report: %w", err)
	}
	return nil
}

// AdminUpdate sets the status of a report and, when response is non-empty,
// posts it as an admin answer in the same transaction.
func (s *ReportService) AdminUpdate(ctx context.Context, id, adminID uint, status, response string) (*models.Report, error) {
	status = strings.TrimSpace(status)
	if !models.ValidReportStatus(status) {
		return nil, invalid("Estado no válido")
	}
	response = strings.TrimSpace(response)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.find(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Model(&models.Report{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return fmt.Errorf("update report: %w", err)
		}
		if response == "" {
			return nil
		}
		return s.insertComment(tx, &models.Comment{
			ReportID: id,
			UserID:   adminID,
			Content:  response,
			Kind:     models.CommentKindAdminAnswer,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.find(ctx, s.db, id)
}
