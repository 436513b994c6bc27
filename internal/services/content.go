package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civic-portal/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContentService serves the public catalogue: services, projects and notices.
type ContentService struct {
	db *gorm.DB
}

func NewContentService(db *gorm.DB) *ContentService {
	return &ContentService{db: db}
}

type ProjectInput struct {
	Name              string `validate:"required"`
	Description       string
	StartDate         string
	EndDate           string
	Status            string
	Budget            string
	CompletionPercent int `validate:"gte=0,lte=100"`
}

type NoticeInput struct {
	Title     string `validate:"required"`
	Content   string `validate:"required"`
	Type      string
	ExpiresAt string
	Important bool
}

type HomeContent struct {
	Services []models.Service `json:"servicios"`
	Notices  []models.Notice  `json:"avisos"`
	Projects []models.Project `json:"proyectos"`
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *ContentService) services(ctx context.Context, limit int) ([]models.Service, error) {
	q := s.db.WithContext(ctx).Where("active = ?", true).Order("sort_order, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var services []models.Service
	if err := q.Find(&services).Error; err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// Services lists active services in display order.
func (s *ContentService) Services(ctx context.Context) ([]models.Service, error) {
	return s.services(ctx, 0)
}

func (s *ContentService) Service(ctx context.Context, id uint) (*models.Service, error) {
	var service models.Service
	if err := s.db.WithContext(ctx).Where("active = ?", true).First(&service, id).Error; err != nil {
		return nil, notFoundOr(err, "find service")
	}
	return &service, nil
}

func (s *ContentService) projects(ctx context.Context, status string, limit int) ([]models.Project, error) {
	q := s.db.WithContext(ctx).Where("active = ?", true).Order("start_date DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Projects lists active projects, most recently started first.
func (s *ContentService) Projects(ctx context.Context, status string) ([]models.Project, error) {
	return s.projects(ctx, status, 0)
}

func (s *ContentService) Project(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).Where("active = ?", true).First(&project, id).Error; err != nil {
		return nil, notFoundOr(err, "find project")
	}
	return &project, nil
}

// currentNotices selects active notices that have not expired.
func (s *ContentService) currentNotices(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("active = ?", true).
		Where("(expires_at IS NULL OR expires_at >= ?)", time.Now())
}

// Notices lists current notices, important ones first, then newest.
func (s *ContentService) Notices(ctx context.Context, noticeType string) ([]models.Notice, error) {
	q := s.currentNotices(ctx).Order("important DESC, published_at DESC, id DESC")
	if noticeType != "" {
		q = q.Where("type = ?", noticeType)
	}
	var notices []models.Notice
	if err := q.Find(&notices).Error; err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return notices, nil
}

func (s *ContentService) Notice(ctx context.Context, id uint) (*models.Notice, error) {
	var notice models.Notice
	if err := s.currentNotices(ctx).First(&notice, id).Error; err != nil {
		return nil, notFoundOr(err, "find notice")
	}
	return &notice, nil
}

func (s *ContentService) NoticeTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := s.db.WithContext(ctx).Model(&models.Notice{}).
		Where("active = ?", true).
		Distinct("type").
		Order("type").
		Pluck("type", &types).Error
	if err != nil {
		return nil, fmt.Errorf("list notice types: %w", err)
	}
	return types, nil
}

// Home gathers the landing page blocks: six services, three important
// notices and the three latest projects.
func (s *ContentService) Home(ctx context.Context) (*HomeContent, error) {
	services, err := s.services(ctx, 6)
	if err != nil {
		return nil, err
	}

	var notices []models.Notice
	if err := s.currentNotices(ctx).
		Where("important = ?", true).
		Order("published_at DESC, id DESC").
		Limit(3).
		Find(&notices).Error; err != nil {
		return nil, fmt.Errorf("list important notices: %w", err)
	}

	projects, err := s.projects(ctx, "", 3)
	if err != nil {
		return nil, err
	}

	return &HomeContent{Services: services, Notices: notices, Projects: projects}, nil
}

func parseOptionalDate(v, msg string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		return nil, invalid(msg)
	}
	return &t, nil
}

func (s *ContentService) CreateProject(ctx context.Context, in ProjectInput) (*models.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in, map[string]string{
		"CompletionPercent.gte": "El porcentaje de avance debe estar entre 0 y 100",
		"CompletionPercent.lte": "El porcentaje de avance debe estar entre 0 y 100",
	}); err != nil {
		return nil, err
	}

	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = models.ProjectPlanned
	}
	if !models.ValidProjectStatus(status) {
		return nil, invalid("Estado no válido")
	}

	start, err := parseOptionalDate(in.StartDate, "Fecha de inicio no válida")
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalDate(in.EndDate, "Fecha de fin no válida")
	if err != nil {
		return nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, invalid("La fecha de fin no puede ser anterior a la de inicio")
	}

	var budget decimal.NullDecimal
	if b := strings.TrimSpace(in.Budget); b != "" {
		d, err := decimal.NewFromString(b)
		if err != nil || d.IsNegative() {
			return nil, invalid("Presupuesto no válido")
		}
		budget = decimal.NewNullDecimal(d.Round(2))
	}

	project := &models.Project{
		Name:              in.Name,
		Description:       strings.TrimSpace(in.Description),
		StartDate:         start,
		EndDate:           end,
		Status:            status,
		Budget:            budget,
		CompletionPercent: in.CompletionPercent,
		Active:            true,
	}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

func (s *ContentService) CreateNotice(ctx context.Context, in NoticeInput) (*models.Notice, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := validateInput(in, nil); err != nil {
		return nil, err
	}

	expires, err := parseOptionalDate(in.ExpiresAt, "Fecha de expiración no válida")
	if err != nil {
		return nil, err
	}
	if expires != nil {
		// valid through the whole expiry day
		end := expires.AddDate(0, 0, 1).Add(-time.Second)
		expires = &end
	}

	noticeType := strings.TrimSpace(in.Type)
	if noticeType == "" {
		noticeType = "general"
	}

	notice := &models.Notice{
		Title:       in.Title,
		Content:     in.Content,
		Type:        noticeType,
		PublishedAt: time.Now(),
		ExpiresAt:   expires,
		Important:   in.Important,
		Active:      true,
	}
	if err := s.db.WithContext(ctx).Create(notice).Error; err != nil {
		return nil, fmt.Errorf("create notice: %w", err)
	}
	return notice, nil
}
