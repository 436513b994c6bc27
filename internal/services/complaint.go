package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civic-portal/internal/models"

	"gorm.io/gorm"
)

// AnonymousName replaces the author of an anonymous complaint in every view
// but the author's own.
const AnonymousName = "Anónimo"

type ComplaintService struct {
	db *gorm.DB
}

func NewComplaintService(db *gorm.DB) *ComplaintService {
	return &ComplaintService{db: db}
}

type ComplaintInput struct {
	Title              string `validate:"required"`
	Description        string `validate:"required"`
	Type               string `validate:"required"`
	AccusedName        string
	AccusedPosition    string
	AccusedInstitution string
	Evidence           string
	Anonymous          bool
}

type ComplaintFilter struct {
	Status string
	Type   string
}

type ComplaintItem struct {
	models.Complaint
	UserName string `json:"user_name"`
}

func complaintItem(c models.Complaint, viewerID uint) ComplaintItem {
	name := c.User.Name
	if c.Anonymous && c.UserID != viewerID {
		name = AnonymousName
	}
	return ComplaintItem{Complaint: c, UserName: name}
}

func (s *ComplaintService) Create(ctx context.Context, userID uint, in ComplaintInput) (*models.Complaint, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Type = strings.TrimSpace(in.Type)
	if err := validateInput(in, nil); err != nil {
		return nil, err
	}

	complaint := &models.Complaint{
		UserID:             userID,
		Title:              in.Title,
		Description:        in.Description,
		Type:               in.Type,
		AccusedName:        strings.TrimSpace(in.AccusedName),
		AccusedPosition:    strings.TrimSpace(in.AccusedPosition),
		AccusedInstitution: strings.TrimSpace(in.AccusedInstitution),
		Evidence:           optional(in.Evidence),
		Status:             models.ComplaintInReview,
		Anonymous:          in.Anonymous,
	}
	if err := s.db.WithContext(ctx).Create(complaint).Error; err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	return complaint, nil
}

func (s *ComplaintService) list(q *gorm.DB, f ComplaintFilter, viewerID uint) ([]ComplaintItem, error) {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}

	var complaints []models.Complaint
	if err := q.Preload("User").Order("created_at DESC, id DESC").Find(&complaints).Error; err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	items := make([]ComplaintItem, len(complaints))
	for i, c := range complaints {
		items[i] = complaintItem(c, viewerID)
	}
	return items, nil
}

// ListForUser returns the complaints filed by userID, newest first.
func (s *ComplaintService) ListForUser(ctx context.Context, userID uint, f ComplaintFilter) ([]ComplaintItem, error) {
	q := s.db.WithContext(ctx).Model(&models.Complaint{}).Where("user_id = ?", userID)
	return s.list(q, f, userID)
}

// ListAll returns every complaint with anonymous authors masked.
func (s *ComplaintService) ListAll(ctx context.Context, f ComplaintFilter) ([]ComplaintItem, error) {
	return s.list(s.db.WithContext(ctx).Model(&models.Complaint{}), f, 0)
}

func (s *ComplaintService) Types(ctx context.Context, userID uint) ([]string, error) {
	var types []string
	q := s.db.WithContext(ctx).Model(&models.Complaint{}).Distinct("type").Order("type")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Pluck("type", &types).Error; err != nil {
		return nil, fmt.Errorf("list complaint types: %w", err)
	}
	return types, nil
}

func (s *ComplaintService) find(ctx context.Context, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := s.db.WithContext(ctx).Preload("User").First(&complaint, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find complaint: %w", err)
	}
	return &complaint, nil
}

// Get returns a complaint visible to viewer: its author or any admin.
func (s *ComplaintService) Get(ctx context.Context, id uint, viewer *models.User) (*ComplaintItem, error) {
	complaint, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer == nil || (complaint.UserID != viewer.ID && !viewer.IsAdmin()) {
		return nil, ErrPermission
	}
	item := complaintItem(*complaint, viewer.ID)
	return &item, nil
}

func (s *ComplaintService) AdminUpdate(ctx context.Context, id uint, status string) (*models.Complaint, error) {
	status = strings.TrimSpace(status)
	if !models.ValidComplaintStatus(status) {
		return nil, invalid("Estado no válido")
	}

	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Complaint{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return nil, fmt.Errorf("update complaint: %w", err)
	}
	return s.find(ctx, id)
}
