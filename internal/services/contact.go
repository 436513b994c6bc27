package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"civic-portal/internal/models"

	"gorm.io/gorm"
)

type ContactService struct {
	db *gorm.DB
}

func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{db: db}
}

type ContactInput struct {
	Name    string `validate:"required"`
	Email   string `validate:"required,email"`
	Phone   string
	Subject string `validate:"required"`
	Message string `validate:"required"`
}

func (s *ContactService) Create(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if err := validateInput(in, map[string]string{
		"required":    "Por favor complete todos los campos obligatorios",
		"Email.email": "Correo electrónico no válido",
	}); err != nil {
		return nil, err
	}

	msg := &models.ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   strings.TrimSpace(in.Phone),
		Subject: in.Subject,
		Message: in.Message,
		Status:  models.ContactNew,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create contact message: %w", err)
	}
	return msg, nil
}

// List returns contact messages newest first, optionally by status.
func (s *ContactService) List(ctx context.Context, status string) ([]models.ContactMessage, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var messages []models.ContactMessage
	if err := q.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return messages, nil
}

// Reply stores the answer and marks the message as answered.
func (s *ContactService) Reply(ctx context.Context, id uint, text string) (*models.ContactMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("La respuesta no puede estar vacía")
	}

	var msg models.ContactMessage
	if err := s.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find contact message: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&msg).Updates(map[string]interface{}{
		"reply":  text,
		"status": models.ContactReplied,
	}).Error; err != nil {
		return nil, fmt.Errorf("reply contact message: %w", err)
	}
	msg.Reply = &text
	msg.Status = models.ContactReplied
	return &msg, nil
}
