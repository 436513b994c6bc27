package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"civic-portal/internal/models"

	"gorm.io/gorm"
)

type UserService struct {
	db   *gorm.DB
	auth *AuthService
}

func NewUserService(db *gorm.DB, auth *AuthService) *UserService {
	return &UserService{db: db, auth: auth}
}

type UserFilter struct {
	Role   string
	Search string
}

type AdminUserInput struct {
	Name   string `validate:"required"`
	Email  string `validate:"required,email"`
	Phone  string
	Role   int `validate:"oneof=1 2"`
	Active bool
}

// List returns users newest first. Search matches name or email
// case-insensitively.
func (s *UserService) List(ctx context.Context, f UserFilter) ([]models.User, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if f.Role != "" {
		role, err := strconv.Atoi(f.Role)
		if err != nil {
			return nil, invalid("Rol no válido")
		}
		q = q.Where("role = ?", role)
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + search + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)", like, like)
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Recent returns the latest limit registrations.
func (s *UserService) Recent(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns a specific user by ID
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.auth.ResolveUser(ctx, id)
}

// AdminUpdate edits a user from the back office. The email must stay unique
// and the last active admin cannot lose the role or be deactivated.
func (s *UserService) AdminUpdate(ctx context.Context, id uint, in AdminUserInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in, map[string]string{
		"Email.email": "Correo electrónico no válido",
		"Role.oneof":  "Rol no válido",
	}); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}

		var clash int64
		if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", in.Email, id).Count(&clash).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if clash > 0 {
			return ErrEmailTaken
		}

		demoting := user.Role == models.RoleAdmin && user.Active && (in.Role != models.RoleAdmin || !in.Active)
		if demoting {
			var admins int64
			if err := tx.Model(&models.User{}).
				Where("role = ? AND active = ? AND id <> ?", models.RoleAdmin, true, id).
				Count(&admins).Error; err != nil {
				return fmt.Errorf("count admins: %w", err)
			}
			if admins == 0 {
				return ErrLastAdmin
			}
		}

		err := tx.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":   in.Name,
			"email":  in.Email,
			"phone":  optional(in.Phone),
			"role":   in.Role,
			"active": in.Active,
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
