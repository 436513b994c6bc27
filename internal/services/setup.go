package services

import (
	"context"
	"errors"
	"fmt"

	"civic-portal/internal/config"
	"civic-portal/internal/logger"
	"civic-portal/internal/models"

	"gorm.io/gorm"
)

// DefaultServices is the catalogue seeded into an empty services table.
var DefaultServices = []models.Service{
	{Name: "Atención Ciudadana", Description: "Servicio de atención y orientación a los ciudadanos", Icon: "fa-users", SortOrder: 1, Active: true},
	{Name: "Gestión de Trámites", Description: "Procesamiento de documentos y certificados", Icon: "fa-file-alt", SortOrder: 2, Active: true},
	{Name: "Denuncias y Reportes", Description: "Sistema de denuncias y reportes ciudadanos", Icon: "fa-exclamation-triangle", SortOrder: 3, Active: true},
	{Name: "Proyectos Municipales", Description: "Información sobre proyectos en ejecución", Icon: "fa-project-diagram", SortOrder: 4, Active: true},
	{Name: "Transparencia", Description: "Acceso a información pública municipal", Icon: "fa-chart-line", SortOrder: 5, Active: true},
}

type SetupService struct {
	db   *gorm.DB
	auth *AuthService
	cfg  *config.Config
	log  *logger.Logger
}

func NewSetupService(db *gorm.DB, auth *AuthService, cfg *config.Config, log *logger.Logger) *SetupService {
	return &SetupService{db: db, auth: auth, cfg: cfg, log: log}
}

// EnsureSchema migrates the tables, seeds the service catalogue when it is
// empty and makes sure the configured admin account exists. Running it again
// changes nothing.
func (s *SetupService) EnsureSchema(ctx context.Context) error {
	if err := models.Migrate(s.db.WithContext(ctx)); err != nil {
		return err
	}

	if err := s.seedServices(ctx); err != nil {
		return err
	}

	created, err := s.ensureAdmin(ctx)
	if err != nil {
		return err
	}
	if created {
		s.log.WithField("email", s.cfg.Admin.Email).Warn("created default admin account; change its password")
	}
	return nil
}

func (s *SetupService) seedServices(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Service{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count services: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := make([]models.Service, len(DefaultServices))
	copy(seed, DefaultServices)
	if err := s.db.WithContext(ctx).Create(&seed).Error; err != nil {
		return fmt.Errorf("seed services: %w", err)
	}
	s.log.WithField("count", len(seed)).Info("seeded default services")
	return nil
}

func (s *SetupService) ensureAdmin(ctx context.Context) (bool, error) {
	email := normalizeEmail(s.cfg.Admin.Email)

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("find admin: %w", err)
	}

	if _, err := s.createAdmin(ctx, email, s.cfg.Admin.DefaultPassword); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SetupService) createAdmin(ctx context.Context, email, password string) (*models.User, error) {
	hashedPassword, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	name := s.cfg.Admin.Name
	if name == "" {
		name = "Administrador"
	}
	admin := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

// ResetAdmin restores the configured admin account: the password is set to
// password (the configured default when empty) and the account is made an
// active administrator, creating it if needed.
func (s *SetupService) ResetAdmin(ctx context.Context, password string) (*models.User, bool, error) {
	if password == "" {
		password = s.cfg.Admin.DefaultPassword
	}
	if len(password) < 6 {
		return nil, false, invalid("La contraseña debe tener al menos 6 caracteres")
	}
	email := normalizeEmail(s.cfg.Admin.Email)

	var admin models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created, err := s.createAdmin(ctx, email, password)
		return created, true, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("find admin: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.auth.SetPassword(ctx, tx, admin.ID, password); err != nil {
			return err
		}
		return tx.Model(&admin).Updates(map[string]interface{}{
			"role":   models.RoleAdmin,
			"active": true,
		}).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("reset admin: %w", err)
	}
	return &admin, false, nil
}
