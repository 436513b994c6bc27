package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civic-portal/internal/config"
	"civic-portal/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

type RegisterInput struct {
	Name       string `validate:"required"`
	Email      string `validate:"required"`
	Password   string `validate:"required,min=6,bcrypt_len"`
	Confirm    string `validate:"eqfield=Password"`
	Phone      string
	NationalID string
}

type ProfileInput struct {
	Name       string `validate:"required"`
	Phone      string
	Address    string
	NationalID string
}

type passwordChange struct {
	Current string `validate:"required"`
	New     string `validate:"required,min=6,bcrypt_len"`
	Confirm string `validate:"required,eqfield=New"`
}

// HashPassword hashes a password using bcrypt
func (s *AuthService) HashPassword(password string) (string, error) {
	cost := s.cfg.Security.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// VerifyPassword verifies a password against a hash
func (s *AuthService) VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// Register creates a citizen account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	if err := validateInput(in, map[string]string{
		"required":            "Todos los campos son obligatorios",
		"Password.min":        "La contraseña debe tener al menos 6 caracteres",
		"Password.bcrypt_len": msgPasswordTooLong,
		"Confirm.eqfield":     "Las contraseñas no coinciden",
	}); err != nil {
		return nil, err
	}

	taken, err := s.emailTaken(ctx, in.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashedPassword,
		Phone:        optional(in.Phone),
		NationalID:   optional(in.NationalID),
		Role:         models.RoleCitizen,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies credentials and returns the user. Unknown email,
// wrong password and inactive accounts are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("Por favor complete todos los campos")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.VerifyPassword(user.PasswordHash, password) || !user.Active {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// ChangePassword replaces the password of userID after checking the current
// one. Every other session of the user is revoked; keepToken, the session
// making the change, stays signed in.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, keepToken, current, newPassword, confirm string) error {
	if err := validateInput(passwordChange{Current: current, New: newPassword, Confirm: confirm}, map[string]string{
		"required":        "Todos los campos son obligatorios",
		"New.min":         "La nueva contraseña debe tener al menos 6 caracteres",
		"New.bcrypt_len":  msgPasswordTooLong,
		"Confirm.eqfield": "Las nuevas contraseñas no coinciden",
	}); err != nil {
		return err
	}

	user, err := s.ResolveUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.VerifyPassword(user.PasswordHash, current) {
		return invalid("Contraseña actual incorrecta")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.SetPassword(ctx, tx, userID, newPassword); err != nil {
			return err
		}
		return s.RevokeSessions(ctx, tx, userID, keepToken)
	})
}

// SetPassword hashes and stores a new password using db, which may be a
// transaction.
func (s *AuthService) SetPassword(ctx context.Context, db *gorm.DB, userID uint, password string) error {
	hashedPassword, err := s.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password_hash", hashedPassword)
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile changes the self-service fields of a user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in, map[string]string{
		"Name.required": "El nombre es obligatorio",
	}); err != nil {
		return nil, err
	}

	user, err := s.ResolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":        in.Name,
		"phone":       optional(in.Phone),
		"address":     optional(in.Address),
		"national_id": optional(in.NationalID),
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.ResolveUser(ctx, userID)
}

// EmailAvailable reports whether no account uses email.
func (s *AuthService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, invalid("Email requerido")
	}
	taken, err := s.emailTaken(ctx, email, 0)
	return !taken, err
}

func (s *AuthService) emailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = ?", normalizeEmail(email))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}

// ResolveUser loads a user by id.
func (s *AuthService) ResolveUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// CreateSession creates a new session record
func (s *AuthService) CreateSession(ctx context.Context, userID uint, token string, expiresAt time.Time) error {
	session := &models.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	return s.db.WithContext(ctx).Create(session).Error
}

// GetSession retrieves a live session by token
func (s *AuthService) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).Where("token = ? AND expires_at > ?", token, time.Now()).Preload("User").First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// DeleteSession deletes a session
func (s *AuthService) DeleteSession(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
}

// RevokeSessions deletes the sessions of userID using db, which may be a
// transaction. A non-empty except token is left in place.
func (s *AuthService) RevokeSessions(ctx context.Context, db *gorm.DB, userID uint, except string) error {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if except != "" {
		q = q.Where("token <> ?", except)
	}
	if err := q.Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes expired sessions
func (s *AuthService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
