package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"civic-portal/internal/config"
	"civic-portal/internal/logger"
	"civic-portal/internal/models"

	"gorm.io/gorm"
)

const (
	resetTokenLength   = 32
	resetTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// ResetNotifier delivers a password reset link to the account owner.
type ResetNotifier interface {
	SendResetLink(ctx context.Context, user *models.User, link string) error
}

// LogNotifier writes reset links to the log instead of mailing them.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) SendResetLink(ctx context.Context, user *models.User, link string) error {
	n.Log.WithUserID(user.ID).WithField("email", user.Email).WithField("link", link).Info("password reset requested")
	return nil
}

type ResetService struct {
	db       *gorm.DB
	auth     *AuthService
	cfg      *config.Config
	notifier ResetNotifier
	now      func() time.Time
}

func NewResetService(db *gorm.DB, auth *AuthService, cfg *config.Config, notifier ResetNotifier) *ResetService {
	return &ResetService{
		db:       db,
		auth:     auth,
		cfg:      cfg,
		notifier: notifier,
		now:      time.Now,
	}
}

// RequestReset issues a token for the active account behind email and hands
// the link to the notifier. The returned link is empty when no such account
// exists; callers must not reveal the difference.
func (s *ResetService) RequestReset(ctx context.Context, email, baseURL string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", invalid("Por favor ingrese su correo electrónico")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ? AND active = ?", email, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}

	token, err := generateResetToken()
	if err != nil {
		return "", err
	}

	ttl := s.cfg.Reset.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	record := &models.ResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	link := strings.TrimRight(baseURL, "/") + "/restablecer-contrasena/" + token
	if err := s.notifier.SendResetLink(ctx, &user, link); err != nil {
		return "", fmt.Errorf("send reset link: %w", err)
	}
	return link, nil
}

// Validate returns the token record if it is unused and unexpired.
func (s *ResetService) Validate(ctx context.Context, token string) (*models.ResetToken, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var record models.ResetToken
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	if !record.Valid(s.now()) {
		return nil, ErrInvalidToken
	}
	return &record, nil
}

// Consume sets a new password, burns the token and signs the user out
// everywhere in one transaction. The
// token is marked used only if it still is unused, so a concurrent or
// repeated submission fails with ErrInvalidToken.
func (s *ResetService) Consume(ctx context.Context, token, password, confirm string) error {
	record, err := s.Validate(ctx, token)
	if err != nil {
		return err
	}

	if err := validateInput(passwordPair{Password: password, Confirm: confirm}, map[string]string{
		"required":            "Por favor complete todos los campos",
		"Password.min":        "La contraseña debe tener al menos 6 caracteres",
		"Password.bcrypt_len": msgPasswordTooLong,
		"Confirm.eqfield":     "Las contraseñas no coinciden",
	}); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ResetToken{}).
			Where("id = ? AND used = ?", record.ID, false).
			Update("used", true)
		if res.Error != nil {
			return fmt.Errorf("mark reset token used: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return ErrInvalidToken
		}
		if err := s.auth.SetPassword(ctx, tx, record.UserID, password); err != nil {
			return err
		}
		return s.auth.RevokeSessions(ctx, tx, record.UserID, "")
	})
}

func generateResetToken() (string, error) {
	limit := big.NewInt(int64(len(resetTokenAlphabet)))
	b := make([]byte, resetTokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate reset token: %w", err)
		}
		b[i] = resetTokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
