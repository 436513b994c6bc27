package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"civic-portal/internal/config"
	"civic-portal/internal/logger"
	"civic-portal/internal/models"
	"civic-portal/internal/store"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "secret123"

type testEnv struct {
	cfg   *config.Config
	db    *gorm.DB
	gw    *store.Gateway
	log   *logger.Logger
	auth  *AuthService
	setup *SetupService
}

// setupTestDB opens a fresh SQLite file and runs the schema initializer.
func setupTestDB(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.SQLite.Path = filepath.Join(dir, "portal_test.db")
	cfg.Security.BcryptCost = bcrypt.MinCost
	cfg.Uploads.Dir = filepath.Join(dir, "uploads")

	db, err := models.Open(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { models.Close(db) })

	gw, err := store.FromGorm(db)
	require.NoError(t, err)

	log := logger.Discard()
	auth := NewAuthService(db, &cfg)
	setup := NewSetupService(db, auth, &cfg, log)
	require.NoError(t, setup.EnsureSchema(context.Background()))

	return &testEnv{cfg: &cfg, db: db, gw: gw, log: log, auth: auth, setup: setup}
}

// createTestUser registers a citizen with testPassword.
func createTestUser(t *testing.T, env *testEnv, name, email string) *models.User {
	t.Helper()
	user, err := env.auth.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: testPassword,
		Confirm:  testPassword,
	})
	require.NoError(t, err)
	return user
}

func adminUser(t *testing.T, env *testEnv) *models.User {
	t.Helper()
	var admin models.User
	require.NoError(t, env.db.Where("email = ?", env.cfg.Admin.Email).First(&admin).Error)
	return &admin
}

// insertReport writes a report row directly so tests control timestamps.
func insertReport(t *testing.T, env *testEnv, userID uint, title, category, status string, created time.Time) *models.Report {
	t.Helper()
	r := &models.Report{
		UserID:      userID,
		Title:       title,
		Description: "descripcion de " + title,
		Category:    category,
		Location:    "Calle Mayor",
		Status:      status,
		Priority:    models.PriorityMedium,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, env.db.Create(r).Error)
	return r
}

func day(d int, hour int) time.Time {
	return time.Date(2024, time.January, d, hour, 0, 0, 0, time.Local)
}
