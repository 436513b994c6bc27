package services

import (
	"context"
	"testing"

	"civic-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchema(t *testing.T) {
	env := setupTestDB(t)
	ctx := context.Background()

	t.Run("seeds services and admin once", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, env.setup.EnsureSchema(ctx))
		}

		var services int64
		require.NoError(t, env.db.Model(&models.Service{}).Count(&services).Error)
		assert.Equal(t, int64(len(DefaultServices)), services)

		var admins int64
		require.NoError(t, env.db.Model(&models.User{}).Where("email = ?", env.cfg.Admin.Email).Count(&admins).Error)
		assert.Equal(t, int64(1), admins)

		admin := adminUser(t, env)
		assert.Equal(t, models.RoleAdmin, admin.Role)
		assert.True(t, admin.Active)
		assert.True(t, env.auth.VerifyPassword(admin.PasswordHash, env.cfg.Admin.DefaultPassword))
	})

	t.Run("existing admin is left untouched", func(t *testing.T) {
		admin := adminUser(t, env)
		require.NoError(t, env.db.Model(admin).Update("name", "Alcaldía").Error)

		require.NoError(t, env.setup.EnsureSchema(ctx))

		again := adminUser(t, env)
		assert.Equal(t, "Alcaldía", again.Name)
		assert.Equal(t, admin.ID, again.ID)
	})

	t.Run("services are not reseeded after edits", func(t *testing.T) {
		require.NoError(t, env.db.Where("sort_order = ?", 5).Delete(&models.Service{}).Error)
		require.NoError(t, env.setup.EnsureSchema(ctx))

		var services int64
		require.NoError(t, env.db.Model(&models.Service{}).Count(&services).Error)
		assert.Equal(t, int64(len(DefaultServices)-1), services)
	})
}

func TestResetAdmin(t *testing.T) {
	env := setupTestDB(t)
	ctx := context.Background()

	t.Run("resets password and reactivates", func(t *testing.T) {
		admin := adminUser(t, env)
		require.NoError(t, env.db.Model(admin).Updates(map[string]interface{}{"active": false}).Error)

		user, created, err := env.setup.ResetAdmin(ctx, "nueva-clave")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, admin.ID, user.ID)

		logged, err := env.auth.Authenticate(ctx, env.cfg.Admin.Email, "nueva-clave")
		require.NoError(t, err)
		assert.True(t, logged.IsAdmin())
	})

	t.Run("creates the admin when missing", func(t *testing.T) {
		require.NoError(t, env.db.Where("email = ?", env.cfg.Admin.Email).Delete(&models.User{}).Error)

		_, created, err := env.setup.ResetAdmin(ctx, "")
		require.NoError(t, err)
		assert.True(t, created)

		_, err = env.auth.Authenticate(ctx, env.cfg.Admin.Email, env.cfg.Admin.DefaultPassword)
		assert.NoError(t, err)
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		_, _, err := env.setup.ResetAdmin(ctx, "abc")
		assert.ErrorIs(t, err, ErrValidation)
	})
}
