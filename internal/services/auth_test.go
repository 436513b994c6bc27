package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"civic-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := setupTestDB(t)
	ctx := context.Background()

	t.Run("creates a citizen with a hashed password", func(t *testing.T) {
		user, err := env.auth.Register(ctx, RegisterInput{
			Name:       "  Ana Pérez ",
			Email:      "Ana@Example.com",
			Password:   testPassword,
			Confirm:    testPassword,
			Phone:      "555-1234",
			NationalID: "",
		})
		require.NoError(t, err)

		assert.Equal(t, "Ana Pérez", user.Name)
		assert.Equal(t, "ana@example.com", user.Email)
		assert.Equal(t, models.RoleCitizen, user.Role)
		assert.True(t, user.Active)
		assert.NotEqual(t, testPassword, user.PasswordHash)
		require.NotNil(t, user.Phone)
		assert.Equal(t, "555-1234", *user.Phone)
		assert.Nil(t, user.NationalID)
	})

	t.Run("duplicate email differing only in case", func(t *testing.T) {
		_, err := env.auth.Register(ctx, RegisterInput{
			Name: "Otra Ana", Email: "ANA@example.COM", Password: testPassword, Confirm: testPassword,
		})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	cases := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing name", RegisterInput{Email: "x@example.com", Password: testPassword, Confirm: testPassword}, "Todos los campos son obligatorios"},
		{"missing email", RegisterInput{Name: "X", Password: testPassword, Confirm: testPassword}, "Todos los campos son obligatorios"},
		{"short password", RegisterInput{Name: "X", Email: "x@example.com", Password: "abc", Confirm: "abc"}, "La contraseña debe tener al menos 6 caracteres"},
		{"mismatch", RegisterInput{Name: "X", Email: "x@example.com", Password: testPassword, Confirm: "otra-cosa"}, "Las contraseñas no coinciden"},
		{"five multibyte characters", RegisterInput{Name: "X", Email: "x@example.com", Password: "ñññññ", Confirm: "ñññññ"}, "La contraseña debe tener al menos 6 caracteres"},
		{"longer than bcrypt accepts", RegisterInput{Name: "X", Email: "x@example.com", Password: strings.Repeat("a", 80), Confirm: strings.Repeat("a", 80)}, "La contraseña no puede superar los 72 bytes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.auth.Register(ctx, tc.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestAuthenticate(t *testing.T) {
	env := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, env, "Luis", "luis@example.com")

	t.Run("valid credentials, email normalized", func(t *testing.T) {
		got, err := env.auth.Authenticate(ctx, "  LUIS@example.com ", testPassword)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, errWrong := env.auth.Authenticate(ctx, "luis@example.com", "incorrecta")
		_, errUnknown := env.auth.Authenticate(ctx, "nadie@example.com", testPassword)

		assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
		assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
		assert.Equal(t, "Correo o contraseña incorrectos", Message(errWrong, ""))
	})

	t.Run("inactive account is rejected", func(t *testing.T) {
		require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", user.ID).Update("active", false).Error)
		defer env.db.Model(&models.User{}).Where("id = ?", user.ID).Update("active", true)

		_, err := env.auth.Authenticate(ctx, "luis@example.com", testPassword)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty fields", func(t *testing.T) {
		_, err := env.auth.Authenticate(ctx, "", "")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestChangePassword(t *testing.T) {
	env := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, env, "Marta", "marta@example.com")

	err := env.auth.ChangePassword(ctx, user.ID, "", "incorrecta", "nueva123", "nueva123")
	assert.EqualError(t, err, "Contraseña actual incorrecta")

	err = env.auth.ChangePassword(ctx, user.ID, "", testPassword, "nueva123", "nueva124")
	assert.EqualError(t, err, "Las nuevas contraseñas no coinciden")

	err = env.auth.ChangePassword(ctx, user.ID, "", testPassword, "abc", "abc")
	assert.EqualError(t, err, "La nueva contraseña debe tener al menos 6 caracteres")

	// length counts characters, not bytes
	err = env.auth.ChangePassword(ctx, user.ID, "", testPassword, "ñññññ", "ñññññ")
	assert.EqualError(t, err, "La nueva contraseña debe tener al menos 6 caracteres")

	long := strings.Repeat("ñ", 40)
	err = env.auth.ChangePassword(ctx, user.ID, "", testPassword, long, long)
	assert.EqualError(t, err, "La contraseña no puede superar los 72 bytes")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, env.auth.CreateSession(ctx, user.ID, "this-browser", time.Now().Add(time.Hour)))
	require.NoError(t, env.auth.CreateSession(ctx, user.ID, "other-browser", time.Now().Add(time.Hour)))

	require.NoError(t, env.auth.ChangePassword(ctx, user.ID, "this-browser", testPassword, "ññññññ", "ññññññ"))
	_, err = env.auth.Authenticate(ctx, "marta@example.com", "ññññññ")
	assert.NoError(t, err)

	_, err = env.auth.GetSession(ctx, "this-browser")
	assert.NoError(t, err)
	_, err = env.auth.GetSession(ctx, "other-browser")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfileAndEmailAvailable(t *testing.T) {
	env := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, env, "Pedro", "pedro@example.com")

	_, err := env.auth.UpdateProfile(ctx, user.ID, ProfileInput{Name: "  "})
	assert.EqualError(t, err, "El nombre es obligatorio")

	updated, err := env.auth.UpdateProfile(ctx, user.ID, ProfileInput{Name: "Pedro Gómez", Address: "Av. Central 1"})
	require.NoError(t, err)
	assert.Equal(t, "Pedro Gómez", updated.Name)
	require.NotNil(t, updated.Address)
	assert.Equal(t, "Av. Central 1", *updated.Address)
	assert.Nil(t, updated.Phone)

	available, err := env.auth.EmailAvailable(ctx, "PEDRO@example.com")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = env.auth.EmailAvailable(ctx, "libre@example.com")
	require.NoError(t, err)
	assert.True(t, available)

	_, err = env.auth.EmailAvailable(ctx, " ")
	assert.EqualError(t, err, "Email requerido")
}

func TestSessions(t *testing.T) {
	env := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, env, "Sara", "sara@example.com")

	require.NoError(t, env.auth.CreateSession(ctx, user.ID, "live-token", time.Now().Add(time.Hour)))
	require.NoError(t, env.auth.CreateSession(ctx, user.ID, "old-token", time.Now().Add(-time.Hour)))

	sess, err := env.auth.GetSession(ctx, "live-token")
	require.NoError(t, err)
	assert.Equal(t, "Sara", sess.User.Name)

	_, err = env.auth.GetSession(ctx, "old-token")
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := env.auth.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	require.NoError(t, env.auth.DeleteSession(ctx, "live-token"))
	_, err = env.auth.GetSession(ctx, "live-token")
	assert.ErrorIs(t, err, ErrNotFound)
}
