package services

import (
	"context"
	"testing"

	"civic-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactMessages(t *testing.T) {
	env := setupTestDB(t)
	ctx := context.Background()
	svc := NewContactService(env.db)

	msg, err := svc.Create(ctx, ContactInput{
		Name: "Vecino", Email: "Vecino@Example.com", Subject: "Ruido", Message: "Hay ruido de noche",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContactNew, msg.Status)
	assert.Equal(t, "vecino@example.com", msg.Email)

	_, err = svc.Create(ctx, ContactInput{Name: "Vecino", Email: "vecino@example.com"})
	assert.EqualError(t, err, "Por favor complete todos los campos obligatorios")

	_, err = svc.Create(ctx, ContactInput{Name: "Vecino", Email: "vecino", Subject: "x", Message: "x"})
	assert.EqualError(t, err, "Correo electrónico no válido")

	_, err = svc.Reply(ctx, msg.ID, " ")
	assert.EqualError(t, err, "La respuesta no puede estar vacía")

	_, err = svc.Reply(ctx, 9999, "Gracias")
	assert.ErrorIs(t, err, ErrNotFound)

	replied, err := svc.Reply(ctx, msg.ID, "Enviaremos una patrulla")
	require.NoError(t, err)
	assert.Equal(t, models.ContactReplied, replied.Status)

	pending, err := svc.List(ctx, models.ContactNew)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Reply)
	assert.Equal(t, "Enviaremos una patrulla", *all[0].Reply)
}

func TestAuditTrail(t *testing.T) {
	env := setupTestDB(t)
	ctx := context.Background()
	svc := NewAuditService(env.db)
	admin := adminUser(t, env)

	require.NoError(t, svc.Record(ctx, AuditEntry{UserID: admin.ID, Action: "login", Resource: "session", IPAddress: "127.0.0.1"}))
	require.NoError(t, svc.Record(ctx, AuditEntry{UserID: admin.ID, Action: "update", Resource: "report", ResourceID: "4"}))

	entries, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "update", entries[0].Action)
	assert.Equal(t, "4", entries[0].ResourceID)
}
