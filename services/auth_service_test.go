package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) AuthService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(newFakeUserRepo(), logger)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)

	user, err := svc.Register(context.Background(), RegisterUserInput{
		Nickname: "caster",
		Email:    "caster@example.com",
		Password: "correct horse",
		Role:     models.RoleOrganizer,
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, models.RoleOrganizer, user.Role)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	logged, err := svc.Login(context.Background(), "caster@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, err = svc.Login(context.Background(), "caster@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(t)

	tests := []struct {
		name  string
		input RegisterUserInput
	}{
		{"missing nickname", RegisterUserInput{Email: "a@example.com", Password: "longenough"}},
		{"bad email", RegisterUserInput{Nickname: "x", Email: "not-an-email", Password: "longenough"}},
		{"short password", RegisterUserInput{Nickname: "x", Email: "a@example.com", Password: "short"}},
		{"admin role self-assignment", RegisterUserInput{Nickname: "x", Email: "a@example.com", Password: "longenough", Role: models.RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Register(context.Background(), RegisterUserInput{
		Nickname: "caster",
		Email:    "caster@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterUserInput{
		Nickname: "other",
		Email:    "caster@example.com",
		Password: "correct horse",
	})
	assert.ErrorIs(t, err, ErrUserEmailConflict)

	_, err = svc.Register(context.Background(), RegisterUserInput{
		Nickname: "caster",
		Email:    "fresh@example.com",
		Password: "correct horse",
	})
	assert.ErrorIs(t, err, ErrUserNicknameConflict)
}
