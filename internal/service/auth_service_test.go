package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingoquest/internal/apperr"
	"lingoquest/internal/logger"
	"lingoquest/internal/security"
	"lingoquest/internal/testutil"
)

type recordingMailer struct {
	to       []string
	failWith error
}

func (m *recordingMailer) SendWelcomeEmail(ctx context.Context, toEmail, username string) error {
	m.to = append(m.to, toEmail)
	return m.failWith
}

func TestRegisterStoresHashAndProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user, err := h.auth.Register(ctx, RegisterInput{Username: " ana ", Email: "ana@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)

	stored, err := h.users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cretpass", stored.PasswordHash)
	assert.True(t, security.CheckPassword("s3cretpass", stored.PasswordHash))

	profile, err := h.profiles.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Zero(t, profile.XP)
	assert.Zero(t, profile.StreakDays)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, RegisterInput{Username: "ana", Email: "ana@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	_, err = h.auth.Register(ctx, RegisterInput{Username: "other", Email: "ANA@example.com", Password: "s3cretpass"})
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, "A user with this email already exists.", appErr.Fields["email"])

	assert.Equal(t, 1, testutil.Count(t, h.db, "users"))
}

func TestConcurrentRegisterEmailCaseVariants(t *testing.T) {
	h := newHarness(t)
	emails := []string{"ana@example.com", "Ana@example.com", "ANA@example.com", "ana@EXAMPLE.com"}

	var wg sync.WaitGroup
	errs := make([]error, len(emails))
	for i, email := range emails {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			_, errs[i] = h.auth.Register(context.Background(), RegisterInput{
				Username: fmt.Sprintf("ana%d", i), Email: email, Password: "s3cretpass",
			})
		}(i, email)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		appErr, ok := apperr.As(err)
		require.True(t, ok, "unexpected error: %v", err)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
		assert.Contains(t, appErr.Fields, "email")
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, testutil.Count(t, h.db, "users"))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, RegisterInput{Username: "ana", Email: "ana@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	_, err = h.auth.Register(ctx, RegisterInput{Username: "ana", Email: "second@example.com", Password: "s3cretpass"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "username")
	assert.NotContains(t, appErr.Fields, "email")
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: "s3cretpass"}, "username"},
		{"bad username", RegisterInput{Username: "ana smith", Email: "a@example.com", Password: "s3cretpass"}, "username"},
		{"bad email", RegisterInput{Username: "ana", Email: "not-an-email", Password: "s3cretpass"}, "email"},
		{"short password", RegisterInput{Username: "ana", Email: "a@example.com", Password: "short"}, "password"},
		{"password over bcrypt limit", RegisterInput{Username: "ana", Email: "a@example.com", Password: strings.Repeat("p", 80)}, "password"},
		{"multibyte password over bcrypt limit", RegisterInput{Username: "ana", Email: "a@example.com", Password: strings.Repeat("ü", 40)}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.auth.Register(context.Background(), tt.input)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
	assert.Zero(t, testutil.Count(t, h.db, "users"))
}

func TestRegisterSendsWelcomeBestEffort(t *testing.T) {
	h := newHarness(t)
	mailer := &recordingMailer{failWith: errors.New("ses down")}
	auth := NewAuthService(h.db, h.users, h.profiles, security.NewTokenIssuer("k", time.Hour), mailer, logger.Nop())

	_, err := auth.Register(context.Background(), RegisterInput{Username: "ana", Email: "ana@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com"}, mailer.to)
}

func TestLoginAndAuthenticate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user, err := h.auth.Register(ctx, RegisterInput{Username: "ana", Email: "ana@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	token, err := h.auth.Login(ctx, "ana", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.NotEmpty(t, token.Access)

	resolved, err := h.auth.Authenticate(ctx, token.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	_, err = h.auth.Login(ctx, "ana", "wrong-password")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = h.auth.Login(ctx, "nobody", "s3cretpass")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = h.auth.Login(ctx, "", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = h.auth.Authenticate(ctx, "garbage")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestAuthenticateDeletedUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user, err := h.auth.Register(ctx, RegisterInput{Username: "ana", Email: "ana@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	token, err := h.auth.Login(ctx, "ana", "s3cretpass")
	require.NoError(t, err)

	require.NoError(t, h.users.DeleteUser(ctx, user.ID))

	_, err = h.auth.Authenticate(ctx, token.Access)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}
