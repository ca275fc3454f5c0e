package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aadiaditya9421/hospital-management-system/internal/apperrors"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
	"github.com/Aadiaditya9421/hospital-management-system/internal/utils"
)

func TestLoginIssuesRoleBoundTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patient, err := env.svc.Identity.RegisterPatient(ctx, "Pat", "pat@example.com", "patient-pass")
	require.NoError(t, err)

	res, err := env.svc.Sessions.Login(ctx, "pat@example.com", "patient-pass")
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, res.Principal.Role)
	assert.Equal(t, patient.ID, res.Principal.ID)

	access, err := utils.ValidateToken(res.Tokens.AccessToken, env.cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, patient.Ref(), access.Ref())

	refresh, err := utils.ValidateToken(res.Tokens.RefreshToken, env.cfg.JWTRefreshSecret)
	require.NoError(t, err)

	var session models.Session
	require.NoError(t, env.db.First(&session, "id = ?", refresh.ID).Error)
	assert.Equal(t, models.RolePatient, session.Role)
	assert.Equal(t, patient.ID, session.PrincipalID)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Identity.RegisterPatient(ctx, "Pat", "pat@example.com", "patient-pass")
	require.NoError(t, err)

	_, err = env.svc.Sessions.Login(ctx, "pat@example.com", "nope-nope")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	var sessions int64
	require.NoError(t, env.db.Model(&models.Session{}).Count(&sessions).Error)
	assert.Zero(t, sessions)
}

func TestRefreshUsesStoredRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Admin 7 and patient 7 share an id.
	require.NoError(t, env.db.Create(&models.Administrator{BaseModel: models.BaseModel{ID: 7}, LoginName: "seven", PasswordHash: "-"}).Error)
	patient := &models.Patient{BaseModel: models.BaseModel{ID: 7}, Name: "Seven", Email: "seven@example.com"}
	require.NoError(t, patient.SetPassword("patient-seven"))
	require.NoError(t, env.db.Create(patient).Error)

	login, err := env.svc.Sessions.Login(ctx, "seven@example.com", "patient-seven")
	require.NoError(t, err)

	refreshed, err := env.svc.Sessions.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, refreshed.Principal.Role)
	assert.Equal(t, uint(7), refreshed.Principal.ID)

	// The old refresh token was rotated out.
	_, err = env.svc.Sessions.Refresh(ctx, login.Tokens.RefreshToken)
	assert.True(t, errors.Is(err, apperrors.ErrAuthenticationRequired))

	_, err = env.svc.Sessions.Refresh(ctx, refreshed.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsExpiredAndForeignTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Identity.RegisterPatient(ctx, "Pat", "pat@example.com", "patient-pass")
	require.NoError(t, err)
	login, err := env.svc.Sessions.Login(ctx, "pat@example.com", "patient-pass")
	require.NoError(t, err)

	_, err = env.svc.Sessions.Refresh(ctx, login.Tokens.AccessToken)
	assert.True(t, errors.Is(err, apperrors.ErrAuthenticationRequired), "access token is not a refresh token")

	_, err = env.svc.Sessions.Refresh(ctx, "garbage")
	assert.True(t, errors.Is(err, apperrors.ErrAuthenticationRequired))

	env.svc.Sessions.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = env.svc.Sessions.Refresh(ctx, login.Tokens.RefreshToken)
	assert.True(t, errors.Is(err, apperrors.ErrAuthenticationRequired))
}

func TestRefreshFailsWhenPrincipalDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	patient, err := env.svc.Identity.RegisterPatient(ctx, "Pat", "pat@example.com", "patient-pass")
	require.NoError(t, err)
	login, err := env.svc.Sessions.Login(ctx, "pat@example.com", "patient-pass")
	require.NoError(t, err)

	require.NoError(t, env.db.Delete(&models.Patient{}, patient.ID).Error)

	_, err = env.svc.Sessions.Refresh(ctx, login.Tokens.RefreshToken)
	assert.True(t, errors.Is(err, apperrors.ErrAuthenticationRequired))
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Identity.RegisterPatient(ctx, "Pat", "pat@example.com", "patient-pass")
	require.NoError(t, err)
	login, err := env.svc.Sessions.Login(ctx, "pat@example.com", "patient-pass")
	require.NoError(t, err)

	access, err := utils.ValidateToken(login.Tokens.AccessToken, env.cfg.JWTSecret)
	require.NoError(t, err)

	require.NoError(t, env.svc.Sessions.Logout(ctx, access, login.Tokens.RefreshToken))

	revoked, err := env.svc.Sessions.IsAccessTokenRevoked(ctx, access.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = env.svc.Sessions.Refresh(ctx, login.Tokens.RefreshToken)
	assert.True(t, errors.Is(err, apperrors.ErrAuthenticationRequired))
}

func TestLogoutIgnoresAnotherPrincipalsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Identity.RegisterPatient(ctx, "A", "a@example.com", "patient-pass")
	require.NoError(t, err)
	_, err = env.svc.Identity.RegisterPatient(ctx, "B", "b@example.com", "patient-pass")
	require.NoError(t, err)

	a, err := env.svc.Sessions.Login(ctx, "a@example.com", "patient-pass")
	require.NoError(t, err)
	b, err := env.svc.Sessions.Login(ctx, "b@example.com", "patient-pass")
	require.NoError(t, err)

	aAccess, err := utils.ValidateToken(a.Tokens.AccessToken, env.cfg.JWTSecret)
	require.NoError(t, err)
	require.NoError(t, env.svc.Sessions.Logout(ctx, aAccess, b.Tokens.RefreshToken))

	_, err = env.svc.Sessions.Refresh(ctx, b.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestLogoutRequiresCaller(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.Sessions.Logout(context.Background(), nil, "")
	assert.True(t, errors.Is(err, apperrors.ErrAuthenticationRequired))
}
