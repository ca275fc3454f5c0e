package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Aadiaditya9421/hospital-management-system/internal/apperrors"
	"github.com/Aadiaditya9421/hospital-management-system/internal/config"
	"github.com/Aadiaditya9421/hospital-management-system/internal/logger"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
	"github.com/Aadiaditya9421/hospital-management-system/internal/revocation"
	"github.com/Aadiaditya9421/hospital-management-system/internal/utils"
)

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// LoginResult carries the authenticated principal and its tokens.
type LoginResult struct {
	Principal models.PrincipalSanitized `json:"principal"`
	Tokens    TokenPair                 `json:"tokens"`
}

// SessionService binds authenticated principals to sessions. The role is
// fixed at login and stored with the session; it is never re-derived.
type SessionService struct {
	db       *gorm.DB
	cfg      *config.Config
	identity *IdentityService
	revoked  revocation.Store
	log      *logger.Logger
	now      func() time.Time
}

// NewSessionService creates a SessionService.
func NewSessionService(db *gorm.DB, cfg *config.Config, identity *IdentityService, revoked revocation.Store, log *logger.Logger) *SessionService {
	return &SessionService{
		db:       db,
		cfg:      cfg,
		identity: identity,
		revoked:  revoked,
		log:      log,
		now:      time.Now,
	}
}

// Login authenticates and opens a session.
func (s *SessionService) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	principal, err := s.identity.Authenticate(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}

	var tokens *TokenPair
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tokens, err = s.openSession(tx, principal.Ref())
		return err
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{Principal: principal.Sanitize(), Tokens: *tokens}, nil
}

// Refresh rotates a refresh token. The session must be live and its
// principal must still exist in the collection recorded at login.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := utils.ValidateToken(refreshToken, s.cfg.JWTRefreshSecret)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuthenticationRequired, "invalid refresh token", err)
	}

	var (
		principal models.Principal
		tokens    *TokenPair
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.Session
		if err := tx.First(&session, "id = ?", claims.ID).Error; err != nil {
			if isRecordNotFound(err) {
				return apperrors.New(apperrors.KindAuthenticationRequired, "session not found")
			}
			return err
		}
		if !session.IsLive(s.now()) || session.Ref() != claims.Ref() {
			return apperrors.New(apperrors.KindAuthenticationRequired, "session expired or revoked")
		}

		role := session.Role
		p, err := findByID(tx, role, session.PrincipalID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperrors.New(apperrors.KindAuthenticationRequired, "principal no longer exists")
		}
		principal = p

		// Rotation: only one concurrent refresh of the same token succeeds.
		res := tx.Model(&models.Session{}).
			Where("id = ? AND is_revoked = ?", session.ID, false).
			Update("is_revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.New(apperrors.KindAuthenticationRequired, "session expired or revoked")
		}

		tokens, err = s.openSession(tx, session.Ref())
		return err
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{Principal: principal.Sanitize(), Tokens: *tokens}, nil
}

// Logout revokes the caller's access token and, when given, the refresh
// token's session. An unusable refresh token is ignored.
func (s *SessionService) Logout(ctx context.Context, access *utils.Claims, refreshToken string) error {
	if access == nil {
		return apperrors.ErrAuthenticationRequired
	}
	if access.ExpiresAt != nil {
		if err := s.revoked.Revoke(ctx, access.ID, access.ExpiresAt.Time); err != nil {
			return fmt.Errorf("failed to revoke access token: %w", err)
		}
	}

	if refreshToken != "" {
		claims, err := utils.ValidateToken(refreshToken, s.cfg.JWTRefreshSecret)
		if err == nil && claims.Ref() == access.Ref() {
			err := s.db.WithContext(ctx).Model(&models.Session{}).
				Where("id = ? AND role = ? AND principal_id = ?", claims.ID, claims.Role, claims.PrincipalID).
				Update("is_revoked", true).Error
			if err != nil {
				return fmt.Errorf("failed to revoke session: %w", err)
			}
		}
	}

	s.log.Audit(access.Ref().String(), "auth.logout", access.Ref().String(), true, nil)
	return nil
}

// IsAccessTokenRevoked reports whether the token id was revoked by a logout.
func (s *SessionService) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revoked.IsRevoked(ctx, jti)
}

func (s *SessionService) openSession(tx *gorm.DB, ref models.PrincipalRef) (*TokenPair, error) {
	now := s.now()
	session := models.Session{
		Role:        ref.Role,
		PrincipalID: ref.ID,
		ExpiresAt:   now.Add(time.Duration(s.cfg.JWTRefreshExpirationHours) * time.Hour),
	}
	if err := tx.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	accessToken, accessClaims, err := utils.GenerateAccessToken(ref, s.cfg, now)
	if err != nil {
		return nil, err
	}
	refreshToken, err := utils.GenerateRefreshToken(ref, session.ID, session.ExpiresAt, s.cfg, now)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshTokenExpiresAt: session.ExpiresAt,
	}, nil
}
