package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Aadiaditya9421/hospital-management-system/internal/config"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
)

// Claims represents the JWT claims. Role and PrincipalID together name the
// principal; the id alone is ambiguous across identity collections.
type Claims struct {
	Role        models.Role `json:"role"`
	PrincipalID uint        `json:"principal_id"`
	jwt.RegisteredClaims
}

// Ref returns the principal the token was issued to.
func (c *Claims) Ref() models.PrincipalRef {
	return models.PrincipalRef{Role: c.Role, ID: c.PrincipalID}
}

// GenerateAccessToken issues a short-lived access token with a fresh jti.
func GenerateAccessToken(ref models.PrincipalRef, cfg *config.Config, now time.Time) (string, *Claims, error) {
	expirationTime := now.Add(time.Duration(cfg.JWTExpirationMinutes) * time.Minute)
	claims := newClaims(ref, uuid.New().String(), now, expirationTime)

	tokenString, err := sign(claims, cfg.JWTSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, claims, nil
}

// GenerateRefreshToken issues a refresh token whose jti is the session id.
func GenerateRefreshToken(ref models.PrincipalRef, sessionID string, expiresAt time.Time, cfg *config.Config, now time.Time) (string, error) {
	tokenString, err := sign(newClaims(ref, sessionID, now, expiresAt), cfg.JWTRefreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return tokenString, nil
}

func newClaims(ref models.PrincipalRef, jti string, issuedAt, expiresAt time.Time) *Claims {
	return &Claims{
		Role:        ref.Role,
		PrincipalID: ref.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   ref.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
}

func sign(claims *Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken validates a JWT token.
func ValidateToken(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.Ref().IsZero() {
		return nil, fmt.Errorf("token does not name a principal")
	}
	if _, ok := models.ParseRole(string(claims.Role)); !ok {
		return nil, fmt.Errorf("token carries unknown role %q", claims.Role)
	}

	return claims, nil
}
