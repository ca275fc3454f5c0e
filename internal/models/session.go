package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session binds an issued refresh token to the identity collection the
// principal was authenticated from. The ID is the refresh token's jti.
type Session struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Role        Role      `gorm:"size:20;not null" json:"role"`
	PrincipalID uint      `gorm:"not null;index" json:"principalId"`
	ExpiresAt   time.Time `json:"expiresAt"`
	IsRevoked   bool      `gorm:"default:false" json:"isRevoked"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Session) TableName() string {
	return "sessions"
}

// BeforeCreate will set a UUID when none was assigned
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// Ref returns the principal the session was issued to.
func (s *Session) Ref() PrincipalRef {
	return PrincipalRef{Role: s.Role, ID: s.PrincipalID}
}

// IsLive reports whether the session may still be used at now.
func (s *Session) IsLive(now time.Time) bool {
	return !s.IsRevoked && now.Before(s.ExpiresAt)
}
