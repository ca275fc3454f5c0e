// Package services implements the scheduling core: identity resolution,
// sessions, the appointment ledger and the facility directory. Every
// operation takes the calling principal explicitly and checks it with the
// access package.
package services

import (
	"gorm.io/gorm"

	"github.com/Aadiaditya9421/hospital-management-system/internal/config"
	"github.com/Aadiaditya9421/hospital-management-system/internal/logger"
	"github.com/Aadiaditya9421/hospital-management-system/internal/metrics"
	"github.com/Aadiaditya9421/hospital-management-system/internal/revocation"
)

// Services groups the application services sharing one database.
type Services struct {
	Identity  *IdentityService
	Sessions  *SessionService
	Ledger    *LedgerService
	Directory *DirectoryService
}

// New wires all services.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger, m *metrics.Collector, revoked revocation.Store) *Services {
	identity := NewIdentityService(db, log, m, cfg.StrictIdentityResolution)
	return &Services{
		Identity:  identity,
		Sessions:  NewSessionService(db, cfg, identity, revoked, log),
		Ledger:    NewLedgerService(db, log, m, cfg.FacilityLocation),
		Directory: NewDirectoryService(db, log),
	}
}
