package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Aadiaditya9421/hospital-management-system/internal/config"
	"github.com/Aadiaditya9421/hospital-management-system/internal/logger"
	"github.com/Aadiaditya9421/hospital-management-system/internal/metrics"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
	"github.com/Aadiaditya9421/hospital-management-system/internal/revocation"
)

type testEnv struct {
	db      *gorm.DB
	cfg     *config.Config
	revoked *revocation.MemoryStore
	svc     *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := models.InitDB(models.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		JWTSecret:                 "test-access-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
		FacilityLocation:          time.UTC,
	}
	revoked := revocation.NewMemoryStore()

	return &testEnv{
		db:      db,
		cfg:     cfg,
		revoked: revoked,
		svc:     New(db, cfg, logger.Discard(), metrics.NewCollector(), revoked),
	}
}

// Seeded principals get a placeholder hash; tests that log in set a real one.

func (e *testEnv) addDepartment(t *testing.T, name string) *models.Department {
	t.Helper()
	d := &models.Department{Name: name}
	require.NoError(t, e.db.Create(d).Error)
	return d
}

func (e *testEnv) addClinician(t *testing.T, name, email string, departmentID uint) *models.Clinician {
	t.Helper()
	c := &models.Clinician{Name: name, Email: email, PasswordHash: "-", DepartmentID: departmentID}
	require.NoError(t, e.db.Create(c).Error)
	return c
}

func (e *testEnv) addPatient(t *testing.T, name, email string) *models.Patient {
	t.Helper()
	p := &models.Patient{Name: name, Email: email, PasswordHash: "-"}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) addAdmin(t *testing.T, login string) *models.Administrator {
	t.Helper()
	a := &models.Administrator{LoginName: login, PasswordHash: "-"}
	require.NoError(t, e.db.Create(a).Error)
	return a
}

func refOf(p models.Principal) *models.PrincipalRef {
	r := p.Ref()
	return &r
}

// requireTreatmentInvariant checks that a treatment exists exactly for the
// completed appointments.
func (e *testEnv) requireTreatmentInvariant(t *testing.T) {
	t.Helper()

	var appointments []models.Appointment
	require.NoError(t, e.db.Preload("Treatment").Find(&appointments).Error)
	for _, a := range appointments {
		if a.Status == models.StatusCompleted {
			require.NotNil(t, a.Treatment, "completed appointment %d has no treatment", a.ID)
		} else {
			require.Nil(t, a.Treatment, "%s appointment %d has a treatment", a.Status, a.ID)
		}
		if a.Status == models.StatusBooked {
			require.NotNil(t, a.ActiveSlot)
		} else {
			require.Nil(t, a.ActiveSlot)
		}
	}
}
