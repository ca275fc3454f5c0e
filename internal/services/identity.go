package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Aadiaditya9421/hospital-management-system/internal/apperrors"
	"github.com/Aadiaditya9421/hospital-management-system/internal/logger"
	"github.com/Aadiaditya9421/hospital-management-system/internal/metrics"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
)

// MinPasswordLength applies to every password set through the services.
const MinPasswordLength = 8

// ErrAmbiguousPrincipal is returned by ResolvePrincipal in strict mode when a
// bare id exists in more than one identity collection.
var ErrAmbiguousPrincipal = apperrors.New(apperrors.KindNotFound, "principal id is ambiguous without a role")

// IdentityService authenticates principals and resolves them by id across the
// three identity collections.
type IdentityService struct {
	db      *gorm.DB
	log     *logger.Logger
	metrics *metrics.Collector
	// strict rejects hint-less lookups that match more than one collection.
	strict bool
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(db *gorm.DB, log *logger.Logger, m *metrics.Collector, strict bool) *IdentityService {
	return &IdentityService{db: db, log: log, metrics: m, strict: strict}
}

// Authenticate finds the principal whose login identifier matches, probing
// administrators, clinicians and patients in that order, and verifies the
// secret against the first match only. Every failure is ErrInvalidCredentials.
func (s *IdentityService) Authenticate(ctx context.Context, identifier, secret string) (models.Principal, error) {
	identifier = strings.TrimSpace(identifier)
	db := s.db.WithContext(ctx)

	var candidate models.Principal
	if identifier != "" {
		for _, role := range models.ResolutionOrder {
			p, err := findByLogin(db, role, identifier)
			if err != nil {
				return nil, fmt.Errorf("failed to look up principal: %w", err)
			}
			if p != nil {
				candidate = p
				break
			}
		}
	}

	if candidate == nil {
		models.DummyPasswordCheck(secret)
		s.authFailed()
		return nil, apperrors.ErrInvalidCredentials
	}
	if !candidate.CheckPassword(secret) {
		s.authFailed()
		return nil, apperrors.ErrInvalidCredentials
	}

	s.metrics.RecordAuthAttempt(metrics.AuthSuccess)
	s.log.Audit(candidate.Ref().String(), "auth.login", candidate.Ref().String(), true, nil)
	return candidate, nil
}

func (s *IdentityService) authFailed() {
	s.metrics.RecordAuthAttempt(metrics.AuthFailure)
	s.log.Security("login_failed", map[string]interface{}{"reason": "invalid_credentials"})
}

// ResolvePrincipal returns the principal with the given id. With a role hint
// only that collection is searched. Without one the collections are probed in
// models.ResolutionOrder and the first match wins, unless the service is
// strict, in which case an id present in several collections is an error.
func (s *IdentityService) ResolvePrincipal(ctx context.Context, id uint, roleHint *models.Role) (models.Principal, error) {
	db := s.db.WithContext(ctx)

	if roleHint != nil {
		p, err := findByID(db, *roleHint, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, apperrors.NotFound("%s %d not found", *roleHint, id)
		}
		return p, nil
	}

	var found models.Principal
	for _, role := range models.ResolutionOrder {
		p, err := findByID(db, role, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		if found == nil {
			found = p
			if !s.strict {
				break
			}
			continue
		}
		s.log.WithComponent("identity").WithField("principal_id", id).Warn("Bare id matches more than one identity collection")
		return nil, ErrAmbiguousPrincipal
	}
	if found == nil {
		return nil, apperrors.NotFound("principal %d not found", id)
	}
	return found, nil
}

// Resolve looks up the principal named by ref.
func (s *IdentityService) Resolve(ctx context.Context, ref models.PrincipalRef) (models.Principal, error) {
	role := ref.Role
	return s.ResolvePrincipal(ctx, ref.ID, &role)
}

// RegisterPatient creates a patient account. The email must not be in use as
// a login identifier in any collection.
func (s *IdentityService) RegisterPatient(ctx context.Context, name, email, password string) (*models.Patient, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, apperrors.InvalidInput("name and email are required")
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	patient := &models.Patient{Name: name, Email: email}
	if err := patient.SetPassword(password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureIdentifierFree(tx, email, nil); err != nil {
			return err
		}
		return createUnique(tx, patient, "email %q is already registered", email)
	})
	if err != nil {
		return nil, err
	}

	s.log.Audit(patient.Ref().String(), "patient.register", patient.Ref().String(), true, nil)
	return patient, nil
}

// CreateAdministrator creates an administrator account. There is no public
// route to this; it is used to bootstrap a facility.
func (s *IdentityService) CreateAdministrator(ctx context.Context, loginName, password string) (*models.Administrator, error) {
	loginName = strings.TrimSpace(loginName)
	if loginName == "" {
		return nil, apperrors.InvalidInput("login name is required")
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	admin := &models.Administrator{LoginName: loginName}
	if err := admin.SetPassword(password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureIdentifierFree(tx, loginName, nil); err != nil {
			return err
		}
		return createUnique(tx, admin, "login name %q is already in use", loginName)
	})
	if err != nil {
		return nil, err
	}

	s.log.Audit("system", "admin.create", admin.Ref().String(), true, nil)
	return admin, nil
}

// AdministratorByLogin finds an administrator by login name.
func (s *IdentityService) AdministratorByLogin(ctx context.Context, loginName string) (*models.Administrator, error) {
	p, err := findByLogin(s.db.WithContext(ctx), models.RoleAdmin, strings.TrimSpace(loginName))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound("administrator %q not found", loginName)
	}
	return p.(*models.Administrator), nil
}

// findByLogin returns nil, nil when the collection has no match.
func findByLogin(db *gorm.DB, role models.Role, identifier string) (models.Principal, error) {
	switch role {
	case models.RoleAdmin:
		var a models.Administrator
		return firstOrNil(db.Where("login_name = ?", identifier).Limit(1).Find(&a), &a)
	case models.RoleClinician:
		var c models.Clinician
		return firstOrNil(db.Where("email = ?", normalizeEmail(identifier)).Limit(1).Find(&c), &c)
	case models.RolePatient:
		var p models.Patient
		return firstOrNil(db.Where("email = ?", normalizeEmail(identifier)).Limit(1).Find(&p), &p)
	}
	return nil, apperrors.InvalidInput("unknown role %q", role)
}

// findByID returns nil, nil when the collection has no row with that id.
func findByID(db *gorm.DB, role models.Role, id uint) (models.Principal, error) {
	switch role {
	case models.RoleAdmin:
		var a models.Administrator
		return firstOrNil(db.Limit(1).Find(&a, id), &a)
	case models.RoleClinician:
		var c models.Clinician
		return firstOrNil(db.Limit(1).Find(&c, id), &c)
	case models.RolePatient:
		var p models.Patient
		return firstOrNil(db.Limit(1).Find(&p, id), &p)
	}
	return nil, apperrors.InvalidInput("unknown role %q", role)
}

func firstOrNil(result *gorm.DB, p models.Principal) (models.Principal, error) {
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return p, nil
}

// ensureIdentifierFree fails with AlreadyExists when identifier is the login
// identifier of any principal other than self.
func ensureIdentifierFree(tx *gorm.DB, identifier string, self *models.PrincipalRef) error {
	for _, role := range models.ResolutionOrder {
		p, err := findByLogin(tx, role, identifier)
		if err != nil {
			return err
		}
		if p != nil && (self == nil || p.Ref() != *self) {
			return apperrors.AlreadyExists("%q is already in use as a login identifier", identifier)
		}
	}
	return nil
}

// createUnique inserts value and reports a unique violation as AlreadyExists.
func createUnique(tx *gorm.DB, value interface{}, format string, args ...interface{}) error {
	if err := tx.Create(value).Error; err != nil {
		if models.IsUniqueViolation(err) {
			return apperrors.AlreadyExists(format, args...)
		}
		return err
	}
	return nil
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.InvalidInput("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
