package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Aadiaditya9421/hospital-management-system/internal/access"
	"github.com/Aadiaditya9421/hospital-management-system/internal/apperrors"
	"github.com/Aadiaditya9421/hospital-management-system/internal/logger"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
)

// ClinicianInput creates a clinician.
type ClinicianInput struct {
	Name         string
	Email        string
	Password     string
	DepartmentID uint
}

// ClinicianUpdate changes a clinician. Empty fields are left unchanged.
type ClinicianUpdate struct {
	Name         string
	Email        string
	DepartmentID uint
}

// DirectoryEntry is a clinician as shown to anyone choosing whom to book.
type DirectoryEntry struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	DepartmentID   uint   `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
}

// FacilitySummary is the administrator dashboard.
type FacilitySummary struct {
	Departments  int64 `json:"departments"`
	Clinicians   int64 `json:"clinicians"`
	Patients     int64 `json:"patients"`
	Appointments int64 `json:"appointments"`
}

// DirectoryService maintains departments, clinicians and patients. Deleting a
// record that others still reference is rejected with HasDependents.
type DirectoryService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewDirectoryService creates a DirectoryService.
func NewDirectoryService(db *gorm.DB, log *logger.Logger) *DirectoryService {
	return &DirectoryService{db: db, log: log}
}

func (s *DirectoryService) ListDepartments(ctx context.Context, caller *models.PrincipalRef) ([]models.Department, error) {
	if err := access.Authorize(caller, access.OpManageDepartments, access.Resource{}); err != nil {
		return nil, err
	}
	departments := []models.Department{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}

func (s *DirectoryService) CreateDepartment(ctx context.Context, caller *models.PrincipalRef, name string) (*models.Department, error) {
	if err := access.Authorize(caller, access.OpManageDepartments, access.Resource{}); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("department name is required")
	}

	dept := &models.Department{Name: name}
	if err := createUnique(s.db.WithContext(ctx), dept, "department %q already exists", name); err != nil {
		return nil, err
	}
	s.log.Audit(caller.String(), "department.create", fmt.Sprintf("department:%d", dept.ID), true, nil)
	return dept, nil
}

func (s *DirectoryService) RenameDepartment(ctx context.Context, caller *models.PrincipalRef, id uint, name string) (*models.Department, error) {
	if err := access.Authorize(caller, access.OpManageDepartments, access.Resource{}); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("department name is required")
	}

	var dept models.Department
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&dept, id).Error; err != nil {
			return notFoundOr(err, "department %d not found", id)
		}
		if err := tx.Model(&dept).Update("name", name).Error; err != nil {
			if models.IsUniqueViolation(err) {
				return apperrors.AlreadyExists("department %q already exists", name)
			}
			return err
		}
		dept.Name = name
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Audit(caller.String(), "department.rename", fmt.Sprintf("department:%d", id), true, nil)
	return &dept, nil
}

// DeleteDepartment removes a department with no clinicians.
func (s *DirectoryService) DeleteDepartment(ctx context.Context, caller *models.PrincipalRef, id uint) error {
	if err := access.Authorize(caller, access.OpManageDepartments, access.Resource{}); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Department{}, id, "department"); err != nil {
			return err
		}
		var clinicians int64
		if err := tx.Model(&models.Clinician{}).Where("department_id = ?", id).Count(&clinicians).Error; err != nil {
			return err
		}
		if clinicians > 0 {
			return apperrors.HasDependents("department %d still has %d clinician(s)", id, clinicians)
		}
		return tx.Delete(&models.Department{}, id).Error
	})
	s.log.Audit(caller.String(), "department.delete", fmt.Sprintf("department:%d", id), err == nil, nil)
	return err
}

// ListClinicians returns clinicians whose name or department name contains q.
func (s *DirectoryService) ListClinicians(ctx context.Context, caller *models.PrincipalRef, q string) ([]models.Clinician, error) {
	if err := access.Authorize(caller, access.OpManageClinicians, access.Resource{}); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Clinician{}).
		Preload("Department").
		Joins("LEFT JOIN departments ON departments.id = clinicians.department_id")
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(clinicians.name) LIKE ? OR LOWER(departments.name) LIKE ?", like, like)
	}

	clinicians := []models.Clinician{}
	if err := query.Order("clinicians.name ASC").Find(&clinicians).Error; err != nil {
		return nil, fmt.Errorf("failed to list clinicians: %w", err)
	}
	return clinicians, nil
}

// Directory lists every clinician with their department, for booking.
func (s *DirectoryService) Directory(ctx context.Context, caller *models.PrincipalRef) ([]DirectoryEntry, error) {
	if err := access.Authorize(caller, access.OpViewDirectory, access.Resource{}); err != nil {
		return nil, err
	}

	entries := []DirectoryEntry{}
	err := s.db.WithContext(ctx).Model(&models.Clinician{}).
		Select("clinicians.id AS id, clinicians.name AS name, clinicians.department_id AS department_id, departments.name AS department_name").
		Joins("LEFT JOIN departments ON departments.id = clinicians.department_id").
		Order("departments.name ASC, clinicians.name ASC").
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load clinician directory: %w", err)
	}
	return entries, nil
}

func (s *DirectoryService) CreateClinician(ctx context.Context, caller *models.PrincipalRef, in ClinicianInput) (*models.Clinician, error) {
	if err := access.Authorize(caller, access.OpManageClinicians, access.Resource{}); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.DepartmentID == 0 {
		return nil, apperrors.InvalidInput("name, email and department are required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	clinician := &models.Clinician{Name: in.Name, Email: in.Email, DepartmentID: in.DepartmentID}
	if err := clinician.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Department{}, in.DepartmentID, "department"); err != nil {
			return err
		}
		if err := ensureIdentifierFree(tx, in.Email, nil); err != nil {
			return err
		}
		if err := createUnique(tx, clinician, "email %q is already registered", in.Email); err != nil {
			return err
		}
		return tx.Preload("Department").First(clinician, clinician.ID).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Audit(caller.String(), "clinician.create", clinician.Ref().String(), true, nil)
	return clinician, nil
}

func (s *DirectoryService) UpdateClinician(ctx context.Context, caller *models.PrincipalRef, id uint, in ClinicianUpdate) (*models.Clinician, error) {
	if err := access.Authorize(caller, access.OpManageClinicians, access.Resource{}); err != nil {
		return nil, err
	}

	var clinician models.Clinician
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&clinician, id).Error; err != nil {
			return notFoundOr(err, "clinician %d not found", id)
		}

		updates := map[string]interface{}{}
		if name := strings.TrimSpace(in.Name); name != "" {
			updates["name"] = name
		}
		if email := normalizeEmail(in.Email); email != "" && email != clinician.Email {
			self := clinician.Ref()
			if err := ensureIdentifierFree(tx, email, &self); err != nil {
				return err
			}
			updates["email"] = email
		}
		if in.DepartmentID != 0 && in.DepartmentID != clinician.DepartmentID {
			if err := mustExist(tx, &models.Department{}, in.DepartmentID, "department"); err != nil {
				return err
			}
			updates["department_id"] = in.DepartmentID
		}

		if len(updates) > 0 {
			if err := tx.Model(&clinician).Updates(updates).Error; err != nil {
				if models.IsUniqueViolation(err) {
					return apperrors.AlreadyExists("email %q is already registered", in.Email)
				}
				return err
			}
		}
		return tx.Preload("Department").First(&clinician, id).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Audit(caller.String(), "clinician.update", clinician.Ref().String(), true, nil)
	return &clinician, nil
}

// DeleteClinician removes a clinician who is not referenced by any
// appointment, whatever its status.
func (s *DirectoryService) DeleteClinician(ctx context.Context, caller *models.PrincipalRef, id uint) error {
	if err := access.Authorize(caller, access.OpManageClinicians, access.Resource{}); err != nil {
		return err
	}
	err := s.deleteUnreferenced(ctx, &models.Clinician{}, models.RoleClinician, id, "clinician_id")
	s.log.Audit(caller.String(), "clinician.delete", fmt.Sprintf("clinician:%d", id), err == nil, nil)
	return err
}

// ListPatients returns patients whose name or email contains q.
func (s *DirectoryService) ListPatients(ctx context.Context, caller *models.PrincipalRef, q string) ([]models.Patient, error) {
	if err := access.Authorize(caller, access.OpListPatients, access.Resource{}); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Patient{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	patients := []models.Patient{}
	if err := query.Order("name ASC").Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// DeletePatient removes a patient who is not referenced by any appointment.
func (s *DirectoryService) DeletePatient(ctx context.Context, caller *models.PrincipalRef, id uint) error {
	if err := access.Authorize(caller, access.OpRemovePatient, access.Resource{}); err != nil {
		return err
	}
	err := s.deleteUnreferenced(ctx, &models.Patient{}, models.RolePatient, id, "patient_id")
	s.log.Audit(caller.String(), "patient.delete", fmt.Sprintf("patient:%d", id), err == nil, nil)
	return err
}

// Summary counts the facility's records.
func (s *DirectoryService) Summary(ctx context.Context, caller *models.PrincipalRef) (*FacilitySummary, error) {
	if err := access.Authorize(caller, access.OpViewSummary, access.Resource{}); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	summary := &FacilitySummary{}
	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.Department{}, &summary.Departments},
		{&models.Clinician{}, &summary.Clinicians},
		{&models.Patient{}, &summary.Patients},
		{&models.Appointment{}, &summary.Appointments},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("failed to build summary: %w", err)
		}
	}
	return summary, nil
}

func (s *DirectoryService) deleteUnreferenced(ctx context.Context, model interface{}, role models.Role, id uint, column string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, model, id, string(role)); err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&models.Appointment{}).Where(column+" = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return apperrors.HasDependents("%s %d is referenced by %d appointment(s)", role, id, refs)
		}
		// Sessions die with their principal.
		if err := tx.Where("role = ? AND principal_id = ?", role, id).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(model, id).Error
	})
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if isRecordNotFound(err) {
		return apperrors.NotFound(format, args...)
	}
	return err
}
