package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Aadiaditya9421/hospital-management-system/internal/access"
	"github.com/Aadiaditya9421/hospital-management-system/internal/apperrors"
	"github.com/Aadiaditya9421/hospital-management-system/internal/logger"
	"github.com/Aadiaditya9421/hospital-management-system/internal/metrics"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
)

// naiveTimeLayouts are accepted booking formats without a zone offset. They
// are interpreted in the facility's location.
var naiveTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 03:04 PM",
}

// BookingRequest is the input of BookAppointment.
type BookingRequest struct {
	PatientID     uint
	ClinicianID   uint
	ScheduledTime string
}

// AppointmentFilter narrows ListAppointments. Zero values mean "any".
type AppointmentFilter struct {
	Status      models.AppointmentStatus
	PatientID   uint
	ClinicianID uint
	Descending  bool
}

// AppointmentStats counts appointments by status.
type AppointmentStats struct {
	Booked    int64 `json:"booked"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Total     int64 `json:"total"`
}

// LedgerService owns the appointment state machine:
// Booked -> Completed | Cancelled.
type LedgerService struct {
	db       *gorm.DB
	log      *logger.Logger
	metrics  *metrics.Collector
	location *time.Location
}

// NewLedgerService creates a LedgerService. Naive times are read in loc.
func NewLedgerService(db *gorm.DB, log *logger.Logger, m *metrics.Collector, loc *time.Location) *LedgerService {
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerService{db: db, log: log, metrics: m, location: loc}
}

// ParseScheduledTime parses a booking time. The result is UTC, truncated to
// the second, so that equal instants produce equal slot keys.
func (s *LedgerService) ParseScheduledTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperrors.InvalidInput("scheduled time is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return normalizeInstant(t), nil
	}
	for _, layout := range naiveTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, s.location); err == nil {
			return normalizeInstant(t), nil
		}
	}
	return time.Time{}, apperrors.InvalidInput("invalid scheduled time %q", raw)
}

func normalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// BookAppointment creates a Booked appointment for the caller. At most one
// Booked appointment may exist per clinician and instant; the check and the
// insert run in one transaction backed by the unique active-slot index.
func (s *LedgerService) BookAppointment(ctx context.Context, caller *models.PrincipalRef, req BookingRequest) (*models.Appointment, error) {
	if err := access.Authorize(caller, access.OpBookAppointment, access.Resource{PatientID: req.PatientID}); err != nil {
		s.metrics.RecordBooking(metrics.BookingRejected)
		return nil, err
	}
	if req.ClinicianID == 0 {
		s.metrics.RecordBooking(metrics.BookingRejected)
		return nil, apperrors.InvalidInput("clinician is required")
	}
	at, err := s.ParseScheduledTime(req.ScheduledTime)
	if err != nil {
		s.metrics.RecordBooking(metrics.BookingRejected)
		return nil, err
	}

	slot := models.SlotKey(req.ClinicianID, at)
	appt := &models.Appointment{
		PatientID:     req.PatientID,
		ClinicianID:   req.ClinicianID,
		ScheduledTime: at,
		Status:        models.StatusBooked,
		ActiveSlot:    &slot,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Patient{}, req.PatientID, "patient"); err != nil {
			return err
		}
		if err := mustExist(tx, &models.Clinician{}, req.ClinicianID, "clinician"); err != nil {
			return err
		}

		var taken int64
		if err := tx.Model(&models.Appointment{}).
			Where("clinician_id = ? AND scheduled_time = ? AND status = ?", req.ClinicianID, at, models.StatusBooked).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return apperrors.ErrSlotConflict
		}

		if err := tx.Create(appt).Error; err != nil {
			if models.IsUniqueViolation(err) {
				return apperrors.ErrSlotConflict
			}
			return err
		}
		return nil
	})

	details := map[string]interface{}{"clinician_id": req.ClinicianID, "scheduled_time": at.Format(time.RFC3339)}
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindSlotConflict {
			s.metrics.RecordBooking(metrics.BookingConflict)
		} else {
			s.metrics.RecordBooking(metrics.BookingRejected)
		}
		s.log.Audit(caller.String(), "appointment.book", fmt.Sprintf("clinician:%d", req.ClinicianID), false, details)
		return nil, err
	}

	s.metrics.RecordBooking(metrics.BookingCreated)
	s.log.Audit(caller.String(), "appointment.book", appointmentResource(appt.ID), true, details)
	return appt, nil
}

// CompleteAppointment records the treatment and marks the appointment
// Completed. Both writes commit together or not at all.
func (s *LedgerService) CompleteAppointment(ctx context.Context, caller *models.PrincipalRef, id uint, diagnosis, prescription string) (*models.Appointment, error) {
	if caller == nil || caller.IsZero() {
		return nil, apperrors.ErrAuthenticationRequired
	}
	diagnosis = strings.TrimSpace(diagnosis)
	prescription = strings.TrimSpace(prescription)

	var appt models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadAppointment(tx, id, &appt); err != nil {
			return err
		}
		if err := access.Authorize(caller, access.OpRecordTreatment, resourceOf(&appt)); err != nil {
			return err
		}
		if appt.Status != models.StatusBooked {
			return apperrors.InvalidTransition("appointment %d is %s", id, appt.Status)
		}
		if diagnosis == "" {
			return apperrors.InvalidInput("diagnosis is required")
		}

		if err := transition(tx, id, models.StatusCompleted); err != nil {
			return err
		}

		treatment := &models.Treatment{AppointmentID: id, Diagnosis: diagnosis, Prescription: prescription}
		if err := tx.Create(treatment).Error; err != nil {
			if models.IsUniqueViolation(err) {
				return apperrors.InvalidTransition("appointment %d already has a treatment", id)
			}
			return err
		}

		return loadAppointment(tx, id, &appt)
	})
	if err != nil {
		s.log.Audit(caller.String(), "appointment.complete", appointmentResource(id), false, map[string]interface{}{"error": string(apperrors.KindOf(err))})
		return nil, err
	}

	s.metrics.RecordTransition(string(models.StatusCompleted))
	s.log.Audit(caller.String(), "appointment.complete", appointmentResource(id), true, map[string]interface{}{"patient_id": appt.PatientID})
	return &appt, nil
}

// CancelAppointment moves a Booked appointment to Cancelled. Cancelling an
// already cancelled appointment succeeds without change; cancelling a
// completed one is an invalid transition.
func (s *LedgerService) CancelAppointment(ctx context.Context, caller *models.PrincipalRef, id uint) (*models.Appointment, error) {
	if caller == nil || caller.IsZero() {
		return nil, apperrors.ErrAuthenticationRequired
	}

	var (
		appt    models.Appointment
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadAppointment(tx, id, &appt); err != nil {
			return err
		}
		if err := access.Authorize(caller, access.OpCancelAppointment, resourceOf(&appt)); err != nil {
			return err
		}

		switch appt.Status {
		case models.StatusCancelled:
			return nil
		case models.StatusCompleted:
			return apperrors.InvalidTransition("appointment %d is already completed", id)
		}

		if err := transition(tx, id, models.StatusCancelled); err != nil {
			// Lost a race. Another cancel leaves the same outcome.
			if reloadErr := loadAppointment(tx, id, &appt); reloadErr == nil && appt.Status == models.StatusCancelled {
				return nil
			}
			return err
		}
		changed = true
		return loadAppointment(tx, id, &appt)
	})
	if err != nil {
		s.log.Audit(caller.String(), "appointment.cancel", appointmentResource(id), false, map[string]interface{}{"error": string(apperrors.KindOf(err))})
		return nil, err
	}

	if changed {
		s.metrics.RecordTransition(string(models.StatusCancelled))
	}
	s.log.Audit(caller.String(), "appointment.cancel", appointmentResource(id), true, map[string]interface{}{"changed": changed})
	return &appt, nil
}

// GetAppointment returns one appointment with its parties and treatment.
func (s *LedgerService) GetAppointment(ctx context.Context, caller *models.PrincipalRef, id uint) (*models.Appointment, error) {
	if caller == nil || caller.IsZero() {
		return nil, apperrors.ErrAuthenticationRequired
	}

	var appt models.Appointment
	if err := loadAppointment(s.db.WithContext(ctx), id, &appt); err != nil {
		return nil, err
	}
	if err := access.Authorize(caller, access.OpViewAppointment, resourceOf(&appt)); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListAppointments returns appointments visible to the caller, ordered by
// scheduled time. Clinicians see only their own queue and patients only their
// own bookings; asking for someone else's is Forbidden.
func (s *LedgerService) ListAppointments(ctx context.Context, caller *models.PrincipalRef, filter AppointmentFilter) ([]models.Appointment, error) {
	filter, err := scopeFilter(caller, filter)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Preload("Patient").
		Preload("Clinician").
		Preload("Clinician.Department").
		Preload("Treatment")
	query = applyFilter(query, filter)

	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	query = query.Order("scheduled_time " + direction).Order("id " + direction)

	appointments := []models.Appointment{}
	if err := query.Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// Stats counts the appointments visible to the caller by status.
func (s *LedgerService) Stats(ctx context.Context, caller *models.PrincipalRef) (*AppointmentStats, error) {
	filter, err := scopeFilter(caller, AppointmentFilter{})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status models.AppointmentStatus
		Count  int64
	}
	query := applyFilter(s.db.WithContext(ctx).Model(&models.Appointment{}), filter)
	if err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}

	stats := &AppointmentStats{}
	for _, r := range rows {
		switch r.Status {
		case models.StatusBooked:
			stats.Booked = r.Count
		case models.StatusCompleted:
			stats.Completed = r.Count
		case models.StatusCancelled:
			stats.Cancelled = r.Count
		}
		stats.Total += r.Count
	}
	return stats, nil
}

// scopeFilter pins the filter to the caller's own appointments where the
// caller's role requires it.
func scopeFilter(caller *models.PrincipalRef, filter AppointmentFilter) (AppointmentFilter, error) {
	if caller == nil || caller.IsZero() {
		return filter, apperrors.ErrAuthenticationRequired
	}

	switch caller.Role {
	case models.RoleAdmin:
		return filter, access.Authorize(caller, access.OpListAllAppointments, access.Resource{})
	case models.RoleClinician:
		if filter.ClinicianID == 0 {
			filter.ClinicianID = caller.ID
		}
		return filter, access.Authorize(caller, access.OpViewClinicianQueue, access.Resource{ClinicianID: filter.ClinicianID})
	case models.RolePatient:
		if filter.PatientID == 0 {
			filter.PatientID = caller.ID
		}
		return filter, access.Authorize(caller, access.OpViewOwnAppointments, access.Resource{PatientID: filter.PatientID})
	}
	return filter, apperrors.Forbidden("unknown role %q", caller.Role)
}

func applyFilter(query *gorm.DB, filter AppointmentFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PatientID != 0 {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.ClinicianID != 0 {
		query = query.Where("clinician_id = ?", filter.ClinicianID)
	}
	return query
}

// transition moves a Booked appointment to status and frees its slot. The
// status guard in the WHERE clause makes concurrent transitions exclusive:
// the loser updates no rows.
func transition(tx *gorm.DB, id uint, status models.AppointmentStatus) error {
	res := tx.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, models.StatusBooked).
		Updates(map[string]interface{}{
			"status":      status,
			"active_slot": nil,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.InvalidTransition("appointment %d is no longer booked", id)
	}
	return nil
}

func loadAppointment(db *gorm.DB, id uint, appt *models.Appointment) error {
	err := db.Preload("Patient").
		Preload("Clinician").
		Preload("Clinician.Department").
		Preload("Treatment").
		First(appt, id).Error
	if err != nil {
		if isRecordNotFound(err) {
			return apperrors.NotFound("appointment %d not found", id)
		}
		return err
	}
	return nil
}

func mustExist(tx *gorm.DB, model interface{}, id uint, kind string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NotFound("%s %d not found", kind, id)
	}
	return nil
}

func resourceOf(appt *models.Appointment) access.Resource {
	return access.Resource{PatientID: appt.PatientID, ClinicianID: appt.ClinicianID}
}

func appointmentResource(id uint) string {
	return fmt.Sprintf("appointment:%d", id)
}
