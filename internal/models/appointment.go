package models

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "Booked"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// ParseAppointmentStatus accepts the canonical spelling case-insensitively.
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	for _, st := range []AppointmentStatus{StatusBooked, StatusCompleted, StatusCancelled} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

// IsTerminal reports whether no transition may leave this status.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Appointment is a single clinician time slot booked by a patient.
type Appointment struct {
	BaseModel
	PatientID     uint              `gorm:"not null;index" json:"patientId"`
	ClinicianID   uint              `gorm:"not null;index:idx_appointments_clinician_time" json:"clinicianId"`
	ScheduledTime time.Time         `gorm:"not null;index:idx_appointments_clinician_time" json:"scheduledTime"`
	Status        AppointmentStatus `gorm:"size:20;not null;default:'Booked';index" json:"status"`
	// ActiveSlot is set to SlotKey while the appointment is Booked and
	// cleared on any transition. The unique index enforces at most one
	// Booked appointment per (clinician, time); NULLs never collide.
	ActiveSlot *string `gorm:"size:64;uniqueIndex" json:"-"`

	// Relations
	Patient   *Patient   `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Clinician *Clinician `gorm:"foreignKey:ClinicianID" json:"clinician,omitempty"`
	Treatment *Treatment `gorm:"foreignKey:AppointmentID" json:"treatment,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// SlotKey is the storage key of the slot (clinicianID, at).
func SlotKey(clinicianID uint, at time.Time) string {
	return fmt.Sprintf("%d@%s", clinicianID, at.UTC().Format(time.RFC3339))
}
