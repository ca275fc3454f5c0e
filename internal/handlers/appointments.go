package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
	"github.com/Aadiaditya9421/hospital-management-system/internal/services"
	"github.com/Aadiaditya9421/hospital-management-system/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Ledger *services.LedgerService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(ledger *services.LedgerService) *AppointmentHandler {
	return &AppointmentHandler{Ledger: ledger}
}

// CreateAppointmentRequest represents the request body for booking. The
// patient defaults to the caller.
type CreateAppointmentRequest struct {
	ClinicianID   uint   `json:"clinicianId" binding:"required"`
	PatientID     uint   `json:"patientId"`
	ScheduledTime string `json:"scheduledTime" binding:"required"`
}

// CreateAppointment books a slot for the calling patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.PatientID == 0 {
		req.PatientID = ref.ID
	}

	appt, err := h.Ledger.BookAppointment(c.Request.Context(), ref, services.BookingRequest{
		PatientID:     req.PatientID,
		ClinicianID:   req.ClinicianID,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully", appt)
}

// GetAppointments lists the appointments visible to the caller. Query
// parameters: status, patientId, clinicianId, order=asc|desc.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}

	var filter services.AppointmentFilter
	if raw := c.Query("status"); raw != "" {
		status, valid := models.ParseAppointmentStatus(raw)
		if !valid {
			utils.BadRequest(c, "Invalid status: "+raw)
			return
		}
		filter.Status = status
	}
	if filter.PatientID, ok = uintQuery(c, "patientId"); !ok {
		return
	}
	if filter.ClinicianID, ok = uintQuery(c, "clinicianId"); !ok {
		return
	}
	switch strings.ToLower(c.DefaultQuery("order", "asc")) {
	case "asc":
	case "desc":
		filter.Descending = true
	default:
		utils.BadRequest(c, "order must be asc or desc")
		return
	}

	appointments, err := h.Ledger.ListAppointments(c.Request.Context(), ref, filter)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID fetches one appointment, including its treatment once
// completed.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	appt, err := h.Ledger.GetAppointment(c.Request.Context(), ref, id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", appt)
}

// CompleteAppointmentRequest carries the treatment written on completion.
type CompleteAppointmentRequest struct {
	Diagnosis    string `json:"diagnosis" binding:"required"`
	Prescription string `json:"prescription"`
}

// CompleteAppointment records a treatment and completes the appointment.
func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req CompleteAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Ledger.CompleteAppointment(c.Request.Context(), ref, id, req.Diagnosis, req.Prescription)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Appointment completed successfully", appt)
}

// CancelAppointment cancels a booked appointment.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	appt, err := h.Ledger.CancelAppointment(c.Request.Context(), ref, id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Appointment cancelled successfully", appt)
}

// GetStats counts the caller's appointments by status.
func (h *AppointmentHandler) GetStats(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}

	stats, err := h.Ledger.Stats(c.Request.Context(), ref)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Success(c, "Appointment stats fetched successfully", stats)
}
