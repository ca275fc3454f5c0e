package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
	"github.com/Aadiaditya9421/hospital-management-system/internal/services"
	"github.com/Aadiaditya9421/hospital-management-system/internal/utils"
)

// DirectoryHandler handles department, clinician and patient administration.
type DirectoryHandler struct {
	Directory *services.DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(directory *services.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{Directory: directory}
}

// DepartmentRequest is the body for creating or renaming a department.
type DepartmentRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// CreateClinicianRequest represents the request body for creating a clinician.
type CreateClinicianRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	DepartmentID uint   `json:"departmentId" binding:"required"`
}

// UpdateClinicianRequest represents the request body for updating a
// clinician. Omitted fields are unchanged.
type UpdateClinicianRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email" binding:"omitempty,email"`
	DepartmentID uint   `json:"departmentId"`
}

// GetDepartments lists departments.
func (h *DirectoryHandler) GetDepartments(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	departments, err := h.Directory.ListDepartments(c.Request.Context(), ref)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Departments fetched successfully", departments)
}

// CreateDepartment creates a department.
func (h *DirectoryHandler) CreateDepartment(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	var req DepartmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	dept, err := h.Directory.CreateDepartment(c.Request.Context(), ref, req.Name)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Department created successfully", dept)
}

// UpdateDepartment renames a department.
func (h *DirectoryHandler) UpdateDepartment(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req DepartmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	dept, err := h.Directory.RenameDepartment(c.Request.Context(), ref, id, req.Name)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Department updated successfully", dept)
}

// DeleteDepartment deletes a department without clinicians.
func (h *DirectoryHandler) DeleteDepartment(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.Directory.DeleteDepartment(c.Request.Context(), ref, id); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Department deleted successfully", nil)
}

// GetClinicians lists clinicians, filtered by ?q= on clinician or
// department name.
func (h *DirectoryHandler) GetClinicians(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	clinicians, err := h.Directory.ListClinicians(c.Request.Context(), ref, c.Query("q"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	sanitized := make([]models.PrincipalSanitized, len(clinicians))
	for i := range clinicians {
		sanitized[i] = clinicians[i].Sanitize()
	}
	utils.Success(c, "Clinicians fetched successfully", sanitized)
}

// CreateClinician creates a clinician account.
func (h *DirectoryHandler) CreateClinician(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	var req CreateClinicianRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	clinician, err := h.Directory.CreateClinician(c.Request.Context(), ref, services.ClinicianInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Clinician created successfully", clinician.Sanitize())
}

// UpdateClinician updates a clinician's name, email or department.
func (h *DirectoryHandler) UpdateClinician(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateClinicianRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	clinician, err := h.Directory.UpdateClinician(c.Request.Context(), ref, id, services.ClinicianUpdate{
		Name:         req.Name,
		Email:        req.Email,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Clinician updated successfully", clinician.Sanitize())
}

// DeleteClinician deletes a clinician with no appointments.
func (h *DirectoryHandler) DeleteClinician(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.Directory.DeleteClinician(c.Request.Context(), ref, id); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Clinician deleted successfully", nil)
}

// GetPatients lists patients, filtered by ?q= on name or email.
func (h *DirectoryHandler) GetPatients(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	patients, err := h.Directory.ListPatients(c.Request.Context(), ref, c.Query("q"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	sanitized := make([]models.PrincipalSanitized, len(patients))
	for i := range patients {
		sanitized[i] = patients[i].Sanitize()
	}
	utils.Success(c, "Patients fetched successfully", sanitized)
}

// DeletePatient deletes a patient with no appointments.
func (h *DirectoryHandler) DeletePatient(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.Directory.DeletePatient(c.Request.Context(), ref, id); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Patient deleted successfully", nil)
}

// GetSummary returns facility-wide counts.
func (h *DirectoryHandler) GetSummary(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	summary, err := h.Directory.Summary(c.Request.Context(), ref)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Summary fetched successfully", summary)
}

// GetDirectory lists clinicians for booking. Any authenticated principal.
func (h *DirectoryHandler) GetDirectory(c *gin.Context) {
	ref, ok := caller(c)
	if !ok {
		return
	}
	entries, err := h.Directory.Directory(c.Request.Context(), ref)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Clinicians fetched successfully", entries)
}
