package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aadiaditya9421/hospital-management-system/internal/apperrors"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
)

func ref(role models.Role, id uint) *models.PrincipalRef {
	return &models.PrincipalRef{Role: role, ID: id}
}

func TestEvaluate(t *testing.T) {
	admin := ref(models.RoleAdmin, 1)
	clinician := ref(models.RoleClinician, 5)
	patient := ref(models.RolePatient, 9)

	ownedBy := Resource{PatientID: 9, ClinicianID: 5}
	foreign := Resource{PatientID: 10, ClinicianID: 6}

	tests := []struct {
		name   string
		caller *models.PrincipalRef
		op     Operation
		res    Resource
		want   Decision
	}{
		{"admin manages departments", admin, OpManageDepartments, Resource{}, Allow},
		{"admin manages clinicians", admin, OpManageClinicians, Resource{}, Allow},
		{"admin lists all appointments", admin, OpListAllAppointments, Resource{}, Allow},
		{"admin lists patients", admin, OpListPatients, Resource{}, Allow},
		{"admin removes patient", admin, OpRemovePatient, Resource{}, Allow},
		{"admin cannot book", admin, OpBookAppointment, ownedBy, Deny},
		{"admin cannot complete", admin, OpRecordTreatment, ownedBy, Deny},
		{"admin cannot cancel", admin, OpCancelAppointment, ownedBy, Deny},

		{"clinician sees own queue", clinician, OpViewClinicianQueue, Resource{ClinicianID: 5}, Allow},
		{"clinician cannot see other queue", clinician, OpViewClinicianQueue, Resource{ClinicianID: 6}, Deny},
		{"clinician completes own", clinician, OpRecordTreatment, ownedBy, Allow},
		{"clinician cannot complete foreign", clinician, OpRecordTreatment, foreign, Deny},
		{"clinician cancels own", clinician, OpCancelAppointment, ownedBy, Allow},
		{"clinician cannot cancel foreign", clinician, OpCancelAppointment, foreign, Deny},
		{"clinician views own", clinician, OpViewAppointment, ownedBy, Allow},
		{"clinician cannot view foreign", clinician, OpViewAppointment, foreign, Deny},
		{"clinician cannot manage departments", clinician, OpManageDepartments, Resource{}, Deny},
		{"clinician cannot book", clinician, OpBookAppointment, ownedBy, Deny},

		{"patient books for self", patient, OpBookAppointment, Resource{PatientID: 9}, Allow},
		{"patient cannot book for another", patient, OpBookAppointment, Resource{PatientID: 10}, Deny},
		{"patient lists own", patient, OpViewOwnAppointments, Resource{PatientID: 9}, Allow},
		{"patient cannot list another", patient, OpViewOwnAppointments, Resource{PatientID: 10}, Deny},
		{"patient cancels own", patient, OpCancelAppointment, ownedBy, Allow},
		{"patient cannot cancel foreign", patient, OpCancelAppointment, foreign, Deny},
		{"patient cannot complete", patient, OpRecordTreatment, ownedBy, Deny},
		{"patient cannot list patients", patient, OpListPatients, Resource{}, Deny},

		{"anyone authenticated sees directory", patient, OpViewDirectory, Resource{}, Allow},
		{"anonymous denied", nil, OpViewDirectory, Resource{}, Deny},
		{"zero ref denied", &models.PrincipalRef{}, OpViewDirectory, Resource{}, Deny},
		{"unknown role denied", ref("nurse", 1), OpViewDirectory, Resource{}, Deny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.caller, tt.op, tt.res))
		})
	}
}

func TestOwnershipIsScopedToCollection(t *testing.T) {
	// Patient 5 is not clinician 5 even though the integers match.
	patient := ref(models.RolePatient, 5)
	res := Resource{PatientID: 8, ClinicianID: 5}

	assert.Equal(t, Deny, Evaluate(patient, OpCancelAppointment, res))
}

func TestAuthorize(t *testing.T) {
	err := Authorize(nil, OpViewDirectory, Resource{})
	assert.True(t, errors.Is(err, apperrors.ErrAuthenticationRequired))

	err = Authorize(ref(models.RolePatient, 1), OpManageDepartments, Resource{})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	assert.NoError(t, Authorize(ref(models.RoleAdmin, 1), OpManageDepartments, Resource{}))
}

func TestHasCapability(t *testing.T) {
	assert.True(t, HasCapability(ref(models.RoleClinician, 1), OpRecordTreatment))
	assert.False(t, HasCapability(ref(models.RolePatient, 1), OpRecordTreatment))
	assert.False(t, HasCapability(nil, OpViewDirectory))
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
}
