// Package access decides whether a principal may perform an operation.
// Decisions are pure: they depend only on the caller's role and id and on
// the ownership of the resource being touched.
package access

import (
	"github.com/Aadiaditya9421/hospital-management-system/internal/apperrors"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
)

// Operation names a guarded action.
type Operation string

const (
	OpManageDepartments   Operation = "departments:manage"
	OpManageClinicians    Operation = "clinicians:manage"
	OpListAllAppointments Operation = "appointments:list-all"
	OpListPatients        Operation = "patients:list"
	OpRemovePatient       Operation = "patients:remove"
	OpViewSummary         Operation = "facility:summary"

	OpViewClinicianQueue Operation = "appointments:queue"
	OpRecordTreatment    Operation = "appointments:complete"

	OpBookAppointment     Operation = "appointments:book"
	OpViewOwnAppointments Operation = "appointments:list-own"

	OpCancelAppointment Operation = "appointments:cancel"
	OpViewAppointment   Operation = "appointments:view"
	OpViewDirectory     Operation = "clinicians:directory"
)

// Decision is the outcome of an evaluation.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Resource carries the ownership facts of the object an operation touches.
// Zero ids mean "not applicable".
type Resource struct {
	PatientID   uint
	ClinicianID uint
}

// ownership is the additional check applied once the role matched.
type ownership int

const (
	anyResource ownership = iota
	clinicianSelf
	patientSelf
)

// capabilities is the complete role-by-operation matrix. A missing entry is
// a deny.
var capabilities = map[models.Role]map[Operation]ownership{
	models.RoleAdmin: {
		OpManageDepartments:   anyResource,
		OpManageClinicians:    anyResource,
		OpListAllAppointments: anyResource,
		OpListPatients:        anyResource,
		OpRemovePatient:       anyResource,
		OpViewSummary:         anyResource,
		OpViewAppointment:     anyResource,
		OpViewDirectory:       anyResource,
	},
	models.RoleClinician: {
		OpViewClinicianQueue: clinicianSelf,
		OpRecordTreatment:    clinicianSelf,
		OpCancelAppointment:  clinicianSelf,
		OpViewAppointment:    clinicianSelf,
		OpViewDirectory:      anyResource,
	},
	models.RolePatient: {
		OpBookAppointment:     patientSelf,
		OpViewOwnAppointments: patientSelf,
		OpCancelAppointment:   patientSelf,
		OpViewAppointment:     patientSelf,
		OpViewDirectory:       anyResource,
	},
}

// Evaluate maps (caller, operation, resource) to Allow or Deny. A nil or zero
// caller is unauthenticated and always denied.
func Evaluate(caller *models.PrincipalRef, op Operation, res Resource) Decision {
	if caller == nil || caller.IsZero() {
		return Deny
	}
	ops, ok := capabilities[caller.Role]
	if !ok {
		return Deny
	}
	rule, ok := ops[op]
	if !ok {
		return Deny
	}

	switch rule {
	case clinicianSelf:
		if res.ClinicianID != caller.ID {
			return Deny
		}
	case patientSelf:
		if res.PatientID != caller.ID {
			return Deny
		}
	}
	return Allow
}

// Authorize is Evaluate expressed as an error: nil when allowed,
// ErrAuthenticationRequired for anonymous callers, ErrForbidden otherwise.
func Authorize(caller *models.PrincipalRef, op Operation, res Resource) error {
	if caller == nil || caller.IsZero() {
		return apperrors.ErrAuthenticationRequired
	}
	if Evaluate(caller, op, res) == Deny {
		return apperrors.Forbidden("%s may not perform %s", caller.Role, op)
	}
	return nil
}

// HasCapability reports whether the caller's role can ever perform op,
// ignoring ownership. Used to reject requests before loading resources.
func HasCapability(caller *models.PrincipalRef, op Operation) bool {
	if caller == nil || caller.IsZero() {
		return false
	}
	_, ok := capabilities[caller.Role][op]
	return ok
}
