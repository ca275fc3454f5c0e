package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aadiaditya9421/hospital-management-system/internal/apperrors"
	"github.com/Aadiaditya9421/hospital-management-system/internal/models"
)

func TestDepartmentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := refOf(env.addAdmin(t, "root"))

	dept, err := env.svc.Directory.CreateDepartment(ctx, admin, "Cardiology")
	require.NoError(t, err)

	_, err = env.svc.Directory.CreateDepartment(ctx, admin, "Cardiology")
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))

	_, err = env.svc.Directory.CreateDepartment(ctx, admin, "  ")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	renamed, err := env.svc.Directory.RenameDepartment(ctx, admin, dept.ID, "Cardiac Care")
	require.NoError(t, err)
	assert.Equal(t, "Cardiac Care", renamed.Name)

	_, err = env.svc.Directory.RenameDepartment(ctx, admin, 999, "Nowhere")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	list, err := env.svc.Directory.ListDepartments(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, env.svc.Directory.DeleteDepartment(ctx, admin, dept.ID))
	err = env.svc.Directory.DeleteDepartment(ctx, admin, dept.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteDepartmentWithClinicians(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := refOf(env.addAdmin(t, "root"))
	dept := env.addDepartment(t, "Neurology")
	env.addClinician(t, "Dr N", "n@example.com", dept.ID)

	err := env.svc.Directory.DeleteDepartment(ctx, admin, dept.ID)
	assert.True(t, errors.Is(err, apperrors.ErrHasDependents))

	var n int64
	require.NoError(t, env.db.Model(&models.Department{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestDirectoryRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dept := env.addDepartment(t, "General")
	clinician := refOf(env.addClinician(t, "Dr G", "g@example.com", dept.ID))
	patient := refOf(env.addPatient(t, "Pat", "pat@example.com"))

	for _, caller := range []*models.PrincipalRef{clinician, patient} {
		_, err := env.svc.Directory.CreateDepartment(ctx, caller, "X")
		assert.True(t, errors.Is(err, apperrors.ErrForbidden))
		_, err = env.svc.Directory.ListPatients(ctx, caller, "")
		assert.True(t, errors.Is(err, apperrors.ErrForbidden))
		err = env.svc.Directory.DeletePatient(ctx, caller, patient.ID)
		assert.True(t, errors.Is(err, apperrors.ErrForbidden))
		_, err = env.svc.Directory.Summary(ctx, caller)
		assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	}

	_, err := env.svc.Directory.ListDepartments(ctx, nil)
	assert.True(t, errors.Is(err, apperrors.ErrAuthenticationRequired))
}

func TestClinicianManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := refOf(env.addAdmin(t, "root"))
	cardio := env.addDepartment(t, "Cardiology")
	neuro := env.addDepartment(t, "Neurology")
	env.addPatient(t, "Pat", "pat@example.com")

	c, err := env.svc.Directory.CreateClinician(ctx, admin, ClinicianInput{
		Name: "Dr Heart", Email: "Heart@Example.com", Password: "clinician-pass", DepartmentID: cardio.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "heart@example.com", c.Email)
	require.NotNil(t, c.Department)
	assert.Equal(t, "Cardiology", c.Department.Name)

	p, err := env.svc.Identity.Authenticate(ctx, "heart@example.com", "clinician-pass")
	require.NoError(t, err)
	assert.Equal(t, c.Ref(), p.Ref())

	tests := []struct {
		name string
		in   ClinicianInput
		kind apperrors.Kind
	}{
		{"unknown department", ClinicianInput{Name: "X", Email: "x@example.com", Password: "long-enough", DepartmentID: 999}, apperrors.KindNotFound},
		{"email used by patient", ClinicianInput{Name: "X", Email: "pat@example.com", Password: "long-enough", DepartmentID: cardio.ID}, apperrors.KindAlreadyExists},
		{"duplicate email", ClinicianInput{Name: "X", Email: "heart@example.com", Password: "long-enough", DepartmentID: cardio.ID}, apperrors.KindAlreadyExists},
		{"short password", ClinicianInput{Name: "X", Email: "y@example.com", Password: "short", DepartmentID: cardio.ID}, apperrors.KindInvalidInput},
		{"missing name", ClinicianInput{Email: "z@example.com", Password: "long-enough", DepartmentID: cardio.ID}, apperrors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Directory.CreateClinician(ctx, admin, tt.in)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}

	updated, err := env.svc.Directory.UpdateClinician(ctx, admin, c.ID, ClinicianUpdate{Name: "Dr Brain", DepartmentID: neuro.ID})
	require.NoError(t, err)
	assert.Equal(t, "Dr Brain", updated.Name)
	assert.Equal(t, "heart@example.com", updated.Email)
	assert.Equal(t, "Neurology", updated.Department.Name)

	_, err = env.svc.Directory.UpdateClinician(ctx, admin, c.ID, ClinicianUpdate{Email: "pat@example.com"})
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))

	_, err = env.svc.Directory.UpdateClinician(ctx, admin, c.ID, ClinicianUpdate{DepartmentID: 999})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = env.svc.Directory.UpdateClinician(ctx, admin, 999, ClinicianUpdate{Name: "Ghost"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestListCliniciansSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := refOf(env.addAdmin(t, "root"))
	cardio := env.addDepartment(t, "Cardiology")
	neuro := env.addDepartment(t, "Neurology")
	env.addClinician(t, "Alice", "alice@example.com", cardio.ID)
	env.addClinician(t, "Bob", "bob@example.com", neuro.ID)

	all, err := env.svc.Directory.ListClinicians(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byName, err := env.svc.Directory.ListClinicians(ctx, admin, "ali")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Alice", byName[0].Name)

	byDept, err := env.svc.Directory.ListClinicians(ctx, admin, "NEURO")
	require.NoError(t, err)
	require.Len(t, byDept, 1)
	assert.Equal(t, "Bob", byDept[0].Name)
	require.NotNil(t, byDept[0].Department)
}

func TestPublicDirectory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dept := env.addDepartment(t, "Cardiology")
	env.addClinician(t, "Alice", "alice@example.com", dept.ID)
	patient := refOf(env.addPatient(t, "Pat", "pat@example.com"))

	entries, err := env.svc.Directory.Directory(ctx, patient)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Alice", entries[0].Name)
	assert.Equal(t, "Cardiology", entries[0].DepartmentName)

	_, err = env.svc.Directory.Directory(ctx, nil)
	assert.True(t, errors.Is(err, apperrors.ErrAuthenticationRequired))
}

func TestDeletePrincipalsWithAppointments(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	admin := refOf(f.admin)

	appt := f.book(t, f.p1, f.c1, "2024-06-01 10:00")
	_, err := f.svc.Ledger.CancelAppointment(ctx, refOf(f.p1), appt.ID)
	require.NoError(t, err)

	// Any appointment, even a cancelled one, keeps its parties alive.
	err = f.svc.Directory.DeletePatient(ctx, admin, f.p1.ID)
	assert.True(t, errors.Is(err, apperrors.ErrHasDependents))
	err = f.svc.Directory.DeleteClinician(ctx, admin, f.c1.ID)
	assert.True(t, errors.Is(err, apperrors.ErrHasDependents))

	require.NoError(t, f.svc.Directory.DeletePatient(ctx, admin, f.p2.ID))
	require.NoError(t, f.svc.Directory.DeleteClinician(ctx, admin, f.c2.ID))

	err = f.svc.Directory.DeletePatient(ctx, admin, f.p2.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeletePatientRemovesSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := refOf(env.addAdmin(t, "root"))

	_, err := env.svc.Identity.RegisterPatient(ctx, "Pat", "pat@example.com", "patient-pass")
	require.NoError(t, err)
	login, err := env.svc.Sessions.Login(ctx, "pat@example.com", "patient-pass")
	require.NoError(t, err)

	require.NoError(t, env.svc.Directory.DeletePatient(ctx, admin, login.Principal.ID))

	var n int64
	require.NoError(t, env.db.Model(&models.Session{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestListPatientsAndSummary(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	admin := refOf(f.admin)
	f.book(t, f.p1, f.c1, "2024-06-01 10:00")

	patients, err := f.svc.Directory.ListPatients(ctx, admin, "p2@")
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "P2", patients[0].Name)

	patients, err = f.svc.Directory.ListPatients(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, patients, 2)

	summary, err := f.svc.Directory.Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, FacilitySummary{Departments: 1, Clinicians: 2, Patients: 2, Appointments: 1}, *summary)
}
