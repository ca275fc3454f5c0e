package models

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestInitDBSQLiteMigratesSchema(t *testing.T) {
	db, err := InitDB(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	for _, table := range []string{"administrators", "departments", "clinicians", "patients", "appointments", "treatments", "sessions"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&Appointment{}, "ActiveSlot"))
	assert.True(t, db.Migrator().HasIndex(&Treatment{}, "AppointmentID"))
	assert.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(DatabaseConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestActiveSlotUniqueIndex(t *testing.T) {
	db, err := InitDB(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	slot := "1@2024-06-01T10:00:00Z"
	first := Appointment{PatientID: 1, ClinicianID: 1, Status: StatusBooked, ActiveSlot: &slot}
	require.NoError(t, db.Create(&first).Error)

	second := Appointment{PatientID: 2, ClinicianID: 1, Status: StatusBooked, ActiveSlot: &slot}
	err = db.Create(&second).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	// Cleared slots never collide.
	for i := 0; i < 2; i++ {
		done := Appointment{PatientID: 3, ClinicianID: 1, Status: StatusCancelled}
		require.NoError(t, db.Create(&done).Error)
	}
}

func TestPingMySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, Ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, Ping(context.Background(), db))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsUniqueViolation(&mysqldriver.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: appointments.active_slot")))
	assert.True(t, IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_departments_name"`)))
}
