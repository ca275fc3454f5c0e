package models

// Treatment is written exactly once, when its appointment is completed, and
// never modified afterwards.
type Treatment struct {
	BaseModel
	AppointmentID uint   `gorm:"uniqueIndex;not null" json:"appointmentId"`
	Diagnosis     string `gorm:"type:text;not null" json:"diagnosis"`
	Prescription  string `gorm:"type:text;not null" json:"prescription"`
}

func (Treatment) TableName() string {
	return "treatments"
}
