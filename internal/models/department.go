package models

// Department groups clinicians. Names are unique across the facility.
type Department struct {
	BaseModel
	Name string `gorm:"uniqueIndex;size:50;not null" json:"name"`

	Clinicians []Clinician `gorm:"foreignKey:DepartmentID" json:"-"`
}

func (Department) TableName() string {
	return "departments"
}
