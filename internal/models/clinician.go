package models

// Clinician treats patients and belongs to exactly one department.
type Clinician struct {
	BaseModel
	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"uniqueIndex;size:120;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	DepartmentID uint   `gorm:"not null;index" json:"departmentId"`

	// Relations (not always preloaded)
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

func (Clinician) TableName() string {
	return "clinicians"
}

func (c *Clinician) Ref() PrincipalRef {
	return PrincipalRef{Role: RoleClinician, ID: c.ID}
}

func (c *Clinician) LoginIdentifier() string {
	return c.Email
}

// SetPassword hashes a password and sets it on the clinician
func (c *Clinician) SetPassword(password string) error {
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	c.PasswordHash = hashed
	return nil
}

func (c *Clinician) CheckPassword(password string) bool {
	return checkPasswordHash(c.PasswordHash, password)
}

func (c *Clinician) Sanitize() PrincipalSanitized {
	return PrincipalSanitized{
		ID:           c.ID,
		Role:         RoleClinician,
		Name:         c.Name,
		Email:        c.Email,
		DepartmentID: c.DepartmentID,
		CreatedAt:    c.CreatedAt,
	}
}
