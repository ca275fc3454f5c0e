package models

// Patient books appointments for themselves.
type Patient struct {
	BaseModel
	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"uniqueIndex;size:120;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) Ref() PrincipalRef {
	return PrincipalRef{Role: RolePatient, ID: p.ID}
}

func (p *Patient) LoginIdentifier() string {
	return p.Email
}

// SetPassword hashes a password and sets it on the patient
func (p *Patient) SetPassword(password string) error {
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	p.PasswordHash = hashed
	return nil
}

func (p *Patient) CheckPassword(password string) bool {
	return checkPasswordHash(p.PasswordHash, password)
}

func (p *Patient) Sanitize() PrincipalSanitized {
	return PrincipalSanitized{
		ID:        p.ID,
		Role:      RolePatient,
		Name:      p.Name,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
	}
}
