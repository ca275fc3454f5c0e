package models

// Administrator manages the facility directory. Administrators log in with a
// login name rather than an email address.
type Administrator struct {
	BaseModel
	LoginName    string `gorm:"uniqueIndex;size:80;not null" json:"loginName"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
}

func (Administrator) TableName() string {
	return "administrators"
}

func (a *Administrator) Ref() PrincipalRef {
	return PrincipalRef{Role: RoleAdmin, ID: a.ID}
}

func (a *Administrator) LoginIdentifier() string {
	return a.LoginName
}

// SetPassword hashes a password and sets it on the administrator
func (a *Administrator) SetPassword(password string) error {
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	a.PasswordHash = hashed
	return nil
}

func (a *Administrator) CheckPassword(password string) bool {
	return checkPasswordHash(a.PasswordHash, password)
}

func (a *Administrator) Sanitize() PrincipalSanitized {
	return PrincipalSanitized{
		ID:        a.ID,
		Role:      RoleAdmin,
		Name:      a.LoginName,
		LoginName: a.LoginName,
		CreatedAt: a.CreatedAt,
	}
}
