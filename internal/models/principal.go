package models

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role identifies which identity collection a principal belongs to.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleClinician Role = "clinician"
	RolePatient   Role = "patient"
)

// ResolutionOrder is the fixed priority used whenever a lookup cannot be
// scoped to a single collection: administrators win over clinicians, which
// win over patients.
var ResolutionOrder = []Role{RoleAdmin, RoleClinician, RolePatient}

// ParseRole converts a string to a known Role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleClinician:
		return RoleClinician, true
	case RolePatient:
		return RolePatient, true
	}
	return "", false
}

// PrincipalRef is the unambiguous name of a principal: the collection it
// lives in plus its id within that collection.
type PrincipalRef struct {
	Role Role `json:"role"`
	ID   uint `json:"id"`
}

// String renders the reference as "role:id".
func (r PrincipalRef) String() string {
	return fmt.Sprintf("%s:%d", r.Role, r.ID)
}

// IsZero reports whether r identifies nobody.
func (r PrincipalRef) IsZero() bool {
	return r.Role == "" || r.ID == 0
}

// ParsePrincipalRef parses the "role:id" form produced by String.
func ParsePrincipalRef(s string) (PrincipalRef, error) {
	rolePart, idPart, ok := strings.Cut(s, ":")
	if !ok {
		return PrincipalRef{}, fmt.Errorf("malformed principal reference %q", s)
	}
	role, ok := ParseRole(rolePart)
	if !ok {
		return PrincipalRef{}, fmt.Errorf("unknown role %q", rolePart)
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id == 0 {
		return PrincipalRef{}, fmt.Errorf("invalid principal id %q", idPart)
	}
	return PrincipalRef{Role: role, ID: uint(id)}, nil
}

// Principal is implemented by Administrator, Clinician and Patient.
type Principal interface {
	Ref() PrincipalRef
	// LoginIdentifier is the value presented at login: the login name for
	// administrators, the email for everyone else.
	LoginIdentifier() string
	CheckPassword(password string) bool
	Sanitize() PrincipalSanitized
}

// PrincipalSanitized is the principal data that is safe to send in API responses.
type PrincipalSanitized struct {
	ID           uint      `json:"id"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	LoginName    string    `json:"loginName,omitempty"`
	DepartmentID uint      `json:"departmentId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// checkPasswordHash compares in constant time with respect to the secret.
func checkPasswordHash(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DummyPasswordCheck burns the same bcrypt work as a real comparison so that
// an unknown identifier takes as long to reject as a wrong password.
func DummyPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("no-such-principal"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)
