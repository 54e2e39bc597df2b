package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

// RoleName is the closed set of role names recognized by the system.
// It is validated once at token-issuance time so authorization never
// compares free-form strings.
type RoleName string

const (
	RoleAdmin    RoleName = "Admin"
	RoleDirector RoleName = "Director"
	RoleTeacher  RoleName = "Maestro"
	RoleStudent  RoleName = "Alumno"
	RoleParent   RoleName = "Padres"
)

var AllRoleNames = []RoleName{RoleAdmin, RoleDirector, RoleTeacher, RoleStudent, RoleParent}

func (r RoleName) Valid() bool {
	for _, known := range AllRoleNames {
		if r == known {
			return true
		}
	}
	return false
}

func (r RoleName) String() string { return string(r) }

// ParseRoleName maps a stored role name onto the closed RoleName set.
func ParseRoleName(s string) (RoleName, error) {
	r := RoleName(s)
	if !r.Valid() {
		return "", errors.Errorf("unknown role name %q", s)
	}
	return r, nil
}

const bcryptCost = 10

type User struct {
	ID           int        `json:"id"`
	FirstName    string     `json:"nombre"`
	LastName     string     `json:"apellido"`
	Email        string     `json:"email"`
	PasswordHash []byte     `json:"-"`
	RoleID       int        `json:"rol_id"`
	RoleName     RoleName   `json:"rol_nombre,omitempty"`
	StudentCode  string     `json:"codigo_alumno,omitempty"`
	DPI          string     `json:"dpi,omitempty"`
	Phone        string     `json:"telefono,omitempty"`
	Address      string     `json:"direccion,omitempty"`
	BirthDate    *time.Time `json:"fecha_nacimiento,omitempty"`
	Gender       string     `json:"genero,omitempty"`
	IsActive     bool       `json:"activo"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC

	// password recovery; persisted, single-use
	ResetToken       string    `json:"-"`
	ResetTokenExpiry time.Time `json:"-"`
}

func (u *User) FullName() string {
	return core.CleanString(u.FirstName + " " + u.LastName)
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool    { return u.RoleName == RoleAdmin }
func (u *User) IsDirector() bool { return u.RoleName == RoleDirector }
func (u *User) IsTeacher() bool  { return u.RoleName == RoleTeacher }
func (u *User) IsStudent() bool  { return u.RoleName == RoleStudent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	FirstName   string     `json:"nombre" validate:"required"`
	LastName    string     `json:"apellido" validate:"required"`
	Email       string     `json:"email" validate:"required,email"`
	Password    string     `json:"password" validate:"required,min=6"`
	RoleID      int        `json:"rol_id" validate:"required"`
	StudentCode string     `json:"codigo_alumno"`
	DPI         string     `json:"dpi"`
	Phone       string     `json:"telefono"`
	Address     string     `json:"direccion"`
	BirthDate   *time.Time `json:"fecha_nacimiento"`
	Gender      string     `json:"genero"`
	IsActive    *bool      `json:"activo"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.StudentCode = core.CleanString(nu.StudentCode)
	nu.DPI = core.CleanString(nu.DPI)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Email, nu.StudentCode, nu.DPI)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	FirstName   string     `json:"nombre"`
	LastName    string     `json:"apellido"`
	Email       string     `json:"email" validate:"omitempty,email"`
	RoleID      int        `json:"rol_id"`
	StudentCode string     `json:"codigo_alumno"`
	DPI         string     `json:"dpi"`
	Phone       string     `json:"telefono"`
	Address     string     `json:"direccion"`
	BirthDate   *time.Time `json:"fecha_nacimiento"`
	Gender      string     `json:"genero"`
	IsActive    *bool      `json:"activo"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(uu.FirstName); name != "" {
		uu.FirstName = name
	} else {
		uu.FirstName = origUsr.FirstName
	}
	if name := core.CleanString(uu.LastName); name != "" {
		uu.LastName = name
	} else {
		uu.LastName = origUsr.LastName
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	if uu.RoleID == 0 {
		uu.RoleID = origUsr.RoleID
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.checkUniqueness(uu.Email, uu.StudentCode, uu.DPI, origUsr)
}

// ChangePassword is submitted by an authenticated user to replace their own password.
type ChangePassword struct {
	CurrentPassword string `json:"passwordActual" validate:"required"`
	NewPassword     string `json:"passwordNuevo" validate:"required,min=6"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

// ResetUserPassword is submitted with a recovery token to set a new password.
type ResetUserPassword struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"nuevaPassword" validate:"required"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// QueryFilter narrows user listings.
type QueryFilter struct {
	Role     RoleName `query:"rol"`
	IsActive *bool    `query:"activo"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Role == "" && qf.IsActive == nil
}
