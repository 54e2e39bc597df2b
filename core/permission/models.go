package permission

import (
	"github.com/go-playground/validator/v10"
)

// Permission is one row of the role/menu capability matrix. A missing row is
// equivalent to a row with all capabilities false.
type Permission struct {
	ID        int  `json:"id"`
	RoleID    int  `json:"rol_id"`
	MenuID    int  `json:"menu_id,omitempty"`
	SubmenuID int  `json:"submenu_id,omitempty"`
	CanView   bool `json:"puede_ver"`
	CanCreate bool `json:"puede_crear"`
	CanEdit   bool `json:"puede_editar"`
	CanDelete bool `json:"puede_eliminar"`

	// joined display fields
	RoleName    string `json:"rol_nombre,omitempty"`
	MenuName    string `json:"menu_nombre,omitempty"`
	SubmenuName string `json:"submenu_nombre,omitempty"`
}

// Entry is one target of a bulk assignment. Exactly one of MenuID/SubmenuID
// identifies the target; CanView defaults to true when omitted.
type Entry struct {
	MenuID    int   `json:"menu_id"`
	SubmenuID int   `json:"submenu_id"`
	CanView   *bool `json:"puede_ver"`
	CanCreate bool  `json:"puede_crear"`
	CanEdit   bool  `json:"puede_editar"`
	CanDelete bool  `json:"puede_eliminar"`
}

type Assignment struct {
	RoleID  int     `json:"rol_id" validate:"required"`
	Entries []Entry `json:"permisos" validate:"required,dive"`
}

func (a *Assignment) Validate(validate *validator.Validate) error {
	return validate.Struct(a)
}

// Capability names accepted by the single-capability update.
const (
	FieldCanView   = "puede_ver"
	FieldCanCreate = "puede_crear"
	FieldCanEdit   = "puede_editar"
	FieldCanDelete = "puede_eliminar"
)

func ValidField(field string) bool {
	switch field {
	case FieldCanView, FieldCanCreate, FieldCanEdit, FieldCanDelete:
		return true
	}
	return false
}

// SingleUpdate flips one capability on a role's menu-level row.
type SingleUpdate struct {
	RoleID int    `json:"rol_id" validate:"required"`
	MenuID int    `json:"menu_id" validate:"required"`
	Field  string `json:"campo" validate:"required"`
	Value  bool   `json:"valor"`
}

func (su *SingleUpdate) Validate(validate *validator.Validate) error {
	return validate.Struct(su)
}

// MatrixCell is the dense per-role, per-menu view used by the administration
// screen. Every active role appears for every active menu whether or not a
// menu-level row exists; a missing row shows every capability false.
type MatrixCell struct {
	RoleID    int    `json:"rol_id"`
	RoleName  string `json:"rol_nombre"`
	MenuID    int    `json:"menu_id"`
	MenuName  string `json:"menu_nombre"`
	CanView   bool   `json:"puede_ver"`
	CanCreate bool   `json:"puede_crear"`
	CanEdit   bool   `json:"puede_editar"`
	CanDelete bool   `json:"puede_eliminar"`
}
