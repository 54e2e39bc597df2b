package menu

import (
	"github.com/go-playground/validator/v10"

	"github.com/classoptima/backend/core"
)

type Menu struct {
	ID       int    `json:"id"`
	Name     string `json:"nombre"`
	Icon     string `json:"icono,omitempty"`
	Route    string `json:"ruta,omitempty"`
	Order    int    `json:"orden"`
	IsActive bool   `json:"activo"`

	Submenus []Submenu `json:"submenus,omitempty"`
}

// Submenu is owned by exactly one Menu; deleting the menu cascades to its
// submenus and to any permission rows referencing either.
type Submenu struct {
	ID       int    `json:"id"`
	MenuID   int    `json:"menu_id"`
	Name     string `json:"nombre"`
	Route    string `json:"ruta"`
	Order    int    `json:"orden"`
	IsActive bool   `json:"activo"`

	MenuName string `json:"menu_nombre,omitempty"`
}

type NewMenu struct {
	Name     string `json:"nombre" validate:"required"`
	Icon     string `json:"icono"`
	Route    string `json:"ruta"`
	Order    int    `json:"orden"`
	IsActive *bool  `json:"activo"`
}

func (nm *NewMenu) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	return validate.Struct(nm)
}

type NewSubmenu struct {
	MenuID   int    `json:"menu_id" validate:"required"`
	Name     string `json:"nombre" validate:"required"`
	Route    string `json:"ruta" validate:"required"`
	Order    int    `json:"orden"`
	IsActive *bool  `json:"activo"`
}

func (ns *NewSubmenu) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}
