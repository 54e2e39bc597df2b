package role

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classoptima/backend/core"
)

type Role struct {
	ID          int       `json:"id"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion,omitempty"`
	IsActive    bool      `json:"activo"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewRole struct {
	Name        string `json:"nombre" validate:"required"`
	Description string `json:"descripcion"`
	IsActive    *bool  `json:"activo"`
}

func (nr *NewRole) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	return validate.Struct(nr)
}

type UpdateRole struct {
	Name        string `json:"nombre" validate:"required"`
	Description string `json:"descripcion"`
	IsActive    *bool  `json:"activo"`
}

func (ur *UpdateRole) Validate(validate *validator.Validate) error {
	ur.Name = core.CleanString(ur.Name)
	return validate.Struct(ur)
}
