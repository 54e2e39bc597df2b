package subject

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classoptima/backend/core"
)

type Subject struct {
	ID          int       `json:"id"`
	Code        string    `json:"codigo"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion,omitempty"`
	IsActive    bool      `json:"activa"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewSubject struct {
	Code        string `json:"codigo" validate:"required"`
	Name        string `json:"nombre" validate:"required"`
	Description string `json:"descripcion"`
	IsActive    *bool  `json:"activa"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}
