package grade

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Grade struct {
	ID             int        `json:"id"`
	StudentID      int        `json:"alumno_id"`
	SubjectID      int        `json:"materia_id"`
	Period         string     `json:"periodo"`
	EvaluationType string     `json:"tipo_evaluacion,omitempty"`
	Score          float64    `json:"nota"`
	MaxScore       float64    `json:"nota_maxima"`
	EvaluatedAt    *time.Time `json:"fecha_evaluacion"`
	Notes          string     `json:"observaciones,omitempty"`
	RecordedBy     int        `json:"registrado_por"`

	// joined display fields
	StudentFirstName string `json:"alumno_nombre,omitempty"`
	StudentLastName  string `json:"alumno_apellido,omitempty"`
	SubjectName      string `json:"materia_nombre,omitempty"`
	RecordedByName   string `json:"registrado_por_nombre,omitempty"`
}

type NewGrade struct {
	StudentID      int        `json:"alumno_id" validate:"required"`
	SubjectID      int        `json:"materia_id" validate:"required"`
	Period         string     `json:"periodo" validate:"required"`
	EvaluationType string     `json:"tipo_evaluacion"`
	Score          float64    `json:"nota" validate:"required"`
	MaxScore       float64    `json:"nota_maxima"`
	EvaluatedAt    *time.Time `json:"fecha_evaluacion"`
	Notes          string     `json:"observaciones"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	return validate.Struct(ng)
}

type UpdateGrade struct {
	Score float64 `json:"nota" validate:"required"`
	Notes string  `json:"observaciones"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	return validate.Struct(ug)
}

// QueryFilter narrows grade listings.
type QueryFilter struct {
	StudentID int
	SubjectID int
	Period    string
}
