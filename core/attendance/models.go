package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Attendance statuses.
const (
	StatusPresent   = "Presente"
	StatusAbsent    = "Ausente"
	StatusLate      = "Tardanza"
	StatusJustified = "Justificado"
)

// Record is one attendance entry; at most one exists per student, course and
// date, and re-registering overwrites the status and notes.
type Record struct {
	ID         int       `json:"id"`
	StudentID  int       `json:"alumno_id"`
	CourseID   int       `json:"curso_id"`
	Date       time.Time `json:"fecha"`
	Status     string    `json:"estado"`
	Notes      string    `json:"observaciones,omitempty"`
	RecordedBy int       `json:"registrado_por"`

	// joined display fields
	StudentFirstName string `json:"alumno_nombre,omitempty"`
	StudentLastName  string `json:"alumno_apellido,omitempty"`
	CourseName       string `json:"materia_nombre,omitempty"`
	RecordedByName   string `json:"registrado_por_nombre,omitempty"`
}

type NewRecord struct {
	StudentID int       `json:"alumno_id" validate:"required"`
	CourseID  int       `json:"curso_id" validate:"required"`
	Date      time.Time `json:"fecha" validate:"required"`
	Status    string    `json:"estado" validate:"required,oneof=Presente Ausente Tardanza Justificado"`
	Notes     string    `json:"observaciones"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	return validate.Struct(nr)
}

// QueryFilter narrows attendance listings.
type QueryFilter struct {
	StudentID int
	CourseID  int
	From      *time.Time
	To        *time.Time
}
