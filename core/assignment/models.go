package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classoptima/backend/core"
)

// Submission statuses.
const (
	SubmissionSubmitted = "Entregada"
	SubmissionGraded    = "Calificada"
	SubmissionLate      = "Tarde"
)

type Assignment struct {
	ID          int       `json:"id"`
	CourseID    int       `json:"curso_id"`
	Title       string    `json:"titulo"`
	Description string    `json:"descripcion,omitempty"`
	AssignedAt  time.Time `json:"fecha_asignacion"`
	DueDate     time.Time `json:"fecha_entrega"`
	TotalPoints float64   `json:"puntos_totales"`
	Attachment  string    `json:"archivo_adjunto,omitempty"`
	IsActive    bool      `json:"activo"`
	CreatedBy   int       `json:"creado_por"`

	// joined display fields
	CourseName    string `json:"curso_nombre,omitempty"`
	CourseCode    string `json:"curso_codigo,omitempty"`
	CreatedByName string `json:"creado_por_nombre,omitempty"`

	// aggregates for the teacher view
	SubmissionCount int `json:"total_entregas"`
	GradedCount     int `json:"entregas_calificadas"`

	// the viewing student's own submission, when requested
	MySubmission *Submission `json:"mi_entrega,omitempty"`
	Submitted    bool        `json:"entregada"`
}

type Submission struct {
	ID           int        `json:"id"`
	AssignmentID int        `json:"tarea_id"`
	StudentID    int        `json:"alumno_id"`
	SubmittedAt  time.Time  `json:"fecha_entrega"`
	File         string     `json:"archivo_entrega,omitempty"`
	Comments     string     `json:"comentarios,omitempty"`
	Status       string     `json:"estado"`
	Grade        *float64   `json:"calificacion"`
	GradedBy     int        `json:"calificado_por,omitempty"`
	GradedAt     *time.Time `json:"fecha_calificacion,omitempty"`

	// joined display fields
	StudentName  string `json:"alumno_nombre,omitempty"`
	StudentCode  string `json:"codigo_alumno,omitempty"`
	StudentEmail string `json:"alumno_email,omitempty"`
	GradedByName string `json:"calificado_por_nombre,omitempty"`
}

type NewAssignment struct {
	CourseID    int       `json:"curso_id" validate:"required"`
	Title       string    `json:"titulo" validate:"required"`
	Description string    `json:"descripcion"`
	DueDate     time.Time `json:"fecha_entrega" validate:"required"`
	TotalPoints float64   `json:"puntos_totales"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	return validate.Struct(na)
}

type UpdateAssignment struct {
	Title       string    `json:"titulo" validate:"required"`
	Description string    `json:"descripcion"`
	DueDate     time.Time `json:"fecha_entrega" validate:"required"`
	TotalPoints float64   `json:"puntos_totales"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	return validate.Struct(ua)
}

type NewSubmission struct {
	Comments string `json:"comentarios"`
}

type GradeSubmission struct {
	Grade    float64 `json:"calificacion" validate:"required"`
	Comments string  `json:"comentarios"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(gs)
}
