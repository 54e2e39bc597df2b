package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classoptima/backend/core"
)

// Enrollment statuses.
const (
	EnrollmentEnrolled  = "Inscrito"
	EnrollmentActive    = "Activo"
	EnrollmentCompleted = "Completado"
	EnrollmentWithdrawn = "Retirado"
)

type Course struct {
	ID          int       `json:"id"`
	Name        string    `json:"nombre"`
	Code        string    `json:"codigo"`
	Description string    `json:"descripcion,omitempty"`
	StartDate   time.Time `json:"fecha_inicio"`
	EndDate     time.Time `json:"fecha_fin"`
	TeacherID   int       `json:"maestro_id"`
	MaxCapacity int       `json:"cupo_maximo"`
	Credits     int       `json:"creditos"`
	Cost        float64   `json:"costo"`
	Schedule    string    `json:"horario,omitempty"`
	Classroom   string    `json:"aula,omitempty"`
	IsActive    bool      `json:"activo"`
	CreatedAt   time.Time `json:"created_at"`

	// joined display fields
	TeacherName     string `json:"maestro_nombre,omitempty"`
	TeacherEmail    string `json:"maestro_email,omitempty"`
	TeacherPhone    string `json:"maestro_telefono,omitempty"`
	EnrolledCount   int    `json:"alumnos_inscritos"`
	AssignmentCount int    `json:"total_tareas"`

	// per-viewer fields, populated only for authenticated listings
	ViewerEnrolled  bool   `json:"esta_inscrito"`
	ViewerPaid      bool   `json:"pago_realizado"`
	ViewerPayStatus string `json:"estado_pago,omitempty"`
	ViewerPaymentID int    `json:"pago_id,omitempty"`

	Students []Enrollment `json:"alumnos,omitempty"`
}

type Enrollment struct {
	ID         int       `json:"id"`
	CourseID   int       `json:"curso_id"`
	StudentID  int       `json:"alumno_id"`
	EnrolledAt time.Time `json:"fecha_inscripcion"`
	Status     string    `json:"estado"`
	FinalGrade *float64  `json:"nota_final"`
	Notes      string    `json:"observaciones,omitempty"`

	// joined display fields
	StudentName  string `json:"alumno_nombre,omitempty"`
	StudentEmail string `json:"alumno_email,omitempty"`
	StudentCode  string `json:"codigo_alumno,omitempty"`

	// course side, for a student's own listing
	CourseName  string  `json:"nombre,omitempty"`
	CourseCode  string  `json:"codigo,omitempty"`
	TeacherName string  `json:"maestro_nombre,omitempty"`
	CourseCost  float64 `json:"costo,omitempty"`

	// latest payment, when any
	PaymentStatus string     `json:"estado_pago,omitempty"`
	PaymentAmount float64    `json:"monto_pagado,omitempty"`
	PaymentMethod string     `json:"metodo_pago,omitempty"`
	PaidAt        *time.Time `json:"fecha_pago,omitempty"`
}

// Teacher is the availability view for course assignment.
type Teacher struct {
	ID            int    `json:"id"`
	FullName      string `json:"nombre_completo"`
	Email         string `json:"email"`
	Phone         string `json:"telefono,omitempty"`
	ActiveCourses int    `json:"cursos_activos"`
}

type NewCourse struct {
	Name        string    `json:"nombre" validate:"required"`
	Code        string    `json:"codigo" validate:"required"`
	Description string    `json:"descripcion"`
	StartDate   time.Time `json:"fecha_inicio" validate:"required"`
	EndDate     time.Time `json:"fecha_fin" validate:"required"`
	TeacherID   int       `json:"maestro_id" validate:"required"`
	MaxCapacity int       `json:"cupo_maximo"`
	Credits     int       `json:"creditos"`
	Cost        float64   `json:"costo"`
	Schedule    string    `json:"horario"`
	Classroom   string    `json:"aula"`
	IsActive    *bool     `json:"activo"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)
	return validate.Struct(nc)
}

type NewEnrollment struct {
	CourseID  int    `json:"curso_id" validate:"required"`
	StudentID int    `json:"alumno_id" validate:"required"`
	Notes     string `json:"observaciones"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	return validate.Struct(ne)
}

type UpdateEnrollment struct {
	Status     string   `json:"estado" validate:"required,oneof=Inscrito Activo Completado Retirado"`
	FinalGrade *float64 `json:"nota_final"`
	Notes      string   `json:"observaciones"`
}

func (ue *UpdateEnrollment) Validate(validate *validator.Validate) error {
	return validate.Struct(ue)
}

// QueryFilter narrows course listings.
type QueryFilter struct {
	TeacherID int
	IsActive  *bool
	// ViewerID, when set, populates the per-viewer enrollment/payment fields.
	ViewerID int
}
