package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Payment statuses. Pendiente may move to Pagado, Atrasado or Cancelado;
// Atrasado may still be paid or cancelled; Pagado and Cancelado are terminal.
const (
	StatusPending   = "Pendiente"
	StatusPaid      = "Pagado"
	StatusOverdue   = "Atrasado"
	StatusCancelled = "Cancelado"
)

// CanTransition reports whether a payment may move from one status to
// another.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusPaid || to == StatusOverdue || to == StatusCancelled
	case StatusOverdue:
		return to == StatusPaid || to == StatusCancelled
	}
	return false
}

// Notification types.
const (
	NotificationReminder  = "Recordatorio"
	NotificationConfirmed = "Confirmado"
	NotificationOverdue   = "Atrasado"
)

type Payment struct {
	ID          int        `json:"id"`
	CourseID    int        `json:"curso_id"`
	StudentID   int        `json:"alumno_id"`
	Amount      float64    `json:"monto"`
	Method      string     `json:"metodo_pago,omitempty"`
	Status      string     `json:"estado"`
	DueDate     time.Time  `json:"fecha_limite"`
	PaidAt      *time.Time `json:"fecha_pago"`
	Receipt     string     `json:"comprobante,omitempty"`
	Reference   string     `json:"numero_referencia,omitempty"`
	Notes       string     `json:"observaciones,omitempty"`
	ConfirmedBy int        `json:"confirmado_por,omitempty"`
	ConfirmedAt *time.Time `json:"fecha_confirmacion,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// joined display fields
	CourseName      string `json:"curso_nombre,omitempty"`
	CourseCode      string `json:"curso_codigo,omitempty"`
	StudentName     string `json:"alumno_nombre,omitempty"`
	StudentCode     string `json:"codigo_estudiante,omitempty"`
	StudentEmail    string `json:"alumno_email,omitempty"`
	ConfirmedByName string `json:"confirmado_por_nombre,omitempty"`
}

// HistoryEntry is the audit trail of a payment's status changes.
type HistoryEntry struct {
	ID         int       `json:"id"`
	PaymentID  int       `json:"pago_id"`
	Amount     float64   `json:"monto"`
	FromStatus string    `json:"estado_anterior,omitempty"`
	ToStatus   string    `json:"estado_nuevo"`
	Method     string    `json:"metodo_pago,omitempty"`
	Receipt    string    `json:"comprobante,omitempty"`
	Notes      string    `json:"observaciones,omitempty"`
	RecordedBy int       `json:"registrado_por"`
	RecordedAt time.Time `json:"fecha_registro"`
}

type Notification struct {
	ID        int       `json:"id"`
	PaymentID int       `json:"pago_id"`
	StudentID int       `json:"alumno_id"`
	Type      string    `json:"tipo"`
	Message   string    `json:"mensaje"`
	Read      bool      `json:"leido"`
	SentAt    time.Time `json:"fecha_envio"`

	// joined display fields
	CourseName    string  `json:"curso_nombre,omitempty"`
	CourseCode    string  `json:"curso_codigo,omitempty"`
	Amount        float64 `json:"monto,omitempty"`
	PaymentStatus string  `json:"pago_estado,omitempty"`
}

type NewPayment struct {
	CourseID  int        `json:"curso_id" validate:"required"`
	StudentID int        `json:"alumno_id" validate:"required"`
	Amount    float64    `json:"monto" validate:"required,gt=0"`
	Method    string     `json:"metodo_pago"`
	DueDate   *time.Time `json:"fecha_limite"`
	Reference string     `json:"numero_referencia"`
	Notes     string     `json:"observaciones"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	return validate.Struct(np)
}

type UpdatePayment struct {
	Amount    float64    `json:"monto" validate:"required,gt=0"`
	Method    string     `json:"metodo_pago"`
	DueDate   *time.Time `json:"fecha_limite"`
	Reference string     `json:"numero_referencia"`
	Notes     string     `json:"observaciones"`
}

func (up *UpdatePayment) Validate(validate *validator.Validate) error {
	return validate.Struct(up)
}

type ConfirmPayment struct {
	Notes string `json:"observaciones"`
}

type RejectPayment struct {
	Notes string `json:"observaciones" validate:"required"`
}

func (rp *RejectPayment) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// Stats is the administrative payment summary.
type Stats struct {
	Summary   StatsSummary  `json:"resumen"`
	PerCourse []CourseStats `json:"por_curso"`
}

type StatsSummary struct {
	TotalPayments  int     `json:"total_pagos"`
	Paid           int     `json:"pagados"`
	Pending        int     `json:"pendientes"`
	Overdue        int     `json:"atrasados"`
	TotalCollected float64 `json:"total_recaudado"`
	TotalPending   float64 `json:"total_pendiente"`
}

type CourseStats struct {
	CourseName    string  `json:"curso"`
	CourseCode    string  `json:"codigo"`
	TotalPayments int     `json:"total_pagos"`
	Paid          int     `json:"pagados"`
	Collected     float64 `json:"recaudado"`
}

// QueryFilter narrows payment listings.
type QueryFilter struct {
	Status    string
	CourseID  int
	StudentID int
	From      *time.Time
	To        *time.Time
}
