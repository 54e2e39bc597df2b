package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

var (
	// errors
	ErrNotFound             = errors.New("pago no encontrado")
	ErrNotEnrolled          = errors.New("el alumno no está inscrito en este curso")
	ErrAlreadyPaid          = errors.New("este curso ya está pagado")
	ErrPaidImmutable        = errors.New("no se puede actualizar un pago confirmado")
	ErrInvalidTransition    = errors.New("el estado del pago no permite esta operación")
	ErrNotificationNotFound = errors.New("notificación no encontrada")
)

const (
	receiptBucket = "comprobantes"

	defaultDueDays = 30
)

type (
	Repository interface {
		QueryPayments(ctx context.Context, filter *QueryFilter) ([]Payment, error)
		GetPaymentByID(ctx context.Context, id int) (Payment, error)
		QueryPaymentsByStudent(ctx context.Context, studentID int) ([]Payment, error)
		HasPaidPayment(ctx context.Context, courseID, studentID int) (bool, error)
		IsEnrolled(ctx context.Context, courseID, studentID int) (bool, error)

		// CreatePaymentTx inserts the payment, its first history row and the
		// reminder notification within one transaction.
		CreatePaymentTx(ctx context.Context, p Payment, h HistoryEntry, n Notification) (Payment, error)
		// UpdatePaymentTx writes the payment and the history row within one
		// transaction; a nil notification writes none.
		UpdatePaymentTx(ctx context.Context, p Payment, h HistoryEntry, n *Notification) (Payment, error)
		// MarkOverdueTx flips one pending payment to Atrasado and writes its
		// notification within one transaction.
		MarkOverdueTx(ctx context.Context, paymentID int, n Notification) error

		QueryOverduePending(ctx context.Context, asOf time.Time) ([]Payment, error)
		QueryHistory(ctx context.Context, paymentID int) ([]HistoryEntry, error)
		QueryNotifications(ctx context.Context, studentID int) ([]Notification, error)
		MarkNotificationRead(ctx context.Context, id int) error
		GetStats(ctx context.Context) (Stats, error)
	}

	Service struct {
		repo  Repository
		files core.FileStorage
	}
)

func NewService(repo Repository, files core.FileStorage) *Service {
	return &Service{repo: repo, files: files}
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Payment, error) {
	return svc.repo.GetPaymentByID(ctx, id)
}

// StudentHistory lists every payment of a student, newest due date first.
func (svc *Service) StudentHistory(ctx context.Context, studentID int) ([]Payment, error) {
	return svc.repo.QueryPaymentsByStudent(ctx, studentID)
}

func (svc *Service) History(ctx context.Context, paymentID int) ([]HistoryEntry, error) {
	if _, err := svc.repo.GetPaymentByID(ctx, paymentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryHistory(ctx, paymentID)
}

// Register opens a pending payment for an enrolled student. The payment, its
// first history row and the reminder notification are written atomically.
func (svc *Service) Register(ctx context.Context, np NewPayment, receipt *core.FileUpload, registeredBy int) (Payment, error) {
	enrolled, err := svc.repo.IsEnrolled(ctx, np.CourseID, np.StudentID)
	if err != nil {
		return Payment{}, err
	}
	if !enrolled {
		return Payment{}, core.NewValidationError(ErrNotEnrolled)
	}

	paid, err := svc.repo.HasPaidPayment(ctx, np.CourseID, np.StudentID)
	if err != nil {
		return Payment{}, err
	}
	if paid {
		return Payment{}, core.NewConflictError(ErrAlreadyPaid.Error())
	}

	now := time.Now().UTC()
	p := Payment{
		CourseID:  np.CourseID,
		StudentID: np.StudentID,
		Amount:    np.Amount,
		Method:    np.Method,
		Status:    StatusPending,
		DueDate:   now.AddDate(0, 0, defaultDueDays),
		Reference: np.Reference,
		Notes:     np.Notes,
		CreatedAt: now,
	}
	if np.DueDate != nil {
		p.DueDate = *np.DueDate
	}
	if receipt != nil {
		path, err := svc.files.Save(
			receiptBucket, receipt.Filename, receipt.ContentType,
			receipt.Size, receipt.Content, core.ImagePolicy,
		)
		if err != nil {
			return Payment{}, err
		}
		p.Receipt = path
	}

	h := HistoryEntry{
		Amount:     p.Amount,
		ToStatus:   StatusPending,
		Method:     p.Method,
		Receipt:    p.Receipt,
		Notes:      p.Notes,
		RecordedBy: registeredBy,
		RecordedAt: now,
	}
	n := Notification{
		StudentID: p.StudentID,
		Type:      NotificationReminder,
		Message:   fmt.Sprintf("Pago registrado para el curso. Fecha límite: %s", p.DueDate.Format("2006-01-02")),
		SentAt:    now,
	}
	return svc.repo.CreatePaymentTx(ctx, p, h, n)
}

// Update edits an unconfirmed payment. Confirmed payments are immutable.
func (svc *Service) Update(ctx context.Context, id int, up UpdatePayment, receipt *core.FileUpload) (Payment, error) {
	p, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if p.Status == StatusPaid {
		return Payment{}, core.NewConflictError(ErrPaidImmutable.Error())
	}

	p.Amount = up.Amount
	p.Method = up.Method
	p.Reference = up.Reference
	p.Notes = up.Notes
	if up.DueDate != nil {
		p.DueDate = *up.DueDate
	}
	if receipt != nil {
		path, err := svc.files.Save(
			receiptBucket, receipt.Filename, receipt.ContentType,
			receipt.Size, receipt.Content, core.ImagePolicy,
		)
		if err != nil {
			return Payment{}, err
		}
		if p.Receipt != "" {
			_ = svc.files.Remove(p.Receipt)
		}
		p.Receipt = path
	}

	h := HistoryEntry{
		PaymentID:  p.ID,
		Amount:     p.Amount,
		FromStatus: p.Status,
		ToStatus:   p.Status,
		Method:     p.Method,
		Receipt:    p.Receipt,
		Notes:      p.Notes,
		RecordedBy: p.StudentID,
		RecordedAt: time.Now().UTC(),
	}
	return svc.repo.UpdatePaymentTx(ctx, p, h, nil)
}

// Confirm marks a pending or overdue payment as paid, recording who
// confirmed it. The status change, history row and confirmation notification
// are written atomically.
func (svc *Service) Confirm(ctx context.Context, id int, cp ConfirmPayment, confirmedBy int) (Payment, error) {
	p, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if !CanTransition(p.Status, StatusPaid) {
		if p.Status == StatusPaid {
			return Payment{}, core.NewConflictError("este pago ya fue confirmado")
		}
		return Payment{}, core.NewConflictError(ErrInvalidTransition.Error())
	}

	notes := cp.Notes
	if notes == "" {
		notes = "Pago confirmado"
	}
	now := time.Now().UTC()
	prev := p.Status
	p.Status = StatusPaid
	p.PaidAt = &now
	p.ConfirmedBy = confirmedBy
	p.ConfirmedAt = &now
	p.Notes = appendNote(p.Notes, notes)

	h := HistoryEntry{
		PaymentID:  p.ID,
		Amount:     p.Amount,
		FromStatus: prev,
		ToStatus:   StatusPaid,
		Method:     p.Method,
		Notes:      notes,
		RecordedBy: confirmedBy,
		RecordedAt: now,
	}
	n := Notification{
		PaymentID: p.ID,
		StudentID: p.StudentID,
		Type:      NotificationConfirmed,
		Message:   "Tu pago ha sido confirmado exitosamente",
		SentAt:    now,
	}
	return svc.repo.UpdatePaymentTx(ctx, p, h, &n)
}

// Reject cancels a payment with a mandatory motive, notifying the student.
func (svc *Service) Reject(ctx context.Context, id int, rp RejectPayment, rejectedBy int) (Payment, error) {
	p, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if !CanTransition(p.Status, StatusCancelled) {
		return Payment{}, core.NewConflictError(ErrInvalidTransition.Error())
	}

	now := time.Now().UTC()
	prev := p.Status
	motive := fmt.Sprintf("RECHAZADO: %s", rp.Notes)
	p.Status = StatusCancelled
	p.Notes = appendNote(p.Notes, motive)

	h := HistoryEntry{
		PaymentID:  p.ID,
		Amount:     p.Amount,
		FromStatus: prev,
		ToStatus:   StatusCancelled,
		Notes:      motive,
		RecordedBy: rejectedBy,
		RecordedAt: now,
	}
	n := Notification{
		PaymentID: p.ID,
		StudentID: p.StudentID,
		Type:      NotificationOverdue,
		Message:   fmt.Sprintf("Tu pago fue rechazado. Motivo: %s", rp.Notes),
		SentAt:    now,
	}
	return svc.repo.UpdatePaymentTx(ctx, p, h, &n)
}

// CheckOverdue scans pending payments past their due date, moving each to
// Atrasado and notifying the student. Returns how many were flipped.
func (svc *Service) CheckOverdue(ctx context.Context) (int, error) {
	overdue, err := svc.repo.QueryOverduePending(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	for _, p := range overdue {
		n := Notification{
			PaymentID: p.ID,
			StudentID: p.StudentID,
			Type:      NotificationOverdue,
			Message:   fmt.Sprintf("Tu pago está atrasado. Fecha límite: %s", p.DueDate.Format("2006-01-02")),
			SentAt:    time.Now().UTC(),
		}
		if err = svc.repo.MarkOverdueTx(ctx, p.ID, n); err != nil {
			return 0, err
		}
	}
	return len(overdue), nil
}

func (svc *Service) Notifications(ctx context.Context, studentID int) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, studentID)
}

func (svc *Service) MarkNotificationRead(ctx context.Context, id int) error {
	return svc.repo.MarkNotificationRead(ctx, id)
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	return svc.repo.GetStats(ctx)
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
