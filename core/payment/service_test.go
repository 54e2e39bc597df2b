package payment_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/payment"
	inmemdb "github.com/classoptima/backend/storage/database/inmem"
)

type fileStorageStub struct{ saved []string }

func (s *fileStorageStub) Save(bucket, filename, contentType string, size int64, content io.Reader, policy core.FilePolicy) (string, error) {
	if err := policy.Allows(contentType, size); err != nil {
		return "", err
	}
	path := bucket + "/" + filename
	s.saved = append(s.saved, path)
	return path, nil
}

func (s *fileStorageStub) Remove(path string) error { return nil }

type enroller interface {
	Enroll(courseID, studentID int)
}

func setup(t *testing.T) (*payment.Service, payment.Repository, enroller) {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() error = %v", err)
	}
	repo := inmemdb.NewPaymentRepository(db)
	return payment.NewService(repo, &fileStorageStub{}), repo, repo
}

func register(t *testing.T, svc *payment.Service, courseID, studentID int, due time.Time) payment.Payment {
	t.Helper()

	p, err := svc.Register(context.Background(), payment.NewPayment{
		CourseID:  courseID,
		StudentID: studentID,
		Amount:    500,
		Method:    "Transferencia",
		DueDate:   &due,
	}, nil, studentID)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return p
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{payment.StatusPending, payment.StatusPaid, true},
		{payment.StatusPending, payment.StatusOverdue, true},
		{payment.StatusPending, payment.StatusCancelled, true},
		{payment.StatusOverdue, payment.StatusPaid, true},
		{payment.StatusOverdue, payment.StatusCancelled, true},
		{payment.StatusOverdue, payment.StatusPending, false},
		{payment.StatusPaid, payment.StatusPending, false},
		{payment.StatusPaid, payment.StatusCancelled, false},
		{payment.StatusCancelled, payment.StatusPaid, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := payment.CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestService_Register(t *testing.T) {
	svc, repo, enrollments := setup(t)
	ctx := context.Background()
	due := time.Now().UTC().AddDate(0, 1, 0)

	// student 2 not enrolled in course 1
	_, err := svc.Register(ctx, payment.NewPayment{CourseID: 1, StudentID: 2, Amount: 500}, nil, 2)
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Register() not enrolled error = %v, want ValidationError", err)
	}

	enrollments.Enroll(1, 2)
	p := register(t, svc, 1, 2, due)
	if p.Status != payment.StatusPending {
		t.Errorf("Status = %s, want %s", p.Status, payment.StatusPending)
	}

	// the opening history row and reminder notification are written with it
	history, err := repo.QueryHistory(ctx, p.ID)
	if err != nil {
		t.Fatalf("QueryHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].ToStatus != payment.StatusPending {
		t.Errorf("history = %+v", history)
	}
	notifs, err := repo.QueryNotifications(ctx, 2)
	if err != nil {
		t.Fatalf("QueryNotifications() error = %v", err)
	}
	if len(notifs) != 1 || notifs[0].Type != payment.NotificationReminder {
		t.Errorf("notifications = %+v", notifs)
	}

	// once a payment is confirmed the course cannot be paid again
	if _, err = svc.Confirm(ctx, p.ID, payment.ConfirmPayment{}, 1); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	_, err = svc.Register(ctx, payment.NewPayment{CourseID: 1, StudentID: 2, Amount: 500}, nil, 2)
	var conflict *core.ConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("Register() already paid error = %v, want ConflictError", err)
	}
}

func TestService_ConfirmReject(t *testing.T) {
	svc, repo, enrollments := setup(t)
	ctx := context.Background()
	due := time.Now().UTC().AddDate(0, 1, 0)

	enrollments.Enroll(1, 2)
	enrollments.Enroll(2, 2)
	p1 := register(t, svc, 1, 2, due)
	p2 := register(t, svc, 2, 2, due)

	confirmed, err := svc.Confirm(ctx, p1.ID, payment.ConfirmPayment{Notes: "Boleta 123"}, 7)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if confirmed.Status != payment.StatusPaid || confirmed.PaidAt == nil || confirmed.ConfirmedBy != 7 {
		t.Errorf("confirmed = %+v", confirmed)
	}

	// a paid payment is terminal
	var conflict *core.ConflictError
	if _, err = svc.Confirm(ctx, p1.ID, payment.ConfirmPayment{}, 7); !errors.As(err, &conflict) {
		t.Errorf("second Confirm() error = %v, want ConflictError", err)
	}
	if _, err = svc.Reject(ctx, p1.ID, payment.RejectPayment{Notes: "tarde"}, 7); !errors.As(err, &conflict) {
		t.Errorf("Reject() paid error = %v, want ConflictError", err)
	}
	if _, err = svc.Update(ctx, p1.ID, payment.UpdatePayment{Amount: 900}, nil); !errors.As(err, &conflict) {
		t.Errorf("Update() paid error = %v, want ConflictError", err)
	}

	rejected, err := svc.Reject(ctx, p2.ID, payment.RejectPayment{Notes: "comprobante ilegible"}, 7)
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if rejected.Status != payment.StatusCancelled {
		t.Errorf("rejected.Status = %s", rejected.Status)
	}

	// full audit trail: open, then the status change
	history, err := repo.QueryHistory(ctx, p2.ID)
	if err != nil {
		t.Fatalf("QueryHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d, want 2", len(history))
	}
	last := history[len(history)-1]
	if last.FromStatus != payment.StatusPending || last.ToStatus != payment.StatusCancelled {
		t.Errorf("last history = %+v", last)
	}
}

func TestService_CheckOverdue(t *testing.T) {
	svc, repo, enrollments := setup(t)
	ctx := context.Background()

	past := time.Now().UTC().AddDate(0, 0, -3)
	future := time.Now().UTC().AddDate(0, 1, 0)

	enrollments.Enroll(1, 2)
	enrollments.Enroll(2, 2)
	enrollments.Enroll(3, 2)
	latePayment := register(t, svc, 1, 2, past)
	register(t, svc, 2, 2, future)
	paidLate := register(t, svc, 3, 2, past)
	if _, err := svc.Confirm(ctx, paidLate.ID, payment.ConfirmPayment{}, 7); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}

	// only the pending payment past its due date flips
	count, err := svc.CheckOverdue(ctx)
	if err != nil {
		t.Fatalf("CheckOverdue() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CheckOverdue() = %d, want 1", count)
	}

	refreshed, err := repo.GetPaymentByID(ctx, latePayment.ID)
	if err != nil {
		t.Fatalf("GetPaymentByID() error = %v", err)
	}
	if refreshed.Status != payment.StatusOverdue {
		t.Errorf("Status = %s, want %s", refreshed.Status, payment.StatusOverdue)
	}

	// an overdue payment may still be confirmed
	confirmed, err := svc.Confirm(ctx, latePayment.ID, payment.ConfirmPayment{}, 7)
	if err != nil {
		t.Fatalf("Confirm() overdue error = %v", err)
	}
	if confirmed.Status != payment.StatusPaid {
		t.Errorf("Status = %s, want %s", confirmed.Status, payment.StatusPaid)
	}

	// a second scan finds nothing
	if count, err = svc.CheckOverdue(ctx); err != nil || count != 0 {
		t.Errorf("second CheckOverdue() = %d, %v; want 0, nil", count, err)
	}
}

func TestService_Stats(t *testing.T) {
	svc, _, enrollments := setup(t)
	ctx := context.Background()
	due := time.Now().UTC().AddDate(0, 1, 0)

	enrollments.Enroll(1, 2)
	enrollments.Enroll(2, 2)
	p1 := register(t, svc, 1, 2, due)
	register(t, svc, 2, 2, due)
	if _, err := svc.Confirm(ctx, p1.ID, payment.ConfirmPayment{}, 7); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	sum := stats.Summary
	if sum.TotalPayments != 2 || sum.Paid != 1 || sum.Pending != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.TotalCollected != 500 || sum.TotalPending != 500 {
		t.Errorf("summary amounts = %+v", sum)
	}
}
