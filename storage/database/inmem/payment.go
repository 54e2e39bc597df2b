package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/classoptima/backend/core/payment"
)

type paymentRepository struct {
	db *DB

	// enrollments and paid checks are driven by tests; keyed courseID -> studentIDs
	enrolled map[int]map[int]bool
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db, enrolled: make(map[int]map[int]bool)}
}

// Enroll registers a student on a course for IsEnrolled checks.
func (repo *paymentRepository) Enroll(courseID, studentID int) {
	if repo.enrolled[courseID] == nil {
		repo.enrolled[courseID] = make(map[int]bool)
	}
	repo.enrolled[courseID][studentID] = true
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter) ([]payment.Payment, error) {
	repo.db.payment.RLock()
	defer repo.db.payment.RUnlock()

	payments := make([]payment.Payment, 0)
	for _, p := range repo.db.payment.query() {
		if filter != nil {
			if filter.Status != "" && p.Status != filter.Status {
				continue
			}
			if filter.CourseID != 0 && p.CourseID != filter.CourseID {
				continue
			}
			if filter.StudentID != 0 && p.StudentID != filter.StudentID {
				continue
			}
			if filter.From != nil && p.DueDate.Before(*filter.From) {
				continue
			}
			if filter.To != nil && p.DueDate.After(*filter.To) {
				continue
			}
		}
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].DueDate.After(payments[j].DueDate) })
	return payments, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id int) (payment.Payment, error) {
	repo.db.payment.RLock()
	defer repo.db.payment.RUnlock()

	if p, ok := repo.db.payment.rows[id]; ok {
		return *p, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPaymentsByStudent(ctx context.Context, studentID int) ([]payment.Payment, error) {
	return repo.QueryPayments(ctx, &payment.QueryFilter{StudentID: studentID})
}

func (repo *paymentRepository) HasPaidPayment(ctx context.Context, courseID, studentID int) (bool, error) {
	repo.db.payment.RLock()
	defer repo.db.payment.RUnlock()

	for _, p := range repo.db.payment.query() {
		if p.CourseID == courseID && p.StudentID == studentID && p.Status == payment.StatusPaid {
			return true, nil
		}
	}
	return false, nil
}

func (repo *paymentRepository) IsEnrolled(ctx context.Context, courseID, studentID int) (bool, error) {
	return repo.enrolled[courseID][studentID], nil
}

func (repo *paymentRepository) CreatePaymentTx(ctx context.Context, p payment.Payment, h payment.HistoryEntry, n payment.Notification) (payment.Payment, error) {
	repo.db.payment.Lock()
	p.ID = repo.db.payment.nextPK()
	repo.db.payment.rows[p.ID] = &p
	repo.db.payment.Unlock()

	h.PaymentID = p.ID
	n.PaymentID = p.ID
	repo.insertHistory(h)
	repo.insertNotification(n)
	return p, nil
}

func (repo *paymentRepository) UpdatePaymentTx(ctx context.Context, p payment.Payment, h payment.HistoryEntry, n *payment.Notification) (payment.Payment, error) {
	repo.db.payment.Lock()
	if _, ok := repo.db.payment.rows[p.ID]; !ok {
		repo.db.payment.Unlock()
		return payment.Payment{}, payment.ErrNotFound
	}
	repo.db.payment.rows[p.ID] = &p
	repo.db.payment.Unlock()

	repo.insertHistory(h)
	if n != nil {
		repo.insertNotification(*n)
	}
	return p, nil
}

func (repo *paymentRepository) MarkOverdueTx(ctx context.Context, paymentID int, n payment.Notification) error {
	repo.db.payment.Lock()
	p, ok := repo.db.payment.rows[paymentID]
	if !ok {
		repo.db.payment.Unlock()
		return payment.ErrNotFound
	}
	if p.Status != payment.StatusPending {
		repo.db.payment.Unlock()
		return payment.ErrNotFound
	}
	p.Status = payment.StatusOverdue
	repo.db.payment.Unlock()

	repo.insertNotification(n)
	return nil
}

func (repo *paymentRepository) insertHistory(h payment.HistoryEntry) {
	repo.db.history.Lock()
	defer repo.db.history.Unlock()

	h.ID = repo.db.history.nextPK()
	repo.db.history.rows[h.ID] = &h
}

func (repo *paymentRepository) insertNotification(n payment.Notification) {
	repo.db.notification.Lock()
	defer repo.db.notification.Unlock()

	n.ID = repo.db.notification.nextPK()
	repo.db.notification.rows[n.ID] = &n
}

func (repo *paymentRepository) QueryOverduePending(ctx context.Context, asOf time.Time) ([]payment.Payment, error) {
	repo.db.payment.RLock()
	defer repo.db.payment.RUnlock()

	payments := make([]payment.Payment, 0)
	for _, p := range repo.db.payment.query() {
		if p.Status == payment.StatusPending && p.DueDate.Before(asOf) {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

func (repo *paymentRepository) QueryHistory(ctx context.Context, paymentID int) ([]payment.HistoryEntry, error) {
	repo.db.history.RLock()
	defer repo.db.history.RUnlock()

	entries := make([]payment.HistoryEntry, 0)
	for _, h := range repo.db.history.query() {
		if h.PaymentID == paymentID {
			entries = append(entries, h)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (repo *paymentRepository) QueryNotifications(ctx context.Context, studentID int) ([]payment.Notification, error) {
	repo.db.notification.RLock()
	defer repo.db.notification.RUnlock()

	notifications := make([]payment.Notification, 0)
	for _, n := range repo.db.notification.query() {
		if n.StudentID == studentID {
			notifications = append(notifications, n)
		}
	}
	sort.Slice(notifications, func(i, j int) bool { return notifications[i].ID > notifications[j].ID })
	if len(notifications) > 50 {
		notifications = notifications[:50]
	}
	return notifications, nil
}

func (repo *paymentRepository) MarkNotificationRead(ctx context.Context, id int) error {
	repo.db.notification.Lock()
	defer repo.db.notification.Unlock()

	n, ok := repo.db.notification.rows[id]
	if !ok {
		return payment.ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

func (repo *paymentRepository) GetStats(ctx context.Context) (payment.Stats, error) {
	repo.db.payment.RLock()
	defer repo.db.payment.RUnlock()

	var stats payment.Stats
	for _, p := range repo.db.payment.query() {
		stats.Summary.TotalPayments++
		switch p.Status {
		case payment.StatusPaid:
			stats.Summary.Paid++
			stats.Summary.TotalCollected += p.Amount
		case payment.StatusPending:
			stats.Summary.Pending++
			stats.Summary.TotalPending += p.Amount
		case payment.StatusOverdue:
			stats.Summary.Overdue++
			stats.Summary.TotalPending += p.Amount
		}
	}
	return stats, nil
}
