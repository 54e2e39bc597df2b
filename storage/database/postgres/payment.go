package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/payment"
)

type paymentRow struct {
	ID          int            `db:"id"`
	CourseID    int            `db:"curso_id"`
	StudentID   int            `db:"alumno_id"`
	Amount      float64        `db:"monto"`
	Method      sql.NullString `db:"metodo_pago"`
	Status      string         `db:"estado"`
	DueDate     time.Time      `db:"fecha_limite"`
	PaidAt      sql.NullTime   `db:"fecha_pago"`
	Receipt     sql.NullString `db:"comprobante"`
	Reference   sql.NullString `db:"numero_referencia"`
	Notes       sql.NullString `db:"observaciones"`
	ConfirmedBy sql.NullInt64  `db:"confirmado_por"`
	ConfirmedAt sql.NullTime   `db:"fecha_confirmacion"`
	CreatedAt   time.Time      `db:"created_at"`

	CourseName      sql.NullString `db:"curso_nombre"`
	CourseCode      sql.NullString `db:"curso_codigo"`
	StudentName     sql.NullString `db:"alumno_nombre"`
	StudentCode     sql.NullString `db:"codigo_estudiante"`
	StudentEmail    sql.NullString `db:"alumno_email"`
	ConfirmedByName sql.NullString `db:"confirmado_por_nombre"`
}

func (r paymentRow) toPayment() payment.Payment {
	p := payment.Payment{
		ID:              r.ID,
		CourseID:        r.CourseID,
		StudentID:       r.StudentID,
		Amount:          r.Amount,
		Method:          r.Method.String,
		Status:          r.Status,
		DueDate:         r.DueDate,
		Receipt:         r.Receipt.String,
		Reference:       r.Reference.String,
		Notes:           r.Notes.String,
		ConfirmedBy:     int(r.ConfirmedBy.Int64),
		CreatedAt:       r.CreatedAt,
		CourseName:      r.CourseName.String,
		CourseCode:      r.CourseCode.String,
		StudentName:     r.StudentName.String,
		StudentCode:     r.StudentCode.String,
		StudentEmail:    r.StudentEmail.String,
		ConfirmedByName: r.ConfirmedByName.String,
	}
	if r.PaidAt.Valid {
		t := r.PaidAt.Time
		p.PaidAt = &t
	}
	if r.ConfirmedAt.Valid {
		t := r.ConfirmedAt.Time
		p.ConfirmedAt = &t
	}
	return p
}

type notificationRow struct {
	ID        int       `db:"id"`
	PaymentID int       `db:"pago_id"`
	StudentID int       `db:"alumno_id"`
	Type      string    `db:"tipo"`
	Message   string    `db:"mensaje"`
	Read      bool      `db:"leido"`
	SentAt    time.Time `db:"fecha_envio"`

	CourseName    sql.NullString  `db:"curso_nombre"`
	CourseCode    sql.NullString  `db:"curso_codigo"`
	Amount        sql.NullFloat64 `db:"monto"`
	PaymentStatus sql.NullString  `db:"pago_estado"`
}

func (r notificationRow) toNotification() payment.Notification {
	return payment.Notification{
		ID:            r.ID,
		PaymentID:     r.PaymentID,
		StudentID:     r.StudentID,
		Type:          r.Type,
		Message:       r.Message,
		Read:          r.Read,
		SentAt:        r.SentAt,
		CourseName:    r.CourseName.String,
		CourseCode:    r.CourseCode.String,
		Amount:        r.Amount.Float64,
		PaymentStatus: r.PaymentStatus.String,
	}
}

type paymentRepository struct {
	db core.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db core.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

const paymentQuery = `
	SELECT
		p.*,
		c.nombre AS curso_nombre,
		c.codigo AS curso_codigo,
		a.nombre || ' ' || a.apellido AS alumno_nombre,
		a.codigo_alumno AS codigo_estudiante,
		a.email AS alumno_email,
		conf.nombre || ' ' || conf.apellido AS confirmado_por_nombre
	FROM pagos p
	INNER JOIN cursos c ON p.curso_id = c.id
	INNER JOIN usuarios a ON p.alumno_id = a.id
	LEFT JOIN usuarios conf ON p.confirmado_por = conf.id`

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter) ([]payment.Payment, error) {
	query := paymentQuery + ` WHERE 1=1`
	var args []interface{}
	if filter != nil {
		if filter.Status != "" {
			args = append(args, filter.Status)
			query += fmt.Sprintf(" AND p.estado = $%d", len(args))
		}
		if filter.CourseID != 0 {
			args = append(args, filter.CourseID)
			query += fmt.Sprintf(" AND p.curso_id = $%d", len(args))
		}
		if filter.StudentID != 0 {
			args = append(args, filter.StudentID)
			query += fmt.Sprintf(" AND p.alumno_id = $%d", len(args))
		}
		if filter.From != nil {
			args = append(args, *filter.From)
			query += fmt.Sprintf(" AND p.fecha_limite >= $%d", len(args))
		}
		if filter.To != nil {
			args = append(args, *filter.To)
			query += fmt.Sprintf(" AND p.fecha_limite <= $%d", len(args))
		}
	}
	query += ` ORDER BY p.fecha_limite DESC, p.created_at DESC`
	return repo.queryPayments(ctx, query, args...)
}

func (repo *paymentRepository) queryPayments(ctx context.Context, query string, args ...interface{}) ([]payment.Payment, error) {
	var rows []paymentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, trapErr(err, "querying payments", payment.ErrNotFound, nil)
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.toPayment())
	}
	return payments, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id int) (payment.Payment, error) {
	var r paymentRow
	if err := repo.db.GetContext(ctx, &r, paymentQuery+` WHERE p.id = $1`, id); err != nil {
		return payment.Payment{}, trapErr(err, "getting payment by id", payment.ErrNotFound, nil)
	}
	return r.toPayment(), nil
}

func (repo *paymentRepository) QueryPaymentsByStudent(ctx context.Context, studentID int) ([]payment.Payment, error) {
	query := paymentQuery + ` WHERE p.alumno_id = $1 ORDER BY p.fecha_limite DESC`
	return repo.queryPayments(ctx, query, studentID)
}

func (repo *paymentRepository) HasPaidPayment(ctx context.Context, courseID, studentID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM pagos WHERE curso_id = $1 AND alumno_id = $2 AND estado = 'Pagado')`
	if err := repo.db.GetContext(ctx, &exists, query, courseID, studentID); err != nil {
		return false, trapErr(err, "checking paid payment", payment.ErrNotFound, nil)
	}
	return exists, nil
}

func (repo *paymentRepository) IsEnrolled(ctx context.Context, courseID, studentID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM curso_alumnos WHERE curso_id = $1 AND alumno_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, query, courseID, studentID); err != nil {
		return false, trapErr(err, "checking enrollment", payment.ErrNotFound, nil)
	}
	return exists, nil
}

func (repo *paymentRepository) CreatePaymentTx(ctx context.Context, p payment.Payment, h payment.HistoryEntry, n payment.Notification) (payment.Payment, error) {
	err := core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		query := `
		INSERT INTO pagos (
			curso_id, alumno_id, monto, metodo_pago, estado, fecha_limite,
			comprobante, numero_referencia, observaciones, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
		err := tx.QueryRowContext(ctx, query,
			p.CourseID, p.StudentID, p.Amount, nullStr(p.Method), p.Status,
			p.DueDate, nullStr(p.Receipt), nullStr(p.Reference), nullStr(p.Notes),
			p.CreatedAt,
		).Scan(&p.ID)
		if err != nil {
			return trapErr(err, "inserting payment", payment.ErrNotFound, nil)
		}
		h.PaymentID = p.ID
		n.PaymentID = p.ID
		if err = insertHistory(ctx, tx, h); err != nil {
			return err
		}
		return insertNotification(ctx, tx, n)
	})
	if err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (repo *paymentRepository) UpdatePaymentTx(ctx context.Context, p payment.Payment, h payment.HistoryEntry, n *payment.Notification) (payment.Payment, error) {
	err := core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		query := `
		UPDATE pagos SET
			monto = $1, metodo_pago = $2, estado = $3, fecha_limite = $4,
			fecha_pago = $5, comprobante = $6, numero_referencia = $7,
			observaciones = $8, confirmado_por = $9, fecha_confirmacion = $10
		WHERE id = $11`
		res, err := tx.ExecContext(ctx, query,
			p.Amount, nullStr(p.Method), p.Status, p.DueDate,
			nullTime(p.PaidAt), nullStr(p.Receipt), nullStr(p.Reference),
			nullStr(p.Notes), nullInt(p.ConfirmedBy), nullTime(p.ConfirmedAt),
			p.ID,
		)
		if err != nil {
			return trapErr(err, "updating payment", payment.ErrNotFound, nil)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return payment.ErrNotFound
		}
		if err = insertHistory(ctx, tx, h); err != nil {
			return err
		}
		if n != nil {
			return insertNotification(ctx, tx, *n)
		}
		return nil
	})
	if err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (repo *paymentRepository) MarkOverdueTx(ctx context.Context, paymentID int, n payment.Notification) error {
	return core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		query := `UPDATE pagos SET estado = $1 WHERE id = $2 AND estado = $3`
		res, err := tx.ExecContext(ctx, query, payment.StatusOverdue, paymentID, payment.StatusPending)
		if err != nil {
			return trapErr(err, "marking payment overdue", payment.ErrNotFound, nil)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return payment.ErrNotFound
		}
		return insertNotification(ctx, tx, n)
	})
}

func insertHistory(ctx context.Context, tx core.DBExecutor, h payment.HistoryEntry) error {
	query := `
	INSERT INTO pago_historial (
		pago_id, monto, estado_anterior, estado_nuevo, metodo_pago,
		comprobante, observaciones, registrado_por, fecha_registro
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := tx.ExecContext(ctx, query,
		h.PaymentID, h.Amount, nullStr(h.FromStatus), h.ToStatus,
		nullStr(h.Method), nullStr(h.Receipt), nullStr(h.Notes),
		h.RecordedBy, h.RecordedAt,
	)
	return trapErr(err, "inserting payment history", payment.ErrNotFound, nil)
}

func insertNotification(ctx context.Context, tx core.DBExecutor, n payment.Notification) error {
	query := `
	INSERT INTO notificaciones_pago (pago_id, alumno_id, tipo, mensaje, leido, fecha_envio)
	VALUES ($1, $2, $3, $4, FALSE, $5)`
	_, err := tx.ExecContext(ctx, query, n.PaymentID, n.StudentID, n.Type, n.Message, n.SentAt)
	return trapErr(err, "inserting payment notification", payment.ErrNotFound, nil)
}

func (repo *paymentRepository) QueryOverduePending(ctx context.Context, asOf time.Time) ([]payment.Payment, error) {
	query := paymentQuery + ` WHERE p.estado = 'Pendiente' AND p.fecha_limite < $1`
	return repo.queryPayments(ctx, query, asOf)
}

func (repo *paymentRepository) QueryHistory(ctx context.Context, paymentID int) ([]payment.HistoryEntry, error) {
	query := `
	SELECT id, pago_id, monto, COALESCE(estado_anterior, '') AS estado_anterior,
	       estado_nuevo, COALESCE(metodo_pago, '') AS metodo_pago,
	       COALESCE(comprobante, '') AS comprobante,
	       COALESCE(observaciones, '') AS observaciones,
	       registrado_por, fecha_registro
	FROM pago_historial
	WHERE pago_id = $1
	ORDER BY fecha_registro`

	rows := []struct {
		ID         int       `db:"id"`
		PaymentID  int       `db:"pago_id"`
		Amount     float64   `db:"monto"`
		FromStatus string    `db:"estado_anterior"`
		ToStatus   string    `db:"estado_nuevo"`
		Method     string    `db:"metodo_pago"`
		Receipt    string    `db:"comprobante"`
		Notes      string    `db:"observaciones"`
		RecordedBy int       `db:"registrado_por"`
		RecordedAt time.Time `db:"fecha_registro"`
	}{}
	if err := repo.db.SelectContext(ctx, &rows, query, paymentID); err != nil {
		return nil, trapErr(err, "querying payment history", payment.ErrNotFound, nil)
	}
	entries := make([]payment.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, payment.HistoryEntry(r))
	}
	return entries, nil
}

func (repo *paymentRepository) QueryNotifications(ctx context.Context, studentID int) ([]payment.Notification, error) {
	query := `
	SELECT
		n.id, n.pago_id, n.alumno_id, n.tipo, n.mensaje, n.leido, n.fecha_envio,
		c.nombre AS curso_nombre,
		c.codigo AS curso_codigo,
		p.monto,
		p.estado AS pago_estado
	FROM notificaciones_pago n
	INNER JOIN pagos p ON n.pago_id = p.id
	INNER JOIN cursos c ON p.curso_id = c.id
	WHERE n.alumno_id = $1
	ORDER BY n.fecha_envio DESC
	LIMIT 50`

	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, trapErr(err, "querying payment notifications", payment.ErrNotificationNotFound, nil)
	}
	notifications := make([]payment.Notification, 0, len(rows))
	for _, r := range rows {
		notifications = append(notifications, r.toNotification())
	}
	return notifications, nil
}

func (repo *paymentRepository) MarkNotificationRead(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE notificaciones_pago SET leido = TRUE WHERE id = $1`, id)
	if err != nil {
		return trapErr(err, "marking notification read", payment.ErrNotificationNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payment.ErrNotificationNotFound
	}
	return nil
}

func (repo *paymentRepository) GetStats(ctx context.Context) (payment.Stats, error) {
	var stats payment.Stats

	summaryQuery := `
	SELECT
		COUNT(*) AS total_pagos,
		COALESCE(SUM(CASE WHEN estado = 'Pagado' THEN 1 ELSE 0 END), 0) AS pagados,
		COALESCE(SUM(CASE WHEN estado = 'Pendiente' THEN 1 ELSE 0 END), 0) AS pendientes,
		COALESCE(SUM(CASE WHEN estado = 'Atrasado' THEN 1 ELSE 0 END), 0) AS atrasados,
		COALESCE(SUM(CASE WHEN estado = 'Pagado' THEN monto ELSE 0 END), 0) AS total_recaudado,
		COALESCE(SUM(CASE WHEN estado NOT IN ('Pagado', 'Cancelado') THEN monto ELSE 0 END), 0) AS total_pendiente
	FROM pagos`
	summary := struct {
		TotalPayments  int     `db:"total_pagos"`
		Paid           int     `db:"pagados"`
		Pending        int     `db:"pendientes"`
		Overdue        int     `db:"atrasados"`
		TotalCollected float64 `db:"total_recaudado"`
		TotalPending   float64 `db:"total_pendiente"`
	}{}
	if err := repo.db.GetContext(ctx, &summary, summaryQuery); err != nil {
		return payment.Stats{}, trapErr(err, "querying payment summary", payment.ErrNotFound, nil)
	}
	stats.Summary = payment.StatsSummary(summary)

	perCourseQuery := `
	SELECT
		c.nombre AS curso,
		c.codigo,
		COUNT(p.id) AS total_pagos,
		COALESCE(SUM(CASE WHEN p.estado = 'Pagado' THEN 1 ELSE 0 END), 0) AS pagados,
		COALESCE(SUM(CASE WHEN p.estado = 'Pagado' THEN p.monto ELSE 0 END), 0) AS recaudado
	FROM cursos c
	LEFT JOIN pagos p ON c.id = p.curso_id
	WHERE c.activo = TRUE
	GROUP BY c.id, c.nombre, c.codigo`
	perCourse := []struct {
		CourseName    string  `db:"curso"`
		CourseCode    string  `db:"codigo"`
		TotalPayments int     `db:"total_pagos"`
		Paid          int     `db:"pagados"`
		Collected     float64 `db:"recaudado"`
	}{}
	if err := repo.db.SelectContext(ctx, &perCourse, perCourseQuery); err != nil {
		return payment.Stats{}, trapErr(err, "querying per-course payment stats", payment.ErrNotFound, nil)
	}
	for _, r := range perCourse {
		stats.PerCourse = append(stats.PerCourse, payment.CourseStats(r))
	}
	return stats, nil
}
