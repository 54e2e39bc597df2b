package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/course"
)

type courseRow struct {
	ID          int            `db:"id"`
	Name        string         `db:"nombre"`
	Code        string         `db:"codigo"`
	Description sql.NullString `db:"descripcion"`
	StartDate   time.Time      `db:"fecha_inicio"`
	EndDate     time.Time      `db:"fecha_fin"`
	TeacherID   int            `db:"maestro_id"`
	MaxCapacity int            `db:"cupo_maximo"`
	Credits     int            `db:"creditos"`
	Cost        float64        `db:"costo"`
	Schedule    sql.NullString `db:"horario"`
	Classroom   sql.NullString `db:"aula"`
	IsActive    bool           `db:"activo"`
	CreatedAt   time.Time      `db:"created_at"`

	TeacherName     sql.NullString `db:"maestro_nombre"`
	TeacherEmail    sql.NullString `db:"maestro_email"`
	TeacherPhone    sql.NullString `db:"maestro_telefono"`
	EnrolledCount   int            `db:"alumnos_inscritos"`
	AssignmentCount int            `db:"total_tareas"`

	ViewerEnrolled  sql.NullBool   `db:"esta_inscrito"`
	ViewerPaid      sql.NullBool   `db:"pago_realizado"`
	ViewerPayStatus sql.NullString `db:"estado_pago"`
	ViewerPaymentID sql.NullInt64  `db:"pago_id"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:              r.ID,
		Name:            r.Name,
		Code:            r.Code,
		Description:     r.Description.String,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		TeacherID:       r.TeacherID,
		MaxCapacity:     r.MaxCapacity,
		Credits:         r.Credits,
		Cost:            r.Cost,
		Schedule:        r.Schedule.String,
		Classroom:       r.Classroom.String,
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedAt,
		TeacherName:     r.TeacherName.String,
		TeacherEmail:    r.TeacherEmail.String,
		TeacherPhone:    r.TeacherPhone.String,
		EnrolledCount:   r.EnrolledCount,
		AssignmentCount: r.AssignmentCount,
		ViewerEnrolled:  r.ViewerEnrolled.Bool,
		ViewerPaid:      r.ViewerPaid.Bool,
		ViewerPayStatus: r.ViewerPayStatus.String,
		ViewerPaymentID: int(r.ViewerPaymentID.Int64),
	}
}

type enrollmentRow struct {
	ID         int             `db:"id"`
	CourseID   int             `db:"curso_id"`
	StudentID  int             `db:"alumno_id"`
	EnrolledAt time.Time       `db:"fecha_inscripcion"`
	Status     string          `db:"estado"`
	FinalGrade sql.NullFloat64 `db:"nota_final"`
	Notes      sql.NullString  `db:"observaciones"`

	StudentName  sql.NullString  `db:"alumno_nombre"`
	StudentEmail sql.NullString  `db:"alumno_email"`
	StudentCode  sql.NullString  `db:"codigo_alumno"`
	CourseName   sql.NullString  `db:"nombre"`
	CourseCode   sql.NullString  `db:"codigo"`
	TeacherName  sql.NullString  `db:"maestro_nombre"`
	CourseCost   sql.NullFloat64 `db:"costo"`

	PaymentStatus sql.NullString  `db:"estado_pago"`
	PaymentAmount sql.NullFloat64 `db:"monto_pagado"`
	PaymentMethod sql.NullString  `db:"metodo_pago"`
	PaidAt        sql.NullTime    `db:"fecha_pago"`
}

func (r enrollmentRow) toEnrollment() course.Enrollment {
	e := course.Enrollment{
		ID:            r.ID,
		CourseID:      r.CourseID,
		StudentID:     r.StudentID,
		EnrolledAt:    r.EnrolledAt,
		Status:        r.Status,
		Notes:         r.Notes.String,
		StudentName:   r.StudentName.String,
		StudentEmail:  r.StudentEmail.String,
		StudentCode:   r.StudentCode.String,
		CourseName:    r.CourseName.String,
		CourseCode:    r.CourseCode.String,
		TeacherName:   r.TeacherName.String,
		CourseCost:    r.CourseCost.Float64,
		PaymentStatus: r.PaymentStatus.String,
		PaymentAmount: r.PaymentAmount.Float64,
		PaymentMethod: r.PaymentMethod.String,
	}
	if r.FinalGrade.Valid {
		g := r.FinalGrade.Float64
		e.FinalGrade = &g
	}
	if r.PaidAt.Valid {
		t := r.PaidAt.Time
		e.PaidAt = &t
	}
	return e
}

type courseRepository struct {
	db core.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	query := `
	INSERT INTO cursos (
		nombre, codigo, descripcion, fecha_inicio, fecha_fin, maestro_id,
		cupo_maximo, creditos, costo, horario, aula, activo, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		c.Name, c.Code, nullStr(c.Description), c.StartDate, c.EndDate,
		c.TeacherID, c.MaxCapacity, c.Credits, c.Cost,
		nullStr(c.Schedule), nullStr(c.Classroom), c.IsActive, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return course.Course{}, trapErr(err, "creating course", course.ErrNotFound, course.ErrCodeExists)
	}
	return c, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter) ([]course.Course, error) {
	query := `
	SELECT
		c.*,
		u.nombre || ' ' || u.apellido AS maestro_nombre,
		u.email AS maestro_email,
		(SELECT COUNT(*) FROM curso_alumnos WHERE curso_id = c.id AND estado IN ('Inscrito', 'Activo')) AS alumnos_inscritos,
		(SELECT COUNT(*) FROM tareas WHERE curso_id = c.id AND activo = TRUE) AS total_tareas`

	var args []interface{}
	if filter != nil && filter.ViewerID != 0 {
		args = append(args, filter.ViewerID)
		query += fmt.Sprintf(`,
		EXISTS (SELECT 1 FROM curso_alumnos WHERE curso_id = c.id AND alumno_id = $%[1]d) AS esta_inscrito,
		EXISTS (SELECT 1 FROM pagos WHERE curso_id = c.id AND alumno_id = $%[1]d AND estado = 'Pagado') AS pago_realizado,
		(SELECT estado FROM pagos WHERE curso_id = c.id AND alumno_id = $%[1]d ORDER BY id DESC LIMIT 1) AS estado_pago,
		(SELECT id FROM pagos WHERE curso_id = c.id AND alumno_id = $%[1]d ORDER BY id DESC LIMIT 1) AS pago_id`, len(args))
	}

	query += `
	FROM cursos c
	INNER JOIN usuarios u ON c.maestro_id = u.id
	WHERE 1=1`
	if filter != nil {
		if filter.TeacherID != 0 {
			args = append(args, filter.TeacherID)
			query += fmt.Sprintf(" AND c.maestro_id = $%d", len(args))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			query += fmt.Sprintf(" AND c.activo = $%d", len(args))
		}
	}
	query += ` ORDER BY c.fecha_inicio DESC, c.codigo`

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, trapErr(err, "querying courses", course.ErrNotFound, nil)
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	query := `
	SELECT
		c.*,
		u.nombre || ' ' || u.apellido AS maestro_nombre,
		u.email AS maestro_email,
		u.telefono AS maestro_telefono
	FROM cursos c
	INNER JOIN usuarios u ON c.maestro_id = u.id
	WHERE c.id = $1`
	var r courseRow
	if err := repo.db.GetContext(ctx, &r, query, id); err != nil {
		return course.Course{}, trapErr(err, "getting course by id", course.ErrNotFound, nil)
	}
	return r.toCourse(), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	query := `
	UPDATE cursos SET
		nombre = $1, codigo = $2, descripcion = $3, fecha_inicio = $4,
		fecha_fin = $5, maestro_id = $6, cupo_maximo = $7, creditos = $8,
		costo = $9, horario = $10, aula = $11, activo = $12
	WHERE id = $13`
	res, err := repo.db.ExecContext(ctx, query,
		c.Name, c.Code, nullStr(c.Description), c.StartDate, c.EndDate,
		c.TeacherID, c.MaxCapacity, c.Credits, c.Cost,
		nullStr(c.Schedule), nullStr(c.Classroom), c.IsActive, c.ID,
	)
	if err != nil {
		return course.Course{}, trapErr(err, "updating course", course.ErrNotFound, course.ErrCodeExists)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM cursos WHERE id = $1`, id)
	if err != nil {
		return trapErr(err, "deleting course", course.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) QueryTeachers(ctx context.Context) ([]course.Teacher, error) {
	query := `
	SELECT
		u.id,
		u.nombre || ' ' || u.apellido AS nombre_completo,
		u.email,
		COALESCE(u.telefono, '') AS telefono,
		(SELECT COUNT(*) FROM cursos WHERE maestro_id = u.id AND activo = TRUE) AS cursos_activos
	FROM usuarios u
	WHERE u.rol_id = (SELECT id FROM roles WHERE nombre = 'Maestro')
	  AND u.activo = TRUE
	ORDER BY u.apellido, u.nombre`

	var teachers []course.Teacher
	rows := []struct {
		ID            int    `db:"id"`
		FullName      string `db:"nombre_completo"`
		Email         string `db:"email"`
		Phone         string `db:"telefono"`
		ActiveCourses int    `db:"cursos_activos"`
	}{}
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, trapErr(err, "querying teachers", course.ErrNotFound, nil)
	}
	for _, r := range rows {
		teachers = append(teachers, course.Teacher{
			ID:            r.ID,
			FullName:      r.FullName,
			Email:         r.Email,
			Phone:         r.Phone,
			ActiveCourses: r.ActiveCourses,
		})
	}
	return teachers, nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	query := `
	INSERT INTO curso_alumnos (curso_id, alumno_id, fecha_inscripcion, estado, observaciones)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		e.CourseID, e.StudentID, e.EnrolledAt, e.Status, nullStr(e.Notes),
	).Scan(&e.ID)
	if err != nil {
		return course.Enrollment{}, trapErr(err, "creating enrollment", course.ErrEnrollmentNotFound, course.ErrAlreadyEnrolled)
	}
	return e, nil
}

func (repo *courseRepository) GetEnrollmentByID(ctx context.Context, id int) (course.Enrollment, error) {
	query := `
	SELECT ca.id, ca.curso_id, ca.alumno_id, ca.fecha_inscripcion, ca.estado,
	       ca.nota_final, ca.observaciones
	FROM curso_alumnos ca
	WHERE ca.id = $1`
	var r enrollmentRow
	if err := repo.db.GetContext(ctx, &r, query, id); err != nil {
		return course.Enrollment{}, trapErr(err, "getting enrollment by id", course.ErrEnrollmentNotFound, nil)
	}
	return r.toEnrollment(), nil
}

func (repo *courseRepository) UpdateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	query := `UPDATE curso_alumnos SET estado = $1, nota_final = $2, observaciones = $3 WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, query, e.Status, nullFloat(e.FinalGrade), nullStr(e.Notes), e.ID)
	if err != nil {
		return course.Enrollment{}, trapErr(err, "updating enrollment", course.ErrEnrollmentNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	return e, nil
}

func (repo *courseRepository) CountActiveEnrollments(ctx context.Context, courseID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM curso_alumnos WHERE curso_id = $1 AND estado IN ('Inscrito', 'Activo')`
	if err := repo.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, trapErr(err, "counting active enrollments", course.ErrNotFound, nil)
	}
	return count, nil
}

func (repo *courseRepository) CountEnrollments(ctx context.Context, courseID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM curso_alumnos WHERE curso_id = $1`
	if err := repo.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, trapErr(err, "counting enrollments", course.ErrNotFound, nil)
	}
	return count, nil
}

func (repo *courseRepository) QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]course.Enrollment, error) {
	query := `
	SELECT
		ca.id, ca.curso_id, ca.alumno_id, ca.fecha_inscripcion, ca.estado,
		ca.nota_final, ca.observaciones,
		u.nombre || ' ' || u.apellido AS alumno_nombre,
		u.email AS alumno_email,
		u.codigo_alumno,
		p.estado AS estado_pago,
		COALESCE(p.monto, 0) AS monto_pagado,
		p.metodo_pago,
		p.fecha_pago
	FROM curso_alumnos ca
	INNER JOIN usuarios u ON ca.alumno_id = u.id
	LEFT JOIN pagos p ON p.curso_id = ca.curso_id AND p.alumno_id = ca.alumno_id
	WHERE ca.curso_id = $1
	ORDER BY ca.fecha_inscripcion DESC`
	return repo.queryEnrollments(ctx, query, courseID)
}

func (repo *courseRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID int) ([]course.Enrollment, error) {
	query := `
	SELECT
		ca.id, ca.curso_id, ca.alumno_id, ca.fecha_inscripcion, ca.estado,
		ca.nota_final, ca.observaciones,
		c.nombre, c.codigo, c.costo,
		u.nombre || ' ' || u.apellido AS maestro_nombre,
		p.estado AS estado_pago,
		p.metodo_pago,
		p.fecha_pago
	FROM curso_alumnos ca
	INNER JOIN cursos c ON ca.curso_id = c.id
	INNER JOIN usuarios u ON c.maestro_id = u.id
	LEFT JOIN pagos p ON p.curso_id = ca.curso_id AND p.alumno_id = ca.alumno_id
	WHERE ca.alumno_id = $1
	ORDER BY ca.fecha_inscripcion DESC`
	return repo.queryEnrollments(ctx, query, studentID)
}

func (repo *courseRepository) queryEnrollments(ctx context.Context, query string, args ...interface{}) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, trapErr(err, "querying enrollments", course.ErrEnrollmentNotFound, nil)
	}
	enrollments := make([]course.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, r.toEnrollment())
	}
	return enrollments, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
