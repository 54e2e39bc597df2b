package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/assignment"
)

type assignmentRow struct {
	ID          int            `db:"id"`
	CourseID    int            `db:"curso_id"`
	Title       string         `db:"titulo"`
	Description sql.NullString `db:"descripcion"`
	AssignedAt  time.Time      `db:"fecha_asignacion"`
	DueDate     time.Time      `db:"fecha_entrega"`
	TotalPoints float64        `db:"puntos_totales"`
	Attachment  sql.NullString `db:"archivo_adjunto"`
	IsActive    bool           `db:"activo"`
	CreatedBy   int            `db:"creado_por"`

	CourseName    sql.NullString `db:"curso_nombre"`
	CourseCode    sql.NullString `db:"curso_codigo"`
	CreatedByName sql.NullString `db:"creado_por_nombre"`

	SubmissionCount int `db:"total_entregas"`
	GradedCount     int `db:"entregas_calificadas"`
}

func (r assignmentRow) toAssignment() assignment.Assignment {
	return assignment.Assignment{
		ID:              r.ID,
		CourseID:        r.CourseID,
		Title:           r.Title,
		Description:     r.Description.String,
		AssignedAt:      r.AssignedAt,
		DueDate:         r.DueDate,
		TotalPoints:     r.TotalPoints,
		Attachment:      r.Attachment.String,
		IsActive:        r.IsActive,
		CreatedBy:       r.CreatedBy,
		CourseName:      r.CourseName.String,
		CourseCode:      r.CourseCode.String,
		CreatedByName:   r.CreatedByName.String,
		SubmissionCount: r.SubmissionCount,
		GradedCount:     r.GradedCount,
	}
}

type submissionRow struct {
	ID           int             `db:"id"`
	AssignmentID int             `db:"tarea_id"`
	StudentID    int             `db:"alumno_id"`
	SubmittedAt  time.Time       `db:"fecha_entrega"`
	File         sql.NullString  `db:"archivo_entrega"`
	Comments     sql.NullString  `db:"comentarios"`
	Status       string          `db:"estado"`
	Grade        sql.NullFloat64 `db:"calificacion"`
	GradedBy     sql.NullInt64   `db:"calificado_por"`
	GradedAt     sql.NullTime    `db:"fecha_calificacion"`

	StudentName  sql.NullString `db:"alumno_nombre"`
	StudentCode  sql.NullString `db:"codigo_alumno"`
	StudentEmail sql.NullString `db:"alumno_email"`
	GradedByName sql.NullString `db:"calificado_por_nombre"`
}

func (r submissionRow) toSubmission() assignment.Submission {
	s := assignment.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		SubmittedAt:  r.SubmittedAt,
		File:         r.File.String,
		Comments:     r.Comments.String,
		Status:       r.Status,
		GradedBy:     int(r.GradedBy.Int64),
		StudentName:  r.StudentName.String,
		StudentCode:  r.StudentCode.String,
		StudentEmail: r.StudentEmail.String,
		GradedByName: r.GradedByName.String,
	}
	if r.Grade.Valid {
		g := r.Grade.Float64
		s.Grade = &g
	}
	if r.GradedAt.Valid {
		t := r.GradedAt.Time
		s.GradedAt = &t
	}
	return s
}

type assignmentRepository struct {
	db core.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db core.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	query := `
	INSERT INTO tareas (
		curso_id, titulo, descripcion, fecha_asignacion, fecha_entrega,
		puntos_totales, archivo_adjunto, activo, creado_por
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		a.CourseID, a.Title, nullStr(a.Description), a.AssignedAt, a.DueDate,
		a.TotalPoints, nullStr(a.Attachment), a.IsActive, a.CreatedBy,
	).Scan(&a.ID)
	if err != nil {
		return assignment.Assignment{}, trapErr(err, "creating assignment", assignment.ErrNotFound, nil)
	}
	return a, nil
}

const assignmentQuery = `
	SELECT
		t.*,
		c.nombre AS curso_nombre,
		c.codigo AS curso_codigo,
		u.nombre || ' ' || u.apellido AS creado_por_nombre,
		(SELECT COUNT(*) FROM tarea_entregas WHERE tarea_id = t.id) AS total_entregas,
		(SELECT COUNT(*) FROM tarea_entregas WHERE tarea_id = t.id AND calificacion IS NOT NULL) AS entregas_calificadas
	FROM tareas t
	INNER JOIN cursos c ON t.curso_id = c.id
	INNER JOIN usuarios u ON t.creado_por = u.id`

func (repo *assignmentRepository) QueryAssignmentsByCourse(ctx context.Context, courseID int) ([]assignment.Assignment, error) {
	query := assignmentQuery + ` WHERE t.curso_id = $1 AND t.activo = TRUE ORDER BY t.fecha_entrega DESC`
	return repo.queryAssignments(ctx, query, courseID)
}

func (repo *assignmentRepository) QueryAssignmentsForStudent(ctx context.Context, studentID int) ([]assignment.Assignment, error) {
	query := assignmentQuery + `
	INNER JOIN curso_alumnos ca ON t.curso_id = ca.curso_id
	WHERE ca.alumno_id = $1 AND t.activo = TRUE
	ORDER BY t.fecha_entrega DESC`
	assignments, err := repo.queryAssignments(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	for i := range assignments {
		sub, err := repo.GetStudentSubmission(ctx, assignments[i].ID, studentID)
		switch err {
		case nil:
			assignments[i].MySubmission = &sub
			assignments[i].Submitted = true
		case assignment.ErrSubmissionNotFound:
		default:
			return nil, err
		}
	}
	return assignments, nil
}

func (repo *assignmentRepository) queryAssignments(ctx context.Context, query string, args ...interface{}) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, trapErr(err, "querying assignments", assignment.ErrNotFound, nil)
	}
	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, r.toAssignment())
	}
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id int) (assignment.Assignment, error) {
	var r assignmentRow
	if err := repo.db.GetContext(ctx, &r, assignmentQuery+` WHERE t.id = $1`, id); err != nil {
		return assignment.Assignment{}, trapErr(err, "getting assignment by id", assignment.ErrNotFound, nil)
	}
	return r.toAssignment(), nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	query := `
	UPDATE tareas SET
		titulo = $1, descripcion = $2, fecha_entrega = $3, puntos_totales = $4,
		archivo_adjunto = $5, activo = $6
	WHERE id = $7`
	res, err := repo.db.ExecContext(ctx, query,
		a.Title, nullStr(a.Description), a.DueDate, a.TotalPoints,
		nullStr(a.Attachment), a.IsActive, a.ID,
	)
	if err != nil {
		return assignment.Assignment{}, trapErr(err, "updating assignment", assignment.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return a, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM tareas WHERE id = $1`, id)
	if err != nil {
		return trapErr(err, "deleting assignment", assignment.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo *assignmentRepository) CountSubmissions(ctx context.Context, assignmentID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tarea_entregas WHERE tarea_id = $1`
	if err := repo.db.GetContext(ctx, &count, query, assignmentID); err != nil {
		return 0, trapErr(err, "counting submissions", assignment.ErrNotFound, nil)
	}
	return count, nil
}

func (repo *assignmentRepository) CreateSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	query := `
	INSERT INTO tarea_entregas (tarea_id, alumno_id, fecha_entrega, archivo_entrega, comentarios, estado)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		s.AssignmentID, s.StudentID, s.SubmittedAt, nullStr(s.File), nullStr(s.Comments), s.Status,
	).Scan(&s.ID)
	if err != nil {
		return assignment.Submission{}, trapErr(err, "creating submission", assignment.ErrSubmissionNotFound, nil)
	}
	return s, nil
}

func (repo *assignmentRepository) GetSubmissionByID(ctx context.Context, id int) (assignment.Submission, error) {
	var r submissionRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM tarea_entregas WHERE id = $1`, id); err != nil {
		return assignment.Submission{}, trapErr(err, "getting submission by id", assignment.ErrSubmissionNotFound, nil)
	}
	return r.toSubmission(), nil
}

func (repo *assignmentRepository) GetStudentSubmission(ctx context.Context, assignmentID, studentID int) (assignment.Submission, error) {
	var r submissionRow
	query := `SELECT * FROM tarea_entregas WHERE tarea_id = $1 AND alumno_id = $2`
	if err := repo.db.GetContext(ctx, &r, query, assignmentID, studentID); err != nil {
		return assignment.Submission{}, trapErr(err, "getting student submission", assignment.ErrSubmissionNotFound, nil)
	}
	return r.toSubmission(), nil
}

func (repo *assignmentRepository) QuerySubmissionsByAssignment(ctx context.Context, assignmentID int) ([]assignment.Submission, error) {
	query := `
	SELECT
		te.*,
		a.nombre || ' ' || a.apellido AS alumno_nombre,
		a.codigo_alumno,
		a.email AS alumno_email,
		c.nombre || ' ' || c.apellido AS calificado_por_nombre
	FROM tarea_entregas te
	INNER JOIN usuarios a ON te.alumno_id = a.id
	LEFT JOIN usuarios c ON te.calificado_por = c.id
	WHERE te.tarea_id = $1
	ORDER BY te.fecha_entrega DESC`

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, query, assignmentID); err != nil {
		return nil, trapErr(err, "querying submissions", assignment.ErrSubmissionNotFound, nil)
	}
	subs := make([]assignment.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toSubmission())
	}
	return subs, nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	query := `
	UPDATE tarea_entregas SET
		fecha_entrega = $1, archivo_entrega = $2, comentarios = $3, estado = $4,
		calificacion = $5, calificado_por = $6, fecha_calificacion = $7
	WHERE id = $8`
	res, err := repo.db.ExecContext(ctx, query,
		s.SubmittedAt, nullStr(s.File), nullStr(s.Comments), s.Status,
		nullFloat(s.Grade), nullInt(s.GradedBy), nullTime(s.GradedAt), s.ID,
	)
	if err != nil {
		return assignment.Submission{}, trapErr(err, "updating submission", assignment.ErrSubmissionNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return s, nil
}
