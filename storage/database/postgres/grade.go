package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/grade"
)

type gradeRow struct {
	ID             int            `db:"id"`
	StudentID      int            `db:"alumno_id"`
	SubjectID      int            `db:"materia_id"`
	Period         string         `db:"periodo"`
	EvaluationType sql.NullString `db:"tipo_evaluacion"`
	Score          float64        `db:"nota"`
	MaxScore       float64        `db:"nota_maxima"`
	EvaluatedAt    sql.NullTime   `db:"fecha_evaluacion"`
	Notes          sql.NullString `db:"observaciones"`
	RecordedBy     int            `db:"registrado_por"`

	StudentFirstName sql.NullString `db:"alumno_nombre"`
	StudentLastName  sql.NullString `db:"alumno_apellido"`
	SubjectName      sql.NullString `db:"materia_nombre"`
	RecordedByName   sql.NullString `db:"registrado_por_nombre"`
}

func (r gradeRow) toGrade() grade.Grade {
	g := grade.Grade{
		ID:               r.ID,
		StudentID:        r.StudentID,
		SubjectID:        r.SubjectID,
		Period:           r.Period,
		EvaluationType:   r.EvaluationType.String,
		Score:            r.Score,
		MaxScore:         r.MaxScore,
		Notes:            r.Notes.String,
		RecordedBy:       r.RecordedBy,
		StudentFirstName: r.StudentFirstName.String,
		StudentLastName:  r.StudentLastName.String,
		SubjectName:      r.SubjectName.String,
		RecordedByName:   r.RecordedByName.String,
	}
	if r.EvaluatedAt.Valid {
		t := r.EvaluatedAt.Time
		g.EvaluatedAt = &t
	}
	return g
}

type gradeRepository struct {
	db core.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db core.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	query := `
	INSERT INTO calificaciones (
		alumno_id, materia_id, periodo, tipo_evaluacion, nota, nota_maxima,
		fecha_evaluacion, observaciones, registrado_por
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		g.StudentID, g.SubjectID, g.Period, nullStr(g.EvaluationType),
		g.Score, g.MaxScore, nullTime(g.EvaluatedAt), nullStr(g.Notes), g.RecordedBy,
	).Scan(&g.ID)
	if err != nil {
		return grade.Grade{}, trapErr(err, "creating grade", grade.ErrNotFound, nil)
	}
	return g, nil
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, filter *grade.QueryFilter) ([]grade.Grade, error) {
	query := `
	SELECT
		c.*,
		u.nombre AS alumno_nombre, u.apellido AS alumno_apellido,
		m.nombre AS materia_nombre,
		r.nombre AS registrado_por_nombre
	FROM calificaciones c
	INNER JOIN usuarios u ON c.alumno_id = u.id
	INNER JOIN materias m ON c.materia_id = m.id
	INNER JOIN usuarios r ON c.registrado_por = r.id
	WHERE 1=1`

	var args []interface{}
	if filter != nil {
		if filter.StudentID != 0 {
			args = append(args, filter.StudentID)
			query += fmt.Sprintf(" AND c.alumno_id = $%d", len(args))
		}
		if filter.SubjectID != 0 {
			args = append(args, filter.SubjectID)
			query += fmt.Sprintf(" AND c.materia_id = $%d", len(args))
		}
		if filter.Period != "" {
			args = append(args, filter.Period)
			query += fmt.Sprintf(" AND c.periodo = $%d", len(args))
		}
	}
	query += ` ORDER BY c.fecha_evaluacion DESC`

	var rows []gradeRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, trapErr(err, "querying grades", grade.ErrNotFound, nil)
	}
	grades := make([]grade.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.toGrade())
	}
	return grades, nil
}

func (repo *gradeRepository) GetGradeByID(ctx context.Context, id int) (grade.Grade, error) {
	var r gradeRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM calificaciones WHERE id = $1`, id); err != nil {
		return grade.Grade{}, trapErr(err, "getting grade by id", grade.ErrNotFound, nil)
	}
	return r.toGrade(), nil
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	query := `UPDATE calificaciones SET nota = $1, observaciones = $2 WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, g.Score, nullStr(g.Notes), g.ID)
	if err != nil {
		return grade.Grade{}, trapErr(err, "updating grade", grade.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return grade.Grade{}, grade.ErrNotFound
	}
	return g, nil
}
