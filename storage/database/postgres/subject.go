package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/subject"
)

type subjectRow struct {
	ID          int            `db:"id"`
	Code        string         `db:"codigo"`
	Name        string         `db:"nombre"`
	Description sql.NullString `db:"descripcion"`
	IsActive    bool           `db:"activa"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r subjectRow) toSubject() subject.Subject {
	return subject.Subject{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description.String,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
	}
}

type subjectRepository struct {
	db core.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db core.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	query := `
	INSERT INTO materias (codigo, nombre, descripcion, activa, created_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		s.Code, s.Name, nullStr(s.Description), s.IsActive, s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		return subject.Subject{}, trapErr(err, "creating subject", subject.ErrNotFound, subject.ErrCodeExists)
	}
	return s, nil
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context) ([]subject.Subject, error) {
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM materias ORDER BY nombre`); err != nil {
		return nil, trapErr(err, "querying subjects", subject.ErrNotFound, nil)
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.toSubject())
	}
	return subjects, nil
}

func (repo *subjectRepository) GetSubjectByID(ctx context.Context, id int) (subject.Subject, error) {
	var r subjectRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM materias WHERE id = $1`, id); err != nil {
		return subject.Subject{}, trapErr(err, "getting subject by id", subject.ErrNotFound, nil)
	}
	return r.toSubject(), nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	query := `UPDATE materias SET codigo = $1, nombre = $2, descripcion = $3, activa = $4 WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query, s.Code, s.Name, nullStr(s.Description), s.IsActive, s.ID)
	if err != nil {
		return subject.Subject{}, trapErr(err, "updating subject", subject.ErrNotFound, subject.ErrCodeExists)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return s, nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM materias WHERE id = $1`, id)
	if err != nil {
		return trapErr(err, "deleting subject", subject.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return subject.ErrNotFound
	}
	return nil
}
