package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/attendance"
)

type attendanceRow struct {
	ID         int            `db:"id"`
	StudentID  int            `db:"alumno_id"`
	CourseID   int            `db:"curso_id"`
	Date       time.Time      `db:"fecha"`
	Status     string         `db:"estado"`
	Notes      sql.NullString `db:"observaciones"`
	RecordedBy int            `db:"registrado_por"`

	StudentFirstName sql.NullString `db:"alumno_nombre"`
	StudentLastName  sql.NullString `db:"alumno_apellido"`
	CourseName       sql.NullString `db:"materia_nombre"`
	RecordedByName   sql.NullString `db:"registrado_por_nombre"`
}

func (r attendanceRow) toRecord() attendance.Record {
	return attendance.Record{
		ID:               r.ID,
		StudentID:        r.StudentID,
		CourseID:         r.CourseID,
		Date:             r.Date,
		Status:           r.Status,
		Notes:            r.Notes.String,
		RecordedBy:       r.RecordedBy,
		StudentFirstName: r.StudentFirstName.String,
		StudentLastName:  r.StudentLastName.String,
		CourseName:       r.CourseName.String,
		RecordedByName:   r.RecordedByName.String,
	}
}

type attendanceRepository struct {
	db core.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db core.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.Record, error) {
	query := `
	SELECT
		a.*,
		u.nombre AS alumno_nombre, u.apellido AS alumno_apellido,
		c.nombre AS materia_nombre,
		r.nombre AS registrado_por_nombre
	FROM asistencia a
	INNER JOIN usuarios u ON a.alumno_id = u.id
	INNER JOIN cursos c ON a.curso_id = c.id
	INNER JOIN usuarios r ON a.registrado_por = r.id
	WHERE 1=1`

	var args []interface{}
	if filter != nil {
		if filter.StudentID != 0 {
			args = append(args, filter.StudentID)
			query += fmt.Sprintf(" AND a.alumno_id = $%d", len(args))
		}
		if filter.CourseID != 0 {
			args = append(args, filter.CourseID)
			query += fmt.Sprintf(" AND a.curso_id = $%d", len(args))
		}
		if filter.From != nil {
			args = append(args, *filter.From)
			query += fmt.Sprintf(" AND a.fecha >= $%d", len(args))
		}
		if filter.To != nil {
			args = append(args, *filter.To)
			query += fmt.Sprintf(" AND a.fecha <= $%d", len(args))
		}
	}
	query += ` ORDER BY a.fecha DESC, u.apellido, u.nombre`

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, trapErr(err, "querying attendance", attendance.ErrNotFound, nil)
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records, nil
}

// UpsertRecord relies on the (alumno_id, curso_id, fecha) unique constraint
// to overwrite re-registered days.
func (repo *attendanceRepository) UpsertRecord(ctx context.Context, r attendance.Record) (attendance.Record, error) {
	query := `
	INSERT INTO asistencia (alumno_id, curso_id, fecha, estado, observaciones, registrado_por)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (alumno_id, curso_id, fecha)
	DO UPDATE SET estado = EXCLUDED.estado, observaciones = EXCLUDED.observaciones
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		r.StudentID, r.CourseID, r.Date, r.Status, nullStr(r.Notes), r.RecordedBy,
	).Scan(&r.ID)
	if err != nil {
		return attendance.Record{}, trapErr(err, "upserting attendance", attendance.ErrNotFound, nil)
	}
	return r, nil
}
