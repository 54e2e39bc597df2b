package attendance

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("asistencia no encontrada")

type (
	Repository interface {
		QueryRecords(ctx context.Context, filter *QueryFilter) ([]Record, error)
		// UpsertRecord inserts the record or, when one already exists for the
		// same student, course and date, overwrites its status and notes.
		UpsertRecord(ctx context.Context, r Record) (Record, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

// Register records attendance for a student on a given date. Registering the
// same student, course and date again replaces the previous entry.
func (svc *Service) Register(ctx context.Context, nr NewRecord, recordedBy int) (Record, error) {
	r := Record{
		StudentID:  nr.StudentID,
		CourseID:   nr.CourseID,
		Date:       nr.Date,
		Status:     nr.Status,
		Notes:      nr.Notes,
		RecordedBy: recordedBy,
	}
	return svc.repo.UpsertRecord(ctx, r)
}
