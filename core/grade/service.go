package grade

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("calificación no encontrada")

const defaultMaxScore = 100

type (
	Repository interface {
		CreateGrade(ctx context.Context, g Grade) (Grade, error)
		QueryGrades(ctx context.Context, filter *QueryFilter) ([]Grade, error)
		GetGradeByID(ctx context.Context, id int) (Grade, error)
		UpdateGrade(ctx context.Context, g Grade) (Grade, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, filter)
}

// Register records a grade on behalf of the authenticated recorder.
func (svc *Service) Register(ctx context.Context, ng NewGrade, recordedBy int) (Grade, error) {
	g := Grade{
		StudentID:      ng.StudentID,
		SubjectID:      ng.SubjectID,
		Period:         ng.Period,
		EvaluationType: ng.EvaluationType,
		Score:          ng.Score,
		MaxScore:       ng.MaxScore,
		EvaluatedAt:    ng.EvaluatedAt,
		Notes:          ng.Notes,
		RecordedBy:     recordedBy,
	}
	if g.MaxScore == 0 {
		g.MaxScore = defaultMaxScore
	}
	return svc.repo.CreateGrade(ctx, g)
}

func (svc *Service) Update(ctx context.Context, id int, ug UpdateGrade) (Grade, error) {
	g, err := svc.repo.GetGradeByID(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	g.Score = ug.Score
	g.Notes = ug.Notes
	return svc.repo.UpdateGrade(ctx, g)
}
