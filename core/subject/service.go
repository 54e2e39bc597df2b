package subject

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

var (
	// errors
	ErrNotFound   = errors.New("materia no encontrada")
	ErrCodeExists = errors.New("ya existe una materia con ese código")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		QuerySubjects(ctx context.Context) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id int) (Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	s := Subject{
		Code:        ns.Code,
		Name:        ns.Name,
		Description: ns.Description,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if ns.IsActive != nil {
		s.IsActive = *ns.IsActive
	}
	s, err := svc.repo.CreateSubject(ctx, s)
	if errors.Cause(err) == ErrCodeExists {
		return Subject{}, core.NewConflictError(ErrCodeExists.Error())
	}
	return s, err
}

func (svc *Service) QueryAll(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id int, ns NewSubject) (Subject, error) {
	s, err := svc.repo.GetSubjectByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	s.Code = ns.Code
	s.Name = ns.Name
	s.Description = ns.Description
	if ns.IsActive != nil {
		s.IsActive = *ns.IsActive
	}
	s, err = svc.repo.UpdateSubject(ctx, s)
	if errors.Cause(err) == ErrCodeExists {
		return Subject{}, core.NewConflictError(ErrCodeExists.Error())
	}
	return s, err
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetSubjectByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteSubject(ctx, id)
}
