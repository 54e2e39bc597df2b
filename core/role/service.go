package role

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

var (
	// errors
	ErrNotFound   = errors.New("rol no encontrado")
	ErrNameExists = errors.New("ya existe un rol con ese nombre")
	ErrInUse      = errors.New("no se puede eliminar el rol porque hay usuarios asociados a él")
)

type (
	Repository interface {
		CreateRole(ctx context.Context, r Role) (Role, error)
		QueryAllRoles(ctx context.Context) ([]Role, error)
		QueryActiveRoles(ctx context.Context) ([]Role, error)
		GetRoleByID(ctx context.Context, id int) (Role, error)
		UpdateRole(ctx context.Context, r Role) (Role, error)
		DeleteRole(ctx context.Context, id int) error
		CountUsersWithRole(ctx context.Context, id int) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nr NewRole) (Role, error) {
	r := Role{
		Name:        nr.Name,
		Description: nr.Description,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if nr.IsActive != nil {
		r.IsActive = *nr.IsActive
	}
	r, err := svc.repo.CreateRole(ctx, r)
	if errors.Cause(err) == ErrNameExists {
		return Role{}, core.NewConflictError(ErrNameExists.Error())
	}
	return r, err
}

func (svc *Service) QueryAll(ctx context.Context) ([]Role, error) {
	return svc.repo.QueryAllRoles(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Role, error) {
	return svc.repo.GetRoleByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id int, ur UpdateRole) (Role, error) {
	r, err := svc.repo.GetRoleByID(ctx, id)
	if err != nil {
		return Role{}, err
	}
	r.Name = ur.Name
	r.Description = ur.Description
	if ur.IsActive != nil {
		r.IsActive = *ur.IsActive
	}
	r, err = svc.repo.UpdateRole(ctx, r)
	if errors.Cause(err) == ErrNameExists {
		return Role{}, core.NewConflictError(ErrNameExists.Error())
	}
	return r, err
}

// Delete removes a role. A role still referenced by any user cannot be
// deleted.
func (svc *Service) Delete(ctx context.Context, id int) error {
	count, err := svc.repo.CountUsersWithRole(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return core.NewConflictError(ErrInUse.Error())
	}
	return svc.repo.DeleteRole(ctx, id)
}
