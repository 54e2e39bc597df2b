package role_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/role"
	"github.com/classoptima/backend/core/user"
	inmemdb "github.com/classoptima/backend/storage/database/inmem"
)

type fixture struct {
	svc     *role.Service
	usrRepo user.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() error = %v", err)
	}
	return fixture{
		svc:     role.NewService(inmemdb.NewRoleRepository(db)),
		usrRepo: inmemdb.NewUserRepository(db),
	}
}

func (f fixture) createRole(t *testing.T, name string) role.Role {
	t.Helper()
	r, err := f.svc.Create(context.Background(), role.NewRole{Name: name})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", name, err)
	}
	return r
}

func TestService_Create(t *testing.T) {
	f := setup(t)

	r := f.createRole(t, "Maestro")
	if r.ID == 0 || !r.IsActive {
		t.Errorf("role = %+v", r)
	}

	// duplicate names are a conflict
	var conflictErr *core.ConflictError
	_, err := f.svc.Create(context.Background(), role.NewRole{Name: "Maestro"})
	if !errors.As(err, &conflictErr) {
		t.Errorf("Create() error = %v, want *core.ConflictError", err)
	}
}

func TestService_Update(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.createRole(t, "Maestro")
	r := f.createRole(t, "Alumno")

	inactive := false
	updated, err := f.svc.Update(ctx, r.ID, role.UpdateRole{
		Name: "Estudiante", Description: "Alumnado", IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Estudiante" || updated.Description != "Alumnado" || updated.IsActive {
		t.Errorf("updated = %+v", updated)
	}

	// renaming onto an existing name is a conflict
	var conflictErr *core.ConflictError
	if _, err := f.svc.Update(ctx, r.ID, role.UpdateRole{Name: "Maestro"}); !errors.As(err, &conflictErr) {
		t.Errorf("Update() error = %v, want *core.ConflictError", err)
	}

	if _, err := f.svc.Update(ctx, 999, role.UpdateRole{Name: "X"}); errors.Cause(err) != role.ErrNotFound {
		t.Errorf("Update(999) error = %v, want %v", err, role.ErrNotFound)
	}
}

func TestService_Delete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	empty := f.createRole(t, "Padres")
	used := f.createRole(t, "Alumno")

	now := time.Now().UTC()
	usr := user.User{
		FirstName: "Ana", LastName: "García", Email: "ana@test.gt",
		RoleID: used.ID, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	if _, err := f.usrRepo.CreateUser(ctx, usr); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	// a referenced role cannot be deleted
	var conflictErr *core.ConflictError
	if err := f.svc.Delete(ctx, used.ID); !errors.As(err, &conflictErr) {
		t.Errorf("Delete() error = %v, want *core.ConflictError", err)
	}

	if err := f.svc.Delete(ctx, empty.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.svc.GetByID(ctx, empty.ID); errors.Cause(err) != role.ErrNotFound {
		t.Errorf("GetByID() error = %v, want %v", err, role.ErrNotFound)
	}

	if err := f.svc.Delete(ctx, 999); errors.Cause(err) != role.ErrNotFound {
		t.Errorf("Delete(999) error = %v, want %v", err, role.ErrNotFound)
	}
}
