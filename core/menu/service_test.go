package menu_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/menu"
	"github.com/classoptima/backend/core/permission"
	inmemdb "github.com/classoptima/backend/storage/database/inmem"
)

type fixture struct {
	svc      *menu.Service
	permRepo permission.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() error = %v", err)
	}
	return fixture{
		svc:      menu.NewService(inmemdb.NewMenuRepository(db)),
		permRepo: inmemdb.NewPermissionRepository(db),
	}
}

func (f fixture) createMenu(t *testing.T, name string, order int) menu.Menu {
	t.Helper()
	m, err := f.svc.Create(context.Background(), menu.NewMenu{
		Name: name, Route: "/" + name, Order: order,
	})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", name, err)
	}
	return m
}

func (f fixture) createSubmenu(t *testing.T, menuID int, name string) menu.Submenu {
	t.Helper()
	s, err := f.svc.CreateSubmenu(context.Background(), menu.NewSubmenu{
		MenuID: menuID, Name: name, Route: "/" + name, Order: 1,
	})
	if err != nil {
		t.Fatalf("CreateSubmenu(%s) error = %v", name, err)
	}
	return s
}

func (f fixture) grant(t *testing.T, roleID, menuID, submenuID int) {
	t.Helper()
	_, err := f.permRepo.CreatePermission(context.Background(), permission.Permission{
		RoleID: roleID, MenuID: menuID, SubmenuID: submenuID, CanView: true,
	})
	if err != nil {
		t.Fatalf("CreatePermission() error = %v", err)
	}
}

func TestService_QueryAll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cursos := f.createMenu(t, "Cursos", 2)
	f.createMenu(t, "Dashboard", 1)
	misCursos := f.createSubmenu(t, cursos.ID, "Mis Cursos")

	menus, err := f.svc.QueryAll(ctx)
	if err != nil {
		t.Fatalf("QueryAll() error = %v", err)
	}
	if len(menus) != 2 {
		t.Fatalf("len(menus) = %d, want 2", len(menus))
	}
	// ordered by `orden`
	if menus[0].Name != "Dashboard" || menus[1].Name != "Cursos" {
		t.Errorf("menus = [%s, %s], want [Dashboard, Cursos]", menus[0].Name, menus[1].Name)
	}
	if len(menus[1].Submenus) != 1 || menus[1].Submenus[0].ID != misCursos.ID {
		t.Errorf("Cursos submenus = %+v", menus[1].Submenus)
	}
	if len(menus[0].Submenus) != 0 {
		t.Errorf("Dashboard submenus = %+v", menus[0].Submenus)
	}
}

func TestService_CreateSubmenu_unknownMenu(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CreateSubmenu(context.Background(), menu.NewSubmenu{
		MenuID: 999, Name: "Huérfano", Route: "/huerfano",
	})
	if errors.Cause(err) != menu.ErrNotFound {
		t.Errorf("CreateSubmenu() error = %v, want %v", err, menu.ErrNotFound)
	}
}

func TestService_Update(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m := f.createMenu(t, "Pagos", 3)

	inactive := false
	updated, err := f.svc.Update(ctx, m.ID, menu.NewMenu{
		Name: "Pagos y Cobros", Icon: "payments", Route: "/pagos", Order: 5, IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Pagos y Cobros" || updated.Order != 5 || updated.IsActive {
		t.Errorf("updated = %+v", updated)
	}

	// inactive menus drop out of the listing
	menus, err := f.svc.QueryAll(ctx)
	if err != nil {
		t.Fatalf("QueryAll() error = %v", err)
	}
	if len(menus) != 0 {
		t.Errorf("len(menus) = %d, want 0", len(menus))
	}

	if _, err := f.svc.Update(ctx, 999, menu.NewMenu{Name: "X"}); errors.Cause(err) != menu.ErrNotFound {
		t.Errorf("Update(999) error = %v, want %v", err, menu.ErrNotFound)
	}
}

func TestService_Delete_cascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cursos := f.createMenu(t, "Cursos", 1)
	tareas := f.createMenu(t, "Tareas", 2)
	misCursos := f.createSubmenu(t, cursos.ID, "Mis Cursos")

	const roleID = 1
	f.grant(t, roleID, cursos.ID, 0)
	f.grant(t, roleID, cursos.ID, misCursos.ID)
	f.grant(t, roleID, tareas.ID, 0)

	if err := f.svc.Delete(ctx, cursos.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// the menu, its submenu and both their permission rows are gone
	subs, err := f.svc.QueryAllSubmenus(ctx)
	if err != nil {
		t.Fatalf("QueryAllSubmenus() error = %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("len(submenus) = %d, want 0", len(subs))
	}
	perms, err := f.permRepo.QueryPermissionsByRole(ctx, roleID)
	if err != nil {
		t.Fatalf("QueryPermissionsByRole() error = %v", err)
	}
	if len(perms) != 1 || perms[0].MenuID != tareas.ID {
		t.Errorf("perms = %+v, want only the Tareas row", perms)
	}

	if err := f.svc.Delete(ctx, cursos.ID); errors.Cause(err) != menu.ErrNotFound {
		t.Errorf("second Delete() error = %v, want %v", err, menu.ErrNotFound)
	}
}

func TestService_DeleteSubmenu_cascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cursos := f.createMenu(t, "Cursos", 1)
	misCursos := f.createSubmenu(t, cursos.ID, "Mis Cursos")

	const roleID = 1
	f.grant(t, roleID, cursos.ID, 0)
	f.grant(t, roleID, cursos.ID, misCursos.ID)

	if err := f.svc.DeleteSubmenu(ctx, misCursos.ID); err != nil {
		t.Fatalf("DeleteSubmenu() error = %v", err)
	}

	// the menu-level grant survives, the submenu row is gone
	perms, err := f.permRepo.QueryPermissionsByRole(ctx, roleID)
	if err != nil {
		t.Fatalf("QueryPermissionsByRole() error = %v", err)
	}
	if len(perms) != 1 || perms[0].SubmenuID != 0 {
		t.Errorf("perms = %+v, want only the menu-level row", perms)
	}

	if err := f.svc.DeleteSubmenu(ctx, misCursos.ID); errors.Cause(err) != menu.ErrSubmenuNotFound {
		t.Errorf("second DeleteSubmenu() error = %v, want %v", err, menu.ErrSubmenuNotFound)
	}
}
