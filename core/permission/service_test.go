package permission_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/menu"
	"github.com/classoptima/backend/core/permission"
	"github.com/classoptima/backend/core/role"
	inmemdb "github.com/classoptima/backend/storage/database/inmem"
)

type fixture struct {
	svc      *permission.Service
	roleRepo role.Repository
	menuRepo menu.Repository
	permRepo permission.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() error = %v", err)
	}
	roleRepo := inmemdb.NewRoleRepository(db)
	menuRepo := inmemdb.NewMenuRepository(db)
	permRepo := inmemdb.NewPermissionRepository(db)
	return fixture{
		svc:      permission.NewService(permRepo, roleRepo, menuRepo),
		roleRepo: roleRepo,
		menuRepo: menuRepo,
		permRepo: permRepo,
	}
}

func (f fixture) createRole(t *testing.T, name string) role.Role {
	t.Helper()
	r, err := f.roleRepo.CreateRole(context.Background(), role.Role{
		Name: name, IsActive: true, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateRole(%s) error = %v", name, err)
	}
	return r
}

func (f fixture) createMenu(t *testing.T, name string, order int) menu.Menu {
	t.Helper()
	m, err := f.menuRepo.CreateMenu(context.Background(), menu.Menu{
		Name: name, Route: "/" + name, Order: order, IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateMenu(%s) error = %v", name, err)
	}
	return m
}

func (f fixture) createSubmenu(t *testing.T, menuID int, name string) menu.Submenu {
	t.Helper()
	s, err := f.menuRepo.CreateSubmenu(context.Background(), menu.Submenu{
		MenuID: menuID, Name: name, Route: "/" + name, Order: 1, IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateSubmenu(%s) error = %v", name, err)
	}
	return s
}

func boolPtr(b bool) *bool { return &b }

func TestService_Matrix(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	admin := f.createRole(t, "Admin")
	student := f.createRole(t, "Alumno")
	usuarios := f.createMenu(t, "Usuarios", 1)
	cursos := f.createMenu(t, "Cursos", 2)

	err := f.svc.Replace(ctx, permission.Assignment{
		RoleID:  admin.ID,
		Entries: []permission.Entry{{MenuID: usuarios.ID, CanCreate: true}},
	})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	cells, err := f.svc.Matrix(ctx)
	if err != nil {
		t.Fatalf("Matrix() error = %v", err)
	}
	// every active role appears for every active menu
	if want := 4; len(cells) != want {
		t.Fatalf("Matrix() len = %d, want %d", len(cells), want)
	}

	byKey := make(map[[2]int]permission.MatrixCell, len(cells))
	for _, c := range cells {
		byKey[[2]int{c.RoleID, c.MenuID}] = c
	}

	granted := byKey[[2]int{admin.ID, usuarios.ID}]
	if !granted.CanView || !granted.CanCreate || granted.CanEdit || granted.CanDelete {
		t.Errorf("granted cell = %+v", granted)
	}
	for _, key := range [][2]int{
		{admin.ID, cursos.ID},
		{student.ID, usuarios.ID},
		{student.ID, cursos.ID},
	} {
		c := byKey[key]
		if c.CanView || c.CanCreate || c.CanEdit || c.CanDelete {
			t.Errorf("cell %v should have every capability false, got %+v", key, c)
		}
	}
}

func TestService_Replace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	admin := f.createRole(t, "Admin")
	usuarios := f.createMenu(t, "Usuarios", 1)
	cursos := f.createMenu(t, "Cursos", 2)
	misCursos := f.createSubmenu(t, cursos.ID, "Mis Cursos")

	assignment := permission.Assignment{
		RoleID: admin.ID,
		Entries: []permission.Entry{
			{MenuID: usuarios.ID, CanCreate: true, CanEdit: true},
			{MenuID: cursos.ID, CanView: boolPtr(false)},
			{SubmenuID: misCursos.ID},
		},
	}
	if err := f.svc.Replace(ctx, assignment); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	perms, err := f.svc.ForRole(ctx, admin.ID)
	if err != nil {
		t.Fatalf("ForRole() error = %v", err)
	}
	if len(perms) != 3 {
		t.Fatalf("ForRole() len = %d, want 3", len(perms))
	}
	for _, p := range perms {
		switch {
		case p.MenuID == usuarios.ID:
			// omitted puede_ver defaults to granted
			if !p.CanView || !p.CanCreate || !p.CanEdit || p.CanDelete {
				t.Errorf("usuarios row = %+v", p)
			}
		case p.MenuID == cursos.ID:
			if p.CanView {
				t.Errorf("explicit puede_ver=false was ignored: %+v", p)
			}
		case p.SubmenuID == misCursos.ID:
			if !p.CanView {
				t.Errorf("submenu row = %+v", p)
			}
		default:
			t.Errorf("unexpected row %+v", p)
		}
	}

	// a second replace swaps the whole set
	err = f.svc.Replace(ctx, permission.Assignment{
		RoleID:  admin.ID,
		Entries: []permission.Entry{{MenuID: usuarios.ID}},
	})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	perms, _ = f.svc.ForRole(ctx, admin.ID)
	if len(perms) != 1 {
		t.Fatalf("ForRole() after second Replace() len = %d, want 1", len(perms))
	}

	// exactly one of menu_id/submenu_id must identify the target
	for _, entry := range []permission.Entry{
		{MenuID: usuarios.ID, SubmenuID: misCursos.ID},
		{},
	} {
		err = f.svc.Replace(ctx, permission.Assignment{RoleID: admin.ID, Entries: []permission.Entry{entry}})
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Replace(%+v) error = %v, want ValidationError", entry, err)
		}
	}

	// a target may appear only once per assignment
	for _, entries := range [][]permission.Entry{
		{{MenuID: usuarios.ID, CanCreate: true}, {MenuID: usuarios.ID, CanDelete: true}},
		{{SubmenuID: misCursos.ID}, {SubmenuID: misCursos.ID, CanEdit: true}},
	} {
		err = f.svc.Replace(ctx, permission.Assignment{RoleID: admin.ID, Entries: entries})
		var dupErr *core.ValidationError
		if !errors.As(err, &dupErr) || dupErr.Err != permission.ErrDuplicateTarget {
			t.Errorf("Replace() duplicate target error = %v, want %v", err, permission.ErrDuplicateTarget)
		}
	}
	perms, _ = f.svc.ForRole(ctx, admin.ID)
	if len(perms) != 1 {
		t.Fatalf("rows for role after rejected assignments = %d, want 1", len(perms))
	}

	err = f.svc.Replace(ctx, permission.Assignment{RoleID: 999, Entries: []permission.Entry{{MenuID: usuarios.ID}}})
	if errors.Cause(err) != role.ErrNotFound {
		t.Errorf("Replace() unknown role error = %v, want %v", err, role.ErrNotFound)
	}
	err = f.svc.Replace(ctx, permission.Assignment{RoleID: admin.ID, Entries: []permission.Entry{{MenuID: 999}}})
	if errors.Cause(err) != menu.ErrNotFound {
		t.Errorf("Replace() unknown menu error = %v, want %v", err, menu.ErrNotFound)
	}
}

func TestService_SetSingle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	admin := f.createRole(t, "Admin")
	usuarios := f.createMenu(t, "Usuarios", 1)

	_, err := f.svc.SetSingle(ctx, permission.SingleUpdate{
		RoleID: admin.ID, MenuID: usuarios.ID, Field: "puede_volar", Value: true,
	})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("SetSingle() unknown field error = %v, want ValidationError", err)
	}

	// no row yet: created with only the named capability
	p, err := f.svc.SetSingle(ctx, permission.SingleUpdate{
		RoleID: admin.ID, MenuID: usuarios.ID, Field: permission.FieldCanView, Value: true,
	})
	if err != nil {
		t.Fatalf("SetSingle() error = %v", err)
	}
	if !p.CanView || p.CanCreate || p.CanEdit || p.CanDelete {
		t.Errorf("created row = %+v", p)
	}

	// flipping another capability leaves puede_ver intact
	p, err = f.svc.SetSingle(ctx, permission.SingleUpdate{
		RoleID: admin.ID, MenuID: usuarios.ID, Field: permission.FieldCanDelete, Value: true,
	})
	if err != nil {
		t.Fatalf("SetSingle() error = %v", err)
	}
	if !p.CanView || !p.CanDelete || p.CanCreate || p.CanEdit {
		t.Errorf("updated row = %+v", p)
	}

	p, err = f.svc.SetSingle(ctx, permission.SingleUpdate{
		RoleID: admin.ID, MenuID: usuarios.ID, Field: permission.FieldCanView, Value: false,
	})
	if err != nil {
		t.Fatalf("SetSingle() error = %v", err)
	}
	if p.CanView || !p.CanDelete {
		t.Errorf("revoked row = %+v", p)
	}
}

func TestService_MenusForRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	student := f.createRole(t, "Alumno")
	cursos := f.createMenu(t, "Cursos", 1)
	pagos := f.createMenu(t, "Pagos", 2)
	f.createMenu(t, "Usuarios", 3)
	misCursos := f.createSubmenu(t, cursos.ID, "Mis Cursos")
	f.createSubmenu(t, cursos.ID, "Inscripciones")
	misPagos := f.createSubmenu(t, pagos.ID, "Mis Pagos")

	err := f.svc.Replace(ctx, permission.Assignment{
		RoleID: student.ID,
		Entries: []permission.Entry{
			{MenuID: cursos.ID},
			{SubmenuID: misCursos.ID},
			// a submenu grant without its parent menu grant shows nothing
			{SubmenuID: misPagos.ID},
		},
	})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	menus, err := f.svc.MenusForRole(ctx, student.ID)
	if err != nil {
		t.Fatalf("MenusForRole() error = %v", err)
	}
	if len(menus) != 1 {
		t.Fatalf("MenusForRole() len = %d, want 1", len(menus))
	}
	if menus[0].ID != cursos.ID {
		t.Errorf("visible menu = %+v, want Cursos", menus[0])
	}
	// only the granted submenu is attached, never inherited
	if len(menus[0].Submenus) != 1 || menus[0].Submenus[0].ID != misCursos.ID {
		t.Errorf("visible submenus = %+v", menus[0].Submenus)
	}

	if _, err = f.svc.MenusForRole(ctx, 999); errors.Cause(err) != role.ErrNotFound {
		t.Errorf("MenusForRole() unknown role error = %v, want %v", err, role.ErrNotFound)
	}
}
