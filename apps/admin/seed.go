package main

import (
	"context"
	"time"

	"github.com/classoptima/backend/core/menu"
	"github.com/classoptima/backend/core/permission"
	"github.com/classoptima/backend/core/role"
	"github.com/classoptima/backend/core/user"
)

const (
	defaultAdminEmail    = "admin@classoptima.com"
	defaultAdminPassword = "admin123"
)

// seed inserts the baseline catalog: the five roles, the navigation menus
// and full Admin permissions, plus a default Admin account. It refuses to
// run twice.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	if roles, err := cli.roleRepo.QueryAllRoles(ctx); err != nil {
		return err
	} else if len(roles) > 0 {
		logger.Println("roles already present; nothing to do")
		return nil
	}

	roleNames := map[user.RoleName]string{
		user.RoleAdmin:    "Acceso total al sistema",
		user.RoleDirector: "Gestión académica y administrativa",
		user.RoleTeacher:  "Gestión de cursos, tareas y calificaciones",
		user.RoleStudent:  "Consulta de cursos, tareas y pagos",
		user.RoleParent:   "Consulta de información de sus hijos",
	}
	roleIDs := make(map[user.RoleName]int, len(roleNames))
	for _, name := range user.AllRoleNames {
		r, err := cli.roleRepo.CreateRole(ctx, role.Role{
			Name:        name.String(),
			Description: roleNames[name],
			IsActive:    true,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		roleIDs[name] = r.ID
	}

	menus := []menu.Menu{
		{Name: "Dashboard", Icon: "dashboard", Route: "/dashboard", Order: 1},
		{Name: "Usuarios", Icon: "people", Route: "/usuarios", Order: 2},
		{Name: "Roles", Icon: "admin_panel_settings", Route: "/roles", Order: 3},
		{Name: "Menús", Icon: "menu", Route: "/menus", Order: 4},
		{Name: "Permisos", Icon: "lock", Route: "/permisos", Order: 5},
		{Name: "Materias", Icon: "book", Route: "/materias", Order: 6},
		{Name: "Cursos", Icon: "school", Route: "/cursos", Order: 7},
		{Name: "Calificaciones", Icon: "grade", Route: "/calificaciones", Order: 8},
		{Name: "Asistencia", Icon: "event_available", Route: "/asistencia", Order: 9},
		{Name: "Tareas", Icon: "assignment", Route: "/tareas", Order: 10},
		{Name: "Pagos", Icon: "payments", Route: "/pagos", Order: 11},
		{Name: "Configuración", Icon: "settings", Route: "/configuracion", Order: 12},
	}
	menuIDs := make(map[string]int, len(menus))
	for _, m := range menus {
		m.IsActive = true
		created, err := cli.menuRepo.CreateMenu(ctx, m)
		if err != nil {
			return err
		}
		menuIDs[m.Name] = created.ID
	}

	submenus := []menu.Submenu{
		{Name: "Mis Cursos", Route: "/cursos/mis-cursos", Order: 1, MenuID: menuIDs["Cursos"]},
		{Name: "Mis Tareas", Route: "/tareas/mis-tareas", Order: 1, MenuID: menuIDs["Tareas"]},
		{Name: "Mis Pagos", Route: "/pagos/mis-pagos", Order: 1, MenuID: menuIDs["Pagos"]},
	}
	createdSubs := make([]menu.Submenu, 0, len(submenus))
	for _, s := range submenus {
		s.IsActive = true
		created, err := cli.menuRepo.CreateSubmenu(ctx, s)
		if err != nil {
			return err
		}
		createdSubs = append(createdSubs, created)
	}

	// full Admin access: one row per menu, one per submenu
	adminID := roleIDs[user.RoleAdmin]
	for _, id := range menuIDs {
		p := permission.Permission{
			RoleID: adminID, MenuID: id,
			CanView: true, CanCreate: true, CanEdit: true, CanDelete: true,
		}
		if _, err := cli.permRepo.CreatePermission(ctx, p); err != nil {
			return err
		}
	}
	for _, s := range createdSubs {
		p := permission.Permission{
			RoleID: adminID, MenuID: s.MenuID, SubmenuID: s.ID,
			CanView: true, CanCreate: true, CanEdit: true, CanDelete: true,
		}
		if _, err := cli.permRepo.CreatePermission(ctx, p); err != nil {
			return err
		}
	}

	if err := cli.addUser(defaultAdminEmail, "Administrador", "Sistema", defaultAdminPassword); err != nil {
		return err
	}

	logger.Println("baseline data inserted")
	logger.Printf("Admin account: %s / %s (change this password)", defaultAdminEmail, defaultAdminPassword)
	return nil
}
