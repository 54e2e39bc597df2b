package permission

import (
	"context"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/menu"
	"github.com/classoptima/backend/core/role"
)

var (
	// errors
	ErrNotFound        = errors.New("permiso no encontrado")
	ErrInvalidField    = errors.New("campo de permiso inválido")
	ErrBadTarget       = errors.New("se debe indicar un menú o un submenú, no ambos")
	ErrDuplicateTarget = errors.New("el mismo menú o submenú aparece más de una vez")
)

type (
	Repository interface {
		QueryPermissionsByRole(ctx context.Context, roleID int) ([]Permission, error)
		GetPermission(ctx context.Context, roleID, menuID, submenuID int) (Permission, error)
		CreatePermission(ctx context.Context, p Permission) (Permission, error)
		UpdatePermission(ctx context.Context, p Permission) (Permission, error)
		// ReplaceRolePermissions deletes the role's existing rows and inserts
		// the given set within one transaction; on failure the previous rows
		// remain intact.
		ReplaceRolePermissions(ctx context.Context, roleID int, perms []Permission) error
	}

	// RoleDirectory is the slice of the role store this service needs.
	RoleDirectory interface {
		QueryActiveRoles(ctx context.Context) ([]role.Role, error)
		GetRoleByID(ctx context.Context, id int) (role.Role, error)
	}

	// MenuCatalog is the slice of the menu store this service needs.
	MenuCatalog interface {
		QueryActiveMenus(ctx context.Context) ([]menu.Menu, error)
		QueryActiveSubmenus(ctx context.Context) ([]menu.Submenu, error)
		GetMenuByID(ctx context.Context, id int) (menu.Menu, error)
		GetSubmenuByID(ctx context.Context, id int) (menu.Submenu, error)
	}

	Service struct {
		repo  Repository
		roles RoleDirectory
		menus MenuCatalog
	}
)

func NewService(repo Repository, roles RoleDirectory, menus MenuCatalog) *Service {
	return &Service{
		repo:  repo,
		roles: roles,
		menus: menus,
	}
}

// ForRole returns the raw permission rows of a role.
func (svc *Service) ForRole(ctx context.Context, roleID int) ([]Permission, error) {
	if _, err := svc.roles.GetRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPermissionsByRole(ctx, roleID)
}

// MenusForRole resolves the navigation a role is allowed to see: active
// menus whose row grants puede_ver, each carrying only the submenus the role
// may also view. A submenu never inherits visibility from its parent menu.
func (svc *Service) MenusForRole(ctx context.Context, roleID int) ([]menu.Menu, error) {
	if _, err := svc.roles.GetRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	perms, err := svc.repo.QueryPermissionsByRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	menuViewable := make(map[int]bool)
	submenuViewable := make(map[int]bool)
	for _, p := range perms {
		if !p.CanView {
			continue
		}
		if p.SubmenuID != 0 {
			submenuViewable[p.SubmenuID] = true
		} else if p.MenuID != 0 {
			menuViewable[p.MenuID] = true
		}
	}

	all, err := svc.menus.QueryActiveMenus(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := svc.menus.QueryActiveSubmenus(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]menu.Menu, 0, len(all))
	for _, m := range all {
		if !menuViewable[m.ID] {
			continue
		}
		m.Submenus = nil
		for _, s := range subs {
			if s.MenuID == m.ID && submenuViewable[s.ID] {
				m.Submenus = append(m.Submenus, s)
			}
		}
		visible = append(visible, m)
	}
	return visible, nil
}

// Matrix builds the dense administration view: the cross product of active
// roles and active menus, menu-level rows only. Pairs without a stored row
// appear with every capability false.
func (svc *Service) Matrix(ctx context.Context) ([]MatrixCell, error) {
	roles, err := svc.roles.QueryActiveRoles(ctx)
	if err != nil {
		return nil, err
	}
	menus, err := svc.menus.QueryActiveMenus(ctx)
	if err != nil {
		return nil, err
	}

	cells := make([]MatrixCell, 0, len(roles)*len(menus))
	for _, r := range roles {
		perms, err := svc.repo.QueryPermissionsByRole(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		byMenu := make(map[int]Permission)
		for _, p := range perms {
			if p.SubmenuID == 0 && p.MenuID != 0 {
				byMenu[p.MenuID] = p
			}
		}

		for _, m := range menus {
			p := byMenu[m.ID] // zero value when absent
			cells = append(cells, MatrixCell{
				RoleID:    r.ID,
				RoleName:  r.Name,
				MenuID:    m.ID,
				MenuName:  m.Name,
				CanView:   p.CanView,
				CanCreate: p.CanCreate,
				CanEdit:   p.CanEdit,
				CanDelete: p.CanDelete,
			})
		}
	}
	return cells, nil
}

// Replace swaps a role's entire permission set for the given entries in one
// transaction. An entry left without an explicit puede_ver is granted view;
// two entries naming the same target are rejected.
func (svc *Service) Replace(ctx context.Context, a Assignment) error {
	if _, err := svc.roles.GetRoleByID(ctx, a.RoleID); err != nil {
		return err
	}

	perms := make([]Permission, 0, len(a.Entries))
	seen := make(map[[2]int]bool, len(a.Entries))
	for _, e := range a.Entries {
		if err := svc.checkTarget(ctx, e.MenuID, e.SubmenuID); err != nil {
			return err
		}
		target := [2]int{e.MenuID, e.SubmenuID}
		if seen[target] {
			return core.NewValidationError(ErrDuplicateTarget, core.FieldError{
				Field: "permisos",
				Error: ErrDuplicateTarget.Error(),
			})
		}
		seen[target] = true
		p := Permission{
			RoleID:    a.RoleID,
			MenuID:    e.MenuID,
			SubmenuID: e.SubmenuID,
			CanView:   true,
			CanCreate: e.CanCreate,
			CanEdit:   e.CanEdit,
			CanDelete: e.CanDelete,
		}
		if e.CanView != nil {
			p.CanView = *e.CanView
		}
		perms = append(perms, p)
	}
	return svc.repo.ReplaceRolePermissions(ctx, a.RoleID, perms)
}

// SetSingle flips one capability on a role's menu-level row, creating the row
// with every other capability false when none exists yet.
func (svc *Service) SetSingle(ctx context.Context, su SingleUpdate) (Permission, error) {
	if !ValidField(su.Field) {
		return Permission{}, core.NewValidationError(ErrInvalidField, core.FieldError{
			Field: "campo",
			Error: ErrInvalidField.Error(),
		})
	}
	if _, err := svc.roles.GetRoleByID(ctx, su.RoleID); err != nil {
		return Permission{}, err
	}
	if _, err := svc.menus.GetMenuByID(ctx, su.MenuID); err != nil {
		return Permission{}, err
	}

	p, err := svc.repo.GetPermission(ctx, su.RoleID, su.MenuID, 0)
	switch errors.Cause(err) {
	case nil:
		setField(&p, su.Field, su.Value)
		return svc.repo.UpdatePermission(ctx, p)
	case ErrNotFound:
		p = Permission{
			RoleID: su.RoleID,
			MenuID: su.MenuID,
		}
		setField(&p, su.Field, su.Value)
		return svc.repo.CreatePermission(ctx, p)
	default:
		return Permission{}, err
	}
}

func (svc *Service) checkTarget(ctx context.Context, menuID, submenuID int) error {
	switch {
	case menuID != 0 && submenuID != 0, menuID == 0 && submenuID == 0:
		return core.NewValidationError(ErrBadTarget, core.FieldError{
			Field: "menu_id",
			Error: ErrBadTarget.Error(),
		})
	case submenuID != 0:
		_, err := svc.menus.GetSubmenuByID(ctx, submenuID)
		return err
	default:
		_, err := svc.menus.GetMenuByID(ctx, menuID)
		return err
	}
}

func setField(p *Permission, field string, value bool) {
	switch field {
	case FieldCanView:
		p.CanView = value
	case FieldCanCreate:
		p.CanCreate = value
	case FieldCanEdit:
		p.CanEdit = value
	case FieldCanDelete:
		p.CanDelete = value
	}
}
