package inmemdb

import (
	"context"
	"sort"

	"github.com/classoptima/backend/core/permission"
)

type permissionRepository struct {
	db *DB
}

var _ permission.Repository = (*permissionRepository)(nil) // interface compliance check

func NewPermissionRepository(db *DB) permission.Repository {
	return &permissionRepository{db: db}
}

func (repo *permissionRepository) withNames(p permission.Permission) permission.Permission {
	repo.db.role.RLock()
	if r, ok := repo.db.role.rows[p.RoleID]; ok {
		p.RoleName = r.Name
	}
	repo.db.role.RUnlock()

	repo.db.menu.RLock()
	if m, ok := repo.db.menu.rows[p.MenuID]; ok {
		p.MenuName = m.Name
	}
	repo.db.menu.RUnlock()

	if p.SubmenuID != 0 {
		repo.db.submenu.RLock()
		if s, ok := repo.db.submenu.rows[p.SubmenuID]; ok {
			p.SubmenuName = s.Name
			repo.db.menu.RLock()
			if m, ok := repo.db.menu.rows[s.MenuID]; ok && p.MenuName == "" {
				p.MenuName = m.Name
			}
			repo.db.menu.RUnlock()
		}
		repo.db.submenu.RUnlock()
	}
	return p
}

func (repo *permissionRepository) QueryPermissionsByRole(ctx context.Context, roleID int) ([]permission.Permission, error) {
	repo.db.permission.RLock()
	defer repo.db.permission.RUnlock()

	perms := make([]permission.Permission, 0)
	for _, p := range repo.db.permission.query() {
		if p.RoleID == roleID {
			perms = append(perms, repo.withNames(p))
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].ID < perms[j].ID })
	return perms, nil
}

func (repo *permissionRepository) GetPermission(ctx context.Context, roleID, menuID, submenuID int) (permission.Permission, error) {
	repo.db.permission.RLock()
	defer repo.db.permission.RUnlock()

	for _, p := range repo.db.permission.query() {
		if p.RoleID != roleID {
			continue
		}
		if submenuID != 0 {
			if p.SubmenuID == submenuID {
				return repo.withNames(p), nil
			}
			continue
		}
		if p.MenuID == menuID && p.SubmenuID == 0 {
			return repo.withNames(p), nil
		}
	}
	return permission.Permission{}, permission.ErrNotFound
}

func (repo *permissionRepository) CreatePermission(ctx context.Context, p permission.Permission) (permission.Permission, error) {
	repo.db.permission.Lock()
	defer repo.db.permission.Unlock()

	p.ID = repo.db.permission.nextPK()
	repo.db.permission.rows[p.ID] = &p
	return p, nil
}

func (repo *permissionRepository) UpdatePermission(ctx context.Context, p permission.Permission) (permission.Permission, error) {
	repo.db.permission.Lock()
	defer repo.db.permission.Unlock()

	if _, ok := repo.db.permission.rows[p.ID]; !ok {
		return permission.Permission{}, permission.ErrNotFound
	}
	repo.db.permission.rows[p.ID] = &p
	return p, nil
}

func (repo *permissionRepository) ReplaceRolePermissions(ctx context.Context, roleID int, perms []permission.Permission) error {
	repo.db.permission.Lock()
	defer repo.db.permission.Unlock()

	for id, p := range repo.db.permission.rows {
		if p.RoleID == roleID {
			delete(repo.db.permission.rows, id)
		}
	}
	for _, p := range perms {
		p := p
		p.ID = repo.db.permission.nextPK()
		p.RoleID = roleID
		repo.db.permission.rows[p.ID] = &p
	}
	return nil
}
