package inmemdb

import (
	"context"
	"sort"

	"github.com/classoptima/backend/core/role"
)

type roleRepository struct {
	db *DB
}

var _ role.Repository = (*roleRepository)(nil) // interface compliance check

func NewRoleRepository(db *DB) role.Repository {
	return &roleRepository{db: db}
}

func (repo *roleRepository) CreateRole(ctx context.Context, r role.Role) (role.Role, error) {
	repo.db.role.Lock()
	defer repo.db.role.Unlock()

	for _, existing := range repo.db.role.query() {
		if existing.Name == r.Name {
			return role.Role{}, role.ErrNameExists
		}
	}
	r.ID = repo.db.role.nextPK()
	repo.db.role.rows[r.ID] = &r
	return r, nil
}

func (repo *roleRepository) QueryAllRoles(ctx context.Context) ([]role.Role, error) {
	repo.db.role.RLock()
	defer repo.db.role.RUnlock()

	roles := repo.db.role.query()
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func (repo *roleRepository) QueryActiveRoles(ctx context.Context) ([]role.Role, error) {
	repo.db.role.RLock()
	defer repo.db.role.RUnlock()

	roles := make([]role.Role, 0)
	for _, r := range repo.db.role.query() {
		if r.IsActive {
			roles = append(roles, r)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func (repo *roleRepository) GetRoleByID(ctx context.Context, id int) (role.Role, error) {
	repo.db.role.RLock()
	defer repo.db.role.RUnlock()

	if r, ok := repo.db.role.rows[id]; ok {
		return *r, nil
	}
	return role.Role{}, role.ErrNotFound
}

func (repo *roleRepository) UpdateRole(ctx context.Context, r role.Role) (role.Role, error) {
	repo.db.role.Lock()
	defer repo.db.role.Unlock()

	if _, ok := repo.db.role.rows[r.ID]; !ok {
		return role.Role{}, role.ErrNotFound
	}
	for _, existing := range repo.db.role.query() {
		if existing.ID != r.ID && existing.Name == r.Name {
			return role.Role{}, role.ErrNameExists
		}
	}
	repo.db.role.rows[r.ID] = &r
	return r, nil
}

func (repo *roleRepository) DeleteRole(ctx context.Context, id int) error {
	repo.db.role.Lock()
	defer repo.db.role.Unlock()

	if _, ok := repo.db.role.rows[id]; !ok {
		return role.ErrNotFound
	}
	delete(repo.db.role.rows, id)
	return nil
}

func (repo *roleRepository) CountUsersWithRole(ctx context.Context, id int) (int, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	var count int
	for _, usr := range repo.db.user.query() {
		if usr.RoleID == id {
			count++
		}
	}
	return count, nil
}
