package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/role"
)

type roleRow struct {
	ID          int            `db:"id"`
	Name        string         `db:"nombre"`
	Description sql.NullString `db:"descripcion"`
	IsActive    bool           `db:"activo"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r roleRow) toRole() role.Role {
	return role.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
	}
}

type roleRepository struct {
	db core.DB
}

var _ role.Repository = (*roleRepository)(nil) // interface compliance check

func NewRoleRepository(db core.DB) *roleRepository {
	return &roleRepository{db: db}
}

func (repo *roleRepository) CreateRole(ctx context.Context, r role.Role) (role.Role, error) {
	query := `
	INSERT INTO roles (nombre, descripcion, activo, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		r.Name, nullStr(r.Description), r.IsActive, r.CreatedAt,
	).Scan(&r.ID)
	if err != nil {
		return role.Role{}, trapErr(err, "creating role", role.ErrNotFound, role.ErrNameExists)
	}
	return r, nil
}

func (repo *roleRepository) QueryAllRoles(ctx context.Context) ([]role.Role, error) {
	return repo.queryRoles(ctx, `SELECT * FROM roles ORDER BY nombre`)
}

func (repo *roleRepository) QueryActiveRoles(ctx context.Context) ([]role.Role, error) {
	return repo.queryRoles(ctx, `SELECT * FROM roles WHERE activo = TRUE ORDER BY nombre`)
}

func (repo *roleRepository) queryRoles(ctx context.Context, query string) ([]role.Role, error) {
	var rows []roleRow
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, trapErr(err, "querying roles", role.ErrNotFound, nil)
	}
	roles := make([]role.Role, 0, len(rows))
	for _, r := range rows {
		roles = append(roles, r.toRole())
	}
	return roles, nil
}

func (repo *roleRepository) GetRoleByID(ctx context.Context, id int) (role.Role, error) {
	var r roleRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM roles WHERE id = $1`, id); err != nil {
		return role.Role{}, trapErr(err, "getting role by id", role.ErrNotFound, nil)
	}
	return r.toRole(), nil
}

func (repo *roleRepository) UpdateRole(ctx context.Context, r role.Role) (role.Role, error) {
	query := `UPDATE roles SET nombre = $1, descripcion = $2, activo = $3 WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, query, r.Name, nullStr(r.Description), r.IsActive, r.ID)
	if err != nil {
		return role.Role{}, trapErr(err, "updating role", role.ErrNotFound, role.ErrNameExists)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return role.Role{}, role.ErrNotFound
	}
	return r, nil
}

func (repo *roleRepository) DeleteRole(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return trapErr(err, "deleting role", role.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return role.ErrNotFound
	}
	return nil
}

func (repo *roleRepository) CountUsersWithRole(ctx context.Context, id int) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM usuarios WHERE rol_id = $1`, id)
	if err != nil {
		return 0, trapErr(err, "counting role users", role.ErrNotFound, nil)
	}
	return count, nil
}
