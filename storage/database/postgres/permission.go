package postgres

import (
	"context"
	"database/sql"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/permission"
)

type permissionRow struct {
	ID          int            `db:"id"`
	RoleID      int            `db:"rol_id"`
	MenuID      sql.NullInt64  `db:"menu_id"`
	SubmenuID   sql.NullInt64  `db:"submenu_id"`
	CanView     bool           `db:"puede_ver"`
	CanCreate   bool           `db:"puede_crear"`
	CanEdit     bool           `db:"puede_editar"`
	CanDelete   bool           `db:"puede_eliminar"`
	RoleName    sql.NullString `db:"rol_nombre"`
	MenuName    sql.NullString `db:"menu_nombre"`
	SubmenuName sql.NullString `db:"submenu_nombre"`
}

func (r permissionRow) toPermission() permission.Permission {
	return permission.Permission{
		ID:          r.ID,
		RoleID:      r.RoleID,
		MenuID:      int(r.MenuID.Int64),
		SubmenuID:   int(r.SubmenuID.Int64),
		CanView:     r.CanView,
		CanCreate:   r.CanCreate,
		CanEdit:     r.CanEdit,
		CanDelete:   r.CanDelete,
		RoleName:    r.RoleName.String,
		MenuName:    r.MenuName.String,
		SubmenuName: r.SubmenuName.String,
	}
}

type permissionRepository struct {
	db core.DB
}

var _ permission.Repository = (*permissionRepository)(nil) // interface compliance check

func NewPermissionRepository(db core.DB) *permissionRepository {
	return &permissionRepository{db: db}
}

func (repo *permissionRepository) QueryPermissionsByRole(ctx context.Context, roleID int) ([]permission.Permission, error) {
	query := `
	SELECT
		p.id, p.rol_id, p.menu_id, p.submenu_id,
		p.puede_ver, p.puede_crear, p.puede_editar, p.puede_eliminar,
		r.nombre AS rol_nombre,
		COALESCE(m.nombre, pm.nombre) AS menu_nombre,
		s.nombre AS submenu_nombre
	FROM permisos p
	INNER JOIN roles r ON p.rol_id = r.id
	LEFT JOIN menus m ON p.menu_id = m.id
	LEFT JOIN submenus s ON p.submenu_id = s.id
	LEFT JOIN menus pm ON s.menu_id = pm.id
	WHERE p.rol_id = $1
	ORDER BY COALESCE(m.orden, pm.orden), s.orden NULLS FIRST`

	var rows []permissionRow
	if err := repo.db.SelectContext(ctx, &rows, query, roleID); err != nil {
		return nil, trapErr(err, "querying role permissions", permission.ErrNotFound, nil)
	}
	perms := make([]permission.Permission, 0, len(rows))
	for _, r := range rows {
		perms = append(perms, r.toPermission())
	}
	return perms, nil
}

func (repo *permissionRepository) GetPermission(ctx context.Context, roleID, menuID, submenuID int) (permission.Permission, error) {
	query := `
	SELECT p.id, p.rol_id, p.menu_id, p.submenu_id,
	       p.puede_ver, p.puede_crear, p.puede_editar, p.puede_eliminar
	FROM permisos p
	WHERE p.rol_id = $1`
	args := []interface{}{roleID}
	if submenuID != 0 {
		query += ` AND p.submenu_id = $2`
		args = append(args, submenuID)
	} else {
		query += ` AND p.menu_id = $2 AND p.submenu_id IS NULL`
		args = append(args, menuID)
	}

	var r permissionRow
	if err := repo.db.GetContext(ctx, &r, query, args...); err != nil {
		return permission.Permission{}, trapErr(err, "getting permission", permission.ErrNotFound, nil)
	}
	return r.toPermission(), nil
}

func (repo *permissionRepository) CreatePermission(ctx context.Context, p permission.Permission) (permission.Permission, error) {
	query := `
	INSERT INTO permisos (rol_id, menu_id, submenu_id, puede_ver, puede_crear, puede_editar, puede_eliminar)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		p.RoleID, nullInt(p.MenuID), nullInt(p.SubmenuID),
		p.CanView, p.CanCreate, p.CanEdit, p.CanDelete,
	).Scan(&p.ID)
	if err != nil {
		return permission.Permission{}, trapErr(err, "creating permission", permission.ErrNotFound, nil)
	}
	return p, nil
}

func (repo *permissionRepository) UpdatePermission(ctx context.Context, p permission.Permission) (permission.Permission, error) {
	query := `
	UPDATE permisos
	SET puede_ver = $1, puede_crear = $2, puede_editar = $3, puede_eliminar = $4
	WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query, p.CanView, p.CanCreate, p.CanEdit, p.CanDelete, p.ID)
	if err != nil {
		return permission.Permission{}, trapErr(err, "updating permission", permission.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return permission.Permission{}, permission.ErrNotFound
	}
	return p, nil
}

// ReplaceRolePermissions deletes the role's rows and bulk-inserts the new
// set; the transaction guarantees the old rows survive any failure.
func (repo *permissionRepository) ReplaceRolePermissions(ctx context.Context, roleID int, perms []permission.Permission) error {
	return core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM permisos WHERE rol_id = $1`, roleID); err != nil {
			return trapErr(err, "deleting role permissions", permission.ErrNotFound, nil)
		}
		query := `
		INSERT INTO permisos (rol_id, menu_id, submenu_id, puede_ver, puede_crear, puede_editar, puede_eliminar)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
		for _, p := range perms {
			_, err := tx.ExecContext(ctx, query,
				roleID, nullInt(p.MenuID), nullInt(p.SubmenuID),
				p.CanView, p.CanCreate, p.CanEdit, p.CanDelete,
			)
			if err != nil {
				return trapErr(err, "inserting role permission", permission.ErrNotFound, nil)
			}
		}
		return nil
	})
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}
