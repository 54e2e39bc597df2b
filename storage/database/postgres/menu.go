package postgres

import (
	"context"
	"database/sql"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/menu"
)

type menuRow struct {
	ID       int            `db:"id"`
	Name     string         `db:"nombre"`
	Icon     sql.NullString `db:"icono"`
	Route    sql.NullString `db:"ruta"`
	Order    int            `db:"orden"`
	IsActive bool           `db:"activo"`
}

func (r menuRow) toMenu() menu.Menu {
	return menu.Menu{
		ID:       r.ID,
		Name:     r.Name,
		Icon:     r.Icon.String,
		Route:    r.Route.String,
		Order:    r.Order,
		IsActive: r.IsActive,
	}
}

type submenuRow struct {
	ID       int            `db:"id"`
	MenuID   int            `db:"menu_id"`
	Name     string         `db:"nombre"`
	Route    string         `db:"ruta"`
	Order    int            `db:"orden"`
	IsActive bool           `db:"activo"`
	MenuName sql.NullString `db:"menu_nombre"`
}

func (r submenuRow) toSubmenu() menu.Submenu {
	return menu.Submenu{
		ID:       r.ID,
		MenuID:   r.MenuID,
		Name:     r.Name,
		Route:    r.Route,
		Order:    r.Order,
		IsActive: r.IsActive,
		MenuName: r.MenuName.String,
	}
}

type menuRepository struct {
	db core.DB
}

var _ menu.Repository = (*menuRepository)(nil) // interface compliance check

func NewMenuRepository(db core.DB) *menuRepository {
	return &menuRepository{db: db}
}

func (repo *menuRepository) CreateMenu(ctx context.Context, m menu.Menu) (menu.Menu, error) {
	query := `
	INSERT INTO menus (nombre, icono, ruta, orden, activo)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		m.Name, nullStr(m.Icon), nullStr(m.Route), m.Order, m.IsActive,
	).Scan(&m.ID)
	if err != nil {
		return menu.Menu{}, trapErr(err, "creating menu", menu.ErrNotFound, nil)
	}
	return m, nil
}

func (repo *menuRepository) QueryActiveMenus(ctx context.Context) ([]menu.Menu, error) {
	var rows []menuRow
	query := `SELECT * FROM menus WHERE activo = TRUE ORDER BY orden`
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, trapErr(err, "querying menus", menu.ErrNotFound, nil)
	}
	menus := make([]menu.Menu, 0, len(rows))
	for _, r := range rows {
		menus = append(menus, r.toMenu())
	}
	return menus, nil
}

func (repo *menuRepository) GetMenuByID(ctx context.Context, id int) (menu.Menu, error) {
	var r menuRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM menus WHERE id = $1`, id); err != nil {
		return menu.Menu{}, trapErr(err, "getting menu by id", menu.ErrNotFound, nil)
	}
	return r.toMenu(), nil
}

func (repo *menuRepository) UpdateMenu(ctx context.Context, m menu.Menu) (menu.Menu, error) {
	query := `UPDATE menus SET nombre = $1, icono = $2, ruta = $3, orden = $4, activo = $5 WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, query,
		m.Name, nullStr(m.Icon), nullStr(m.Route), m.Order, m.IsActive, m.ID)
	if err != nil {
		return menu.Menu{}, trapErr(err, "updating menu", menu.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return menu.Menu{}, menu.ErrNotFound
	}
	return m, nil
}

// DeleteMenu removes the menu, its submenus and every permission row
// referencing either, all inside one transaction.
func (repo *menuRepository) DeleteMenu(ctx context.Context, id int) error {
	return core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		stmts := []string{
			`DELETE FROM permisos WHERE submenu_id IN (SELECT id FROM submenus WHERE menu_id = $1)`,
			`DELETE FROM permisos WHERE menu_id = $1`,
			`DELETE FROM submenus WHERE menu_id = $1`,
			`DELETE FROM menus WHERE id = $1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return trapErr(err, "deleting menu", menu.ErrNotFound, nil)
			}
		}
		return nil
	})
}

func (repo *menuRepository) CreateSubmenu(ctx context.Context, s menu.Submenu) (menu.Submenu, error) {
	query := `
	INSERT INTO submenus (menu_id, nombre, ruta, orden, activo)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		s.MenuID, s.Name, s.Route, s.Order, s.IsActive,
	).Scan(&s.ID)
	if err != nil {
		return menu.Submenu{}, trapErr(err, "creating submenu", menu.ErrSubmenuNotFound, nil)
	}
	return s, nil
}

const submenuQuery = `
	SELECT s.*, m.nombre AS menu_nombre
	FROM submenus s INNER JOIN menus m ON s.menu_id = m.id`

func (repo *menuRepository) QueryActiveSubmenus(ctx context.Context) ([]menu.Submenu, error) {
	return repo.querySubmenus(ctx, submenuQuery+` WHERE s.activo = TRUE ORDER BY m.orden, s.orden`)
}

func (repo *menuRepository) QuerySubmenusOfMenu(ctx context.Context, menuID int) ([]menu.Submenu, error) {
	return repo.querySubmenus(ctx, submenuQuery+` WHERE s.menu_id = $1 AND s.activo = TRUE ORDER BY s.orden`, menuID)
}

func (repo *menuRepository) querySubmenus(ctx context.Context, query string, args ...interface{}) ([]menu.Submenu, error) {
	var rows []submenuRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, trapErr(err, "querying submenus", menu.ErrSubmenuNotFound, nil)
	}
	subs := make([]menu.Submenu, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toSubmenu())
	}
	return subs, nil
}

func (repo *menuRepository) GetSubmenuByID(ctx context.Context, id int) (menu.Submenu, error) {
	var r submenuRow
	if err := repo.db.GetContext(ctx, &r, submenuQuery+` WHERE s.id = $1`, id); err != nil {
		return menu.Submenu{}, trapErr(err, "getting submenu by id", menu.ErrSubmenuNotFound, nil)
	}
	return r.toSubmenu(), nil
}

func (repo *menuRepository) UpdateSubmenu(ctx context.Context, s menu.Submenu) (menu.Submenu, error) {
	query := `UPDATE submenus SET menu_id = $1, nombre = $2, ruta = $3, orden = $4, activo = $5 WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, query, s.MenuID, s.Name, s.Route, s.Order, s.IsActive, s.ID)
	if err != nil {
		return menu.Submenu{}, trapErr(err, "updating submenu", menu.ErrSubmenuNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return menu.Submenu{}, menu.ErrSubmenuNotFound
	}
	return s, nil
}

// DeleteSubmenu removes the submenu and its permission rows inside one
// transaction.
func (repo *menuRepository) DeleteSubmenu(ctx context.Context, id int) error {
	return core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM permisos WHERE submenu_id = $1`, id); err != nil {
			return trapErr(err, "deleting submenu permissions", menu.ErrSubmenuNotFound, nil)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM submenus WHERE id = $1`, id); err != nil {
			return trapErr(err, "deleting submenu", menu.ErrSubmenuNotFound, nil)
		}
		return nil
	})
}
