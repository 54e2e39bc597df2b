package inmemdb

import (
	"context"
	"sort"

	"github.com/classoptima/backend/core/menu"
)

type menuRepository struct {
	db *DB
}

var _ menu.Repository = (*menuRepository)(nil) // interface compliance check

func NewMenuRepository(db *DB) menu.Repository {
	return &menuRepository{db: db}
}

func sortMenus(menus []menu.Menu) {
	sort.Slice(menus, func(i, j int) bool {
		if menus[i].Order != menus[j].Order {
			return menus[i].Order < menus[j].Order
		}
		return menus[i].ID < menus[j].ID
	})
}

func sortSubmenus(subs []menu.Submenu) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Order != subs[j].Order {
			return subs[i].Order < subs[j].Order
		}
		return subs[i].ID < subs[j].ID
	})
}

func (repo *menuRepository) CreateMenu(ctx context.Context, m menu.Menu) (menu.Menu, error) {
	repo.db.menu.Lock()
	defer repo.db.menu.Unlock()

	m.ID = repo.db.menu.nextPK()
	repo.db.menu.rows[m.ID] = &m
	return m, nil
}

func (repo *menuRepository) QueryActiveMenus(ctx context.Context) ([]menu.Menu, error) {
	repo.db.menu.RLock()
	defer repo.db.menu.RUnlock()

	menus := make([]menu.Menu, 0)
	for _, m := range repo.db.menu.query() {
		if m.IsActive {
			menus = append(menus, m)
		}
	}
	sortMenus(menus)
	return menus, nil
}

func (repo *menuRepository) GetMenuByID(ctx context.Context, id int) (menu.Menu, error) {
	repo.db.menu.RLock()
	defer repo.db.menu.RUnlock()

	if m, ok := repo.db.menu.rows[id]; ok {
		return *m, nil
	}
	return menu.Menu{}, menu.ErrNotFound
}

func (repo *menuRepository) UpdateMenu(ctx context.Context, m menu.Menu) (menu.Menu, error) {
	repo.db.menu.Lock()
	defer repo.db.menu.Unlock()

	if _, ok := repo.db.menu.rows[m.ID]; !ok {
		return menu.Menu{}, menu.ErrNotFound
	}
	repo.db.menu.rows[m.ID] = &m
	return m, nil
}

func (repo *menuRepository) DeleteMenu(ctx context.Context, id int) error {
	// lock order: submenu, permission, menu
	repo.db.submenu.Lock()
	defer repo.db.submenu.Unlock()
	repo.db.permission.Lock()
	defer repo.db.permission.Unlock()
	repo.db.menu.Lock()
	defer repo.db.menu.Unlock()

	if _, ok := repo.db.menu.rows[id]; !ok {
		return menu.ErrNotFound
	}
	for sid, s := range repo.db.submenu.rows {
		if s.MenuID != id {
			continue
		}
		for pid, p := range repo.db.permission.rows {
			if p.SubmenuID == sid {
				delete(repo.db.permission.rows, pid)
			}
		}
		delete(repo.db.submenu.rows, sid)
	}
	for pid, p := range repo.db.permission.rows {
		if p.MenuID == id {
			delete(repo.db.permission.rows, pid)
		}
	}
	delete(repo.db.menu.rows, id)
	return nil
}

func (repo *menuRepository) CreateSubmenu(ctx context.Context, s menu.Submenu) (menu.Submenu, error) {
	repo.db.submenu.Lock()
	defer repo.db.submenu.Unlock()

	s.ID = repo.db.submenu.nextPK()
	repo.db.submenu.rows[s.ID] = &s
	return repo.withMenuName(s), nil
}

func (repo *menuRepository) withMenuName(s menu.Submenu) menu.Submenu {
	repo.db.menu.RLock()
	defer repo.db.menu.RUnlock()

	if m, ok := repo.db.menu.rows[s.MenuID]; ok {
		s.MenuName = m.Name
	}
	return s
}

func (repo *menuRepository) QueryActiveSubmenus(ctx context.Context) ([]menu.Submenu, error) {
	repo.db.submenu.RLock()
	defer repo.db.submenu.RUnlock()

	subs := make([]menu.Submenu, 0)
	for _, s := range repo.db.submenu.query() {
		if s.IsActive {
			subs = append(subs, repo.withMenuName(s))
		}
	}
	sortSubmenus(subs)
	return subs, nil
}

func (repo *menuRepository) QuerySubmenusOfMenu(ctx context.Context, menuID int) ([]menu.Submenu, error) {
	repo.db.submenu.RLock()
	defer repo.db.submenu.RUnlock()

	subs := make([]menu.Submenu, 0)
	for _, s := range repo.db.submenu.query() {
		if s.MenuID == menuID && s.IsActive {
			subs = append(subs, repo.withMenuName(s))
		}
	}
	sortSubmenus(subs)
	return subs, nil
}

func (repo *menuRepository) GetSubmenuByID(ctx context.Context, id int) (menu.Submenu, error) {
	repo.db.submenu.RLock()
	defer repo.db.submenu.RUnlock()

	if s, ok := repo.db.submenu.rows[id]; ok {
		return repo.withMenuName(*s), nil
	}
	return menu.Submenu{}, menu.ErrSubmenuNotFound
}

func (repo *menuRepository) UpdateSubmenu(ctx context.Context, s menu.Submenu) (menu.Submenu, error) {
	repo.db.submenu.Lock()
	defer repo.db.submenu.Unlock()

	if _, ok := repo.db.submenu.rows[s.ID]; !ok {
		return menu.Submenu{}, menu.ErrSubmenuNotFound
	}
	repo.db.submenu.rows[s.ID] = &s
	return repo.withMenuName(s), nil
}

func (repo *menuRepository) DeleteSubmenu(ctx context.Context, id int) error {
	repo.db.submenu.Lock()
	defer repo.db.submenu.Unlock()
	repo.db.permission.Lock()
	defer repo.db.permission.Unlock()

	if _, ok := repo.db.submenu.rows[id]; !ok {
		return menu.ErrSubmenuNotFound
	}
	for pid, p := range repo.db.permission.rows {
		if p.SubmenuID == id {
			delete(repo.db.permission.rows, pid)
		}
	}
	delete(repo.db.submenu.rows, id)
	return nil
}
