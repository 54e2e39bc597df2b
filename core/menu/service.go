package menu

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound        = errors.New("menú no encontrado")
	ErrSubmenuNotFound = errors.New("submenú no encontrado")
)

type (
	Repository interface {
		CreateMenu(ctx context.Context, m Menu) (Menu, error)
		QueryActiveMenus(ctx context.Context) ([]Menu, error)
		GetMenuByID(ctx context.Context, id int) (Menu, error)
		UpdateMenu(ctx context.Context, m Menu) (Menu, error)
		// DeleteMenu removes the menu, its submenus and every permission row
		// referencing either, as ordered deletes inside one transaction.
		DeleteMenu(ctx context.Context, id int) error

		CreateSubmenu(ctx context.Context, s Submenu) (Submenu, error)
		QueryActiveSubmenus(ctx context.Context) ([]Submenu, error)
		QuerySubmenusOfMenu(ctx context.Context, menuID int) ([]Submenu, error)
		GetSubmenuByID(ctx context.Context, id int) (Submenu, error)
		UpdateSubmenu(ctx context.Context, s Submenu) (Submenu, error)
		// DeleteSubmenu removes the submenu and its permission rows.
		DeleteSubmenu(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// QueryAll returns the active menus ordered by `orden`, each populated with
// its active submenus.
func (svc *Service) QueryAll(ctx context.Context) ([]Menu, error) {
	menus, err := svc.repo.QueryActiveMenus(ctx)
	if err != nil {
		return nil, err
	}
	for i := range menus {
		subs, err := svc.repo.QuerySubmenusOfMenu(ctx, menus[i].ID)
		if err != nil {
			return nil, err
		}
		menus[i].Submenus = subs
	}
	return menus, nil
}

func (svc *Service) QueryAllSubmenus(ctx context.Context) ([]Submenu, error) {
	return svc.repo.QueryActiveSubmenus(ctx)
}

func (svc *Service) Create(ctx context.Context, nm NewMenu) (Menu, error) {
	m := Menu{
		Name:     nm.Name,
		Icon:     nm.Icon,
		Route:    nm.Route,
		Order:    nm.Order,
		IsActive: true,
	}
	if nm.IsActive != nil {
		m.IsActive = *nm.IsActive
	}
	return svc.repo.CreateMenu(ctx, m)
}

func (svc *Service) Update(ctx context.Context, id int, nm NewMenu) (Menu, error) {
	m, err := svc.repo.GetMenuByID(ctx, id)
	if err != nil {
		return Menu{}, err
	}
	m.Name = nm.Name
	m.Icon = nm.Icon
	m.Route = nm.Route
	m.Order = nm.Order
	if nm.IsActive != nil {
		m.IsActive = *nm.IsActive
	}
	return svc.repo.UpdateMenu(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetMenuByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteMenu(ctx, id)
}

func (svc *Service) CreateSubmenu(ctx context.Context, ns NewSubmenu) (Submenu, error) {
	if _, err := svc.repo.GetMenuByID(ctx, ns.MenuID); err != nil {
		return Submenu{}, err
	}
	s := Submenu{
		MenuID:   ns.MenuID,
		Name:     ns.Name,
		Route:    ns.Route,
		Order:    ns.Order,
		IsActive: true,
	}
	if ns.IsActive != nil {
		s.IsActive = *ns.IsActive
	}
	return svc.repo.CreateSubmenu(ctx, s)
}

func (svc *Service) UpdateSubmenu(ctx context.Context, id int, ns NewSubmenu) (Submenu, error) {
	s, err := svc.repo.GetSubmenuByID(ctx, id)
	if err != nil {
		return Submenu{}, err
	}
	s.Name = ns.Name
	s.Route = ns.Route
	s.Order = ns.Order
	if ns.MenuID != 0 {
		s.MenuID = ns.MenuID
	}
	if ns.IsActive != nil {
		s.IsActive = *ns.IsActive
	}
	return svc.repo.UpdateSubmenu(ctx, s)
}

func (svc *Service) DeleteSubmenu(ctx context.Context, id int) error {
	if _, err := svc.repo.GetSubmenuByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteSubmenu(ctx, id)
}
