package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/menu"
	"github.com/classoptima/backend/core/user"
)

type menuApi struct {
	svc      *menu.Service
	validate *validator.Validate
}

func registerMenuAPI(g *echo.Group, jwt echo.MiddlewareFunc, sec *security, svc *menu.Service, validate *validator.Validate) {
	api := menuApi{svc: svc, validate: validate}

	mg := g.Group("/menus", jwt)
	admin := sec.roleMiddleware(user.RoleAdmin)
	authed := sec.roleMiddleware()

	mg.GET("", api.query, authed)
	mg.GET("/submenus", api.querySubmenus, authed)
	mg.POST("", api.create, admin)
	mg.PUT("/:id", api.update, admin)
	mg.DELETE("/:id", api.destroy, admin)
	mg.POST("/submenus", api.createSubmenu, admin)
	mg.PUT("/submenus/:id", api.updateSubmenu, admin)
	mg.DELETE("/submenus/:id", api.destroySubmenu, admin)
}

func (api *menuApi) query(ctx echo.Context) error {
	menus, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying menus")
	}
	if menus == nil {
		menus = []menu.Menu{}
	}
	return ctx.JSON(http.StatusOK, menus)
}

func (api *menuApi) querySubmenus(ctx echo.Context) error {
	subs, err := api.svc.QueryAllSubmenus(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying submenus")
	}
	if subs == nil {
		subs = []menu.Submenu{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *menuApi) create(ctx echo.Context) error {
	var data menu.NewMenu
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMenu")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *menuApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data menu.NewMenu
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMenu")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *menuApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *menuApi) createSubmenu(ctx echo.Context) error {
	var data menu.NewSubmenu
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmenu")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.CreateSubmenu(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *menuApi) updateSubmenu(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data menu.NewSubmenu
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmenu")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateSubmenu(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *menuApi) destroySubmenu(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteSubmenu(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
