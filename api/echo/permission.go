package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/menu"
	"github.com/classoptima/backend/core/permission"
	"github.com/classoptima/backend/core/user"
)

type permissionApi struct {
	sec      *security
	svc      *permission.Service
	validate *validator.Validate
}

func registerPermissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, sec *security, svc *permission.Service, validate *validator.Validate) {
	api := permissionApi{sec: sec, svc: svc, validate: validate}

	pg := g.Group("/permisos", jwt)
	staff := sec.roleMiddleware(user.RoleAdmin, user.RoleDirector)

	// any active user can fetch the menus their own role grants
	pg.GET("/menus", api.myMenus, sec.roleMiddleware())

	pg.GET("/rol/:rolId", api.forRole, staff)
	pg.GET("/matriz", api.matrix, staff)
	pg.POST("", api.replace, staff)
	pg.PUT("/individual", api.setSingle, staff)
}

func (api *permissionApi) forRole(ctx echo.Context) error {
	roleID, err := intParam(ctx, "rolId")
	if err != nil {
		return err
	}
	perms, err := api.svc.ForRole(ctx.Request().Context(), roleID)
	if err != nil {
		return err
	}
	if perms == nil {
		perms = []permission.Permission{}
	}
	return ctx.JSON(http.StatusOK, perms)
}

func (api *permissionApi) myMenus(ctx echo.Context) error {
	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	menus, err := api.svc.MenusForRole(ctx.Request().Context(), usr.RoleID)
	if err != nil {
		return errors.Wrap(err, "querying menus for role")
	}
	if menus == nil {
		menus = []menu.Menu{}
	}
	return ctx.JSON(http.StatusOK, menus)
}

func (api *permissionApi) matrix(ctx echo.Context) error {
	cells, err := api.svc.Matrix(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building permission matrix")
	}
	if cells == nil {
		cells = []permission.MatrixCell{}
	}
	return ctx.JSON(http.StatusOK, cells)
}

func (api *permissionApi) replace(ctx echo.Context) error {
	var data permission.Assignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Assignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Replace(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Permisos actualizados correctamente."})
}

func (api *permissionApi) setSingle(ctx echo.Context) error {
	var data permission.SingleUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SingleUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.SetSingle(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}
