package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/role"
	"github.com/classoptima/backend/core/user"
)

type roleApi struct {
	svc      *role.Service
	validate *validator.Validate
}

func registerRoleAPI(g *echo.Group, jwt echo.MiddlewareFunc, sec *security, svc *role.Service, validate *validator.Validate) {
	api := roleApi{svc: svc, validate: validate}

	rg := g.Group("/roles", jwt)
	admin := sec.roleMiddleware(user.RoleAdmin)

	rg.GET("", api.query, sec.roleMiddleware())
	rg.GET("/:id", api.retrieve, sec.roleMiddleware())
	rg.POST("", api.create, admin)
	rg.PUT("/:id", api.update, admin)
	rg.DELETE("/:id", api.destroy, admin)
}

func (api *roleApi) query(ctx echo.Context) error {
	roles, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying roles")
	}
	if roles == nil {
		roles = []role.Role{}
	}
	return ctx.JSON(http.StatusOK, roles)
}

func (api *roleApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	r, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *roleApi) create(ctx echo.Context) error {
	var data role.NewRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *roleApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data role.UpdateRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *roleApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
