package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/settings"
	"github.com/classoptima/backend/core/user"
)

type settingsApi struct {
	svc      *settings.Service
	validate *validator.Validate
}

func registerSettingsAPI(g *echo.Group, jwt echo.MiddlewareFunc, sec *security, svc *settings.Service, validate *validator.Validate) {
	api := settingsApi{svc: svc, validate: validate}

	cg := g.Group("/configuracion")

	// the frontend needs the school name and logo before login
	cg.GET("", api.retrieve)
	cg.PUT("", api.update, jwt, sec.roleMiddleware(user.RoleAdmin))
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context())
	if err != nil {
		if errors.Cause(err) == settings.ErrNotFound {
			return ctx.JSON(http.StatusOK, settings.Settings{})
		}
		return errors.Wrap(err, "getting settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

// update accepts multipart form data with an optional logo image.
func (api *settingsApi) update(ctx echo.Context) error {
	data := settings.UpdateSettings{
		SystemName:   ctx.FormValue("nombre_sistema"),
		ContactEmail: ctx.FormValue("email_contacto"),
		ContactPhone: ctx.FormValue("telefono_contacto"),
		Address:      ctx.FormValue("direccion"),
		ThemeColor:   ctx.FormValue("tema_color"),
	}

	logo, closeFile, err := formFile(ctx, "logo")
	if err != nil {
		return err
	}
	defer closeFile()

	s, err := api.svc.Update(ctx.Request().Context(), data, logo)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}
