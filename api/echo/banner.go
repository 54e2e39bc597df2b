package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/banner"
	"github.com/classoptima/backend/core/user"
)

type bannerApi struct {
	svc      *banner.Service
	validate *validator.Validate
}

func registerBannerAPI(g *echo.Group, jwt echo.MiddlewareFunc, sec *security, svc *banner.Service, validate *validator.Validate) {
	api := bannerApi{svc: svc, validate: validate}

	bg := g.Group("/banners")
	staff := sec.roleMiddleware(user.RoleAdmin, user.RoleDirector)

	// the landing page shows active banners before login
	bg.GET("", api.query)

	bg.GET("/admin", api.queryAll, jwt, staff)
	bg.GET("/:id", api.retrieve, jwt, staff)
	bg.POST("", api.create, jwt, staff)
	bg.PUT("/:id", api.update, jwt, staff)
	bg.DELETE("/:id", api.destroy, jwt, staff)
	bg.PUT("/:id/toggle", api.toggle, jwt, staff)
}

func (api *bannerApi) query(ctx echo.Context) error {
	banners, err := api.svc.QueryActive(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying active banners")
	}
	if banners == nil {
		banners = []banner.Banner{}
	}
	return ctx.JSON(http.StatusOK, banners)
}

func (api *bannerApi) queryAll(ctx echo.Context) error {
	banners, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying banners")
	}
	if banners == nil {
		banners = []banner.Banner{}
	}
	return ctx.JSON(http.StatusOK, banners)
}

func (api *bannerApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	b, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

// create accepts multipart form data; the image comes as an "imagen" file or
// an "imagen_url" field.
func (api *bannerApi) create(ctx echo.Context) error {
	data := banner.NewBanner{
		Title:       ctx.FormValue("titulo"),
		Description: ctx.FormValue("descripcion"),
		ImageURL:    ctx.FormValue("imagen_url"),
		Order:       formInt(ctx, "orden"),
		IsActive:    formBool(ctx, "activo"),
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	image, closeFile, err := formFile(ctx, "imagen")
	if err != nil {
		return err
	}
	defer closeFile()

	b, err := api.svc.Create(ctx.Request().Context(), data, image)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *bannerApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	data := banner.UpdateBanner{
		Title:       ctx.FormValue("titulo"),
		Description: ctx.FormValue("descripcion"),
		ImageURL:    ctx.FormValue("imagen_url"),
		Order:       formInt(ctx, "orden"),
		IsActive:    formBool(ctx, "activo"),
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	image, closeFile, err := formFile(ctx, "imagen")
	if err != nil {
		return err
	}
	defer closeFile()

	b, err := api.svc.Update(ctx.Request().Context(), id, data, image)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bannerApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *bannerApi) toggle(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	b, err := api.svc.Toggle(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}
