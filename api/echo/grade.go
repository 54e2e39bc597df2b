package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/grade"
	"github.com/classoptima/backend/core/user"
)

type gradeApi struct {
	sec      *security
	svc      *grade.Service
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, sec *security, svc *grade.Service, validate *validator.Validate) {
	api := gradeApi{sec: sec, svc: svc, validate: validate}

	gg := g.Group("/calificaciones", jwt)
	teaching := sec.roleMiddleware(user.RoleAdmin, user.RoleDirector, user.RoleTeacher)

	gg.GET("", api.query, sec.roleMiddleware())
	gg.POST("", api.create, teaching)
	gg.PUT("/:id", api.update, teaching)
}

func (api *gradeApi) query(ctx echo.Context) error {
	filter := &grade.QueryFilter{
		StudentID: intQuery(ctx, "alumno_id"),
		SubjectID: intQuery(ctx, "materia_id"),
		Period:    ctx.QueryParam("periodo"),
	}

	// students only ever see their own grades
	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.RoleName == user.RoleStudent {
		filter.StudentID = usr.ID
	}

	grades, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []grade.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *gradeApi) create(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	gr, err := api.svc.Register(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, gr)
}

func (api *gradeApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data grade.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	gr, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, gr)
}
