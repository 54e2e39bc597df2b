package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/attendance"
	"github.com/classoptima/backend/core/user"
)

type attendanceApi struct {
	sec      *security
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, sec *security, svc *attendance.Service, validate *validator.Validate) {
	api := attendanceApi{sec: sec, svc: svc, validate: validate}

	ag := g.Group("/asistencia", jwt)
	teaching := sec.roleMiddleware(user.RoleAdmin, user.RoleDirector, user.RoleTeacher)

	ag.GET("", api.query, sec.roleMiddleware())
	ag.POST("", api.register, teaching)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := &attendance.QueryFilter{
		StudentID: intQuery(ctx, "alumno_id"),
		CourseID:  intQuery(ctx, "curso_id"),
	}
	if v := ctx.QueryParam("desde"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = &t
		}
	}
	if v := ctx.QueryParam("hasta"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = &t
		}
	}

	// students only ever see their own attendance
	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.RoleName == user.RoleStudent {
		filter.StudentID = usr.ID
	}

	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) register(ctx echo.Context) error {
	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	r, err := api.svc.Register(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, r)
}
