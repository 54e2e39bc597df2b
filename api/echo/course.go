package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/course"
	"github.com/classoptima/backend/core/user"
)

type courseApi struct {
	sec      *security
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, sec *security, svc *course.Service, validate *validator.Validate) {
	api := courseApi{sec: sec, svc: svc, validate: validate}

	cg := g.Group("/cursos", jwt)
	staff := sec.roleMiddleware(user.RoleAdmin, user.RoleDirector)
	teaching := sec.roleMiddleware(user.RoleAdmin, user.RoleDirector, user.RoleTeacher)
	authed := sec.roleMiddleware()

	cg.GET("", api.query, authed)
	cg.GET("/maestros", api.queryTeachers, staff)
	cg.GET("/mis-cursos", api.myEnrollments, sec.roleMiddleware(user.RoleStudent))
	cg.GET("/:id", api.retrieve, authed)
	cg.GET("/:id/alumnos", api.students, teaching)
	cg.POST("", api.create, staff)
	cg.PUT("/:id", api.update, staff)
	cg.DELETE("/:id", api.destroy, staff)
	cg.POST("/:id/inscribir", api.enroll, staff)
	cg.PUT("/inscripciones/:id", api.updateEnrollment, teaching)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := &course.QueryFilter{
		TeacherID: intQuery(ctx, "maestro_id"),
	}
	if v := ctx.QueryParam("activo"); v != "" {
		active, err := strconv.ParseBool(v)
		if err == nil {
			filter.IsActive = &active
		}
	}

	// students see their own enrollment/payment state on each course
	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.RoleName == user.RoleStudent {
		filter.ViewerID = usr.ID
	}

	courses, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	c, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data course.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	data.CourseID = id
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *courseApi) updateEnrollment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data course.UpdateEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.UpdateEnrollment(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *courseApi) queryTeachers(ctx echo.Context) error {
	teachers, err := api.svc.QueryTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []course.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *courseApi) students(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	students, err := api.svc.StudentsOfCourse(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if students == nil {
		students = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *courseApi) myEnrollments(ctx echo.Context) error {
	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	enrollments, err := api.svc.MyEnrollments(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}
