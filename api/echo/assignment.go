package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/assignment"
	"github.com/classoptima/backend/core/user"
)

type assignmentApi struct {
	sec      *security
	svc      *assignment.Service
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, sec *security, svc *assignment.Service, validate *validator.Validate) {
	api := assignmentApi{sec: sec, svc: svc, validate: validate}

	tg := g.Group("/tareas", jwt)
	teaching := sec.roleMiddleware(user.RoleAdmin, user.RoleDirector, user.RoleTeacher)
	student := sec.roleMiddleware(user.RoleStudent)

	tg.GET("/curso/:cursoId", api.queryByCourse, sec.roleMiddleware())
	tg.GET("/mis-tareas", api.queryMine, student)
	tg.GET("/:id", api.retrieve, sec.roleMiddleware())
	tg.POST("", api.create, teaching)
	tg.PUT("/:id", api.update, teaching)
	tg.DELETE("/:id", api.destroy, teaching)
	tg.POST("/:id/entregar", api.submit, student)
	tg.GET("/:id/entregas", api.querySubmissions, teaching)
	tg.PUT("/entregas/:id/calificar", api.gradeSubmission, teaching)
}

// viewerID returns the requester's ID when they are a student, 0 otherwise.
func (api *assignmentApi) viewerID(ctx echo.Context) (int, error) {
	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "getting context user")
	}
	if usr.RoleName == user.RoleStudent {
		return usr.ID, nil
	}
	return 0, nil
}

func (api *assignmentApi) queryByCourse(ctx echo.Context) error {
	courseID, err := intParam(ctx, "cursoId")
	if err != nil {
		return err
	}
	viewerID, err := api.viewerID(ctx)
	if err != nil {
		return err
	}

	assignments, err := api.svc.QueryByCourse(ctx.Request().Context(), courseID, viewerID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) queryMine(ctx echo.Context) error {
	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	assignments, err := api.svc.QueryMine(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	viewerID, err := api.viewerID(ctx)
	if err != nil {
		return err
	}

	a, err := api.svc.GetByID(ctx.Request().Context(), id, viewerID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

// create accepts multipart form data with an optional attachment.
func (api *assignmentApi) create(ctx echo.Context) error {
	data := assignment.NewAssignment{
		CourseID:    formInt(ctx, "curso_id"),
		Title:       ctx.FormValue("titulo"),
		Description: ctx.FormValue("descripcion"),
		TotalPoints: formFloat(ctx, "puntos_totales"),
	}
	if due := formTime(ctx, "fecha_entrega"); due != nil {
		data.DueDate = *due
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	attachment, closeFile, err := formFile(ctx, "archivo")
	if err != nil {
		return err
	}
	defer closeFile()

	ctxUsr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	a, err := api.svc.Create(ctx.Request().Context(), data, attachment, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	data := assignment.UpdateAssignment{
		Title:       ctx.FormValue("titulo"),
		Description: ctx.FormValue("descripcion"),
		TotalPoints: formFloat(ctx, "puntos_totales"),
	}
	if due := formTime(ctx, "fecha_entrega"); due != nil {
		data.DueDate = *due
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	attachment, closeFile, err := formFile(ctx, "archivo")
	if err != nil {
		return err
	}
	defer closeFile()

	a, err := api.svc.Update(ctx.Request().Context(), id, data, attachment)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	file, closeFile, err := formFile(ctx, "archivo")
	if err != nil {
		return err
	}
	defer closeFile()

	data := assignment.NewSubmission{Comments: ctx.FormValue("comentarios")}
	s, err := api.svc.Submit(ctx.Request().Context(), id, usr.ID, data, file)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	submissions, err := api.svc.QuerySubmissions(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if submissions == nil {
		submissions = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, submissions)
}

func (api *assignmentApi) gradeSubmission(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data assignment.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	s, err := api.svc.Grade(ctx.Request().Context(), id, data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}
