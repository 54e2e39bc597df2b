package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/payment"
	"github.com/classoptima/backend/core/user"
)

type paymentApi struct {
	sec      *security
	svc      *payment.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, sec *security, svc *payment.Service, validate *validator.Validate) {
	api := paymentApi{sec: sec, svc: svc, validate: validate}

	pg := g.Group("/pagos", jwt)
	staff := sec.roleMiddleware(user.RoleAdmin, user.RoleDirector)
	authed := sec.roleMiddleware()

	pg.GET("", api.query, staff)
	pg.GET("/estadisticas", api.stats, staff)
	pg.GET("/mis-pagos", api.myHistory, sec.roleMiddleware(user.RoleStudent))
	pg.GET("/notificaciones", api.notifications, authed)
	pg.PUT("/notificaciones/:id/leida", api.markNotificationRead, authed)
	pg.POST("/verificar-vencidos", api.checkOverdue, staff)
	pg.GET("/:id", api.retrieve, staff)
	pg.GET("/:id/historial", api.history, staff)
	pg.POST("", api.register, authed)
	pg.PUT("/:id", api.update, staff)
	pg.PUT("/:id/confirmar", api.confirm, staff)
	pg.PUT("/:id/rechazar", api.reject, staff)
}

func (api *paymentApi) query(ctx echo.Context) error {
	filter := &payment.QueryFilter{
		Status:    ctx.QueryParam("estado"),
		CourseID:  intQuery(ctx, "curso_id"),
		StudentID: intQuery(ctx, "alumno_id"),
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

	payments, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	p, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) myHistory(ctx echo.Context) error {
	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	payments, err := api.svc.StudentHistory(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying payment history")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) history(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	entries, err := api.svc.History(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []payment.HistoryEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

// register accepts multipart form data with an optional receipt image.
func (api *paymentApi) register(ctx echo.Context) error {
	data := payment.NewPayment{
		CourseID:  formInt(ctx, "curso_id"),
		StudentID: formInt(ctx, "alumno_id"),
		Amount:    formFloat(ctx, "monto"),
		Method:    ctx.FormValue("metodo_pago"),
		DueDate:   formTime(ctx, "fecha_limite"),
		Reference: ctx.FormValue("numero_referencia"),
		Notes:     ctx.FormValue("observaciones"),
	}

	// students can only register their own payments
	ctxUsr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.RoleName == user.RoleStudent {
		data.StudentID = ctxUsr.ID
	}

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	receipt, closeFile, err := formFile(ctx, "comprobante")
	if err != nil {
		return err
	}
	defer closeFile()

	p, err := api.svc.Register(ctx.Request().Context(), data, receipt, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *paymentApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	data := payment.UpdatePayment{
		Amount:    formFloat(ctx, "monto"),
		Method:    ctx.FormValue("metodo_pago"),
		DueDate:   formTime(ctx, "fecha_limite"),
		Reference: ctx.FormValue("numero_referencia"),
		Notes:     ctx.FormValue("observaciones"),
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	receipt, closeFile, err := formFile(ctx, "comprobante")
	if err != nil {
		return err
	}
	defer closeFile()

	p, err := api.svc.Update(ctx.Request().Context(), id, data, receipt)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) confirm(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data payment.ConfirmPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmPayment")
	}

	ctxUsr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Confirm(ctx.Request().Context(), id, data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) reject(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data payment.RejectPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Reject(ctx.Request().Context(), id, data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) checkOverdue(ctx echo.Context) error {
	count, err := api.svc.CheckOverdue(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "checking overdue payments")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"pagos_atrasados": count})
}

func (api *paymentApi) notifications(ctx echo.Context) error {
	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	notifications, err := api.svc.Notifications(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifications == nil {
		notifications = []payment.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifications)
}

func (api *paymentApi) markNotificationRead(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.MarkNotificationRead(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Notificación marcada como leída."})
}

func (api *paymentApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying payment stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
