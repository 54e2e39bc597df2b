package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/assignment"
	"github.com/classoptima/backend/core/attendance"
	"github.com/classoptima/backend/core/banner"
	"github.com/classoptima/backend/core/course"
	"github.com/classoptima/backend/core/grade"
	"github.com/classoptima/backend/core/menu"
	"github.com/classoptima/backend/core/payment"
	"github.com/classoptima/backend/core/permission"
	"github.com/classoptima/backend/core/role"
	"github.com/classoptima/backend/core/settings"
	"github.com/classoptima/backend/core/subject"
	"github.com/classoptima/backend/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "no autenticado")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "cuenta desactivada")
	errHTTPForbidden      = echo.NewHTTPError(http.StatusForbidden, "permiso denegado")
	errHTTPNotFound       = echo.NewHTTPError(http.StatusNotFound, "no encontrado")
)

// notFoundErrs maps every domain "does not exist" sentinel to a 404.
var notFoundErrs = []error{
	user.ErrNotFound,
	role.ErrNotFound,
	menu.ErrNotFound,
	menu.ErrSubmenuNotFound,
	permission.ErrNotFound,
	subject.ErrNotFound,
	course.ErrNotFound,
	course.ErrEnrollmentNotFound,
	grade.ErrNotFound,
	attendance.ErrNotFound,
	assignment.ErrNotFound,
	assignment.ErrSubmissionNotFound,
	payment.ErrNotFound,
	payment.ErrNotificationNotFound,
	settings.ErrNotFound,
	banner.ErrNotFound,
	core.ErrFileNotFound,
}

func isNotFound(err error) bool {
	for _, nf := range notFoundErrs {
		if err == nf {
			return true
		}
	}
	return false
}

// newAppHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain
// errors to statuses and wraps every message in the {"error": ...} envelope.
// signalShutdown is called whenever a core shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.ConflictError:
			code = http.StatusBadRequest
			message = origErr.Message
		default:
			if cause := errors.Cause(err); isNotFound(cause) {
				code = http.StatusNotFound
				message = cause.Error()
				break
			}
			switch errors.Cause(err) {
			case user.ErrWrongPassword:
				code = http.StatusUnauthorized
				message = errors.Cause(err).Error()
			case core.ErrFileTooLarge, core.ErrFileType,
				user.ErrWeakPassword, user.ErrInvalidToken:
				code = http.StatusBadRequest
				message = errors.Cause(err).Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.UserID()
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
