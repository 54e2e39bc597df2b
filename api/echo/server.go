package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

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

type (
	Options struct {
		Address        string
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc       *user.Service
		RoleSvc       *role.Service
		MenuSvc       *menu.Service
		PermSvc       *permission.Service
		SubjectSvc    *subject.Service
		CourseSvc     *course.Service
		GradeSvc      *grade.Service
		AttendanceSvc *attendance.Service
		AssignmentSvc *assignment.Service
		PaymentSvc    *payment.Service
		SettingsSvc   *settings.Service
		BannerSvc     *banner.Service

		// ShutdownCh receives a signal when an unrecoverable error is caught.
		ShutdownCh chan<- struct{}
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
		sec  *security
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
		sec:  newSecurity(opts.Conf, opts.UserSvc),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{conf.Server.CORSOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowCredentials: true,
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	api := s.app.Group("/api")
	jwt := s.sec.jwtMiddleware()

	registerAuthAPI(api, jwt, s.sec, s.opts.UserSvc, s.opts.PermSvc, s.opts.Validate)
	registerUserAPI(api, jwt, s.sec, s.opts.UserSvc, s.opts.Validate)
	registerRoleAPI(api, jwt, s.sec, s.opts.RoleSvc, s.opts.Validate)
	registerMenuAPI(api, jwt, s.sec, s.opts.MenuSvc, s.opts.Validate)
	registerPermissionAPI(api, jwt, s.sec, s.opts.PermSvc, s.opts.Validate)
	registerSubjectAPI(api, jwt, s.sec, s.opts.SubjectSvc, s.opts.Validate)
	registerCourseAPI(api, jwt, s.sec, s.opts.CourseSvc, s.opts.Validate)
	registerGradeAPI(api, jwt, s.sec, s.opts.GradeSvc, s.opts.Validate)
	registerAttendanceAPI(api, jwt, s.sec, s.opts.AttendanceSvc, s.opts.Validate)
	registerAssignmentAPI(api, jwt, s.sec, s.opts.AssignmentSvc, s.opts.Validate)
	registerPaymentAPI(api, jwt, s.sec, s.opts.PaymentSvc, s.opts.Validate)
	registerSettingsAPI(api, jwt, s.sec, s.opts.SettingsSvc, s.opts.Validate)
	registerBannerAPI(api, jwt, s.sec, s.opts.BannerSvc, s.opts.Validate)
}

func (s *server) signalShutdown() {
	if s.opts.ShutdownCh != nil {
		s.opts.ShutdownCh <- struct{}{}
	}
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Bienvenido a ClassOptima API!")
}
