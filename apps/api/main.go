package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/classoptima/backend/api/echo"
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
	emailsvc "github.com/classoptima/backend/services/email"
	logsvc "github.com/classoptima/backend/services/logger"
	"github.com/classoptima/backend/storage/database"
	"github.com/classoptima/backend/storage/database/postgres"
	"github.com/classoptima/backend/storage/files"
)

func main() {
	conf := core.NewConfig()

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.RollbarToken != "" && !conf.Debug {
		logger = logsvc.NewRollbarLogger(std, conf)
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	// validation
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	// set up DB
	sqlxDB, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer sqlxDB.Close()
	if err = sqlxDB.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}
	db := database.Wrap(sqlxDB)

	// file storage
	fileStore, err := files.NewLocalStorage(conf.UploadDir)
	if err != nil {
		logger.Fatal("initializing file storage", err)
	}

	// email
	var mailSvc core.EmailService
	switch {
	case conf.Email.SendgridAPIKey != "":
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	case conf.Email.SMTPHost != "":
		mailSvc = emailsvc.NewSMTPService(conf, logger)
	default:
		mailSvc = emailsvc.NewConsoleService(conf)
	}

	// repositories
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	menuRepo := postgres.NewMenuRepository(db)
	permRepo := postgres.NewPermissionRepository(db)
	subjectRepo := postgres.NewSubjectRepository(db)
	courseRepo := postgres.NewCourseRepository(db)
	gradeRepo := postgres.NewGradeRepository(db)
	attendanceRepo := postgres.NewAttendanceRepository(db)
	assignmentRepo := postgres.NewAssignmentRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)
	bannerRepo := postgres.NewBannerRepository(db)

	// services
	userSvc := user.NewService(userRepo, mailSvc, conf, logger)
	roleSvc := role.NewService(roleRepo)
	menuSvc := menu.NewService(menuRepo)
	permSvc := permission.NewService(permRepo, roleRepo, menuRepo)
	subjectSvc := subject.NewService(subjectRepo)
	courseSvc := course.NewService(courseRepo, userSvc)
	gradeSvc := grade.NewService(gradeRepo)
	attendanceSvc := attendance.NewService(attendanceRepo)
	assignmentSvc := assignment.NewService(assignmentRepo, fileStore)
	paymentSvc := payment.NewService(paymentRepo, fileStore)
	settingsSvc := settings.NewService(settingsRepo, fileStore)
	bannerSvc := banner.NewService(bannerRepo, fileStore)

	shutdownCh := make(chan struct{}, 1)
	app := echoapi.NewServer(&echoapi.Options{
		Address:    conf.Server.Address(),
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,

		UserSvc:       userSvc,
		RoleSvc:       roleSvc,
		MenuSvc:       menuSvc,
		PermSvc:       permSvc,
		SubjectSvc:    subjectSvc,
		CourseSvc:     courseSvc,
		GradeSvc:      gradeSvc,
		AttendanceSvc: attendanceSvc,
		AssignmentSvc: assignmentSvc,
		PaymentSvc:    paymentSvc,
		SettingsSvc:   settingsSvc,
		BannerSvc:     bannerSvc,

		ShutdownCh: shutdownCh,
	})

	go app.Start()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case <-shutdownCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("stopping server", err)
	}
}
