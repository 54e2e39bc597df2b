package user_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/user"
	emailsvc "github.com/classoptima/backend/services/email"
	logsvc "github.com/classoptima/backend/services/logger"
	inmemdb "github.com/classoptima/backend/storage/database/inmem"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()

	conf := core.NewTestConfig()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() error = %v", err)
	}
	repo := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	emailsvc.ClearSentMessages()
	return user.NewService(repo, mailSvc, conf, logger), repo
}

func createUser(t *testing.T, svc *user.Service, email, code, dpi, pwd string, active bool) user.User {
	t.Helper()

	usr, err := svc.Create(context.Background(), user.NewUser{
		FirstName:   "Test",
		LastName:    "User",
		Email:       email,
		Password:    pwd,
		RoleID:      1,
		StudentCode: code,
		DPI:         dpi,
		IsActive:    &active,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return usr
}

func TestService_Authenticate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	createUser(t, svc, "jose.garcia@test.gt", "ALU001", "1234567890101", "s3cr3t", true)
	createUser(t, svc, "inactivo@test.gt", "ALU002", "1234567890102", "s3cr3t", false)

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{name: "by email", identifier: "jose.garcia@test.gt", password: "s3cr3t"},
		{name: "by student code", identifier: "ALU001", password: "s3cr3t"},
		{name: "by DPI", identifier: "1234567890101", password: "s3cr3t"},
		{name: "unknown identifier", identifier: "nope@test.gt", password: "s3cr3t", wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", identifier: "jose.garcia@test.gt", password: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "inactive account", identifier: "inactivo@test.gt", password: "s3cr3t", wantErr: user.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.identifier, tt.password)
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && usr.Email != "jose.garcia@test.gt" {
				t.Errorf("Authenticate() usr.Email = %q", usr.Email)
			}
		})
	}

	// unknown account and bad password must be told apart by neither message nor type
	_, errUnknown := svc.Authenticate(ctx, "nope@test.gt", "s3cr3t")
	_, errBadPwd := svc.Authenticate(ctx, "jose.garcia@test.gt", "nope")
	if errUnknown == nil || errBadPwd == nil || errUnknown.Error() != errBadPwd.Error() {
		t.Errorf("authentication failures differ: %v vs %v", errUnknown, errBadPwd)
	}
}

func TestNewUser_Validate_uniqueness(t *testing.T) {
	svc, _ := setup(t)

	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	createUser(t, svc, "uno@test.gt", "ALU001", "1234567890101", "s3cr3t", true)

	tests := []struct {
		name         string
		nu           user.NewUser
		wantConflict bool
	}{
		{
			name: "all unique",
			nu:   user.NewUser{FirstName: "Dos", LastName: "User", Email: "dos@test.gt", Password: "s3cr3t", RoleID: 1},
		},
		{
			name:         "duplicate email",
			nu:           user.NewUser{FirstName: "Dos", LastName: "User", Email: "uno@test.gt", Password: "s3cr3t", RoleID: 1},
			wantConflict: true,
		},
		{
			name:         "duplicate student code",
			nu:           user.NewUser{FirstName: "Dos", LastName: "User", Email: "dos@test.gt", Password: "s3cr3t", RoleID: 1, StudentCode: "ALU001"},
			wantConflict: true,
		},
		{
			name:         "duplicate DPI",
			nu:           user.NewUser{FirstName: "Dos", LastName: "User", Email: "dos@test.gt", Password: "s3cr3t", RoleID: 1, DPI: "1234567890101"},
			wantConflict: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(validate, svc)
			var conflict *core.ConflictError
			if gotConflict := errors.As(err, &conflict); gotConflict != tt.wantConflict {
				t.Errorf("Validate() error = %v, wantConflict %v", err, tt.wantConflict)
			}
		})
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := createUser(t, svc, "uno@test.gt", "", "", "oldpass", true)

	err := svc.ChangePassword(ctx, usr, user.ChangePassword{CurrentPassword: "nope", NewPassword: "newpass"})
	if errors.Cause(err) != user.ErrWrongPassword {
		t.Errorf("ChangePassword() error = %v, want %v", err, user.ErrWrongPassword)
	}

	err = svc.ChangePassword(ctx, usr, user.ChangePassword{CurrentPassword: "oldpass", NewPassword: "short"})
	if errors.Cause(err) != user.ErrWeakPassword {
		t.Errorf("ChangePassword() error = %v, want %v", err, user.ErrWeakPassword)
	}

	if err = svc.ChangePassword(ctx, usr, user.ChangePassword{CurrentPassword: "oldpass", NewPassword: "newpass"}); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	refreshed, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if err = refreshed.CheckPassword("newpass"); err != nil {
		t.Error("new password was not persisted")
	}
}

func TestService_PasswordReset(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := createUser(t, svc, "uno@test.gt", "", "", "oldpass", true)

	// unknown accounts yield ErrNotFound; the API layer swallows it
	err := svc.RequestPasswordReset(ctx, "nope@test.gt")
	if errors.Cause(err) != user.ErrNotFound {
		t.Errorf("RequestPasswordReset() error = %v, want %v", err, user.ErrNotFound)
	}

	if err = svc.RequestPasswordReset(ctx, usr.Email); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent messages = %d, want 1", len(emailsvc.SentMessages))
	}

	refreshed, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if refreshed.ResetToken == "" {
		t.Fatal("reset token was not persisted")
	}

	// the token on record works exactly once
	rp := user.ResetUserPassword{Token: refreshed.ResetToken, NewPassword: "newpass"}
	if err = svc.ResetPassword(ctx, rp); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if err = svc.ResetPassword(ctx, rp); errors.Cause(err) != user.ErrInvalidToken {
		t.Errorf("second ResetPassword() error = %v, want %v", err, user.ErrInvalidToken)
	}

	refreshed, _ = repo.GetUserByID(ctx, usr.ID)
	if err = refreshed.CheckPassword("newpass"); err != nil {
		t.Error("new password was not persisted")
	}

	// an expired token on record is rejected
	if err = svc.RequestPasswordReset(ctx, usr.Email); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	refreshed, _ = repo.GetUserByID(ctx, usr.ID)
	user.NowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	defer func() { user.NowFunc = time.Now }()
	err = svc.ResetPassword(ctx, user.ResetUserPassword{Token: refreshed.ResetToken, NewPassword: "another"})
	if errors.Cause(err) != user.ErrInvalidToken {
		t.Errorf("expired ResetPassword() error = %v, want %v", err, user.ErrInvalidToken)
	}
}
