package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"log"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/classoptima/backend/core/menu"
	"github.com/classoptima/backend/core/permission"
	"github.com/classoptima/backend/core/role"
	"github.com/classoptima/backend/core/user"
	inmemdb "github.com/classoptima/backend/storage/database/inmem"
)

var (
	usrRepo  user.Repository
	roleRepo role.Repository
	menuRepo menu.Repository
	permRepo permission.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	logger = log.New(io.Discard, "", 0)

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() error = %v", err)
	}
	usrRepo = inmemdb.NewUserRepository(db)
	roleRepo = inmemdb.NewRoleRepository(db)
	menuRepo = inmemdb.NewMenuRepository(db)
	permRepo = inmemdb.NewPermissionRepository(db)

	// start CLI
	return &commandLine{
		db:       &sqlx.DB{},
		usrRepo:  usrRepo,
		roleRepo: roleRepo,
		menuRepo: menuRepo,
		permRepo: permRepo,
	}
}

func createRole(t *testing.T, name user.RoleName) role.Role {
	t.Helper()
	r, err := roleRepo.CreateRole(context.Background(), role.Role{
		Name: name.String(), IsActive: true, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateRole(%s) error = %v", name, err)
	}
	return r
}

func createUser(t *testing.T, email, pwd string, roleID int) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		RoleID:    roleID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(%s) error = %v", email, err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand defaults to up", args: []string{"migrate"}},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "pagos", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	if err := cli.run([]string{"admin", "seed"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}

	roles, err := roleRepo.QueryAllRoles(ctx)
	if err != nil {
		t.Fatalf("QueryAllRoles() error = %v", err)
	}
	if len(roles) != len(user.AllRoleNames) {
		t.Errorf("len(roles) = %d, want %d", len(roles), len(user.AllRoleNames))
	}

	menus, err := menuRepo.QueryActiveMenus(ctx)
	if err != nil {
		t.Fatalf("QueryActiveMenus() error = %v", err)
	}
	if len(menus) != 12 {
		t.Errorf("len(menus) = %d, want 12", len(menus))
	}
	submenus, err := menuRepo.QueryActiveSubmenus(ctx)
	if err != nil {
		t.Fatalf("QueryActiveSubmenus() error = %v", err)
	}
	if len(submenus) != 3 {
		t.Errorf("len(submenus) = %d, want 3", len(submenus))
	}

	admin, err := usrRepo.GetUserByEmail(ctx, defaultAdminEmail)
	if err != nil {
		t.Fatalf("GetUserByEmail(%s) error = %v", defaultAdminEmail, err)
	}
	if admin.RoleName != user.RoleAdmin {
		t.Errorf("admin role = %s, want %s", admin.RoleName, user.RoleAdmin)
	}
	if !admin.IsActive {
		t.Error("admin account is not active")
	}
	if err := admin.CheckPassword(defaultAdminPassword); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}

	// one permission row per menu and per submenu, all capabilities granted
	perms, err := permRepo.QueryPermissionsByRole(ctx, admin.RoleID)
	if err != nil {
		t.Fatalf("QueryPermissionsByRole() error = %v", err)
	}
	if len(perms) != len(menus)+len(submenus) {
		t.Errorf("len(perms) = %d, want %d", len(perms), len(menus)+len(submenus))
	}
	for _, p := range perms {
		if !(p.CanView && p.CanCreate && p.CanEdit && p.CanDelete) {
			t.Errorf("permission %+v is not a full grant", p)
		}
	}

	// a second run is a no-op
	if err := cli.run([]string{"admin", "seed"}); err != nil {
		t.Fatalf("second cli.run() error = %v", err)
	}
	roles, err = roleRepo.QueryAllRoles(ctx)
	if err != nil {
		t.Fatalf("QueryAllRoles() error = %v", err)
	}
	if len(roles) != len(user.AllRoleNames) {
		t.Errorf("after second seed len(roles) = %d, want %d", len(roles), len(user.AllRoleNames))
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	type extra struct {
		pwd string
	}
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cr3t"), nil }

	// the Admin role must exist first
	err := cli.run([]string{"admin", "adduser", "-email", "a@test.gt", "-nombre", "A", "-apellido", "B"})
	if err == nil || err.Error() != "el rol Admin no existe; ejecute `seed` primero" {
		t.Fatalf("cli.run() error = %v", err)
	}

	adminRole := createRole(t, user.RoleAdmin)
	studentRole := createRole(t, user.RoleStudent)
	student := createUser(t, "alumno@test.gt", "oldpwd", studentRole.ID)

	tests := []cliTest{
		{name: "no email", args: []string{"adduser", "-nombre", "A", "-apellido", "B"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "a@test.gt", "-nombre", "A", "-apellido", "B"}, wantErr: errHelp},
		{name: "new account", args: []string{"adduser", "-email", "a@test.gt", "-nombre", "A", "-apellido", "B"}, extra: extra{pwd: "s3cr3t"}},
		{name: "promote existing account", args: []string{"adduser", "-email", "alumno@test.gt", "-nombre", "A", "-apellido", "B"}, extra: extra{pwd: "n3wpwd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			email := tt.args[2]
			usr, err := usrRepo.GetUserByEmail(ctx, email)
			if err != nil {
				t.Fatalf("GetUserByEmail(%s) error = %v", email, err)
			}
			if usr.RoleID != adminRole.ID {
				t.Errorf("role = %d, want %d", usr.RoleID, adminRole.ID)
			}
			if !usr.IsActive {
				t.Error("account is not active")
			}
			if err := usr.CheckPassword(tt.extra.(extra).pwd); err != nil {
				t.Errorf("CheckPassword() error = %v", err)
			}
		})
	}

	// the promoted account kept its identity
	promoted, err := usrRepo.GetUserByID(ctx, student.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if promoted.Email != student.Email {
		t.Errorf("email = %s, want %s", promoted.Email, student.Email)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	r := createRole(t, user.RoleStudent)
	usr := createUser(t, "awe@test.gt", "mdr", r.ID)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.gt"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.gt"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "lol"}},
		{name: "reset is case-insensitive", args: []string{"resetpassword", "-email", "AWE@test.gt"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
