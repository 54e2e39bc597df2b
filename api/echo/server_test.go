package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/banner"
	"github.com/classoptima/backend/core/menu"
	"github.com/classoptima/backend/core/payment"
	"github.com/classoptima/backend/core/permission"
	"github.com/classoptima/backend/core/role"
	"github.com/classoptima/backend/core/user"
	emailsvc "github.com/classoptima/backend/services/email"
	logsvc "github.com/classoptima/backend/services/logger"
	inmemdb "github.com/classoptima/backend/storage/database/inmem"
	"github.com/classoptima/backend/storage/files"
)

type testApp struct {
	server Server
	sec    *security

	usrSvc    *user.Service
	menuRepo  menu.Repository
	permSvc   *permission.Service
	bannerSvc *banner.Service

	roleIDs map[user.RoleName]int
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewTestConfig()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() error = %v", err)
	}

	usrRepo := inmemdb.NewUserRepository(db)
	roleRepo := inmemdb.NewRoleRepository(db)
	menuRepo := inmemdb.NewMenuRepository(db)
	permRepo := inmemdb.NewPermissionRepository(db)
	payRepo := inmemdb.NewPaymentRepository(db)
	bannerRepo := inmemdb.NewBannerRepository(db)

	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	fileStore, err := files.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("files.NewLocalStorage() error = %v", err)
	}

	usrSvc := user.NewService(usrRepo, mailSvc, conf, logger)
	roleSvc := role.NewService(roleRepo)
	menuSvc := menu.NewService(menuRepo)
	permSvc := permission.NewService(permRepo, roleRepo, menuRepo)
	paySvc := payment.NewService(payRepo, nil)
	bannerSvc := banner.NewService(bannerRepo, fileStore)

	srv := NewServer(&Options{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        usrSvc,
		RoleSvc:        roleSvc,
		MenuSvc:        menuSvc,
		PermSvc:        permSvc,
		PaymentSvc:     paySvc,
		BannerSvc:      bannerSvc,
	})

	app := &testApp{
		server:    srv,
		sec:       srv.(*server).sec,
		usrSvc:    usrSvc,
		menuRepo:  menuRepo,
		permSvc:   permSvc,
		bannerSvc: bannerSvc,
		roleIDs:   make(map[user.RoleName]int),
	}
	for _, name := range user.AllRoleNames {
		r, err := roleRepo.CreateRole(context.Background(), role.Role{
			Name: name.String(), IsActive: true, CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("CreateRole(%s) error = %v", name, err)
		}
		app.roleIDs[name] = r.ID
	}
	return app
}

func (a *testApp) createUser(t *testing.T, email, pwd string, roleName user.RoleName, active bool) user.User {
	t.Helper()

	usr, err := a.usrSvc.Create(context.Background(), user.NewUser{
		FirstName: "Test",
		LastName:  string(roleName),
		Email:     email,
		Password:  pwd,
		RoleID:    a.roleIDs[roleName],
		IsActive:  &active,
	})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", email, err)
	}
	return usr
}

func (a *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()

	claims, err := a.sec.GetUserClaims(usr)
	if err != nil {
		t.Fatalf("GetUserClaims() error = %v", err)
	}
	token, err := a.sec.GenerateToken(claims)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

func (a *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func errBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshalling error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestServer_home(t *testing.T) {
	app := setupApp(t)

	rec := app.do(http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthAPI_login(t *testing.T) {
	app := setupApp(t)
	app.createUser(t, "admin@test.gt", "s3cr3t", user.RoleAdmin, true)

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{name: "missing fields", body: map[string]string{}, wantCode: http.StatusBadRequest},
		{name: "unknown account", body: map[string]string{"identificador": "nope@test.gt", "password": "s3cr3t"}, wantCode: http.StatusUnauthorized},
		{name: "wrong password", body: map[string]string{"identificador": "admin@test.gt", "password": "nope"}, wantCode: http.StatusUnauthorized},
		{name: "ok", body: map[string]string{"identificador": "admin@test.gt", "password": "s3cr3t"}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/api/auth/login", "", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if resp.Token == "" {
					t.Error("response is missing the token")
				}
				if resp.User.Email != "admin@test.gt" {
					t.Errorf("response user = %+v", resp.User)
				}
			}
		})
	}

	// unknown identifier and wrong password are indistinguishable
	unknown := app.do(http.MethodPost, "/api/auth/login", "", map[string]string{"identificador": "nope@test.gt", "password": "s3cr3t"})
	wrongPwd := app.do(http.MethodPost, "/api/auth/login", "", map[string]string{"identificador": "admin@test.gt", "password": "nope"})
	if unknown.Code != wrongPwd.Code || errBody(t, unknown) != errBody(t, wrongPwd) {
		t.Errorf("responses differ: %d %q vs %d %q",
			unknown.Code, errBody(t, unknown), wrongPwd.Code, errBody(t, wrongPwd))
	}
}

func TestAuthAPI_verify(t *testing.T) {
	app := setupApp(t)
	admin := app.createUser(t, "admin@test.gt", "s3cr3t", user.RoleAdmin, true)

	cursos, err := app.menuRepo.CreateMenu(context.Background(), menu.Menu{Name: "Cursos", Order: 1, IsActive: true})
	if err != nil {
		t.Fatalf("CreateMenu() error = %v", err)
	}
	err = app.permSvc.Replace(context.Background(), permission.Assignment{
		RoleID:  admin.RoleID,
		Entries: []permission.Entry{{MenuID: cursos.ID}},
	})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	rec := app.do(http.MethodGet, "/api/auth/verificar", app.token(t, admin), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	var resp VerifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if resp.User.ID != admin.ID {
		t.Errorf("user = %+v", resp.User)
	}
	if len(resp.Permissions) != 1 || resp.Permissions[0].MenuName != "Cursos" {
		t.Errorf("permisos = %+v", resp.Permissions)
	}
}

func TestRoleMiddleware(t *testing.T) {
	app := setupApp(t)
	ctx := context.Background()

	admin := app.createUser(t, "admin@test.gt", "s3cr3t", user.RoleAdmin, true)
	student := app.createUser(t, "alumno@test.gt", "s3cr3t", user.RoleStudent, true)
	inactive := app.createUser(t, "inactivo@test.gt", "s3cr3t", user.RoleAdmin, false)

	tests := []struct {
		name     string
		token    string
		wantCode int
		wantErr  string
	}{
		{name: "missing token", wantCode: http.StatusUnauthorized, wantErr: "missing or malformed jwt"},
		{name: "garbage token", token: "lol", wantCode: http.StatusUnauthorized},
		{name: "inactive account", token: app.token(t, inactive), wantCode: http.StatusForbidden, wantErr: "cuenta desactivada"},
		{name: "role not allowed", token: app.token(t, student), wantCode: http.StatusForbidden, wantErr: "permiso denegado"},
		{name: "allowed", token: app.token(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, "/api/usuarios", tt.token, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" && errBody(t, rec) != tt.wantErr {
				t.Errorf("error = %q, want %q", errBody(t, rec), tt.wantErr)
			}
		})
	}

	// deactivation takes effect on the next request, tokens notwithstanding
	token := app.token(t, admin)
	active := false
	_, err := app.usrSvc.Update(ctx, admin.ID, user.UpdateUser{
		FirstName: admin.FirstName,
		LastName:  admin.LastName,
		Email:     admin.Email,
		RoleID:    admin.RoleID,
		IsActive:  &active,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	rec := app.do(http.MethodGet, "/api/usuarios", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("deactivated admin code = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestUserAPI_delete(t *testing.T) {
	app := setupApp(t)

	admin := app.createUser(t, "admin@test.gt", "s3cr3t", user.RoleAdmin, true)
	director := app.createUser(t, "director@test.gt", "s3cr3t", user.RoleDirector, true)
	victim := app.createUser(t, "borrar@test.gt", "s3cr3t", user.RoleStudent, true)

	victimPath := "/api/usuarios/" + strconv.Itoa(victim.ID)

	// staff below Admin may read but not delete
	rec := app.do(http.MethodDelete, victimPath, app.token(t, director), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("director delete code = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// admins cannot delete themselves
	rec = app.do(http.MethodDelete, "/api/usuarios/"+strconv.Itoa(admin.ID), app.token(t, admin), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("self delete code = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = app.do(http.MethodDelete, victimPath, app.token(t, admin), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete code = %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.do(http.MethodDelete, victimPath, app.token(t, admin), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete code = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPermissionAPI(t *testing.T) {
	app := setupApp(t)
	ctx := context.Background()

	admin := app.createUser(t, "admin@test.gt", "s3cr3t", user.RoleAdmin, true)
	student := app.createUser(t, "alumno@test.gt", "s3cr3t", user.RoleStudent, true)

	usuarios, err := app.menuRepo.CreateMenu(ctx, menu.Menu{Name: "Usuarios", Order: 1, IsActive: true})
	if err != nil {
		t.Fatalf("CreateMenu() error = %v", err)
	}

	adminToken := app.token(t, admin)

	// students cannot manage the matrix
	rec := app.do(http.MethodGet, "/api/permisos/matriz", app.token(t, student), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student matrix code = %d, want %d", rec.Code, http.StatusForbidden)
	}

	body := permission.Assignment{
		RoleID:  app.roleIDs[user.RoleStudent],
		Entries: []permission.Entry{{MenuID: usuarios.ID, CanCreate: true}},
	}
	rec = app.do(http.MethodPost, "/api/permisos", adminToken, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace code = %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.do(http.MethodGet, "/api/permisos/rol/"+strconv.Itoa(app.roleIDs[user.RoleStudent]), adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("role perms code = %d: %s", rec.Code, rec.Body.String())
	}
	var perms []permission.Permission
	if err := json.Unmarshal(rec.Body.Bytes(), &perms); err != nil {
		t.Fatalf("unmarshalling perms: %v", err)
	}
	if assert.Len(t, perms, 1) {
		assert.True(t, perms[0].CanView, "omitted puede_ver defaults to granted")
		assert.True(t, perms[0].CanCreate)
		assert.False(t, perms[0].CanDelete)
	}

	// single-capability flip
	rec = app.do(http.MethodPut, "/api/permisos/individual", adminToken, permission.SingleUpdate{
		RoleID: app.roleIDs[user.RoleStudent],
		MenuID: usuarios.ID,
		Field:  permission.FieldCanDelete,
		Value:  true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("single update code = %d: %s", rec.Code, rec.Body.String())
	}
	var p permission.Permission
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshalling permission: %v", err)
	}
	if !p.CanDelete || !p.CanView || !p.CanCreate {
		t.Errorf("permission = %+v", p)
	}

	// unknown capability name
	rec = app.do(http.MethodPut, "/api/permisos/individual", adminToken, permission.SingleUpdate{
		RoleID: app.roleIDs[user.RoleStudent],
		MenuID: usuarios.ID,
		Field:  "puede_volar",
		Value:  true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid field code = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAuthAPI_recoverPassword(t *testing.T) {
	app := setupApp(t)
	app.createUser(t, "alumno@test.gt", "s3cr3t", user.RoleStudent, true)
	emailsvc.ClearSentMessages()

	rec := app.do(http.MethodPost, "/api/auth/recuperar-password", "", map[string]string{"email": "no-es-un-correo"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed email code = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// a mixed-case address still reaches the account
	known := app.do(http.MethodPost, "/api/auth/recuperar-password", "", map[string]string{"email": "Alumno@test.gt"})
	unknown := app.do(http.MethodPost, "/api/auth/recuperar-password", "", map[string]string{"email": "nadie@test.gt"})
	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("codes = %d and %d, want %d for both", known.Code, unknown.Code, http.StatusOK)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Error("response reveals whether the account exists")
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("sent messages = %d, want one reset mail for the known account", len(emailsvc.SentMessages))
	}
}

func TestAuthAPI_changePassword(t *testing.T) {
	app := setupApp(t)
	usr := app.createUser(t, "director@test.gt", "s3cr3t", user.RoleDirector, true)
	token := app.token(t, usr)

	rec := app.do(http.MethodPost, "/api/auth/cambiar-password", token,
		map[string]string{"passwordActual": "adivinanza", "passwordNuevo": "nu3vopass"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current password code = %d, want %d: %s", rec.Code, http.StatusUnauthorized, rec.Body.String())
	}

	rec = app.do(http.MethodPost, "/api/auth/cambiar-password", token,
		map[string]string{"passwordActual": "s3cr3t", "passwordNuevo": "nu3vopass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("change password code = %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.do(http.MethodPost, "/api/auth/login", "",
		map[string]string{"identificador": "director@test.gt", "password": "nu3vopass"})
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password code = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRoleAPI_duplicateName(t *testing.T) {
	app := setupApp(t)
	admin := app.createUser(t, "admin@test.gt", "s3cr3t", user.RoleAdmin, true)

	rec := app.do(http.MethodPost, "/api/roles", app.token(t, admin), map[string]string{"nombre": "Admin"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate role code = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
	if errBody(t, rec) == "" {
		t.Error("response is missing the error message")
	}
}

func TestBannerAPI(t *testing.T) {
	app := setupApp(t)
	admin := app.createUser(t, "admin@test.gt", "s3cr3t", user.RoleAdmin, true)
	student := app.createUser(t, "alumno@test.gt", "s3cr3t", user.RoleStudent, true)
	ctx := context.Background()

	visible, err := app.bannerSvc.Create(ctx, banner.NewBanner{
		Title: "Inscripciones", ImageURL: "https://cdn.test.gt/inscripciones.png", Order: 1,
	}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	hidden := false
	draft, err := app.bannerSvc.Create(ctx, banner.NewBanner{
		Title: "Borrador", ImageURL: "https://cdn.test.gt/borrador.png", Order: 2, IsActive: &hidden,
	}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// the public listing needs no token and hides inactive banners
	rec := app.do(http.MethodGet, "/api/banners", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public listing code = %d: %s", rec.Code, rec.Body.String())
	}
	var banners []banner.Banner
	if err := json.Unmarshal(rec.Body.Bytes(), &banners); err != nil {
		t.Fatalf("unmarshalling banners: %v", err)
	}
	if assert.Len(t, banners, 1) {
		assert.Equal(t, visible.ID, banners[0].ID)
	}

	// the administration listing is staff-only and includes drafts
	if rec = app.do(http.MethodGet, "/api/banners/admin", app.token(t, student), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("student admin listing code = %d, want %d", rec.Code, http.StatusForbidden)
	}
	adminToken := app.token(t, admin)
	rec = app.do(http.MethodGet, "/api/banners/admin", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin listing code = %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &banners); err != nil {
		t.Fatalf("unmarshalling banners: %v", err)
	}
	assert.Len(t, banners, 2)

	// toggling the draft publishes it
	rec = app.do(http.MethodPut, "/api/banners/"+strconv.Itoa(draft.ID)+"/toggle", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle code = %d: %s", rec.Code, rec.Body.String())
	}
	rec = app.do(http.MethodGet, "/api/banners", "", nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &banners)
	assert.Len(t, banners, 2)

	rec = app.do(http.MethodDelete, "/api/banners/"+strconv.Itoa(draft.ID), adminToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete code = %d: %s", rec.Code, rec.Body.String())
	}
	if rec = app.do(http.MethodGet, "/api/banners/"+strconv.Itoa(draft.ID), adminToken, nil); rec.Code != http.StatusNotFound {
		t.Errorf("deleted banner code = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
