package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/permission"
	"github.com/classoptima/backend/core/user"
)

const contextUserKey = "user"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"rol,omitempty"`
}

func (c Claims) UserID() int {
	id, _ := strconv.Atoi(c.Subject)
	return id
}

// security owns the signing key and the claims plumbing shared by the
// middleware and the auth handlers.
type security struct {
	conf    *core.Config
	userSvc *user.Service
	jwtConf middleware.JWTConfig
}

func newSecurity(conf *core.Config, userSvc *user.Service) *security {
	return &security{
		conf:    conf,
		userSvc: userSvc,
		jwtConf: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "userToken",
			Claims:        new(Claims),
		},
	}
}

func (sec *security) jwtMiddleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(sec.jwtConf)
}

// GetUserClaims builds session claims for an authenticated user. The role
// name must belong to the known set; unknown roles never get a token.
func (sec *security) GetUserClaims(usr user.User) (*Claims, error) {
	if !usr.RoleName.Valid() {
		return nil, errors.Errorf("rol desconocido: %q", usr.RoleName)
	}
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    sec.conf.AppName,
			Subject:   strconv.Itoa(usr.ID),
			Audience:  "ClassOptima",
			ExpiresAt: now.Add(sec.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: usr.Email,
		Role:  usr.RoleName.String(),
	}, nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (sec *security) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(sec.jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(sec.jwtConf.SigningKey.([]byte))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get("userToken").(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser re-fetches the authenticated user from storage; tokens
// validate the session but the account state is always read fresh.
func (sec *security) getContextUser(ctx echo.Context, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := sec.userSvc.GetByID(ctx.Request().Context(), claims.UserID())
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// -- auth endpoints --

type authApi struct {
	sec      *security
	svc      *user.Service
	permSvc  *permission.Service
	validate *validator.Validate
}

func registerAuthAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	sec *security,
	svc *user.Service,
	permSvc *permission.Service,
	validate *validator.Validate,
) {
	api := authApi{sec: sec, svc: svc, permSvc: permSvc, validate: validate}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/recuperar-password", api.recoverPassword)
	ag.POST("/restablecer-password", api.resetPassword)

	// authed endpoints
	ag.GET("/verificar", api.verify, jwt)
	ag.POST("/cambiar-password", api.changePassword, jwt)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Identifier, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCredentials {
			return echo.NewHTTPError(http.StatusUnauthorized, user.ErrInvalidCredentials.Error())
		}
		return errors.Wrap(err, "authenticating")
	}

	claims, err := api.sec.GetUserClaims(usr)
	if err != nil {
		return errors.Wrap(err, "building claims")
	}
	token, err := api.sec.GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

// verify confirms a session is still valid and returns the fresh user with
// the permission rows their role can see.
func (api *authApi) verify(ctx echo.Context) error {
	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}

	perms, err := api.permSvc.ForRole(ctx.Request().Context(), usr.RoleID)
	if err != nil {
		return errors.Wrap(err, "querying role permissions")
	}
	visible := make([]permission.Permission, 0, len(perms))
	for _, p := range perms {
		if p.CanView {
			visible = append(visible, p)
		}
	}
	return ctx.JSON(http.StatusOK, VerifyResponse{User: usr, Permissions: visible})
}

func (api *authApi) changePassword(ctx echo.Context) error {
	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.sec.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.ChangePassword(ctx.Request().Context(), usr, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Contraseña actualizada correctamente."})
}

func (api *authApi) recoverPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "Si el correo está asociado a una cuenta activa, recibirás un " +
			"mensaje con instrucciones para restablecer tu contraseña.",
	})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "La contraseña ha sido restablecida."})
}

type (
	LoginRequest struct {
		Identifier string `json:"identificador" validate:"required"`
		Password   string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"usuario"`
	}

	VerifyResponse struct {
		User        user.User               `json:"usuario"`
		Permissions []permission.Permission `json:"permisos"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Identifier = core.CleanString(lr.Identifier)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
