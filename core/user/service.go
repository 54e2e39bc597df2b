package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("usuario no encontrado")
	ErrUserExists         = errors.New("ya existe un usuario con ese email, código de alumno o DPI")
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrWrongPassword      = errors.New("contraseña actual incorrecta")
	ErrWeakPassword       = errors.New("la contraseña debe tener al menos 6 caracteres")
)

type (
	Repository interface {
		CheckUniqueness(ctx context.Context, email, studentCode, dpi string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter) ([]User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// GetActiveUserByIdentifier tries the identifier against the email,
		// student-code and DPI columns; first match wins.
		GetActiveUserByIdentifier(ctx context.Context, identifier string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id int) error
		SetUserPassword(ctx context.Context, id int, hash []byte) error
		SetUserResetToken(ctx context.Context, id int, token string, expiry time.Time) error
		ClearUserResetToken(ctx context.Context, id int) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		log     core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, log core.Logger) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		log:     log,
	}
}

func (svc *Service) checkUniqueness(email, studentCode, dpi string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(context.Background(), email, studentCode, dpi, exclUsers...); err != nil {
		if errors.Cause(err) == ErrUserExists {
			return core.NewConflictError(ErrUserExists.Error())
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		FirstName:   nu.FirstName,
		LastName:    nu.LastName,
		Email:       nu.Email,
		RoleID:      nu.RoleID,
		StudentCode: nu.StudentCode,
		DPI:         nu.DPI,
		Phone:       nu.Phone,
		Address:     nu.Address,
		BirthDate:   nu.BirthDate,
		Gender:      nu.Gender,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nu.IsActive != nil {
		usr.IsActive = *nu.IsActive
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

// UserExists reports whether a user with the given ID exists; it returns
// ErrNotFound otherwise. Satisfies course.TeacherChecker.
func (svc *Service) UserExists(ctx context.Context, id int) error {
	_, err := svc.repo.GetUserByID(ctx, id)
	return err
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr := User{
		ID:          id,
		FirstName:   uu.FirstName,
		LastName:    uu.LastName,
		Email:       uu.Email,
		RoleID:      uu.RoleID,
		StudentCode: uu.StudentCode,
		DPI:         uu.DPI,
		Phone:       uu.Phone,
		Address:     uu.Address,
		BirthDate:   uu.BirthDate,
		Gender:      uu.Gender,
		UpdatedAt:   time.Now().UTC(),
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	} else {
		orig, err := svc.repo.GetUserByID(ctx, id)
		if err != nil {
			return User{}, err
		}
		usr.IsActive = orig.IsActive
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete removes a user outright. Users referenced by grades or enrollments
// should be deactivated instead; the storage layer rejects the delete in
// that case.
func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteUser(ctx, id)
}

// Authenticate verifies an identifier (email, student code or DPI) and
// password against an active account. Unknown identifier and wrong password
// yield the same error so callers cannot tell which part failed.
func (svc *Service) Authenticate(ctx context.Context, identifier, password string) (User, error) {
	// the repo compares emails case-insensitively; student codes and DPI
	// match verbatim, so the identifier keeps its case
	usr, err := svc.repo.GetActiveUserByIdentifier(ctx, core.CleanString(identifier))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by identifier")
	}
	if err = usr.CheckPassword(password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

// ChangePassword replaces the password of an authenticated user after
// re-verifying the current one.
func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) error {
	if err := usr.CheckPassword(cp.CurrentPassword); err != nil {
		return ErrWrongPassword
	}
	return svc.setPassword(ctx, usr.ID, cp.NewPassword)
}

// SetPassword overwrites a user's password without further checks (admin reset).
func (svc *Service) SetPassword(ctx context.Context, id int, newPwd string) error {
	if _, err := svc.repo.GetUserByID(ctx, id); err != nil {
		return err
	}
	return svc.setPassword(ctx, id, newPwd)
}

func (svc *Service) setPassword(ctx context.Context, id int, newPwd string) error {
	if len(newPwd) < 6 {
		return ErrWeakPassword
	}
	var usr User
	if err := usr.SetPassword(newPwd); err != nil {
		return err
	}
	return svc.repo.SetUserPassword(ctx, id, usr.PasswordHash)
}

// RequestPasswordReset generates a recovery token for the account, persists
// it with a 1-hour expiry and emails a reset link. Returns ErrNotFound when
// no active account matches; callers MUST NOT leak that to the requester.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}

	token, expiry, err := MakeResetToken(svc.conf, usr)
	if err != nil {
		return errors.Wrap(err, "generating reset token")
	}
	if err = svc.repo.SetUserResetToken(ctx, usr.ID, token, expiry); err != nil {
		return errors.Wrap(err, "persisting reset token")
	}

	svc.sendPasswordResetMail(usr, token)
	return nil
}

// ResetPassword consumes a recovery token and sets a new password. The token
// must carry the reset purpose, verify against the signing key, match the
// persisted copy exactly and not be past its stored expiry. The stored copy
// is cleared on success, which makes the token single-use.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	email, err := VerifyResetToken(svc.conf, rp.Token)
	if err != nil {
		return ErrInvalidToken
	}
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return ErrInvalidToken
	}
	if usr.ResetToken == "" || usr.ResetToken != rp.Token {
		return ErrInvalidToken
	}
	if NowFunc().After(usr.ResetTokenExpiry) {
		return ErrInvalidToken
	}

	if err = svc.setPassword(ctx, usr.ID, rp.NewPassword); err != nil {
		return err
	}
	return svc.repo.ClearUserResetToken(ctx, usr.ID)
}

func (svc *Service) sendPasswordResetMail(usr User, token string) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Recuperación de contraseña",
		TemplateName: "password_reset",
		TemplateData: struct {
			Name  string
			Token string
		}{usr.FirstName, token},
	}
	svc.mailSvc.SendMessages(msg)
}
