package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/user"
)

type userRow struct {
	ID               int            `db:"id"`
	FirstName        string         `db:"nombre"`
	LastName         string         `db:"apellido"`
	Email            string         `db:"email"`
	PasswordHash     []byte         `db:"password_hash"`
	RoleID           int            `db:"rol_id"`
	RoleName         sql.NullString `db:"rol_nombre"`
	StudentCode      sql.NullString `db:"codigo_alumno"`
	DPI              sql.NullString `db:"dpi"`
	Phone            sql.NullString `db:"telefono"`
	Address          sql.NullString `db:"direccion"`
	BirthDate        sql.NullTime   `db:"fecha_nacimiento"`
	Gender           sql.NullString `db:"genero"`
	IsActive         bool           `db:"activo"`
	ResetToken       sql.NullString `db:"reset_token"`
	ResetTokenExpiry sql.NullTime   `db:"reset_token_expira"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r userRow) toUser() user.User {
	u := user.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		RoleID:       r.RoleID,
		RoleName:     user.RoleName(r.RoleName.String),
		StudentCode:  r.StudentCode.String,
		DPI:          r.DPI.String,
		Phone:        r.Phone.String,
		Address:      r.Address.String,
		Gender:       r.Gender.String,
		IsActive:     r.IsActive,
		ResetToken:   r.ResetToken.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.BirthDate.Valid {
		t := r.BirthDate.Time
		u.BirthDate = &t
	}
	if r.ResetTokenExpiry.Valid {
		u.ResetTokenExpiry = r.ResetTokenExpiry.Time
	}
	return u
}

const userColumns = `
	u.id, u.nombre, u.apellido, u.email, u.password_hash, u.rol_id,
	u.codigo_alumno, u.dpi, u.telefono, u.direccion, u.fecha_nacimiento,
	u.genero, u.activo, u.reset_token, u.reset_token_expira,
	u.created_at, u.updated_at, r.nombre AS rol_nombre`

const userFrom = ` FROM usuarios u INNER JOIN roles r ON u.rol_id = r.id`

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, email, studentCode, dpi string, excludedUsers ...user.User) error {
	query := `SELECT COUNT(*) FROM usuarios WHERE (email = $1 OR (codigo_alumno <> '' AND codigo_alumno = $2) OR (dpi <> '' AND dpi = $3))`
	args := []interface{}{email, studentCode, dpi}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			args = append(args, u.ID)
			ids = append(ids, fmt.Sprintf("$%d", len(args)))
		}
		query += fmt.Sprintf(" AND id NOT IN (%s)", strings.Join(ids, ","))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return trapErr(err, "checking user uniqueness", user.ErrNotFound, nil)
	}
	if count > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
	INSERT INTO usuarios (
		nombre, apellido, email, password_hash, rol_id, codigo_alumno, dpi,
		telefono, direccion, fecha_nacimiento, genero, activo, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		usr.FirstName, usr.LastName, usr.Email, usr.PasswordHash, usr.RoleID,
		nullStr(usr.StudentCode), nullStr(usr.DPI), nullStr(usr.Phone),
		nullStr(usr.Address), nullTime(usr.BirthDate), nullStr(usr.Gender),
		usr.IsActive, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, trapErr(err, "creating user", user.ErrNotFound, user.ErrUserExists)
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter) ([]user.User, error) {
	query := `SELECT` + userColumns + userFrom + ` WHERE 1=1`
	var args []interface{}
	if filter != nil {
		if filter.Role != "" {
			args = append(args, string(filter.Role))
			query += fmt.Sprintf(" AND r.nombre = $%d", len(args))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			query += fmt.Sprintf(" AND u.activo = $%d", len(args))
		}
	}
	query += ` ORDER BY u.apellido, u.nombre`

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, trapErr(err, "querying users", user.ErrNotFound, nil)
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var r userRow
	query := `SELECT` + userColumns + userFrom + ` WHERE u.id = $1`
	if err := repo.db.GetContext(ctx, &r, query, id); err != nil {
		return user.User{}, trapErr(err, "getting user by id", user.ErrNotFound, nil)
	}
	return r.toUser(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var r userRow
	query := `SELECT` + userColumns + userFrom + ` WHERE lower(u.email) = lower($1)`
	if err := repo.db.GetContext(ctx, &r, query, email); err != nil {
		return user.User{}, trapErr(err, "getting user by email", user.ErrNotFound, nil)
	}
	return r.toUser(), nil
}

func (repo *userRepository) GetActiveUserByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	var r userRow
	query := `SELECT` + userColumns + userFrom + `
	WHERE u.activo = TRUE
	  AND (lower(u.email) = lower($1) OR u.codigo_alumno = $1 OR u.dpi = $1)
	LIMIT 1`
	if err := repo.db.GetContext(ctx, &r, query, identifier); err != nil {
		return user.User{}, trapErr(err, "getting user by identifier", user.ErrNotFound, nil)
	}
	return r.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
	UPDATE usuarios SET
		nombre = $1, apellido = $2, email = $3, rol_id = $4, codigo_alumno = $5,
		dpi = $6, telefono = $7, direccion = $8, fecha_nacimiento = $9,
		genero = $10, activo = $11, updated_at = $12
	WHERE id = $13`
	res, err := repo.db.ExecContext(ctx, query,
		usr.FirstName, usr.LastName, usr.Email, usr.RoleID,
		nullStr(usr.StudentCode), nullStr(usr.DPI), nullStr(usr.Phone),
		nullStr(usr.Address), nullTime(usr.BirthDate), nullStr(usr.Gender),
		usr.IsActive, usr.UpdatedAt, usr.ID,
	)
	if err != nil {
		return user.User{}, trapErr(err, "updating user", user.ErrNotFound, user.ErrUserExists)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return trapErr(err, "deleting user", user.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) SetUserPassword(ctx context.Context, id int, hash []byte) error {
	query := `UPDATE usuarios SET password_hash = $1, updated_at = $2 WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, hash, time.Now().UTC(), id)
	if err != nil {
		return trapErr(err, "setting user password", user.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) SetUserResetToken(ctx context.Context, id int, token string, expiry time.Time) error {
	query := `UPDATE usuarios SET reset_token = $1, reset_token_expira = $2 WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, token, expiry, id)
	if err != nil {
		return trapErr(err, "setting reset token", user.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) ClearUserResetToken(ctx context.Context, id int) error {
	query := `UPDATE usuarios SET reset_token = NULL, reset_token_expira = NULL WHERE id = $1`
	_, err := repo.db.ExecContext(ctx, query, id)
	return trapErr(err, "clearing reset token", user.ErrNotFound, nil)
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
