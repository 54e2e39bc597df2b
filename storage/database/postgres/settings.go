package postgres

import (
	"context"
	"database/sql"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/settings"
)

type settingsRow struct {
	ID           int            `db:"id"`
	SystemName   string         `db:"nombre_sistema"`
	Logo         sql.NullString `db:"logo"`
	ContactEmail sql.NullString `db:"email_contacto"`
	ContactPhone sql.NullString `db:"telefono_contacto"`
	Address      sql.NullString `db:"direccion"`
	ThemeColor   sql.NullString `db:"tema_color"`
}

func (r settingsRow) toSettings() settings.Settings {
	return settings.Settings{
		ID:           r.ID,
		SystemName:   r.SystemName,
		Logo:         r.Logo.String,
		ContactEmail: r.ContactEmail.String,
		ContactPhone: r.ContactPhone.String,
		Address:      r.Address.String,
		ThemeColor:   r.ThemeColor.String,
	}
}

type settingsRepository struct {
	db core.DB
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db core.DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) GetSettings(ctx context.Context) (settings.Settings, error) {
	var r settingsRow
	query := `SELECT * FROM configuracion ORDER BY id DESC LIMIT 1`
	if err := repo.db.GetContext(ctx, &r, query); err != nil {
		return settings.Settings{}, trapErr(err, "getting settings", settings.ErrNotFound, nil)
	}
	return r.toSettings(), nil
}

func (repo *settingsRepository) CreateSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	query := `
	INSERT INTO configuracion (nombre_sistema, logo, email_contacto, telefono_contacto, direccion, tema_color)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		s.SystemName, nullStr(s.Logo), nullStr(s.ContactEmail),
		nullStr(s.ContactPhone), nullStr(s.Address), nullStr(s.ThemeColor),
	).Scan(&s.ID)
	if err != nil {
		return settings.Settings{}, trapErr(err, "inserting settings", settings.ErrNotFound, nil)
	}
	return s, nil
}

func (repo *settingsRepository) UpdateSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	query := `
	UPDATE configuracion SET
		nombre_sistema = $1, logo = $2, email_contacto = $3,
		telefono_contacto = $4, direccion = $5, tema_color = $6
	WHERE id = $7`
	res, err := repo.db.ExecContext(ctx, query,
		s.SystemName, nullStr(s.Logo), nullStr(s.ContactEmail),
		nullStr(s.ContactPhone), nullStr(s.Address), nullStr(s.ThemeColor),
		s.ID,
	)
	if err != nil {
		return settings.Settings{}, trapErr(err, "updating settings", settings.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return settings.Settings{}, settings.ErrNotFound
	}
	return s, nil
}
