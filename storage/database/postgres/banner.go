package postgres

import (
	"context"
	"database/sql"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/banner"
)

type bannerRow struct {
	ID          int            `db:"id"`
	Title       string         `db:"titulo"`
	Description sql.NullString `db:"descripcion"`
	Image       string         `db:"imagen"`
	Order       int            `db:"orden"`
	IsActive    bool           `db:"activo"`
}

func (r bannerRow) toBanner() banner.Banner {
	return banner.Banner{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description.String,
		Image:       r.Image,
		Order:       r.Order,
		IsActive:    r.IsActive,
	}
}

type bannerRepository struct {
	db core.DB
}

var _ banner.Repository = (*bannerRepository)(nil) // interface compliance check

func NewBannerRepository(db core.DB) *bannerRepository {
	return &bannerRepository{db: db}
}

func (repo *bannerRepository) queryBanners(ctx context.Context, query string) ([]banner.Banner, error) {
	var rows []bannerRow
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, trapErr(err, "querying banners", banner.ErrNotFound, nil)
	}
	banners := make([]banner.Banner, 0, len(rows))
	for _, r := range rows {
		banners = append(banners, r.toBanner())
	}
	return banners, nil
}

func (repo *bannerRepository) QueryActiveBanners(ctx context.Context) ([]banner.Banner, error) {
	return repo.queryBanners(ctx, `SELECT * FROM banners WHERE activo ORDER BY orden, id`)
}

func (repo *bannerRepository) QueryBanners(ctx context.Context) ([]banner.Banner, error) {
	return repo.queryBanners(ctx, `SELECT * FROM banners ORDER BY orden, id DESC`)
}

func (repo *bannerRepository) GetBannerByID(ctx context.Context, id int) (banner.Banner, error) {
	var r bannerRow
	query := `SELECT * FROM banners WHERE id = $1`
	if err := repo.db.GetContext(ctx, &r, query, id); err != nil {
		return banner.Banner{}, trapErr(err, "getting banner", banner.ErrNotFound, nil)
	}
	return r.toBanner(), nil
}

func (repo *bannerRepository) CreateBanner(ctx context.Context, b banner.Banner) (banner.Banner, error) {
	query := `
	INSERT INTO banners (titulo, descripcion, imagen, orden, activo)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		b.Title, nullStr(b.Description), b.Image, b.Order, b.IsActive,
	).Scan(&b.ID)
	if err != nil {
		return banner.Banner{}, trapErr(err, "inserting banner", banner.ErrNotFound, nil)
	}
	return b, nil
}

func (repo *bannerRepository) UpdateBanner(ctx context.Context, b banner.Banner) (banner.Banner, error) {
	query := `
	UPDATE banners
	SET titulo = $1, descripcion = $2, imagen = $3, orden = $4, activo = $5
	WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, query,
		b.Title, nullStr(b.Description), b.Image, b.Order, b.IsActive, b.ID,
	)
	if err != nil {
		return banner.Banner{}, trapErr(err, "updating banner", banner.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return banner.Banner{}, banner.ErrNotFound
	}
	return b, nil
}

func (repo *bannerRepository) DeleteBanner(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return trapErr(err, "deleting banner", banner.ErrNotFound, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return banner.ErrNotFound
	}
	return nil
}
