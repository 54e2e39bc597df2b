package inmemdb

import (
	"context"
	"sort"

	"github.com/classoptima/backend/core/banner"
)

type bannerRepository struct {
	db *DB
}

var _ banner.Repository = (*bannerRepository)(nil) // interface compliance check

func NewBannerRepository(db *DB) banner.Repository {
	return &bannerRepository{db: db}
}

func sortBanners(banners []banner.Banner) {
	sort.Slice(banners, func(i, j int) bool {
		if banners[i].Order != banners[j].Order {
			return banners[i].Order < banners[j].Order
		}
		return banners[i].ID < banners[j].ID
	})
}

func (repo *bannerRepository) QueryActiveBanners(ctx context.Context) ([]banner.Banner, error) {
	repo.db.banner.RLock()
	defer repo.db.banner.RUnlock()

	banners := make([]banner.Banner, 0)
	for _, b := range repo.db.banner.query() {
		if b.IsActive {
			banners = append(banners, b)
		}
	}
	sortBanners(banners)
	return banners, nil
}

func (repo *bannerRepository) QueryBanners(ctx context.Context) ([]banner.Banner, error) {
	repo.db.banner.RLock()
	defer repo.db.banner.RUnlock()

	banners := repo.db.banner.query()
	sortBanners(banners)
	return banners, nil
}

func (repo *bannerRepository) GetBannerByID(ctx context.Context, id int) (banner.Banner, error) {
	repo.db.banner.RLock()
	defer repo.db.banner.RUnlock()

	if b, ok := repo.db.banner.rows[id]; ok {
		return *b, nil
	}
	return banner.Banner{}, banner.ErrNotFound
}

func (repo *bannerRepository) CreateBanner(ctx context.Context, b banner.Banner) (banner.Banner, error) {
	repo.db.banner.Lock()
	defer repo.db.banner.Unlock()

	b.ID = repo.db.banner.nextPK()
	repo.db.banner.rows[b.ID] = &b
	return b, nil
}

func (repo *bannerRepository) UpdateBanner(ctx context.Context, b banner.Banner) (banner.Banner, error) {
	repo.db.banner.Lock()
	defer repo.db.banner.Unlock()

	if _, ok := repo.db.banner.rows[b.ID]; !ok {
		return banner.Banner{}, banner.ErrNotFound
	}
	repo.db.banner.rows[b.ID] = &b
	return b, nil
}

func (repo *bannerRepository) DeleteBanner(ctx context.Context, id int) error {
	repo.db.banner.Lock()
	defer repo.db.banner.Unlock()

	if _, ok := repo.db.banner.rows[id]; !ok {
		return banner.ErrNotFound
	}
	delete(repo.db.banner.rows, id)
	return nil
}
