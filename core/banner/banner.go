// Package banner manages the promotional images the public landing page
// rotates through.
package banner

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

var (
	ErrNotFound      = errors.New("banner no encontrado")
	ErrImageRequired = errors.New("la imagen es requerida")
)

const imageBucket = "banners"

type Banner struct {
	ID          int    `json:"id"`
	Title       string `json:"titulo"`
	Description string `json:"descripcion,omitempty"`
	Image       string `json:"imagen"`
	Order       int    `json:"orden"`
	IsActive    bool   `json:"activo"`
}

// NewBanner carries the multipart fields of a creation. The image arrives
// either as an uploaded file or as an external URL in ImageURL.
type NewBanner struct {
	Title       string `json:"titulo" validate:"required"`
	Description string `json:"descripcion"`
	ImageURL    string `json:"imagen_url"`
	Order       int    `json:"orden"`
	IsActive    *bool  `json:"activo"`
}

func (nb *NewBanner) Validate(validate *validator.Validate) error {
	nb.Title = core.CleanString(nb.Title)
	return validate.Struct(nb)
}

// UpdateBanner overwrites every stored field; leaving both the file and
// ImageURL out keeps the stored image.
type UpdateBanner struct {
	Title       string `json:"titulo" validate:"required"`
	Description string `json:"descripcion"`
	ImageURL    string `json:"imagen_url"`
	Order       int    `json:"orden"`
	IsActive    *bool  `json:"activo"`
}

func (ub *UpdateBanner) Validate(validate *validator.Validate) error {
	ub.Title = core.CleanString(ub.Title)
	return validate.Struct(ub)
}

type (
	Repository interface {
		QueryActiveBanners(ctx context.Context) ([]Banner, error)
		QueryBanners(ctx context.Context) ([]Banner, error)
		GetBannerByID(ctx context.Context, id int) (Banner, error)
		CreateBanner(ctx context.Context, b Banner) (Banner, error)
		UpdateBanner(ctx context.Context, b Banner) (Banner, error)
		DeleteBanner(ctx context.Context, id int) error
	}

	Service struct {
		repo  Repository
		files core.FileStorage
	}
)

func NewService(repo Repository, files core.FileStorage) *Service {
	return &Service{repo: repo, files: files}
}

// QueryActive returns the banners the public page shows, in display order.
func (svc *Service) QueryActive(ctx context.Context) ([]Banner, error) {
	return svc.repo.QueryActiveBanners(ctx)
}

// QueryAll returns every banner, active or not, for the administration screen.
func (svc *Service) QueryAll(ctx context.Context) ([]Banner, error) {
	return svc.repo.QueryBanners(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Banner, error) {
	return svc.repo.GetBannerByID(ctx, id)
}

// Create stores a new banner; one of the uploaded file or ImageURL is
// required. An unset activo defaults to visible.
func (svc *Service) Create(ctx context.Context, nb NewBanner, image *core.FileUpload) (Banner, error) {
	imagePath := nb.ImageURL
	if image != nil {
		path, err := svc.files.Save(
			imageBucket, image.Filename, image.ContentType,
			image.Size, image.Content, core.ImagePolicy,
		)
		if err != nil {
			return Banner{}, err
		}
		imagePath = path
	}
	if imagePath == "" {
		return Banner{}, core.NewValidationError(ErrImageRequired, core.FieldError{
			Field: "imagen",
			Error: ErrImageRequired.Error(),
		})
	}

	b := Banner{
		Title:       nb.Title,
		Description: nb.Description,
		Image:       imagePath,
		Order:       nb.Order,
		IsActive:    true,
	}
	if nb.IsActive != nil {
		b.IsActive = *nb.IsActive
	}
	return svc.repo.CreateBanner(ctx, b)
}

// Update overwrites a banner. A new uploaded file replaces the stored image;
// otherwise a non-empty ImageURL takes its place and an empty one keeps it.
func (svc *Service) Update(ctx context.Context, id int, ub UpdateBanner, image *core.FileUpload) (Banner, error) {
	b, err := svc.repo.GetBannerByID(ctx, id)
	if err != nil {
		return Banner{}, err
	}

	switch {
	case image != nil:
		path, err := svc.files.Save(
			imageBucket, image.Filename, image.ContentType,
			image.Size, image.Content, core.ImagePolicy,
		)
		if err != nil {
			return Banner{}, err
		}
		if b.Image != "" {
			_ = svc.files.Remove(b.Image)
		}
		b.Image = path
	case ub.ImageURL != "":
		b.Image = ub.ImageURL
	}

	b.Title = ub.Title
	b.Description = ub.Description
	b.Order = ub.Order
	b.IsActive = true
	if ub.IsActive != nil {
		b.IsActive = *ub.IsActive
	}
	return svc.repo.UpdateBanner(ctx, b)
}

// Delete removes the banner and its stored image file.
func (svc *Service) Delete(ctx context.Context, id int) error {
	b, err := svc.repo.GetBannerByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteBanner(ctx, id); err != nil {
		return err
	}
	if b.Image != "" {
		_ = svc.files.Remove(b.Image)
	}
	return nil
}

// Toggle flips a banner's visibility.
func (svc *Service) Toggle(ctx context.Context, id int) (Banner, error) {
	b, err := svc.repo.GetBannerByID(ctx, id)
	if err != nil {
		return Banner{}, err
	}
	b.IsActive = !b.IsActive
	return svc.repo.UpdateBanner(ctx, b)
}
