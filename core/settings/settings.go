// Package settings holds the single-row school configuration: system name,
// logo and contact details shown by the frontend.
package settings

import (
	"context"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

var ErrNotFound = errors.New("configuración no encontrada")

const logoBucket = "configuracion"

type Settings struct {
	ID           int    `json:"id"`
	SystemName   string `json:"nombre_sistema"`
	Logo         string `json:"logo,omitempty"`
	ContactEmail string `json:"email_contacto,omitempty"`
	ContactPhone string `json:"telefono_contacto,omitempty"`
	Address      string `json:"direccion,omitempty"`
	ThemeColor   string `json:"tema_color,omitempty"`
}

// UpdateSettings is a partial update; empty fields keep their stored value.
type UpdateSettings struct {
	SystemName   string `json:"nombre_sistema"`
	ContactEmail string `json:"email_contacto"`
	ContactPhone string `json:"telefono_contacto"`
	Address      string `json:"direccion"`
	ThemeColor   string `json:"tema_color"`
}

type (
	Repository interface {
		GetSettings(ctx context.Context) (Settings, error)
		CreateSettings(ctx context.Context, s Settings) (Settings, error)
		UpdateSettings(ctx context.Context, s Settings) (Settings, error)
	}

	Service struct {
		repo  Repository
		files core.FileStorage
	}
)

func NewService(repo Repository, files core.FileStorage) *Service {
	return &Service{repo: repo, files: files}
}

func (svc *Service) Get(ctx context.Context) (Settings, error) {
	return svc.repo.GetSettings(ctx)
}

// Update applies a partial update, creating the row on first use. A new logo
// replaces the stored file.
func (svc *Service) Update(ctx context.Context, us UpdateSettings, logo *core.FileUpload) (Settings, error) {
	var logoPath string
	if logo != nil {
		path, err := svc.files.Save(
			logoBucket, logo.Filename, logo.ContentType,
			logo.Size, logo.Content, core.ImagePolicy,
		)
		if err != nil {
			return Settings{}, err
		}
		logoPath = path
	}

	s, err := svc.repo.GetSettings(ctx)
	switch errors.Cause(err) {
	case nil:
	case ErrNotFound:
		return svc.repo.CreateSettings(ctx, Settings{
			SystemName:   us.SystemName,
			Logo:         logoPath,
			ContactEmail: us.ContactEmail,
			ContactPhone: us.ContactPhone,
			Address:      us.Address,
			ThemeColor:   us.ThemeColor,
		})
	default:
		return Settings{}, err
	}

	if us.SystemName != "" {
		s.SystemName = us.SystemName
	}
	if logoPath != "" {
		if s.Logo != "" {
			_ = svc.files.Remove(s.Logo)
		}
		s.Logo = logoPath
	}
	if us.ContactEmail != "" {
		s.ContactEmail = us.ContactEmail
	}
	if us.ContactPhone != "" {
		s.ContactPhone = us.ContactPhone
	}
	if us.Address != "" {
		s.Address = us.Address
	}
	if us.ThemeColor != "" {
		s.ThemeColor = us.ThemeColor
	}
	return svc.repo.UpdateSettings(ctx, s)
}
