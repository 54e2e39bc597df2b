package banner_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/banner"
	inmemdb "github.com/classoptima/backend/storage/database/inmem"
)

type fileStorageStub struct {
	saved   []string
	removed []string
}

func (s *fileStorageStub) Save(bucket, filename, contentType string, size int64, content io.Reader, policy core.FilePolicy) (string, error) {
	if err := policy.Allows(contentType, size); err != nil {
		return "", err
	}
	path := bucket + "/" + filename
	s.saved = append(s.saved, path)
	return path, nil
}

func (s *fileStorageStub) Remove(path string) error {
	s.removed = append(s.removed, path)
	return nil
}

func setup(t *testing.T) (*banner.Service, *fileStorageStub) {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() error = %v", err)
	}
	files := &fileStorageStub{}
	return banner.NewService(inmemdb.NewBannerRepository(db), files), files
}

func upload(name string) *core.FileUpload {
	return &core.FileUpload{
		Filename:    name,
		ContentType: "image/png",
		Size:        1024,
		Content:     strings.NewReader("png bytes"),
	}
}

func boolPtr(b bool) *bool { return &b }

func TestService_Create(t *testing.T) {
	svc, files := setup(t)
	ctx := context.Background()

	// without a file or URL there is nothing to show
	_, err := svc.Create(ctx, banner.NewBanner{Title: "Bienvenida"}, nil)
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) || vErr.Err != banner.ErrImageRequired {
		t.Fatalf("Create() without image error = %v, want %v", err, banner.ErrImageRequired)
	}

	b, err := svc.Create(ctx, banner.NewBanner{Title: "Bienvenida", Order: 2}, upload("portada.png"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.Image != "banners/portada.png" {
		t.Errorf("Image = %q", b.Image)
	}
	if !b.IsActive {
		t.Error("omitted activo should default to visible")
	}

	// an oversized upload is refused by the image policy
	big := upload("grande.png")
	big.Size = core.ImagePolicy.MaxSize + 1
	if _, err = svc.Create(ctx, banner.NewBanner{Title: "Grande"}, big); errors.Cause(err) != core.ErrFileTooLarge {
		t.Errorf("Create() oversized error = %v, want %v", err, core.ErrFileTooLarge)
	}

	// an external URL works without an upload
	b, err = svc.Create(ctx, banner.NewBanner{
		Title:    "Externo",
		ImageURL: "https://cdn.example.com/b.png",
		IsActive: boolPtr(false),
	}, nil)
	if err != nil {
		t.Fatalf("Create() with URL error = %v", err)
	}
	if b.Image != "https://cdn.example.com/b.png" || b.IsActive {
		t.Errorf("banner = %+v", b)
	}
	if len(files.saved) != 1 {
		t.Errorf("saved files = %v, want just the first upload", files.saved)
	}
}

func TestService_QueryActive(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, banner.NewBanner{Title: "Primero", Order: 1}, upload("1.png"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err = svc.Create(ctx, banner.NewBanner{Title: "Oculto", Order: 2, IsActive: boolPtr(false)}, upload("2.png")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	active, err := svc.QueryActive(ctx)
	if err != nil {
		t.Fatalf("QueryActive() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != first.ID {
		t.Errorf("QueryActive() = %+v, want only %d", active, first.ID)
	}

	all, err := svc.QueryAll(ctx)
	if err != nil {
		t.Fatalf("QueryAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("QueryAll() len = %d, want 2", len(all))
	}
}

func TestService_Update(t *testing.T) {
	svc, files := setup(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, banner.NewBanner{Title: "Original"}, upload("vieja.png"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// a new upload replaces the stored file
	b, err = svc.Update(ctx, b.ID, banner.UpdateBanner{Title: "Editado", Order: 5}, upload("nueva.png"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if b.Title != "Editado" || b.Order != 5 || b.Image != "banners/nueva.png" {
		t.Errorf("banner = %+v", b)
	}
	if len(files.removed) != 1 || files.removed[0] != "banners/vieja.png" {
		t.Errorf("removed files = %v, want the replaced image", files.removed)
	}

	// no file and no URL keeps the stored image
	b, err = svc.Update(ctx, b.ID, banner.UpdateBanner{Title: "Editado", IsActive: boolPtr(false)}, nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if b.Image != "banners/nueva.png" || b.IsActive {
		t.Errorf("banner = %+v", b)
	}

	if _, err = svc.Update(ctx, 999, banner.UpdateBanner{Title: "X"}, nil); errors.Cause(err) != banner.ErrNotFound {
		t.Errorf("Update() unknown banner error = %v, want %v", err, banner.ErrNotFound)
	}
}

func TestService_Toggle(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, banner.NewBanner{Title: "Rotativo"}, upload("r.png"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	b, err = svc.Toggle(ctx, b.ID)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if b.IsActive {
		t.Error("first toggle should hide the banner")
	}
	if b, _ = svc.Toggle(ctx, b.ID); !b.IsActive {
		t.Error("second toggle should show it again")
	}

	if _, err = svc.Toggle(ctx, 999); errors.Cause(err) != banner.ErrNotFound {
		t.Errorf("Toggle() unknown banner error = %v, want %v", err, banner.ErrNotFound)
	}
}

func TestService_Delete(t *testing.T) {
	svc, files := setup(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, banner.NewBanner{Title: "Temporal"}, upload("t.png"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err = svc.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(files.removed) != 1 || files.removed[0] != "banners/t.png" {
		t.Errorf("removed files = %v", files.removed)
	}
	if _, err = svc.GetByID(ctx, b.ID); errors.Cause(err) != banner.ErrNotFound {
		t.Errorf("GetByID() after delete error = %v, want %v", err, banner.ErrNotFound)
	}
	if err = svc.Delete(ctx, b.ID); errors.Cause(err) != banner.ErrNotFound {
		t.Errorf("second Delete() error = %v, want %v", err, banner.ErrNotFound)
	}
}
