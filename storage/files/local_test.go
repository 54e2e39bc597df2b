package files

import (
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

func TestLocalStorage_SaveRemove(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	path, err := store.Save("banners", "Portada Final.PNG", "image/png", 9, strings.NewReader("png bytes"), core.ImagePolicy)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(path, "banners/") || !strings.HasSuffix(path, ".png") {
		t.Errorf("path = %q, want a bucket-prefixed name with the lowered extension", path)
	}
	if strings.Contains(path, "Portada") {
		t.Errorf("path %q leaks the client filename", path)
	}

	_, err = store.Save("banners", "nota.txt", "text/plain", 4, strings.NewReader("hola"), core.ImagePolicy)
	if errors.Cause(err) != core.ErrFileType {
		t.Errorf("Save() disallowed type error = %v, want %v", err, core.ErrFileType)
	}

	if err = store.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err = store.Remove(path); errors.Cause(err) != core.ErrFileNotFound {
		t.Errorf("second Remove() error = %v, want %v", err, core.ErrFileNotFound)
	}
	if err = store.Remove("../fuera.png"); errors.Cause(err) != core.ErrFileNotFound {
		t.Errorf("Remove() escaping path error = %v, want %v", err, core.ErrFileNotFound)
	}
}
