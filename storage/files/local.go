// Package files stores uploads on the local filesystem, one directory per
// bucket, under random names so client filenames never touch the disk.
package files

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

type localStorage struct {
	root string
}

var _ core.FileStorage = (*localStorage)(nil) // interface compliance check

func NewLocalStorage(root string) (*localStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &localStorage{root: root}, nil
}

func (s *localStorage) Save(bucket, filename, contentType string, size int64, content io.Reader, policy core.FilePolicy) (string, error) {
	if err := policy.Allows(contentType, size); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating bucket dir")
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	defer dst.Close()

	// LimitReader guards against a lying Content-Length
	if _, err = io.Copy(dst, io.LimitReader(content, policy.MaxSize+1)); err != nil {
		return "", errors.Wrap(err, "writing file")
	}
	if info, err := dst.Stat(); err == nil && info.Size() > policy.MaxSize {
		_ = os.Remove(dst.Name())
		return "", core.ErrFileTooLarge
	}
	return filepath.ToSlash(filepath.Join(bucket, name)), nil
}

func (s *localStorage) Remove(path string) error {
	// stored paths are bucket/name; refuse anything that escapes the root
	clean := filepath.Clean(filepath.FromSlash(path))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return core.ErrFileNotFound
	}
	if err := os.Remove(filepath.Join(s.root, clean)); err != nil {
		if os.IsNotExist(err) {
			return core.ErrFileNotFound
		}
		return errors.Wrap(err, "removing file")
	}
	return nil
}
