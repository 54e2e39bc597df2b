package echoapi

import (
	"mime/multipart"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

// intParam parses a numeric path parameter; any garbage reads as a 404.
func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHTTPNotFound
	}
	return id, nil
}

func intQuery(ctx echo.Context, name string) int {
	v, _ := strconv.Atoi(ctx.QueryParam(name))
	return v
}

// form value helpers for multipart endpoints, where Bind does not apply

func formInt(ctx echo.Context, name string) int {
	v, _ := strconv.Atoi(ctx.FormValue(name))
	return v
}

func formBool(ctx echo.Context, name string) *bool {
	raw := ctx.FormValue(name)
	if raw == "" {
		return nil
	}
	v, _ := strconv.ParseBool(raw)
	return &v
}

func formFloat(ctx echo.Context, name string) float64 {
	v, _ := strconv.ParseFloat(ctx.FormValue(name), 64)
	return v
}

func formTime(ctx echo.Context, name string) *time.Time {
	raw := ctx.FormValue(name)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// formFile reads an optional multipart file into a core.FileUpload. A missing
// file is not an error; the caller receives nil.
func formFile(ctx echo.Context, name string) (*core.FileUpload, func(), error) {
	fh, err := ctx.FormFile(name)
	if err != nil {
		return nil, func() {}, nil
	}
	return openFormFile(fh)
}

func openFormFile(fh *multipart.FileHeader) (*core.FileUpload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "opening uploaded file")
	}
	upload := &core.FileUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     f,
	}
	return upload, func() { _ = f.Close() }, nil
}
