// Package appfs exposes static assets embedded in the binary:
// database migrations and email templates.
package appfs

import "embed"

//go:embed migrations templates
var FS embed.FS
