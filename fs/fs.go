// Package appfs exposes the app's embedded static files:
// DB migrations, the Learning Center content catalog and email templates.
package appfs

import "embed"

//go:embed migrations content templates assets
var FS embed.FS
