// Package appfs embeds the files shipped with the binaries:
// database migrations, email templates and the default timeline seed.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* seed/*.yaml
var FS embed.FS
