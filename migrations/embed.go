// Package migrations embeds the SQL schema migrations served to the
// golang-migrate iofs source driver.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
