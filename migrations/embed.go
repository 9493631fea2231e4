// Package migrations holds the SQL schema applied to every clinic schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
