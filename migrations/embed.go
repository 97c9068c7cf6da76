// Package migrations embeds the SQL schema migrations into the binary, so a
// node can create or upgrade its local database without the files on disk.
package migrations

import "embed"

// FS holds the *.up.sql migrations at its root.
//
//go:embed *.sql
var FS embed.FS
