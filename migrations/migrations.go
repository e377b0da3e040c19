// Package migrations holds the numbered SQL schema migrations for the
// small paper store.
package migrations

import "embed"

// FS contains the up/down migration pairs, named for golang-migrate.
//
//go:embed *.sql
var FS embed.FS
