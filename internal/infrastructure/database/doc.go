// Package database provides the node's local SQLite store.
//
// This package manages:
//   - Database connection with WAL mode and a busy timeout
//   - Forward-only schema migrations read from an fs.FS
//   - Connection lifecycle
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Migrations are additive-only so an older binary keeps working on a newer
// schema: new columns must be NULLABLE or have DEFAULT values, and columns
// are never dropped or renamed.
package database
