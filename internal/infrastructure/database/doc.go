// Package database provides SQLite connectivity for the smooth lights service.
//
// It stores config entries (see package entry) and tracks schema migrations.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations read from an fs.FS (migrations.FS in production)
//   - Single-connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration Strategy:
//
// Files are named YYYYMMDD_HHMMSS_description.up.sql with an optional
// matching .down.sql. They are applied in version order, each in its own
// transaction, and recorded in schema_migrations.
package database
