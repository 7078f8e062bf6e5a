// Package database provides SQL connectivity for devicehub.
//
// Two backends are supported behind one wrapper:
//   - SQLite (github.com/mattn/go-sqlite3), the default, with WAL mode,
//     busy timeout, foreign keys and a single shared connection
//   - PostgreSQL (github.com/lib/pq) with a bounded connection pool
//
// Queries are written once with ? placeholders; Dialect.Rebind converts them
// for PostgreSQL. Dialect.IsUniqueViolation recognises duplicate-key failures
// for either driver.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/devicehub.db", WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded by the top-level migrations package, one
// subdirectory per dialect, and applied forward only at startup.
package database
