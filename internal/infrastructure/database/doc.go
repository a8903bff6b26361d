// Package database provides the SQLite connection pool for the fbp controller.
//
// This package manages:
//   - The connection pool, in WAL mode so readers never block the writer
//   - Schema migrations embedded into the binary (additive-only)
//   - A log sink persisting warnings and errors into the log_entries table
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return fmt.Errorf("opening database: %w", err)
//	}
//	if err := db.Migrate(ctx); err != nil {
//	    return fmt.Errorf("running migrations: %w", err)
//	}
//	logger.AddSink(database.LogSinkName, database.NewLogHandler(db.DB, slog.LevelWarn))
//
// Shutdown order matters: remove the log sink before Close, otherwise the
// final shutdown messages are written to a closing pool.
package database
