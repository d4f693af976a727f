// Package pg provides PostgreSQL bootstrap helpers built on pgx/v5:
// environment-driven pool configuration, connection retries, goose-based
// schema migrations, and error classification helpers.
//
// The notification storage layer uses IsNotFoundError to translate
// pgx.ErrNoRows into its own not-found sentinel; applications use Connect
// and Migrate at startup:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
package pg
