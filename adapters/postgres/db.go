package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"cutvalid/internal/errors"
)

// Open connects to driver (postgres or sqlite3) at url with sqlx and checks the connection
func Open(ctx context.Context, driver, url string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, url)
	if err != nil {
		return nil, errors.DatabaseError("failed to open database", err)
	}
	if driver == "sqlite3" {
		// SQLite serialises writers; one connection also keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	return db, nil
}
