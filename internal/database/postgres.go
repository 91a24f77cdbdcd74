package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/samSKIF/ThrivioHR-sub000/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// PostgresDB wraps the optional Postgres directory handle. The handle is nil
// unless DIRECTORY_DRIVER=postgres, so constructors can be provided
// unconditionally.
type PostgresDB struct {
	DB *sql.DB
}

// NewPostgres opens the Postgres connection when the directory driver asks for it
func NewPostgres(lc fx.Lifecycle, cfg *config.Config) (*PostgresDB, error) {
	if cfg.DirectoryDriver != "postgres" {
		return &PostgresDB{}, nil
	}
	if cfg.PostgresURI == "" {
		return nil, fmt.Errorf("DIRECTORY_DRIVER=postgres requires POSTGRES_URI")
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("failed to ping postgres: %w", err)
			}
			log.Println("Connected to Postgres!")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	return &PostgresDB{DB: db}, nil
}
