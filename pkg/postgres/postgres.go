package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN             string        `envconfig:"DSN" split_words:"true" required:"true"`
	Schema          string        `envconfig:"SCHEMA" split_words:"true" default:"public"`
	DialTimeout     time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"10s"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" split_words:"true" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" split_words:"true" default:"30m"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("postgres dsn is required")
	}
	return nil
}

func New(cfg Config) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []pgdriver.Option{
		pgdriver.WithDSN(strings.TrimSpace(cfg.DSN)),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
		pgdriver.WithReadTimeout(cfg.ReadTimeout),
		pgdriver.WithWriteTimeout(cfg.WriteTimeout),
	}
	if schema := strings.TrimSpace(cfg.Schema); schema != "" {
		opts = append(opts, pgdriver.WithConnParams(map[string]interface{}{"search_path": schema}))
	}
	connector := pgdriver.NewConnector(opts...)

	sqldb := sql.OpenDB(connector)
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func MustNew(cfg Config) *bun.DB {
	db, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return db
}

// Ping verifies connectivity with a bounded timeout.
func Ping(ctx context.Context, db *bun.DB, timeout time.Duration) error {
	if db == nil {
		return errors.New("nil database")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
