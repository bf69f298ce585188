package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"devicemodel/internal/models"
)

// DB holds the gorm handle the stores run on. Pool is set only for postgres,
// where gorm shares the pgx pool through database/sql.
type DB struct {
	Pool *pgxpool.Pool
	Gorm *gorm.DB
	sql  *sql.DB
}

func Connect(ctx context.Context, url string, log logger.Interface) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 log,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, err
	}
	return &DB{Pool: pool, Gorm: gdb, sql: sqlDB}, nil
}

// OpenSQLite opens a single-connection sqlite database; path may be ":memory:".
func OpenSQLite(path string, log logger.Interface) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 log,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers; one connection also keeps ":memory:" shared.
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &DB{Gorm: gdb, sql: sqlDB}, nil
}

// Migrate creates or alters the device-model tables.
func (d *DB) Migrate(ctx context.Context) error {
	return d.Gorm.WithContext(ctx).AutoMigrate(models.All()...)
}

func (d *DB) Ping(ctx context.Context) error {
	if d.Pool != nil {
		return d.Pool.Ping(ctx)
	}
	return d.sql.PingContext(ctx)
}

func (d *DB) Close() {
	if d == nil {
		return
	}
	if d.sql != nil {
		_ = d.sql.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}
