// Package repository persists fetched observations so comparisons can be
// served when the upstream is unavailable.
package repository

import (
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// DBConfig selects and configures the observation store
type DBConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN builds the driver specific connection string
func (c DBConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode)
}

// Connect opens and pings the configured database
func Connect(cfg DBConfig) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	db, err := sqlx.Connect(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// :memory: databases exist per connection
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}
