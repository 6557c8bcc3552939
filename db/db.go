package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" database/sql driver

	"github.com/yashasviy/banco-solar-api/config"
)

// Constraint names the schema declares. Classify relies on them to tell
// an overdraft apart from a rejected transfer amount.
const (
	BalanceConstraint = "usuarios_balance_check"
	AmountConstraint  = "transferencias_monto_check"
)

const schemaAccounts = `
	CREATE TABLE IF NOT EXISTS usuarios (
		id SERIAL PRIMARY KEY,
		nombre VARCHAR(255) NOT NULL,
		balance NUMERIC NOT NULL CONSTRAINT ` + BalanceConstraint + ` CHECK (balance >= 0)
	);`

// No foreign keys: deleting an account never touches its transfer history.
const schemaTransfers = `
	CREATE TABLE IF NOT EXISTS transferencias (
		id SERIAL PRIMARY KEY,
		emisor INT NOT NULL,
		receptor INT NOT NULL,
		monto NUMERIC NOT NULL CONSTRAINT ` + AmountConstraint + ` CHECK (monto > 0),
		fecha TIMESTAMP NOT NULL DEFAULT now()
	);`

// Open creates the connection pool and verifies it with a ping. The pool is
// owned by the caller and must be closed on shutdown.
func Open(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	pool, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Initialize creates the tables if they do not exist yet.
func Initialize(ctx context.Context, pool *sql.DB) error {
	// 1. Create Accounts Table
	// The balance floor lives here so concurrent debits cannot race past it.
	if _, err := pool.ExecContext(ctx, schemaAccounts); err != nil {
		return fmt.Errorf("create usuarios table: %w", err)
	}

	// 2. Create Transfers Table
	if _, err := pool.ExecContext(ctx, schemaTransfers); err != nil {
		return fmt.Errorf("create transferencias table: %w", err)
	}

	return nil
}
