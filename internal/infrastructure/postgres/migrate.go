package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator aplica las migraciones embebidas con goose sobre el pool.
type Migrator struct {
	db *sql.DB
}

// NewMigrator abre un *sql.DB sobre el pool (goose trabaja con database/sql).
func NewMigrator(pool *pgxpool.Pool) (*Migrator, error) {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("goose dialect: %w", err)
	}
	return &Migrator{db: stdlib.OpenDBFromPool(pool)}, nil
}

// Close libera el *sql.DB (no cierra el pool).
func (m *Migrator) Close() error {
	return m.db.Close()
}

// Up aplica todas las migraciones pendientes.
func (m *Migrator) Up(ctx context.Context) error {
	if err := goose.UpContext(ctx, m.db, "migrations"); err != nil {
		return fmt.Errorf("migraciones up: %w", err)
	}
	return nil
}

// Down revierte steps migraciones.
func (m *Migrator) Down(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		if err := goose.DownContext(ctx, m.db, "migrations"); err != nil {
			return fmt.Errorf("migraciones down: %w", err)
		}
	}
	return nil
}

// Version versión aplicada actualmente.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("versión de migraciones: %w", err)
	}
	return v, nil
}

// Status imprime el estado de cada migración.
func (m *Migrator) Status(ctx context.Context) error {
	return goose.StatusContext(ctx, m.db, "migrations")
}
