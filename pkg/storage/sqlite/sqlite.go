// Package sqlite implements run-history storage on a local sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/kasuboski/nfosync/pkg/logger"
	"github.com/kasuboski/nfosync/pkg/storage"
	"github.com/kasuboski/nfosync/pkg/storage/sqlite/schema/gen/model"
	"github.com/kasuboski/nfosync/pkg/storage/sqlite/schema/gen/table"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLite struct {
	db *sql.DB
}

// New opens the sqlite database at filePath, creating it when missing.
func New(filePath string) (storage.RunStorage, error) {
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}

	return SQLite{db: db}, nil
}

// Init executes pending schema migrations.
func (s SQLite) Init(ctx context.Context) error {
	sourceDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{
		MigrationsTable: "schema_migrations",
		NoTxWrap:        true,
	})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err == migrate.ErrNoChange {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateRun records the start of a run.
func (s SQLite) CreateRun(ctx context.Context, run model.Runs) error {
	stmt := table.Runs.
		INSERT(table.Runs.ID, table.Runs.StartedAt, table.Runs.ScanPath, table.Runs.DryRun).
		VALUES(run.ID, run.StartedAt, run.ScanPath, run.DryRun)

	_, err := s.exec(ctx, stmt)
	return err
}

// FinishRun stamps the end time and final counters of a run.
func (s SQLite) FinishRun(ctx context.Context, run model.Runs) error {
	stmt := table.Runs.
		UPDATE(table.Runs.FinishedAt, table.Runs.Processed, table.Runs.Updated, table.Runs.Skipped, table.Runs.Failed).
		SET(run.FinishedAt, run.Processed, run.Updated, run.Skipped, run.Failed).
		WHERE(table.Runs.ID.EQ(sqlite.String(run.ID)))

	_, err := s.exec(ctx, stmt)
	return err
}

// CreateOutcome appends one per-file outcome to a run.
func (s SQLite) CreateOutcome(ctx context.Context, outcome model.RunOutcomes) (int64, error) {
	stmt := table.RunOutcomes.
		INSERT(table.RunOutcomes.RunID, table.RunOutcomes.File, table.RunOutcomes.Title, table.RunOutcomes.Outcome, table.RunOutcomes.Detail).
		VALUES(outcome.RunID, outcome.File, outcome.Title, outcome.Outcome, outcome.Detail)

	result, err := s.exec(ctx, stmt)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// ListRuns returns the most recent runs, newest first.
func (s SQLite) ListRuns(ctx context.Context, limit int64) ([]*model.Runs, error) {
	runs := make([]*model.Runs, 0)

	stmt := table.Runs.
		SELECT(table.Runs.AllColumns).
		FROM(table.Runs).
		ORDER_BY(table.Runs.StartedAt.DESC()).
		LIMIT(limit)

	err := stmt.QueryContext(ctx, s.db, &runs)
	if err != nil && err != qrm.ErrNoRows {
		return nil, err
	}

	return runs, nil
}

// ListOutcomes returns the outcomes recorded for one run.
func (s SQLite) ListOutcomes(ctx context.Context, runID string) ([]*model.RunOutcomes, error) {
	outcomes := make([]*model.RunOutcomes, 0)

	stmt := table.RunOutcomes.
		SELECT(table.RunOutcomes.AllColumns).
		FROM(table.RunOutcomes).
		WHERE(table.RunOutcomes.RunID.EQ(sqlite.String(runID))).
		ORDER_BY(table.RunOutcomes.ID.ASC())

	err := stmt.QueryContext(ctx, s.db, &outcomes)
	if err != nil && err != qrm.ErrNoRows {
		return nil, err
	}

	return outcomes, nil
}

// exec runs one mutating statement inside a transaction.
func (s SQLite) exec(ctx context.Context, stmt sqlite.Statement) (sql.Result, error) {
	log := logger.FromCtx(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	result, err := stmt.ExecContext(ctx, tx)
	if err != nil {
		log.Debugw("failed to execute statement", "query", stmt.DebugSql(), "error", err)
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return result, nil
}
