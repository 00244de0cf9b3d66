package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"co2-mcs/internal/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id     TEXT PRIMARY KEY,
		mode       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		seed       TEXT NOT NULL,
		n_draws    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS daily_emissions (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		scenario TEXT NOT NULL,
		draw INTEGER NOT NULL,
		class TEXT NOT NULL,
		day INTEGER NOT NULL,
		emissions_kgco2 REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_run ON daily_emissions(run_id, scenario, draw)`,
	`CREATE TABLE IF NOT EXISTS summary_by_day (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		scenario TEXT NOT NULL,
		day INTEGER NOT NULL,
		med REAL NOT NULL,
		p5 REAL NOT NULL,
		p95 REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS summary_totals (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		scenario TEXT NOT NULL,
		med REAL NOT NULL,
		p5 REAL NOT NULL,
		p95 REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS draw_totals (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		scenario TEXT NOT NULL,
		draw INTEGER NOT NULL,
		total REAL NOT NULL,
		PRIMARY KEY (run_id, scenario, draw)
	)`,
	`CREATE TABLE IF NOT EXISTS phase_lengths (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		scenario TEXT NOT NULL,
		draw INTEGER NOT NULL,
		phase INTEGER NOT NULL,
		days INTEGER NOT NULL
	)`,
}

// Tables bundles the output tables of one run. Empty tables are skipped.
type Tables struct {
	Daily        []model.DailyEmissionRecord
	DaySummary   []model.Summary
	Totals       []model.Summary
	DrawTotals   []model.DrawTotal
	PhaseLengths []model.PhaseLengthDraw
}

// SQLiteSink writes run outputs to a SQLite database keyed by run id.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}
	for _, ddl := range schema {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &SQLiteSink{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// WriteRun stores the manifest header and every non-empty table in one transaction.
func (s *SQLiteSink) WriteRun(ctx context.Context, m Manifest, t Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, mode, created_at, seed, n_draws) VALUES (?, ?, ?, ?, ?)`,
		m.RunID, m.Mode, m.CreatedAt.UTC().Format(time.RFC3339Nano), strconv.FormatUint(m.Seed, 10), m.NDraws,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	inserts := []struct {
		query string
		n     int
		args  func(i int) []any
	}{
		{`INSERT INTO daily_emissions (run_id, scenario, draw, class, day, emissions_kgco2) VALUES (?, ?, ?, ?, ?, ?)`,
			len(t.Daily), func(i int) []any {
				r := t.Daily[i]
				return []any{m.RunID, r.Scenario, r.Draw, string(r.Class), r.Day, r.EmissionsKgCO2}
			}},
		{`INSERT INTO summary_by_day (run_id, scenario, day, med, p5, p95) VALUES (?, ?, ?, ?, ?, ?)`,
			len(t.DaySummary), func(i int) []any {
				r := t.DaySummary[i]
				return []any{m.RunID, r.Scenario, r.Day, r.Median, r.P5, r.P95}
			}},
		{`INSERT INTO summary_totals (run_id, scenario, med, p5, p95) VALUES (?, ?, ?, ?, ?)`,
			len(t.Totals), func(i int) []any {
				r := t.Totals[i]
				return []any{m.RunID, r.Scenario, r.Median, r.P5, r.P95}
			}},
		{`INSERT INTO draw_totals (run_id, scenario, draw, total) VALUES (?, ?, ?, ?)`,
			len(t.DrawTotals), func(i int) []any {
				r := t.DrawTotals[i]
				return []any{m.RunID, r.Scenario, r.Draw, r.TotalKgCO2}
			}},
		{`INSERT INTO phase_lengths (run_id, scenario, draw, phase, days) VALUES (?, ?, ?, ?, ?)`,
			len(t.PhaseLengths), func(i int) []any {
				r := t.PhaseLengths[i]
				return []any{m.RunID, r.Scenario, r.Draw, r.Phase, r.Days}
			}},
	}
	for _, ins := range inserts {
		if ins.n == 0 {
			continue
		}
		stmt, err := tx.PrepareContext(ctx, ins.query)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		for i := range ins.n {
			if _, err := stmt.ExecContext(ctx, ins.args(i)...); err != nil {
				stmt.Close()
				return fmt.Errorf("insert row %d: %w", i, err)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Info().Str("runID", m.RunID).Int("dailyRows", len(t.Daily)).Int("drawTotals", len(t.DrawTotals)).Msg("Run written to SQLite")
	return nil
}

// DrawTotals reads back the per-draw totals of one scenario in draw order.
func (s *SQLiteSink) DrawTotals(ctx context.Context, runID, scenario string) ([]model.DrawTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT draw, total FROM draw_totals WHERE run_id = ? AND scenario = ? ORDER BY draw`,
		runID, scenario)
	if err != nil {
		return nil, fmt.Errorf("query draw totals: %w", err)
	}
	defer rows.Close()

	var out []model.DrawTotal
	for rows.Next() {
		dt := model.DrawTotal{Scenario: scenario}
		if err := rows.Scan(&dt.Draw, &dt.TotalKgCO2); err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}

// RunIDs lists the stored run ids, oldest first.
func (s *SQLiteSink) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
