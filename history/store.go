// Package history 保存每次收敛性检验的统计结果，便于比较不同次运行
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Run 一次检验的概要
type Run struct {
	ID        int64
	Solution  string
	Velocity  float64
	Alpha     float64
	TimeStep  float64
	StartedAt time.Time
}

// Level 一级网格的统计，和 mms_statistics.dat 的一行对应
type Level struct {
	RunID    int64
	NumCells int
	Error    float64
	Diff     float64
	TimeStep float64
	NumSteps int
	StepDiff float64
	Order    float64 // 第一级没有，存为 NULL
}

type Store struct {
	db     *sql.DB
	driver string
}

// Open driver 为 sqlite 时 dsn 是文件路径
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "history.db"
		}
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("history: create dirs: %w", err)
			}
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("history: dsn required for %s", driver)
		}
	default:
		return nil, fmt.Errorf("history: unknown driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// :memory: 每个连接是独立的数据库
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mms_runs (
			id ` + id + `,
			solution TEXT NOT NULL,
			velocity DOUBLE PRECISION NOT NULL,
			alpha DOUBLE PRECISION NOT NULL,
			dt DOUBLE PRECISION NOT NULL,
			started_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS mms_levels (
			run_id BIGINT NOT NULL REFERENCES mms_runs(id),
			num_cells INTEGER NOT NULL,
			error DOUBLE PRECISION NOT NULL,
			diff DOUBLE PRECISION NOT NULL,
			dt DOUBLE PRECISION NOT NULL,
			num_steps INTEGER NOT NULL,
			step_diff DOUBLE PRECISION NOT NULL,
			ord DOUBLE PRECISION,
			PRIMARY KEY (run_id, num_cells)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: migrate: %w", err)
		}
	}
	return nil
}

// rebind 把 ? 换成 postgres 的 $n
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// StartRun 新建一次运行，返回带 ID 的 Run
func (s *Store) StartRun(ctx context.Context, r Run) (Run, error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	if s.driver == DriverPostgres {
		err := s.db.QueryRowContext(ctx, s.rebind(
			`INSERT INTO mms_runs (solution, velocity, alpha, dt, started_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
			r.Solution, r.Velocity, r.Alpha, r.TimeStep, r.StartedAt).Scan(&r.ID)
		if err != nil {
			return Run{}, fmt.Errorf("history: insert run: %w", err)
		}
		return r, nil
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mms_runs (solution, velocity, alpha, dt, started_at) VALUES (?, ?, ?, ?, ?)`,
		r.Solution, r.Velocity, r.Alpha, r.TimeStep, r.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("history: insert run: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return Run{}, fmt.Errorf("history: run id: %w", err)
	}
	return r, nil
}

func (s *Store) AddLevel(ctx context.Context, l Level) error {
	var order sql.NullFloat64
	if !math.IsNaN(l.Order) && !math.IsInf(l.Order, 0) {
		order = sql.NullFloat64{Float64: l.Order, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO mms_levels (run_id, num_cells, error, diff, dt, num_steps, step_diff, ord) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		l.RunID, l.NumCells, l.Error, l.Diff, l.TimeStep, l.NumSteps, l.StepDiff, order)
	if err != nil {
		return fmt.Errorf("history: insert level %d: %w", l.NumCells, err)
	}
	return nil
}

// Levels 按单元数升序
func (s *Store) Levels(ctx context.Context, runID int64) ([]Level, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT run_id, num_cells, error, diff, dt, num_steps, step_diff, ord FROM mms_levels WHERE run_id = ? ORDER BY num_cells`),
		runID)
	if err != nil {
		return nil, fmt.Errorf("history: select levels: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var res []Level
	for rows.Next() {
		var l Level
		var order sql.NullFloat64
		if err := rows.Scan(&l.RunID, &l.NumCells, &l.Error, &l.Diff, &l.TimeStep, &l.NumSteps, &l.StepDiff, &order); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		l.Order = math.NaN()
		if order.Valid {
			l.Order = order.Float64
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// Runs 最近的运行在前
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, solution, velocity, alpha, dt, started_at FROM mms_runs ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("history: select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var res []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Solution, &r.Velocity, &r.Alpha, &r.TimeStep, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		res = append(res, r)
	}
	return res, rows.Err()
}
