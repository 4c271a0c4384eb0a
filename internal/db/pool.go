package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/config"
)

var (
	ErrNoRows = sql.ErrNoRows

	errPoolClosed = errors.New("database pool is not initialized")
)

func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}

// CommandTag reports the outcome of an Exec.
type CommandTag struct {
	rowsAffected int64
}

func (c CommandTag) RowsAffected() int64 { return c.rowsAffected }

// Row wraps a single-row result. A nil row scans as ErrNoRows.
type Row struct {
	row *sql.Row
	err error
}

func (r *Row) Scan(dest ...any) error {
	switch {
	case r == nil:
		return ErrNoRows
	case r.err != nil:
		return r.err
	case r.row == nil:
		return ErrNoRows
	}
	return r.row.Scan(dest...)
}

type Rows struct {
	rows *sql.Rows
}

func (r *Rows) Next() bool { return r != nil && r.rows != nil && r.rows.Next() }

func (r *Rows) Scan(dest ...any) error {
	if r == nil || r.rows == nil {
		return ErrNoRows
	}
	return r.rows.Scan(dest...)
}

func (r *Rows) Err() error {
	if r == nil || r.rows == nil {
		return nil
	}
	return r.rows.Err()
}

func (r *Rows) Close() {
	if r != nil && r.rows != nil {
		_ = r.rows.Close()
	}
}

// querier runs raw $n SQL against either the pool or an open transaction.
type querier struct {
	db *gorm.DB
}

func (q querier) QueryRow(ctx context.Context, query string, args ...any) *Row {
	if q.db == nil {
		return &Row{err: errPoolClosed}
	}
	return &Row{row: q.db.WithContext(ctx).Raw(query, args...).Row()}
}

func (q querier) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	if q.db == nil {
		return nil, errPoolClosed
	}
	rows, err := q.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (q querier) Exec(ctx context.Context, query string, args ...any) (CommandTag, error) {
	if q.db == nil {
		return CommandTag{}, errPoolClosed
	}
	res := q.db.WithContext(ctx).Exec(query, args...)
	return CommandTag{rowsAffected: res.RowsAffected}, res.Error
}

// Tx is one open transaction.
type Tx interface {
	QueryRow(ctx context.Context, query string, args ...any) *Row
	Query(ctx context.Context, query string, args ...any) (*Rows, error)
	Exec(ctx context.Context, query string, args ...any) (CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type gormTx struct {
	querier
}

func (t gormTx) Commit(ctx context.Context) error {
	return t.db.WithContext(ctx).Commit().Error
}

func (t gormTx) Rollback(ctx context.Context) error {
	return t.db.WithContext(ctx).Rollback().Error
}

// Pool is the Postgres handle behind every quotelog store operation.
type Pool struct {
	querier
	gdb   *gorm.DB
	sqlDB *sql.DB
}

// NewPool connects, pings and brings the quotelog schema up to date before
// returning.
func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel, cfg.Environment)),
		NowFunc:                func() time.Time { return time.Now().UTC() },
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql db: %w", err)
	}
	maxOpen := max(int(cfg.DBMaxConns), 1)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(max(1, min(int(cfg.DBMinConns), maxOpen)))
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pool := &Pool{querier: querier{db: gdb}, gdb: gdb, sqlDB: sqlDB}
	if err := pool.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return pool, nil
}

func (p *Pool) begin(ctx context.Context) (Tx, error) {
	if p == nil || p.gdb == nil {
		return nil, errPoolClosed
	}
	tx := p.gdb.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return gormTx{querier{db: tx}}, nil
}

func (p *Pool) Close() error {
	if p == nil || p.sqlDB == nil {
		return nil
	}
	return p.sqlDB.Close()
}

// gormLogLevel keeps SQL statement logs for debug runs only.
func gormLogLevel(appLogLevel, environment string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(appLogLevel)) {
	case "trace", "debug":
		return gormlogger.Info
	case "", "info", "warn", "warning":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	case "silent", "disabled":
		return gormlogger.Silent
	}
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		return gormlogger.Warn
	}
	return gormlogger.Error
}
