package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Postgres drives any engine speaking the PostgreSQL wire protocol.
type Postgres struct {
	DSN  string
	Opts Options
}

// NewPostgres validates the connection string up front.
func NewPostgres(dsn string, opts Options) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("runner: empty DSN")
	}
	return &Postgres{DSN: dsn, Opts: opts}, nil
}

// Execute runs the statement and reports elapsed wall-clock time.
func (p *Postgres) Execute(ctx context.Context, sqlStatement string) (time.Duration, error) {
	query := strings.TrimSpace(sqlStatement)
	if query == "" {
		return 0, fmt.Errorf("runner: empty sql statement")
	}

	ctx, cancel := withTimeout(ctx, p.Opts)
	defer cancel()

	conn, err := pgx.Connect(ctx, p.DSN)
	if err != nil {
		return 0, fmt.Errorf("runner: connect: %w", err)
	}
	defer conn.Close(ctx)

	start := time.Now()
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("runner: query: %w", err)
	}
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("runner: drain rows: %w", err)
	}
	return time.Since(start), nil
}

// Explain executes EXPLAIN (ANALYZE, FORMAT JSON) for the statement and
// returns the raw JSON payload.
func (p *Postgres) Explain(ctx context.Context, sqlStatement string) ([]byte, error) {
	query := strings.TrimSpace(sqlStatement)
	if query == "" {
		return nil, fmt.Errorf("runner: empty sql statement")
	}

	explainSQL := fmt.Sprintf("EXPLAIN (ANALYZE, FORMAT JSON) %s", query)

	ctx, cancel := withTimeout(ctx, p.Opts)
	defer cancel()

	conn, err := pgx.Connect(ctx, p.DSN)
	if err != nil {
		return nil, fmt.Errorf("runner: connect: %w", err)
	}
	defer conn.Close(ctx)

	var payload []byte
	if err := conn.QueryRow(ctx, explainSQL).Scan(&payload); err != nil {
		return nil, fmt.Errorf("runner: explain: %w", err)
	}
	return payload, nil
}
