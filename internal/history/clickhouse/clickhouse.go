// Package clickhouse provides a history sink backed by the official
// ClickHouse native-protocol client.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/loykin/ospawn/internal/history"
)

type Sink struct {
	conn  driver.Conn
	table string
}

// New connects to addr ("host:port", native protocol) and verifies the
// connection. The table must exist; see EnsureTable.
func New(addr, database, username, password, table string) (*Sink, error) {
	if database == "" {
		database = "default"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return &Sink{conn: conn, table: table}, nil
}

// EnsureTable creates the history table when it is missing.
func (s *Sink) EnsureTable(ctx context.Context) error {
	return s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.table+` (
			type String,
			occurred_at DateTime64(6),
			job String,
			path String,
			pid UInt32,
			started_at DateTime64(6),
			exited_at Nullable(DateTime64(6)),
			exit_code Int32,
			signal Nullable(String),
			err_kind Nullable(String),
			uniq String
		) ENGINE = MergeTree()
		ORDER BY (occurred_at, uniq)
	`)
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	query := fmt.Sprintf(`INSERT INTO %s (type, occurred_at, job, path, pid, started_at, exited_at, exit_code, signal, err_kind, uniq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	r := e.Record
	err := s.conn.Exec(ctx, query,
		string(e.Type), e.OccurredAt, r.Job, r.Path, uint32(r.PID),
		r.StartedAt, nullableTime(r.ExitedAt), int32(r.ExitCode),
		nullableStr(r.Signal), nullableStr(r.ErrKind), r.Uniq)
	if err != nil {
		return fmt.Errorf("insert event into clickhouse: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
