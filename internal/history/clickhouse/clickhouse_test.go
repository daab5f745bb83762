package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/ospawn/internal/history"
)

func TestClickHouseSinkIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	chContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start ClickHouse container: %v", err)
	}
	defer func() {
		if err := chContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	}()

	host, err := chContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := chContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}

	sink, err := New(host+":"+port.Port(), "default", "default", "", "spawn_history_test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = sink.Close() }()

	if err := sink.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	now := time.Now().UTC()
	events := []history.Event{
		{Type: history.EventSpawn, OccurredAt: now, Record: history.Record{
			Job: "ch-demo", Path: "/bin/true", PID: 7, StartedAt: now, Uniq: "ch-demo-7",
		}},
		{Type: history.EventExit, OccurredAt: now.Add(time.Second), Record: history.Record{
			Job: "ch-demo", Path: "/bin/true", PID: 7, StartedAt: now,
			ExitedAt: now.Add(time.Second), ExitCode: 0, Uniq: "ch-demo-7",
		}},
	}
	for i, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}

	var count uint64
	if err := sink.conn.QueryRow(ctx, `SELECT COUNT(*) FROM spawn_history_test`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != uint64(len(events)) {
		t.Fatalf("stored %d events, want %d", count, len(events))
	}
}
