package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/formationdesk/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActorID(ctx, "42")

	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Fatalf("expected request_id, got %v", fields["request_id"])
	}
	if fields["actor_id"] != "42" {
		t.Fatalf("expected actor_id, got %v", fields["actor_id"])
	}
	if _, ok := fields["org_id"]; ok {
		t.Fatalf("org_id should be omitted when unset")
	}
}

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM formations":                          "SELECT",
		"  insert into formation_contents values (1)":       "INSERT",
		"WITH x AS (SELECT 1) UPDATE formations SET name=1": "SELECT",
		"":                                                  "UNKNOWN",
	}
	for sql, want := range cases {
		if got := operationFromSQL(sql); got != want {
			t.Fatalf("operationFromSQL(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestTableFromSQL(t *testing.T) {
	cases := map[string]string{
		`SELECT * FROM "formations" WHERE id = 1`:               "formations",
		`INSERT INTO formation_contents (id) VALUES (1)`:        "formation_contents",
		`UPDATE formation_contents SET order_index = -2`:        "formation_contents",
		`DELETE FROM build_modules WHERE build3d_id IN (1,2,3)`: "build_modules",
		`SELECT 1`: "",
	}
	for sql, want := range cases {
		if got := tableFromSQL(sql); got != want {
			t.Fatalf("tableFromSQL(%q) = %q, want %q", sql, got, want)
		}
	}
}
