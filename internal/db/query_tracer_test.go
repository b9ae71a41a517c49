package db

import (
	"testing"
	"time"
)

func TestQueryTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  string
	}{
		{query: "SELECT id FROM products WHERE id = $1", want: "products"},
		{query: "INSERT INTO orders (id) VALUES ($1)", want: "orders"},
		{query: "UPDATE returns SET status = $2 WHERE id = $1", want: "returns"},
		{query: "SELECT 1", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()
			if got := queryTable(normalizeQuery(tc.query)); got != tc.want {
				t.Fatalf("queryTable() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewOrderNumber(t *testing.T) {
	t.Parallel()

	number := NewOrderNumber(mustTime(t, "2026-03-01T09:30:15Z"))
	if len(number) != len("ORD-20260301093015-0000") {
		t.Fatalf("unexpected order number length: %q", number)
	}
	if number[:19] != "ORD-20260301093015-" {
		t.Fatalf("expected timestamp prefix, got %q", number)
	}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("failed to parse time: %v", err)
	}
	return parsed
}
