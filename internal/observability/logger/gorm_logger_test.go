package logger

import "testing"

func TestOperationAndTableFromSQL(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
	}{
		{sql: `SELECT * FROM "billing_subscriptions" WHERE principal_id = $1`, operation: "SELECT", table: "billing_subscriptions"},
		{sql: "INSERT INTO watchlist_items (principal_id, movie_id) VALUES (?, ?)", operation: "INSERT", table: "watchlist_items"},
		{sql: "WITH x AS (SELECT 1) DELETE FROM checkout_sessions", operation: "SELECT", table: "checkout_sessions"},
		{sql: "", operation: "UNKNOWN", table: ""},
	}
	for _, tc := range cases {
		if got := operationFromSQL(tc.sql); got != tc.operation {
			t.Fatalf("operationFromSQL(%q) = %q, want %q", tc.sql, got, tc.operation)
		}
		if got := tableFromSQL(tc.sql); got != tc.table {
			t.Fatalf("tableFromSQL(%q) = %q, want %q", tc.sql, got, tc.table)
		}
	}
}
