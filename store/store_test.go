package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/config"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "ccu.db")},
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordCompletedOrder(t *testing.T) {
	db := testDB(t)

	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	stopped := started.Add(5 * time.Minute)
	co := &CompletedOrder{
		OrderID:    "order-1",
		OrderType:  "PRODUCTION",
		Workpiece:  "WHITE",
		State:      "FINISHED",
		StepsJSON:  `[{"id":"a","kind":"NAVIGATION"}]`,
		ReceivedAt: started.Add(-time.Minute),
		StartedAt:  &started,
		StoppedAt:  &stopped,
	}
	if err := db.RecordCompletedOrder(co); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := db.GetCompletedOrder("order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OrderType != "PRODUCTION" || got.Workpiece != "WHITE" || got.State != "FINISHED" {
		t.Errorf("row = %+v", got)
	}
	if got.StepsJSON != co.StepsJSON {
		t.Errorf("steps json = %q", got.StepsJSON)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Errorf("started at = %v, want %v", got.StartedAt, started)
	}
	if got.StoppedAt == nil || !got.StoppedAt.Equal(stopped) {
		t.Errorf("stopped at = %v, want %v", got.StoppedAt, stopped)
	}
}

func TestRecordCompletedOrderIdempotent(t *testing.T) {
	db := testDB(t)

	co := &CompletedOrder{OrderID: "order-1", State: "FINISHED", ReceivedAt: time.Now()}
	if err := db.RecordCompletedOrder(co); err != nil {
		t.Fatalf("record: %v", err)
	}
	// The audit path may record the same terminal order twice; the second
	// write must be a no-op, not an error.
	co.State = "ERROR"
	if err := db.RecordCompletedOrder(co); err != nil {
		t.Fatalf("re-record: %v", err)
	}

	got, err := db.GetCompletedOrder("order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != "FINISHED" {
		t.Errorf("state = %s, first write must win", got.State)
	}
	rows, err := db.ListCompletedOrders(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %d, want 1", len(rows))
	}
}

func TestListCompletedOrdersNewestFirst(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"order-1", "order-2", "order-3"} {
		if err := db.RecordCompletedOrder(&CompletedOrder{OrderID: id, State: "FINISHED", ReceivedAt: time.Now()}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	rows, err := db.ListCompletedOrders(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].OrderID != "order-3" || rows[1].OrderID != "order-2" {
		t.Errorf("rows = %v", rows)
	}
}

func TestNullTimestamps(t *testing.T) {
	db := testDB(t)

	// A cancelled order never started.
	if err := db.RecordCompletedOrder(&CompletedOrder{OrderID: "order-1", State: "CANCELLED", ReceivedAt: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := db.GetCompletedOrder("order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StartedAt != nil || got.StoppedAt != nil {
		t.Errorf("timestamps = %v / %v, want nil", got.StartedAt, got.StoppedAt)
	}
}

func TestAuditLog(t *testing.T) {
	db := testDB(t)

	if err := db.AppendAudit("order", "order-1", "completed", "", "ccu"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.AppendAudit("order", "order-2", "failed", "quality check failed", "ccu"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.AppendAudit("factory", "", "reset", "", "client"); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := db.ListAuditLog(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Action != "reset" || entries[0].Actor != "client" {
		t.Errorf("newest entry = %+v", entries[0])
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}

	forOrder, err := db.ListEntityAudit("order", "order-2")
	if err != nil {
		t.Fatalf("entity list: %v", err)
	}
	if len(forOrder) != 1 || forOrder[0].Detail != "quality check failed" {
		t.Errorf("entity entries = %+v", forOrder)
	}
}

func TestProductionLogAndTotals(t *testing.T) {
	db := testDB(t)

	steps := []struct{ moduleType, command string }{
		{"HBW", "DROP"},
		{"DRILL", "PICK"},
		{"DRILL", "DRILL"},
		{"DRILL", "DROP"},
	}
	for _, s := range steps {
		if err := db.LogProduction("order-1", "WHITE", s.moduleType, s.command, s.moduleType+"-1"); err != nil {
			t.Fatalf("log %s %s: %v", s.moduleType, s.command, err)
		}
	}
	if err := db.LogProduction("order-2", "RED", "MILL", "MILL", "MILL-1"); err != nil {
		t.Fatalf("log: %v", err)
	}

	entries, err := db.ListProduction("order-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(entries))
	}
	if entries[0].ModuleType != "HBW" || entries[0].Command != "DROP" {
		t.Errorf("first entry = %+v", entries[0])
	}

	totals, err := db.ProductionTotals()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	byKey := map[string]int64{}
	for _, tot := range totals {
		byKey[tot.ModuleType+"/"+tot.Command] = tot.Count
	}
	if byKey["DRILL/PICK"] != 1 || byKey["MILL/MILL"] != 1 || byKey["HBW/DROP"] != 1 {
		t.Errorf("totals = %v", byKey)
	}
}

func TestRebind(t *testing.T) {
	got := Rebind(`INSERT INTO t (a, b) VALUES (?, ?)`)
	want := `INSERT INTO t (a, b) VALUES ($1, $2)`
	if got != want {
		t.Errorf("Rebind = %q, want %q", got, want)
	}
}
