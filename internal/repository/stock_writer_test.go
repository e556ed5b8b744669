package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtanaka-dev/stocksync/internal/models"
	"github.com/mtanaka-dev/stocksync/internal/schema"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		fmt.Println("DATABASE_URL not set, skipping repository integration tests")
		os.Exit(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	testPool, err = pgxpool.New(ctx, url)
	if err != nil {
		fmt.Printf("failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer testPool.Close()

	if err := testPool.Ping(ctx); err != nil {
		fmt.Printf("failed to ping database: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

const testTable = "stockdata_writer_test"

func setupTestTable(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := testPool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", testTable)); err != nil {
		t.Fatalf("failed to drop test table: %v", err)
	}
	if _, err := testPool.Exec(ctx, schema.CreateStockTableSQL(testTable)); err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}
	t.Cleanup(func() {
		testPool.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", testTable))
	})
}

func testRow(code string, d time.Time, closePrice float64) models.StockRow {
	return models.StockRow{
		SecurityCode: code, CompanyName: "Test Co", TradeDate: d,
		Open: closePrice - 1, High: closePrice + 1, Low: closePrice - 2, Close: closePrice,
		OpenAdj: closePrice - 1, HighAdj: closePrice + 1, LowAdj: closePrice - 2, CloseAdj: closePrice,
		Volume: 1000,
	}
}

func countRows(t *testing.T) int {
	t.Helper()
	var n int
	if err := testPool.QueryRow(context.Background(), fmt.Sprintf("SELECT count(*) FROM %s", testTable)).Scan(&n); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

func stagingTables(t *testing.T) int {
	t.Helper()
	var n int
	err := testPool.QueryRow(context.Background(),
		`SELECT count(*) FROM information_schema.tables WHERE table_name LIKE $1`,
		"tmp_"+testTable+"%").Scan(&n)
	if err != nil {
		t.Fatalf("failed to count staging tables: %v", err)
	}
	return n
}

func TestUpsertIdempotence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	setupTestTable(t)

	ctx := context.Background()
	writer := NewStockWriter(testPool)
	d := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	rows := []models.StockRow{
		testRow("7984", d, 100),
		testRow("7984", d.AddDate(0, 0, 1), 101),
		testRow("6758", d, 200),
	}

	if err := writer.Upsert(ctx, testTable, rows); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if got := countRows(t); got != 3 {
		t.Fatalf("row count after first upsert = %d, want 3", got)
	}

	// Second run over the same window: no duplicates, new values win.
	rows[0].Close = 150
	if err := writer.Upsert(ctx, testTable, rows); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if got := countRows(t); got != 3 {
		t.Errorf("row count after re-ingest = %d, want 3", got)
	}

	var closePrice float64
	err := testPool.QueryRow(ctx,
		fmt.Sprintf("SELECT close FROM %s WHERE security_code = $1 AND trade_date = $2", testTable),
		"7984", d).Scan(&closePrice)
	if err != nil {
		t.Fatalf("failed to read back row: %v", err)
	}
	if closePrice != 150 {
		t.Errorf("close = %v, want overwritten value 150", closePrice)
	}

	if got := stagingTables(t); got != 0 {
		t.Errorf("%d staging tables left behind after upsert", got)
	}
}

func TestUpsertEmptyBatchIsNoOp(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	setupTestTable(t)

	writer := NewStockWriter(testPool)
	if err := writer.Upsert(context.Background(), testTable, nil); err != nil {
		t.Fatalf("empty upsert failed: %v", err)
	}
	if got := stagingTables(t); got != 0 {
		t.Errorf("empty upsert created %d staging tables", got)
	}
}

func TestUpsertCleansUpOnMergeFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	setupTestTable(t)

	ctx := context.Background()
	writer := NewStockWriter(testPool)
	d := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	// Merging into a nonexistent target fails after staging succeeded.
	err := writer.Upsert(ctx, "stockdata_writer_test_missing", []models.StockRow{testRow("7984", d, 100)})
	if err == nil {
		t.Fatal("expected merge into missing table to fail")
	}
	if got := stagingTables(t); got != 0 {
		t.Errorf("%d staging tables left behind after failed merge", got)
	}
}

func TestLatestTradeDate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	setupTestTable(t)

	ctx := context.Background()
	repo := NewStockRepository(testPool)

	// Absent table
	latest, err := repo.LatestTradeDate(ctx, "stockdata_repo_test_missing")
	if err != nil {
		t.Fatalf("LatestTradeDate on missing table failed: %v", err)
	}
	if latest != nil {
		t.Errorf("latest = %v, want nil for missing table", latest)
	}

	// Empty table
	latest, err = repo.LatestTradeDate(ctx, testTable)
	if err != nil {
		t.Fatalf("LatestTradeDate on empty table failed: %v", err)
	}
	if latest != nil {
		t.Errorf("latest = %v, want nil for empty table", latest)
	}

	// Populated table
	writer := NewStockWriter(testPool)
	d := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.StockRow{testRow("7984", d.AddDate(0, 0, -10), 90), testRow("7984", d, 100)}
	if err := writer.Upsert(ctx, testTable, rows); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	latest, err = repo.LatestTradeDate(ctx, testTable)
	if err != nil {
		t.Fatalf("LatestTradeDate failed: %v", err)
	}
	if latest == nil || !latest.Equal(d) {
		t.Errorf("latest = %v, want %v", latest, d)
	}
}
