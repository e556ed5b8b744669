// Package schema is the single source of truth for the persisted stock data
// schema. The ingestion writer and the export service both derive column
// lists, key columns, and SQL from here so the canonical column set is defined
// exactly once.
package schema

import (
	"fmt"
	"strings"
)

// Version identifies the stock table layout. Bump when columns change.
const Version = 1

// Column is one column of the stock data tables.
type Column struct {
	Name    string
	SQLType string
	Key     bool
}

// StockColumns is the canonical column set, in persisted and exported order.
// The primary key is (security_code, trade_date).
var StockColumns = []Column{
	{Name: "security_code", SQLType: "VARCHAR(10)", Key: true},
	{Name: "company_name", SQLType: "VARCHAR(255)"},
	{Name: "trade_date", SQLType: "DATE", Key: true},
	{Name: "open", SQLType: "DOUBLE PRECISION"},
	{Name: "high", SQLType: "DOUBLE PRECISION"},
	{Name: "low", SQLType: "DOUBLE PRECISION"},
	{Name: "close", SQLType: "DOUBLE PRECISION"},
	{Name: "open_adj", SQLType: "DOUBLE PRECISION"},
	{Name: "high_adj", SQLType: "DOUBLE PRECISION"},
	{Name: "low_adj", SQLType: "DOUBLE PRECISION"},
	{Name: "close_adj", SQLType: "DOUBLE PRECISION"},
	{Name: "volume", SQLType: "BIGINT"},
}

// ColumnNames returns all stock column names in canonical order.
func ColumnNames() []string {
	names := make([]string, len(StockColumns))
	for i, c := range StockColumns {
		names[i] = c.Name
	}
	return names
}

// KeyColumns returns the primary key column names.
func KeyColumns() []string {
	var keys []string
	for _, c := range StockColumns {
		if c.Key {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// CreateStockTableSQL returns the DDL for a stock data table.
func CreateStockTableSQL(table string) string {
	var defs []string
	for _, c := range StockColumns {
		defs = append(defs, fmt.Sprintf("%s %s", c.Name, c.SQLType))
	}
	defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(KeyColumns(), ", ")))
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(defs, ",\n\t"))
}

// CreateTempTableSQL returns the DDL for a staging table with the stock
// layout but no constraints, so staging cannot fail on key conflicts.
func CreateTempTableSQL(table string) string {
	var defs []string
	for _, c := range StockColumns {
		defs = append(defs, fmt.Sprintf("%s %s", c.Name, c.SQLType))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", table, strings.Join(defs, ",\n\t"))
}

// CreateTokensTableSQL returns the DDL for the access token table.
func CreateTokensTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS tokens (
	id BIGSERIAL PRIMARY KEY,
	token VARCHAR(64) NOT NULL UNIQUE,
	plan_type VARCHAR(20) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	expires_at DATE,
	user_name VARCHAR(255),
	user_email VARCHAR(255),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
}

// MergeSQL returns the insert-select statement that merges staged rows into
// the target table, overwriting every non-key column on key conflict.
func MergeSQL(target, temp string) string {
	cols := strings.Join(ColumnNames(), ", ")

	var updates []string
	for _, c := range StockColumns {
		if c.Key {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c.Name, c.Name))
	}

	return fmt.Sprintf(`INSERT INTO %s (%s)
SELECT %s FROM %s
ON CONFLICT (%s) DO UPDATE SET %s`,
		target, cols, cols, temp, strings.Join(KeyColumns(), ", "), strings.Join(updates, ", "))
}

// InsertSQL returns a positional-parameter insert into the given table with
// the full canonical column set.
func InsertSQL(table string) string {
	params := make([]string, len(StockColumns))
	for i := range StockColumns {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(ColumnNames(), ", "), strings.Join(params, ", "))
}
