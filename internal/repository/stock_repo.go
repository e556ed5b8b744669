package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtanaka-dev/stocksync/internal/models"
	"github.com/mtanaka-dev/stocksync/internal/schema"
)

// StockRepository handles read-side database operations for stock tables.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository creates a new StockRepository.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// LatestTradeDate returns the maximum trade date stored in the table, or nil
// when the table does not exist or holds no rows.
func (r *StockRepository) LatestTradeDate(ctx context.Context, table string) (*time.Time, error) {
	var regclass *string
	if err := r.pool.QueryRow(ctx, `SELECT to_regclass($1)::text`, table).Scan(&regclass); err != nil {
		return nil, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	if regclass == nil {
		return nil, nil
	}

	var latest *time.Time
	query := fmt.Sprintf(`SELECT MAX(trade_date) FROM %s`, table)
	if err := r.pool.QueryRow(ctx, query).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to query latest trade date from %s: %w", table, err)
	}
	return latest, nil
}

// DateBounds returns the minimum and maximum trade dates in the table.
// ok is false when the table holds no rows.
func (r *StockRepository) DateBounds(ctx context.Context, table string) (min, max time.Time, ok bool, err error) {
	var lo, hi *time.Time
	query := fmt.Sprintf(`SELECT MIN(trade_date), MAX(trade_date) FROM %s`, table)
	if err = r.pool.QueryRow(ctx, query).Scan(&lo, &hi); err != nil {
		err = fmt.Errorf("failed to query date bounds of %s: %w", table, err)
		return
	}
	if lo == nil || hi == nil {
		return
	}
	return *lo, *hi, true, nil
}

// RowFilter bounds a streamed export query.
type RowFilter struct {
	Codes []string
	Start *time.Time
	End   *time.Time
}

// StreamRows executes a cursor query over the table ordered by
// (security_code, trade_date) and invokes fn for each row. The result set is
// never materialized in memory.
func (r *StockRepository) StreamRows(ctx context.Context, table string, filter RowFilter, fn func(models.StockRow) error) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s WHERE 1=1", strings.Join(schema.ColumnNames(), ", "), table)

	var args []any
	if len(filter.Codes) > 0 {
		args = append(args, filter.Codes)
		fmt.Fprintf(&sb, " AND security_code = ANY($%d)", len(args))
	}
	if filter.Start != nil {
		args = append(args, *filter.Start)
		fmt.Fprintf(&sb, " AND trade_date >= $%d", len(args))
	}
	if filter.End != nil {
		args = append(args, *filter.End)
		fmt.Fprintf(&sb, " AND trade_date <= $%d", len(args))
	}
	sb.WriteString(" ORDER BY security_code, trade_date")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.StockRow
		if err := rows.Scan(
			&s.SecurityCode, &s.CompanyName, &s.TradeDate,
			&s.Open, &s.High, &s.Low, &s.Close,
			&s.OpenAdj, &s.HighAdj, &s.LowAdj, &s.CloseAdj,
			&s.Volume,
		); err != nil {
			return fmt.Errorf("failed to scan stock row: %w", err)
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return rows.Err()
}
