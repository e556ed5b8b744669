package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/mtanaka-dev/stocksync/internal/models"
	"github.com/mtanaka-dev/stocksync/internal/schema"
)

// StockWriter merges batches of canonical rows into a stock table.
type StockWriter struct {
	pool *pgxpool.Pool
}

// NewStockWriter creates a new StockWriter.
func NewStockWriter(pool *pgxpool.Pool) *StockWriter {
	return &StockWriter{pool: pool}
}

// Upsert stages rows into a per-call temporary table and merges them into the
// target table in a single transaction, keyed by (security_code, trade_date)
// with last-write-wins conflict resolution. The staging table is dropped on
// every exit path; it must never outlive the call. An empty batch is a no-op.
func (w *StockWriter) Upsert(ctx context.Context, table string, rows []models.StockRow) error {
	if len(rows) == 0 {
		log.WithField("table", table).Info("no rows to upsert")
		return nil
	}

	temp := fmt.Sprintf("tmp_%s_%d", table, time.Now().Unix())

	if _, err := w.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", temp)); err != nil {
		return fmt.Errorf("failed to clear staging table %s: %w", temp, err)
	}
	if _, err := w.pool.Exec(ctx, schema.CreateTempTableSQL(temp)); err != nil {
		return fmt.Errorf("failed to create staging table %s: %w", temp, err)
	}
	defer func() {
		if _, err := w.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", temp)); err != nil {
			log.Errorf("failed to drop staging table %s: %v", temp, err)
		}
	}()

	if err := w.stage(ctx, temp, rows); err != nil {
		return fmt.Errorf("failed to stage %d rows into %s: %w", len(rows), temp, err)
	}

	if err := w.merge(ctx, table, temp); err != nil {
		return fmt.Errorf("failed to merge %s into %s: %w", temp, table, err)
	}

	log.WithField("table", table).Infof("merged %d rows", len(rows))
	return nil
}

func (w *StockWriter) stage(ctx context.Context, temp string, rows []models.StockRow) error {
	query := schema.InsertSQL(temp)

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(query,
			r.SecurityCode, r.CompanyName, r.TradeDate,
			r.Open, r.High, r.Low, r.Close,
			r.OpenAdj, r.HighAdj, r.LowAdj, r.CloseAdj,
			r.Volume,
		)
	}

	br := w.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (w *StockWriter) merge(ctx context.Context, table, temp string) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, schema.MergeSQL(table, temp)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
