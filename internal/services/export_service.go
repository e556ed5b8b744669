package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/mtanaka-dev/stocksync/internal/models"
	"github.com/mtanaka-dev/stocksync/internal/repository"
	"github.com/mtanaka-dev/stocksync/internal/schema"
)

// Trial tokens always receive this fixed window, regardless of the
// requested bounds.
var (
	trialStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	trialEnd   = time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)
)

// StockReader is the read-side store access the export service needs.
type StockReader interface {
	DateBounds(ctx context.Context, table string) (min, max time.Time, ok bool, err error)
	StreamRows(ctx context.Context, table string, filter repository.RowFilter, fn func(models.StockRow) error) error
}

// RangeError reports a requested date bound outside the dataset's range.
// The message names the violated boundary.
type RangeError struct {
	Message string
}

func (e *RangeError) Error() string { return e.Message }

// ExportRequest carries the caller's filters for a CSV export.
type ExportRequest struct {
	Codes []string
	Start *time.Time
	End   *time.Time
}

// ExportQuery is a plan-resolved, executable export.
type ExportQuery struct {
	Table  string
	Filter repository.RowFilter
}

// ExportService resolves plan policy and streams stored rows as CSV.
type ExportService struct {
	stocks    StockReader
	mainTable string
	bulkTable string
}

// NewExportService creates a new ExportService.
func NewExportService(stocks StockReader, mainTable, bulkTable string) *ExportService {
	return &ExportService{stocks: stocks, mainTable: mainTable, bulkTable: bulkTable}
}

// ResolveQuery applies the plan's date-bound policy to a request:
//   - subscription: requested bounds pass through verbatim, main table;
//   - trial: the fixed trial window replaces any requested bounds;
//   - bulk: the bulk table's own min/max fill omitted bounds, and a
//     requested bound outside that range is rejected naming the boundary.
func (s *ExportService) ResolveQuery(ctx context.Context, plan models.PlanType, req ExportRequest) (*ExportQuery, error) {
	switch plan {
	case models.PlanSubscription:
		return &ExportQuery{
			Table:  s.mainTable,
			Filter: repository.RowFilter{Codes: req.Codes, Start: req.Start, End: req.End},
		}, nil

	case models.PlanTrial:
		start, end := trialStart, trialEnd
		return &ExportQuery{
			Table:  s.mainTable,
			Filter: repository.RowFilter{Codes: req.Codes, Start: &start, End: &end},
		}, nil

	case models.PlanBulk:
		min, max, ok, err := s.stocks.DateBounds(ctx, s.bulkTable)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve bulk dataset bounds: %w", err)
		}
		if !ok {
			return nil, &RangeError{Message: "bulk dataset holds no data"}
		}

		start, end := min, max
		if req.Start != nil {
			if req.Start.Before(min) {
				return nil, &RangeError{Message: fmt.Sprintf(
					"start_date %s is before the earliest available date %s",
					req.Start.Format("2006-01-02"), min.Format("2006-01-02"))}
			}
			start = *req.Start
		}
		if req.End != nil {
			if req.End.After(max) {
				return nil, &RangeError{Message: fmt.Sprintf(
					"end_date %s is after the latest available date %s",
					req.End.Format("2006-01-02"), max.Format("2006-01-02"))}
			}
			end = *req.End
		}
		return &ExportQuery{
			Table:  s.bulkTable,
			Filter: repository.RowFilter{Codes: req.Codes, Start: &start, End: &end},
		}, nil

	default:
		return nil, fmt.Errorf("unknown plan type %q", plan)
	}
}

// StreamCSV writes the query result to w as CSV: a header row of the
// canonical column names, then rows ordered by (security_code, trade_date).
// A failure after streaming began is appended to the partial output as an
// inline error marker, since headers and rows may already be flushed to the
// client.
func (s *ExportService) StreamCSV(ctx context.Context, w io.Writer, query *ExportQuery) {
	cw := csv.NewWriter(w)

	if err := cw.Write(schema.ColumnNames()); err != nil {
		log.Errorf("failed to write CSV header: %v", err)
		return
	}
	cw.Flush()

	err := s.stocks.StreamRows(ctx, query.Table, query.Filter, func(row models.StockRow) error {
		record := []string{
			row.SecurityCode,
			row.CompanyName,
			row.TradeDate.Format("2006-01-02"),
			formatPrice(row.Open),
			formatPrice(row.High),
			formatPrice(row.Low),
			formatPrice(row.Close),
			formatPrice(row.OpenAdj),
			formatPrice(row.HighAdj),
			formatPrice(row.LowAdj),
			formatPrice(row.CloseAdj),
			strconv.FormatInt(row.Volume, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		log.Errorf("export stream failed: %v", err)
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Errorf("export stream failed: %v", err)
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
