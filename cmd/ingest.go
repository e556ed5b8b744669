package cmd

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mtanaka-dev/stocksync/config"
	"github.com/mtanaka-dev/stocksync/internal/catalog"
	"github.com/mtanaka-dev/stocksync/internal/database"
	"github.com/mtanaka-dev/stocksync/internal/ingest"
	"github.com/mtanaka-dev/stocksync/internal/marketdata"
	"github.com/mtanaka-dev/stocksync/internal/repository"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass over the ticker universe",
	Long: `Resolves the fetch window from stored state, fetches daily series for the
ticker universe in rate-limited batches, reconstructs unadjusted prices, and
merges the rows into the stock table. Per-batch failures are logged and the
run continues; only configuration and store-connectivity errors are fatal.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}

		entries, err := catalog.Load(cfg.TickerCSVFile)
		if err != nil {
			log.Fatalf("failed to load ticker catalog: %v", err)
		}
		if len(entries) == 0 {
			log.Fatal("ticker catalog is empty")
		}
		log.Infof("loaded %d tickers from %s", len(entries), cfg.TickerCSVFile)

		ctx := context.Background()
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()

		stockRepo := repository.NewStockRepository(db.Pool)
		runner := &ingest.Runner{
			Entries:    entries,
			Fetcher:    marketdata.NewClient(cfg.FeedBaseURL),
			Watermark:  stockRepo,
			Writer:     repository.NewStockWriter(db.Pool),
			Table:      cfg.StockTable,
			Suffix:     cfg.TickerSuffix,
			ChunkSize:  cfg.ChunkSize,
			BatchDelay: cfg.BatchDelay,
			Epoch:      cfg.HistoryEpoch,
		}

		results, summary := runner.Run(ctx)
		if summary.NoOp {
			return
		}

		failed := 0
		for _, res := range results {
			if res.FetchErr != nil || res.UpsertErr != nil {
				failed++
			}
		}
		if failed > 0 {
			log.Warnf("%d of %d batches failed; see earlier log lines", failed, summary.Batches)
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
