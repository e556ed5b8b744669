package cmd

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mtanaka-dev/stocksync/config"
	"github.com/mtanaka-dev/stocksync/internal/database"
	"github.com/mtanaka-dev/stocksync/internal/schema"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the stock tables and the tokens table",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}

		ctx := context.Background()
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()

		for _, stmt := range []struct {
			name string
			sql  string
		}{
			{cfg.StockTable, schema.CreateStockTableSQL(cfg.StockTable)},
			{cfg.BulkTable, schema.CreateStockTableSQL(cfg.BulkTable)},
			{"tokens", schema.CreateTokensTableSQL()},
		} {
			if _, err := db.Pool.Exec(ctx, stmt.sql); err != nil {
				log.Fatalf("failed to create table %s: %v", stmt.name, err)
			}
			log.Infof("table %s is ready", stmt.name)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
