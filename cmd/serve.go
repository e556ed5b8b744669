package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mtanaka-dev/stocksync/config"
	"github.com/mtanaka-dev/stocksync/internal/database"
	"github.com/mtanaka-dev/stocksync/internal/handlers"
	"github.com/mtanaka-dev/stocksync/internal/middleware"
	"github.com/mtanaka-dev/stocksync/internal/repository"
	"github.com/mtanaka-dev/stocksync/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the token-gated CSV export web service",
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

		stockRepo := repository.NewStockRepository(db.Pool)
		tokenRepo := repository.NewTokenRepository(db.Pool)
		exportSvc := services.NewExportService(stockRepo, cfg.StockTable, cfg.BulkTable)
		exportHandler := handlers.NewExportHandler(exportSvc)

		router := gin.Default()

		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		router.POST("/download", middleware.TokenAuth(tokenRepo), exportHandler.Download)

		srv := &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		}

		go func() {
			log.Infof("starting server on port %s", cfg.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down server...")

		// Give outstanding requests 5 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("server forced to shutdown: %v", err)
		}

		log.Info("server exited")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
