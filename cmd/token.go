package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mtanaka-dev/stocksync/config"
	"github.com/mtanaka-dev/stocksync/internal/database"
	"github.com/mtanaka-dev/stocksync/internal/models"
	"github.com/mtanaka-dev/stocksync/internal/repository"
)

var (
	tokenExpires string
	tokenName    string
	tokenEmail   string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage export access tokens",
}

var tokenAddCmd = &cobra.Command{
	Use:   "add <plan>",
	Short: "Generate and store a new token for a plan (bulk, subscription, or trial)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		plan := models.PlanType(args[0])
		if !plan.Valid() {
			log.Fatalf("unknown plan type %q (want bulk, subscription, or trial)", args[0])
		}

		token := &models.Token{
			Token:    generateToken(),
			PlanType: plan,
			IsActive: true,
		}
		if tokenExpires != "" {
			t, err := time.Parse("2006-01-02", tokenExpires)
			if err != nil {
				log.Fatalf("invalid --expires %q, expected YYYY-MM-DD", tokenExpires)
			}
			token.ExpiresAt = &t
		}
		if tokenName != "" {
			token.UserName = &tokenName
		}
		if tokenEmail != "" {
			token.UserEmail = &tokenEmail
		}

		repo, closeDB := tokenRepo()
		defer closeDB()

		if err := repo.Insert(context.Background(), token); err != nil {
			log.Fatalf("failed to add token: %v", err)
		}

		fmt.Println("New token generated successfully")
		fmt.Printf("  Plan:  %s\n", token.PlanType)
		fmt.Printf("  Token: %s\n", token.Token)
	},
}

var tokenActivateCmd = &cobra.Command{
	Use:   "activate <token>",
	Short: "Reactivate a token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setTokenStatus(args[0], true)
	},
}

var tokenDeactivateCmd = &cobra.Command{
	Use:   "deactivate <token>",
	Short: "Deactivate a token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setTokenStatus(args[0], false)
	},
}

var tokenExpireCmd = &cobra.Command{
	Use:   "expire <token> <date>",
	Short: "Set a token's expiry date (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		t, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			log.Fatalf("invalid date %q, expected YYYY-MM-DD", args[1])
		}

		repo, closeDB := tokenRepo()
		defer closeDB()

		if err := repo.SetExpiry(context.Background(), args[0], &t); err != nil {
			log.Fatalf("failed to set token expiry: %v", err)
		}
		fmt.Printf("Token %q now expires at %s\n", args[0], args[1])
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete <token>",
	Short: "Delete a token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo, closeDB := tokenRepo()
		defer closeDB()

		if err := repo.Delete(context.Background(), args[0]); err != nil {
			log.Fatalf("failed to delete token: %v", err)
		}
		fmt.Printf("Token %q deleted\n", args[0])
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tokens",
	Run: func(cmd *cobra.Command, args []string) {
		repo, closeDB := tokenRepo()
		defer closeDB()

		tokens, err := repo.List(context.Background())
		if err != nil {
			log.Fatalf("failed to list tokens: %v", err)
		}
		if len(tokens) == 0 {
			fmt.Println("No tokens found in the database.")
			return
		}

		fmt.Printf("%-35s %-15s %-10s %-12s\n", "Token", "Plan Type", "Is Active", "Expires At")
		for _, t := range tokens {
			expires := "-"
			if t.ExpiresAt != nil {
				expires = t.ExpiresAt.Format("2006-01-02")
			}
			fmt.Printf("%-35s %-15s %-10t %-12s\n", t.Token, t.PlanType, t.IsActive, expires)
		}
	},
}

func setTokenStatus(token string, active bool) {
	repo, closeDB := tokenRepo()
	defer closeDB()

	if err := repo.SetActive(context.Background(), token, active); err != nil {
		log.Fatalf("failed to update token status: %v", err)
	}
	status := "deactivated"
	if active {
		status = "activated"
	}
	fmt.Printf("Token %q has been %s\n", token, status)
}

func tokenRepo() (*repository.TokenRepository, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	db, err := database.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return repository.NewTokenRepository(db.Pool), db.Close
}

// generateToken returns a 32-character hex secret.
func generateToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	return hex.EncodeToString(buf)
}

func init() {
	tokenAddCmd.Flags().StringVar(&tokenExpires, "expires", "", "expiry date (YYYY-MM-DD)")
	tokenAddCmd.Flags().StringVar(&tokenName, "name", "", "user name to attach")
	tokenAddCmd.Flags().StringVar(&tokenEmail, "email", "", "user email to attach")

	tokenCmd.AddCommand(tokenAddCmd, tokenActivateCmd, tokenDeactivateCmd, tokenExpireCmd, tokenDeleteCmd, tokenListCmd)
	rootCmd.AddCommand(tokenCmd)
}
