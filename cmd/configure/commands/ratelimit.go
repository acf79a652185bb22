package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/littlesteps/insights/internal/config"
	"github.com/littlesteps/insights/internal/database"
	"github.com/littlesteps/insights/internal/models"
	"github.com/spf13/cobra"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "List or update the hour and minute rate limit windows (e.g. 1000-H, 60-M). Stored in database.",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()
			repo := database.NewRatelimitConfigRepository(db)
			configs, err := repo.List(context.Background())
			if err != nil {
				return fmt.Errorf("list ratelimit config: %w", err)
			}
			if len(configs) == 0 {
				fmt.Println("No rate limit configuration in database. Use 'ratelimit set' to add one.")
				return nil
			}
			fmt.Println("Rate limit configuration:")
			for _, c := range configs {
				fmt.Printf("  %s: %s\n", c.ConfigKey, c.Rate)
			}
			return nil
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var window string
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration for one window",
		Long:  "Update the hour or minute rate limit window (e.g. 1000-H, 60-M). Stored in database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			window = strings.TrimSpace(window)
			rate = strings.TrimSpace(rate)
			if window != database.RatelimitKeyHour && window != database.RatelimitKeyMinute {
				return fmt.Errorf("--window must be %q or %q", database.RatelimitKeyHour, database.RatelimitKeyMinute)
			}
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 1000-H, 60-M)")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()
			repo := database.NewRatelimitConfigRepository(db)
			c := &models.RatelimitConfig{ConfigKey: window, Rate: rate}
			if err := repo.Set(context.Background(), c); err != nil {
				return fmt.Errorf("set ratelimit config: %w", err)
			}
			fmt.Printf("Rate limit configuration updated: %s = %s\n", window, rate)
			return nil
		},
	}
	cmd.Flags().StringVar(&window, "window", "", "Window to update: hour or minute (required)")
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 1000-H, 60-M) (required)")
	return cmd
}
