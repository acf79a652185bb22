package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/littlesteps/insights/internal/config"
	"github.com/littlesteps/insights/internal/database"
	"github.com/spf13/cobra"
)

// NewTemplatesCmd creates the templates command
func NewTemplatesCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List prompt templates",
		Long:  "List prompt templates stored in the database (active only by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			templateRepo := database.NewTemplateRepository(db)
			ctx := context.Background()

			templates, err := templateRepo.List(ctx, !all)
			if err != nil {
				return fmt.Errorf("failed to list templates: %w", err)
			}

			if len(templates) == 0 {
				fmt.Println("No prompt templates found")
				return nil
			}

			fmt.Println("Prompt templates:")
			for _, tpl := range templates {
				fmt.Printf("  - %s (%s)\n", tpl.Name, tpl.ID)
				if tpl.Description != "" {
					fmt.Printf("    Description: %s\n", tpl.Description)
				}
				fmt.Printf("    Active: %t\n", tpl.Active)
				if len(tpl.Variables) > 0 {
					fmt.Printf("    Variables: %s\n", strings.Join(tpl.Variables, ", "))
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include deactivated templates")

	return cmd
}
