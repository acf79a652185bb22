package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/littlesteps/insights/internal/config"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test auth provider configuration",
		Long:  "Test the configured identity provider by validating its discovery and JWKS endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if cfg.AuthIssuer == "" {
				return fmt.Errorf("AUTH_ISSUER is not configured")
			}

			fmt.Printf("Testing auth configuration for issuer: %s\n", cfg.AuthIssuer)
			client := &http.Client{Timeout: 10 * time.Second}

			// Test issuer discovery endpoint
			discoveryURL := cfg.AuthIssuer + "/.well-known/openid-configuration"
			fmt.Printf("\nTesting discovery endpoint: %s\n", discoveryURL)
			resp, err := client.Get(discoveryURL)
			if err != nil {
				return fmt.Errorf("failed to reach discovery endpoint: %w", err)
			}
			defer func() {
				if err := resp.Body.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
				}
			}()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("discovery endpoint returned status: %d", resp.StatusCode)
			}
			fmt.Println("✓ Discovery endpoint is accessible")

			// Test JWKS endpoint if configured
			if cfg.AuthJWKSURL != "" {
				fmt.Printf("\nTesting JWKS endpoint: %s\n", cfg.AuthJWKSURL)
				resp, err := client.Get(cfg.AuthJWKSURL)
				if err != nil {
					return fmt.Errorf("failed to reach JWKS endpoint: %w", err)
				}
				defer func() {
					if err := resp.Body.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
					}
				}()

				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("JWKS endpoint returned status: %d", resp.StatusCode)
				}
				fmt.Println("✓ JWKS endpoint is accessible")
			}

			fmt.Println("\n✓ Auth configuration test passed")
			return nil
		},
	}

	return cmd
}
