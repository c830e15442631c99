package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aescanero/ytscope/internal/application/orchestrator"
	"github.com/aescanero/ytscope/internal/config"
	httpapi "github.com/aescanero/ytscope/pkg/api/http"
	"github.com/aescanero/ytscope/pkg/domain"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect and test language-model providers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Test the connection to every configured provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.cliManager()
			if err != nil {
				return err
			}
			results := manager.TestAllProviders(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), renderConnectionResults(results))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "autoconfigure",
		Short: "Pick the fastest available providers as primary and fallback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.cliManager()
			if err != nil {
				return err
			}
			cfg, err := manager.AutoConfigure(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "primary:  %s\n", cfg.Primary)
			fmt.Fprintf(out, "fallback: %s\n", orDash(string(cfg.Fallback)))
			fmt.Fprintln(out, "Set AI_PRIMARY_SERVICE and AI_FALLBACK_SERVICE to keep this choice.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Show the effective provider configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProviderConfig(cfg))
			return nil
		},
	})

	var server string
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Show provider health reported by a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				server = "http://localhost:" + strconv.Itoa(cfg.HTTPPort)
			}
			health, err := fetchHealth(cmd, server)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHealth(health))
			return nil
		},
	}
	healthCmd.Flags().StringVar(&server, "server", "", "Daemon base URL (default http://localhost:<http port>)")
	cmd.AddCommand(healthCmd)

	return cmd
}

// cliManager builds an orchestrator for one-shot commands
func (c *commandContext) cliManager() (*orchestrator.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return newManager(cfg, logger.Named("providers"), nil)
}

func fetchHealth(cmd *cobra.Command, server string) (map[domain.ProviderName]httpapi.HealthView, error) {
	url := strings.TrimRight(server, "/") + "/api/v1/providers/health"
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query daemon at %s: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query daemon at %s: unexpected status %s", server, resp.Status)
	}

	var body struct {
		Health map[domain.ProviderName]httpapi.HealthView `json:"health"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return body.Health, nil
}

func renderConnectionResults(results map[domain.ProviderName]orchestrator.ConnectionResult) string {
	if len(results) == 0 {
		return "No providers configured."
	}
	rows := make([][]string, 0, len(results))
	for _, name := range sortedNames(results) {
		r := results[name]
		latency := "-"
		if r.Available {
			latency = r.ResponseTime.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{string(name), yesNo(r.Available), latency, orDash(r.Error)})
	}
	return renderTable(
		[]string{"Provider", "Available", "Latency", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderHealth(health map[domain.ProviderName]httpapi.HealthView) string {
	if len(health) == 0 {
		return "No providers registered."
	}
	rows := make([][]string, 0, len(health))
	for _, name := range sortedNames(health) {
		h := health[name]
		rows = append(rows, []string{
			string(name),
			string(h.Status),
			strconv.FormatInt(h.Requests, 10),
			fmt.Sprintf("%.0f%%", h.SuccessRate*100),
			strconv.FormatInt(h.AvgResponseTimeMS, 10) + "ms",
		})
	}
	return renderTable(
		[]string{"Provider", "Status", "Requests", "Success", "Avg Response"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func renderProviderConfig(cfg *config.Config) string {
	orch := cfg.OrchestratorConfig()
	settings := cfg.ProviderSettings()

	rows := make([][]string, 0, len(domain.KnownProviders()))
	for _, name := range domain.KnownProviders() {
		s, ok := settings[name]
		role := "-"
		switch name {
		case orch.Primary:
			role = "primary"
		case orch.Fallback:
			role = "fallback"
		}
		rows = append(rows, []string{
			string(name),
			yesNo(ok),
			role,
			orDash(s.Model),
			orDash(s.BaseURL),
		})
	}

	policy := fmt.Sprintf("retry attempts: %d, timeout: %s, rate limit delay: %s, fallback enabled: %s, batch size: %d",
		orch.RetryAttempts, orch.Timeout, orch.RateLimitDelay, yesNo(orch.FallbackEnabled), orch.BatchSize)

	return renderTable(
		[]string{"Provider", "Configured", "Role", "Model", "Base URL"},
		rows,
		nil,
	) + "\n" + policy
}

func sortedNames[V any](m map[domain.ProviderName]V) []domain.ProviderName {
	names := make([]domain.ProviderName, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func providerNames(names []domain.ProviderName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
