package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/ddbclient/health"
)

func newHealthCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run the health checks once and print the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			agg := a.aggregator()
			results := agg.CheckAll(cmd.Context())
			status := agg.OverallStatus(results)

			report := make(map[string]any, len(results)+1)
			report["status"] = status.String()
			report["timestamp"] = time.Now().UTC().Format(time.RFC3339)
			checks := make(map[string]any, len(results))
			for name, r := range results {
				checks[name] = map[string]any{"status": r.Status.String(), "message": r.Message}
			}
			report["checks"] = checks

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if status == health.StatusUnhealthy {
				return fmt.Errorf("unhealthy")
			}
			return nil
		},
	}
}
