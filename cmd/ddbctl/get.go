package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/ddbclient/cache"
)

func newGetCmd(configPath *string) *cobra.Command {
	var (
		key string
		ttl time.Duration
		raw bool
	)

	cmd := &cobra.Command{
		Use:   "get URL...",
		Short: "Fetch one or more URLs and print the unwrapped payloads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key != "" && len(args) > 1 {
				return fmt.Errorf("--key applies to a single URL")
			}

			cfg, err := loadConfig(*configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			out := make([]json.RawMessage, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, u := range args {
				g.Go(func() error {
					if raw {
						body, err := a.client.GetRaw(ctx, u)
						out[i] = body
						return err
					}

					k := key
					if k == "" {
						hashed, err := cache.HashKey("url", u)
						if err != nil {
							return err
						}
						k = hashed
					}
					body, err := a.client.Get(ctx, u, k, ttl)
					out[i] = body
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, body := range out {
				if err := enc.Encode(body); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "cache key (default: derived from the URL)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "cache TTL (default: cache.default_ttl)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the response without unwrapping or caching")
	return cmd
}
