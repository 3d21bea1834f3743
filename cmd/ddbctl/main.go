// Command ddbctl calls the character service through the resilient client
// and serves its health and metrics endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "ddbctl",
		Short:         "Rate-limited, cached client for the character service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "ddbctl.yaml", "path to config file")

	root.AddCommand(
		newGetCmd(&configPath),
		newWriteCmd(&configPath),
		newHealthCmd(&configPath),
		newServeCmd(&configPath),
	)
	return root
}
