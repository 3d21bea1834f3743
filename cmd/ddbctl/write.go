package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newWriteCmd(configPath *string) *cobra.Command {
	var (
		data       string
		invalidate []string
	)

	cmd := &cobra.Command{
		Use:   "write METHOD URL",
		Short: "Send a POST, PUT, PATCH or DELETE and print the unwrapped response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, url := strings.ToUpper(args[0]), args[1]

			body, err := readBody(data, cmd.InOrStdin())
			if err != nil {
				return err
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

			resp, err := a.client.Write(cmd.Context(), method, url, body, invalidate...)
			if err != nil {
				return err
			}
			if len(resp) == 0 {
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body, @file, or @- for stdin")
	cmd.Flags().StringSliceVar(&invalidate, "invalidate", nil, "cache keys to invalidate on success")
	return cmd
}

// readBody returns the request body named by data, or nil for no body.
func readBody(data string, stdin io.Reader) (json.RawMessage, error) {
	var raw []byte
	switch {
	case data == "":
		return nil, nil
	case data == "@-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		raw = b
	default:
		raw = []byte(data)
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return raw, nil
}
