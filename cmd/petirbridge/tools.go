package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/quailyquaily/petirbridge/internal/logutil"
	"github.com/quailyquaily/petirbridge/tools"
	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and invoke the external tool operations",
	}
	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsCallCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available tools and their parameter schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := toolRegistry(nil)
			fmt.Fprint(cmd.OutOrStdout(), reg.Describe())
			return nil
		},
	}
}

func newToolsCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <name> [json-params]",
		Short: "Invoke one tool with JSON params and print its text result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
					return fmt.Errorf("parse params: %w", err)
				}
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			client, err := telegramClientFromViper()
			if err != nil {
				return err
			}

			dispatcher := tools.NewDispatcher(toolRegistry(client), logger)
			for _, item := range dispatcher.Call(cmd.Context(), args[0], params) {
				fmt.Fprintln(cmd.OutOrStdout(), item.Text)
			}
			return nil
		},
	}
}
