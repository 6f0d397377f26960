package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panoptikon-app/panoptikon/internal/config"
	"github.com/panoptikon-app/panoptikon/internal/perror"
)

// newConfigCmd exposes get/set over the dotted config-key table in
// internal/config/write.go.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or write a single configuration key",
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value of a dotted config key (e.g. indexer.threads)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			value, err := config.Get(cc.Cfg, args[0])
			if err != nil {
				return perror.New(perror.CategoryConfigInvalid, "cli.config.get", "", err.Error(), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), value)

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a dotted config key and persist it to the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			if _, err := config.Set(cc.CfgPath, args[0], args[1], cc.Logger); err != nil {
				return perror.New(perror.CategoryConfigInvalid, "cli.config.set", "", err.Error(), err)
			}

			if !flagQuiet {
				fmt.Fprintf(cmd.OutOrStdout(), "set %s = %s\n", args[0], args[1])
			}

			return nil
		},
	}
}
