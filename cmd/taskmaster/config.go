package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sandeepkv93/taskmaster/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
		Long: `Settings come from defaults, then the config file, then
TASKMASTER_* environment variables (db.path is TASKMASTER_DB_PATH).`,
	}
	cmd.AddCommand(newConfigShowCmd(root), newConfigGetCmd(root), newConfigInitCmd(root), newConfigPathCmd(root))
	return cmd
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			key := color.New(color.FgCyan)
			for _, k := range config.Keys {
				v, err := cfg.Value(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key.Sprint(k), v)
			}
			return nil
		},
	}
}

func newConfigGetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print one config value",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			v, err := cfg.Value(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if path == "" {
				path = config.UserConfigPath()
			}
			if err := config.Write(config.Default(), path, force); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), "✓", "Wrote "+path, color.FgGreen)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newConfigPathCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			path := root.configPath
			if path == "" {
				path = config.UserConfigPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	}
}
