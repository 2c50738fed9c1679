package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paulschiretz/pgl-copy/pkg/buildinfo"
	"github.com/paulschiretz/pgl-copy/pkg/config"
	"github.com/paulschiretz/pgl-copy/pkg/flagparse"
)

// NewRootCommand builds the command tree. The root command runs a copy;
// init and version are subcommands. Execute it with ExecuteContext so a
// canceled context stops a running copy.
func NewRootCommand() *cobra.Command {
	var global, copyFlags, initFlags flagparse.Flags

	root := &cobra.Command{
		Use:   "pgl-copy [flags] SOURCE... DEST",
		Short: "Copy files and directory trees in parallel",
		Long: `Copy one or more sources into DEST using a pool of workers.

A source given with a trailing separator copies its contents into DEST.
Without it, the source itself is created inside DEST.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 2 {
				return configError("missing arguments", fmt.Errorf("expected at least one SOURCE and a DEST, got %d argument(s)", len(args)))
			}
			return nil
		},
		RunE: func(c *cobra.Command, args []string) error {
			copyFlags.LogLevel, copyFlags.Quiet, copyFlags.Config = global.LogLevel, global.Quiet, global.Config
			flagMap := flagparse.ToMap(c.Flags(), &copyFlags)
			return RunCopy(c.Context(), args[:len(args)-1], args[len(args)-1], *global.Config, flagMap)
		},
	}
	flagparse.RegisterGlobalFlags(root.PersistentFlags(), &global)
	flagparse.RegisterCopyFlags(root.Flags(), &copyFlags)

	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a configuration file",
		Long: fmt.Sprintf(`Write a configuration file to PATH (default %q).

Settings are taken from --config if given, otherwise from the defaults,
with any tuning flags applied on top.`, config.ConfigFileName),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			initFlags.LogLevel, initFlags.Quiet, initFlags.Config = global.LogLevel, global.Quiet, global.Config
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return RunInit(path, *global.Config, flagparse.ToMap(c.Flags(), &initFlags))
		},
	}
	flagparse.RegisterInitFlags(initCmd.Flags(), &initFlags)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return RunVersion(c.OutOrStdout(), buildinfo.Name, buildinfo.Version)
		},
	}

	root.AddCommand(initCmd, versionCmd)
	return root
}
