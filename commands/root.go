// Package commands is the inkpost command line: the API server and the
// database maintenance tools.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"inkpost/app/config"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X inkpost/commands.Version=...".
var Version = "dev"

const configFlag = "config"

// NewRootCommand assembles the inkpost command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "inkpost",
		Short:         "Blogging platform backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newDBCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "inkpost version %s\n", Version)
		},
	}
}

// withConfigFlag adds the --config flag to flags.
func withConfigFlag(flags map[string]cobraflags.Flag) map[string]cobraflags.Flag {
	flags[configFlag] = &cobraflags.StringFlag{
		Name:  configFlag,
		Value: "",
		Usage: "Path to a config file (yaml, toml or json)",
	}
	return flags
}

// loadConfig reads the file named by --config, applies overrides on top of
// everything else and builds the process logger.
func loadConfig(flags map[string]cobraflags.Flag, overrides map[string]string, logOut io.Writer) (*config.Config, *slog.Logger, error) {
	v := config.New()
	for key, value := range overrides {
		if value != "" {
			v.Set(key, value)
		}
	}

	cfg, err := config.Load(v, flags[configFlag].GetString())
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Log.NewLogger(logOut)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
