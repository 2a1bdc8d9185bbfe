// Package commands implements the rbtctl subcommands.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/benz9527/xrbt/lib/tree"
	"github.com/benz9527/xrbt/lib/xlog"
)

// app is shared by the subcommands once the root has loaded the config.
type app struct {
	configPath string
	cfg        *Config
	logger     xlog.XLogger
}

func (a *app) treeOpts() []tree.RBTreeOpt[int64] {
	opts := []tree.RBTreeOpt[int64]{
		tree.WithRBTreeLogger[int64](a.logger),
	}
	if a.cfg.Tree.Desc {
		opts = append(opts, tree.WithRBTreeDesc[int64]())
	}
	return opts
}

// open returns stdin for "-".
func open(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "rbtctl",
		Short: "Drive and inspect top-down red-black trees",
		Long: `rbtctl replays operation scripts against a red-black tree,
checks trees written in the canonical text form and generates fixtures.

Commands:
  replay    Run an operation script
  check     Decode and validate a canonical text tree
  gen       Print the canonical text of a generated tree`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(a.configPath, cmd)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, cfg.Logger()
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default .rbtctl.yaml in . or $HOME)")
	flags.String("log-level", DefaultLogLevel, "log level: debug, info, warn, error")
	flags.String("log-encoder", DefaultLogEncoder, "log encoder: text or json")
	flags.Bool("desc", false, "keep keys in descending order")

	rootCmd.AddCommand(newReplayCommand(a))
	rootCmd.AddCommand(newCheckCommand(a))
	rootCmd.AddCommand(newGenCommand(a))
	return rootCmd
}
