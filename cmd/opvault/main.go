package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hengadev/opvault"
	"github.com/hengadev/opvault/internal/monitoring"
)

// app carries the global flags and the objects built from them.
type app struct {
	configFile string
	envFile    string
	verbose    bool

	cfg    opvault.Config
	logger *zap.Logger

	// extra lets tests swap the op runner and sleeper.
	extra []opvault.Option
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "opvault",
		Short: "Bulk-provision and roll back 1Password vaults through the op CLI",
		Long: `opvault turns prefix/suffix input files into 1Password vaults.

Input files live in the input directory:
  NAME-vault-prefixes.txt  one project per line
  NAME-vault-suffixes.txt  one role per line

Every project is joined with every role of the same NAME. A run records each
created vault in a rollback ledger so "opvault delete-run" can undo it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opvault.LoadConfig(opvault.LoadOptions{ConfigFile: a.configFile, EnvFile: a.envFile})
			if err != nil {
				return err
			}
			if a.verbose {
				cfg.LogLevel = "debug"
			}
			logger, err := monitoring.NewLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file (default: .env when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newWhoAmICmd(a),
		newScanCmd(a),
		newPreviewCmd(a),
		newRunCmd(a),
		newDeleteRunCmd(a),
		newCreateOneCmd(a),
		newRunsCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)
	return root
}

// open builds an instance printing progress to cmd's output.
func (a *app) open(cmd *cobra.Command) (*opvault.Opvault, error) {
	opts := append([]opvault.Option{opvault.WithProgress(cmd.OutOrStdout())}, a.extra...)
	return opvault.New(a.cfg, a.logger, opts...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
