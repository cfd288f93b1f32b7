package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hengadev/opvault"
	"github.com/hengadev/opvault/internal/health"
	"github.com/hengadev/opvault/internal/vaultops"
)

var (
	errScanFatal = errors.New("input scan found nothing to process")
	errRunHalted = errors.New("run halted before every planned vault was attempted; see the receipt")
	errUnhealthy = errors.New("preflight checks failed")
)

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the 1Password identity op is signed in as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := a.open(cmd)
			if err != nil {
				return err
			}
			who, err := ov.WhoAmI(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in to %s as %s (%s)\n", who.URL, who.UserUUID, who.UserType)
			return nil
		},
	}
}

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Parse the input files and report what was found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := a.open(cmd)
			if err != nil {
				return err
			}
			scan := ov.Scan()
			fmt.Fprintln(cmd.OutOrStdout(), scan.Summary())
			if len(scan.FatalErrors) > 0 {
				return errScanFatal
			}
			return nil
		},
	}
}

func newPreviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Show the vault names a run would create, without creating them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := a.open(cmd)
			if err != nil {
				return err
			}
			report := ov.Preview(cmd.Context())
			report.Render(cmd.OutOrStdout())
			if len(report.FatalErrors) > 0 {
				return errScanFatal
			}
			return nil
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Create every planned vault that does not exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := a.open(cmd)
			if err != nil {
				return err
			}
			res, err := ov.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nRun Complete. Artifacts:\n")
			fmt.Fprintf(out, "  Rollback ledger: %s\n", res.LedgerPath())
			fmt.Fprintf(out, "  Receipt:         %s\n", res.ReceiptPath())
			fmt.Fprintf(out, "Created %d, failed %d, warnings %d, errors %d\n",
				len(res.Receipt.Successes), len(res.Receipt.Failures), len(res.Receipt.Warnings), len(res.Receipt.Errors))
			if res.Halted {
				return errRunHalted
			}
			return nil
		},
	}
}

func newDeleteRunCmd(a *app) *cobra.Command {
	var (
		runID  string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "delete-run",
		Short: "Delete every vault recorded in a run's rollback ledger",
		Long: `Delete every vault recorded in a run's rollback ledger.

Without --run-id the most recently modified run with a non-empty ledger is
used. Vaults are deleted by id when the ledger has one, otherwise by name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := a.open(cmd)
			if err != nil {
				return err
			}
			res, err := ov.DeleteRun(cmd.Context(), runID, dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delete complete. Receipt: %s\n", res.ReceiptPath())
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run to delete (default: latest)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be deleted without deleting")
	return cmd
}

func newCreateOneCmd(a *app) *cobra.Command {
	var (
		name   string
		random bool
	)
	cmd := &cobra.Command{
		Use:   "create-one",
		Short: "Create a single vault through the retry engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if random {
				name = vaultops.RandomVaultName()
			}
			ov, err := a.open(cmd)
			if err != nil {
				return err
			}
			resp, err := ov.CreateVault(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[OK] Created vault %s (id=%s)\n", resp.Name, resp.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "vault name")
	cmd.Flags().BoolVar(&random, "random", false, "generate a random vault name")
	cmd.MarkFlagsMutuallyExclusive("name", "random")
	cmd.MarkFlagsOneRequired("name", "random")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := a.open(cmd)
			if err != nil {
				return err
			}
			runs, err := ov.Runs()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tMODIFIED\tLEDGER BYTES")
			for _, r := range runs {
				size := fmt.Sprint(r.LedgerBytes)
				if r.LedgerBytes < 0 {
					size = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.ModTime.Format("2006-01-02 15:04:05"), size)
			}
			return tw.Flush()
		},
	}
}

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check op sign-in, vault listing, input files and the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := a.open(cmd)
			if err != nil {
				return err
			}
			report, err := ov.Doctor(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range report.Results {
				fmt.Fprintf(out, "[%s] %s", strings.ToUpper(string(r.Status)), r.Name)
				if r.Message != "" {
					fmt.Fprintf(out, ": %s", r.Message)
				}
				if r.Error != "" {
					fmt.Fprintf(out, " (%s)", r.Error)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "Overall: %s\n", report.Status)
			if report.Status == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No configuration is needed to print the version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), opvault.VersionInfo())
			return nil
		},
	}
}
