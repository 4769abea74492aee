package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/amirphl/qrtrack/app/dto"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/spf13/cobra"
)

func newFixCmd(opts *rootOptions, open appOpener) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Rewrite drifted scan counters from recorded scans",
		Long:  "fix sets total_scans of every drifted code to its recorded scan count in one transaction, then verifies the result. Exit status 2 means drift remained after the run.",
		RunE: withApp(open, func(cmd *cobra.Command, app *cliApp) error {
			res, err := app.Reconcile.Reconcile(cmd.Context(), businessflow.ReconcileOptions{DryRun: dryRun})
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				printReconcile(cmd.OutOrStdout(), res)
			}

			if res.Outcome == businessflow.OutcomeResidualDrift {
				return &exitCodeError{code: exitDrifted, msg: "residual drift after reconcile"}
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only show the planned changes")
	return cmd
}

func printReconcile(w io.Writer, res *dto.ReconcileResponse) {
	fmt.Fprintf(w, "Reconcile %s (run %s)\n", res.Outcome, res.RunID)

	if len(res.Changes) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SHORT CODE\tOLD\tNEW\tDELTA")
		for _, c := range res.Changes {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%+d\n", c.ShortCode, c.OldValue, c.NewValue, c.Delta)
		}
		_ = tw.Flush()
	}

	fmt.Fprintf(w, "planned: %d  applied: %d\n", len(res.Changes), res.Applied)
	fmt.Fprintf(w, "before: %d drifted codes, %d cached / %d recorded scans\n",
		res.Before.DriftedCodes, res.Before.CachedScans, res.Before.AuthoritativeScans)
	if res.After != nil {
		fmt.Fprintf(w, "after:  %d drifted codes, %d cached / %d recorded scans\n",
			res.After.DriftedCodes, res.After.CachedScans, res.After.AuthoritativeScans)
	}
	for _, warning := range res.Warnings {
		if warning.Kind == businessflow.WarningResidualDrift || warning.Kind == businessflow.WarningOrphanScans {
			fmt.Fprintf(w, "warning: %s %s %s\n", warning.Kind, warning.ShortCode, warning.Message)
		}
	}
}
