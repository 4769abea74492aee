package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/amirphl/qrtrack/app/dto"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/amirphl/qrtrack/logging"
	"github.com/spf13/cobra"
)

type checkOutput struct {
	Report *dto.DriftReportResponse `json:"report"`
	Plan   *dto.ReconcileResponse   `json:"plan,omitempty"`
}

func newCheckCmd(opts *rootOptions, open appOpener) *cobra.Command {
	var shortCode string
	var failOnDrift bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report scan counter drift without changing anything",
		RunE: withApp(open, func(cmd *cobra.Command, app *cliApp) error {
			ctx := cmd.Context()

			var query businessflow.DriftQuery
			if cmd.Flags().Changed("short-code") {
				query.ShortCode = &shortCode
			}
			report, err := app.Drift.Detect(ctx, query)
			if err != nil {
				return err
			}

			out := checkOutput{Report: report}
			// The plan covers every code, so it is only meaningful for a full pass
			if query.ShortCode == nil {
				out.Plan, err = app.Reconcile.Reconcile(ctx, businessflow.ReconcileOptions{DryRun: true})
				if err != nil {
					return err
				}
			}

			if opts.jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				printDriftReport(cmd.OutOrStdout(), report)
				if out.Plan != nil && len(out.Plan.Changes) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%d counters would be rewritten by `scanctl fix`\n", len(out.Plan.Changes))
				}
			}

			if failOnDrift && report.Totals.DriftedCodes > 0 {
				logging.Warn(ctx, "drift found, failing as requested")
				return &exitCodeError{code: exitDrifted, msg: "drift detected"}
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&shortCode, "short-code", "", "Check a single QR code")
	cmd.Flags().BoolVar(&failOnDrift, "fail-on-drift", false, "Exit with status 2 when any counter has drifted")
	return cmd
}

func printDriftReport(w io.Writer, report *dto.DriftReportResponse) {
	t := report.Totals
	fmt.Fprintf(w, "Scan counter check at %s\n", report.GeneratedAt)
	fmt.Fprintf(w, "codes: %d  cached scans: %d  recorded scans: %d  discrepancy: %s\n",
		t.Codes, t.CachedScans, t.AuthoritativeScans, formatPercent(t.DiscrepancyPercent))
	fmt.Fprintf(w, "drifted codes: %d (under-counted %d codes / %d scans, over-counted %d codes / %d scans)\n",
		t.DriftedCodes, t.UnderCountedCodes, t.UnderCountedScans, t.OverCountedCodes, t.OverCountedScans)
	fmt.Fprintf(w, "codes without scans: %d  orphan scans: %d\n", t.ZeroScanCodes, t.OrphanScans)

	if t.DriftedCodes == 0 {
		fmt.Fprintln(w, "\nall counters match recorded scans")
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHORT CODE\tCACHED\tRECORDED\tDIFFERENCE")
	for _, r := range report.Records {
		if r.Difference == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%+d\n", r.ShortCode, r.CachedCount, r.AuthoritativeCount, r.Difference)
	}
	_ = tw.Flush()
}

func formatPercent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *p)
}
