package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/amirphl/qrtrack/logging"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK      = 0
	exitFatal   = 1
	exitDrifted = 2
)

// exitCodeError ends the process with a specific status without being a failure of the command itself
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string {
	return e.msg
}

type rootOptions struct {
	jsonOutput bool
	logLevel   string
}

// Execute runs scanctl and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, open appOpener) int {
	opts := &rootOptions{}
	root := newRootCmd(opts, open)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitFatal
}

func newRootCmd(opts *rootOptions, open appOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "scanctl",
		Short:         "Inspect and repair QR scan counters",
		Long:          "scanctl compares the cached total_scans of every QR code with its recorded scans and rewrites drifted counters.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// stdout is reserved for reports so --json output stays parseable
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: logging.ParseLevel(opts.logLevel),
			}))
			slog.SetDefault(logger)
			log.SetOutput(cmd.ErrOrStderr())
			ctx := logging.WithAttrs(cmd.Context(), slog.String("app", "scanctl"), slog.String("command", cmd.CommandPath()))
			cmd.SetContext(ctx)
		},
	}

	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print reports as JSON")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newCheckCmd(opts, open),
		newFixCmd(opts, open),
		newMigrateCmd(open),
		newTokenCmd(opts, open),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
