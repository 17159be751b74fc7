package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/client"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch NAME",
	Short: "Fetch a match from a running server",
	Long:  "Requests /api/animals for NAME. On a first 402 the payment URL is printed; pay there, then rerun with --resume to retry once.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFetch,
}

var (
	fetchBaseURL    string
	fetchResume     bool
	fetchGraceDelay time.Duration
)

func init() {
	fetchCmd.Flags().StringVar(&fetchBaseURL, "base-url", "http://localhost:8080", "Base URL of the animal server")
	fetchCmd.Flags().BoolVar(&fetchResume, "resume", false, "Retry after completing a payment; a second 402 is reported as a failure")
	fetchCmd.Flags().DurationVar(&fetchGraceDelay, "grace", client.DefaultGraceDelay, "Delay before the retry when resuming")

	rootCmd.AddCommand(fetchCmd)
}

// printNavigator hands the payment page to the user.
type printNavigator struct {
	w io.Writer
}

func (n printNavigator) Navigate(_ context.Context, url string) error {
	_, err := fmt.Fprintf(n.w, "Payment required. Complete the payment at:\n  %s\nthen rerun with --resume.\n", url)
	return err
}

func runFetch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	flow, err := client.NewFlow(fetchBaseURL, printNavigator{w: out}, client.WithGraceDelay(fetchGraceDelay))
	if err != nil {
		return err
	}

	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	var snap client.Snapshot
	if fetchResume {
		snap, err = flow.Resume(cmd.Context(), name)
	} else {
		snap, err = flow.Submit(cmd.Context(), name)
	}
	if err != nil {
		return err
	}

	switch snap.State {
	case client.StateSuccess:
		encoded, err := json.MarshalIndent(snap.Result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(encoded))
		return nil
	case client.StatePaymentPending:
		return nil
	default:
		return fmt.Errorf("%s", snap.Error)
	}
}
