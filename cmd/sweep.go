package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark absences for a day now",
	Long: `Mark every active employee without a record for the day as absent.
Sweeping a day twice is harmless, already recorded employees are skipped.
Employees whose work day has not ended yet in their branch timezone are left pending.

Examples:
  rollcall sweep
  rollcall sweep --day 2026-10-18`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().String("day", "", "Day to sweep, YYYY-MM-DD (default yesterday)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	day := mustGetString(cmd, "day")
	if day == "" {
		day = a.service.Yesterday()
	}
	result, err := a.sweeper.Sweep(ctx, day)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
