package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>...",
	Short: "Enroll the face of an employee from photos",
	Long: `Compute the reference face of an employee from one or more photos and
replace the previous enrollment. Every photo must show exactly one face.

Examples:
  rollcall enroll --employee G-0042 front.jpg left.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.Flags().String("employee", "", "Employee ID")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	employeeID := mustGetString(cmd, "employee")
	if employeeID == "" {
		return errors.New("--employee is required")
	}
	images := make([][]byte, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		images = append(images, data)
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	if err := a.loadMatcher(); err != nil {
		return err
	}

	identity, err := a.service.Enroll(ctx, employeeID, images...)
	if err != nil {
		return fmt.Errorf("enroll %s: %w", employeeID, err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(identity)
}
