package cmd

import (
	"fmt"
	"os"

	"rollcall/config"
	"rollcall/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rollcall",
	Short: "Face verified attendance for security guards",
	Long: `Rollcall records one attendance entry per guard and work day. Guards check in
with a photo that is matched against their enrolled face, check out later, and
whoever did not show up is marked absent by the nightly sweep.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional
	_ = godotenv.Load()
	config.Load()
	if _, err := logging.Init(config.DEBUG_MODE); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
	}
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}
