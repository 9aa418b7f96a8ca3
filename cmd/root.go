package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "waffy",
	Short: "waffy — conversation processing for business messaging",
	Long: "waffy turns raw customer messages into structured business records:\n" +
		"orders, issues, enquiries, and feedback, with automated replies.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.waffy/config.json)")
}
