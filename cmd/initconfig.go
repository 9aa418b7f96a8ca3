package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/waffyhq/waffy-go/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.GetConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		if err := config.Save(config.DefaultConfig(), path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("✅ Config written to %s\n", path)
		fmt.Println("   Set classifier.apiKey to enable LLM classification.")
		return nil
	},
}
