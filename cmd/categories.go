package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waffyhq/waffy-go/internal/config"
)

var categoriesType string

func init() {
	categoriesCmd.Flags().StringVar(&categoriesType, "type", "", "business type (bakery, clinic, salon, ...)")
	rootCmd.AddCommand(categoriesCmd)
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show the category book used for classification",
	Long: `Show the categories messages are classified into. With --type, the
built-in book is extended with the suggestions for that business type.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var book config.Book
		if categoriesType != "" {
			book = config.BookForType(categoriesType)
		} else {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			book, err = config.LoadBook(cfg.CategoryBook)
			if err != nil {
				return err
			}
		}

		for _, c := range book.Categories {
			kind := c.Kind
			if kind == "" {
				kind = "enquiry"
			}
			fmt.Printf("%-24s priority=%-8s kind=%s\n", c.Name, book.Priority(c.Name), kind)
			if c.Description != "" {
				fmt.Printf("    %s\n", c.Description)
			}
		}
		return nil
	},
}
