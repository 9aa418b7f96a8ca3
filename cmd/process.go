package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/waffyhq/waffy-go/internal/bus"
	"github.com/waffyhq/waffy-go/internal/config"
)

var (
	processCustomer string
	processBusiness string
	processName     string
)

func init() {
	processCmd.Flags().StringVar(&processCustomer, "customer", "", "customer id (phone number)")
	processCmd.Flags().StringVar(&processBusiness, "business", "default", "business endpoint id")
	processCmd.Flags().StringVar(&processName, "name", "", "customer display name")
	processCmd.MarkFlagRequired("customer")
	rootCmd.AddCommand(processCmd)
}

var processCmd = &cobra.Command{
	Use:   "process [message text]",
	Short: "Run one message through the pipeline and print the outcome",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		app, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer app.close()

		text := args[0]
		for _, extra := range args[1:] {
			text += " " + extra
		}

		state := app.orchestrator.Process(context.Background(), bus.InboundMessage{
			MessageID:    "cli-" + uuid.NewString(),
			CustomerID:   processCustomer,
			CustomerName: processName,
			BusinessID:   processBusiness,
			Text:         text,
			Timestamp:    time.Now().Unix(),
		})

		fmt.Println("Stages:")
		for _, r := range state.Trace {
			line := fmt.Sprintf("  %-15s %s", r.Stage, r.Outcome)
			if r.Note != "" {
				line += "  (" + r.Note + ")"
			}
			fmt.Println(line)
		}
		if state.Aborted() {
			fmt.Printf("Aborted: %s\n", state.Reason)
			return nil
		}

		fmt.Printf("Category: %s (priority %s)\n", state.Classification.Category, state.Classification.Priority)
		fmt.Printf("Routed to: %s\n", state.Kind)
		if state.RecordRef != "" {
			fmt.Printf("Record: %s\n", state.RecordRef)
		}
		if state.Reply != "" {
			fmt.Printf("Reply: %s\n", state.Reply)
		}
		return nil
	},
}
