package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gorkemtikic/shotlib/internal/analytics"
	"github.com/gorkemtikic/shotlib/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "library",
	Short:   "Show library statistics",
	Long: `Show item, feedback, topic, and language counts, plus usage numbers
from the analytics endpoint when one is configured. Missing usage data
is reported as unavailable, never as an error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.load(ctx); err != nil {
			return err
		}

		interactions, _ := a.analytics.FetchInteractionStats(ctx)
		stats := analytics.ComputeLibraryStats(a.store.Items(), a.store.Feedbacks(), interactions)

		fmt.Printf("\n%s\n\n", ui.RenderHeader("Library"))
		fmt.Printf("Items: %d\n", stats.TotalItems)
		fmt.Printf("Feedbacks: %d (%d active)\n", stats.TotalFeedbacks, stats.ActiveFeedbacks)

		if len(stats.Topics) > 0 {
			fmt.Printf("\n%s\n", ui.RenderHeader("Topics"))
			for _, t := range stats.Topics {
				fmt.Printf("  %-30s %d\n", t.Name, t.Count)
			}
		}

		if len(stats.Languages) > 0 {
			fmt.Printf("\n%s\n", ui.RenderHeader("Languages"))
			for _, l := range stats.Languages {
				fmt.Printf("  %-30s %d\n", l.Name, l.Count)
			}
		}

		fmt.Printf("\n%s\n", ui.RenderHeader("Usage"))
		if stats.Interactions == nil {
			fmt.Println(ui.RenderDim("  No usage data available"))
		} else {
			fmt.Printf("  Unique users: %d\n", stats.Interactions.UniqueUsers)
			fmt.Printf("  Total clicks: %d\n", stats.Interactions.TotalClicks)
			if stats.Interactions.TopScreenshot != "" {
				fmt.Printf("  Most viewed: %s\n", ui.RenderAccent(stats.Interactions.TopScreenshot))
			}
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
