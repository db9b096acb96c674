package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gorkemtikic/shotlib/internal/catalog"
	"github.com/gorkemtikic/shotlib/internal/ui"
)

var feedbackCmd = &cobra.Command{
	Use:     "feedback",
	GroupID: "feedback",
	Short:   "Manage item feedback",
	Long: `Manage the feedback log attached to the library.

Feedback lives in its own document, so deleting an item never touches
its feedback history.`,
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add <item-id> <message>",
	Short: "Submit feedback for an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		itemID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[0])
		}

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.load(ctx); err != nil {
			return err
		}

		if _, ok := a.store.Get(itemID); !ok {
			// Feedback on a vanished item is allowed, but worth a nudge.
			fmt.Printf("%s Item %d is not in the current library, recording feedback anyway\n",
				ui.RenderWarn("!"), itemID)
		}

		fb, err := a.store.AddFeedback(itemID, args[1])
		if err != nil {
			return err
		}

		if err := a.coord.PushFeedbacks(ctx, a.store.Feedbacks()); err != nil {
			return describeSyncError(err)
		}

		a.analytics.Log(ctx, "feedback_submitted", map[string]string{"item": args[0]})

		fmt.Printf("%s Feedback %d recorded for item %d\n", ui.RenderPass("✓"), fb.ID, itemID)
		return nil
	},
}

var feedbackResolveCmd = &cobra.Command{
	Use:   "resolve <feedback-id>",
	Short: "Mark a feedback entry resolved",
	Long: `Mark a feedback entry resolved. Resolving an already-resolved entry is
a no-op and keeps the original resolution time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid feedback id %q", args[0])
		}

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.load(ctx); err != nil {
			return err
		}

		if err := a.store.ResolveFeedback(id); err != nil {
			return err
		}

		if err := a.coord.PushFeedbacks(ctx, a.store.Feedbacks()); err != nil {
			return describeSyncError(err)
		}

		fmt.Printf("%s Feedback %d resolved\n", ui.RenderPass("✓"), id)
		return nil
	},
}

var feedbackListCmd = &cobra.Command{
	Use:   "list [item-id]",
	Short: "List feedback entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		activeOnly, _ := cmd.Flags().GetBool("active")

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.load(ctx); err != nil {
			return err
		}

		var fbs []catalog.Feedback
		if len(args) == 1 {
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			fbs = a.store.FeedbacksForItem(itemID)
		} else {
			fbs = a.store.Feedbacks()
		}

		shown := 0
		for _, fb := range fbs {
			if activeOnly && fb.Status != catalog.FeedbackActive {
				continue
			}
			shown++

			status := ui.RenderWarn(string(fb.Status))
			if fb.Status == catalog.FeedbackResolved {
				status = ui.RenderPass(string(fb.Status))
			}

			title := ui.RenderDim(fmt.Sprintf("item %d", fb.ItemID))
			if item, ok := a.store.Get(fb.ItemID); ok {
				title = ui.RenderAccent(item.Title)
			}

			fmt.Printf("%d  [%s]  %s\n    %s\n", fb.ID, status, title, fb.Message)
		}

		if shown == 0 {
			fmt.Println(ui.RenderDim("No feedback entries"))
		}
		return nil
	},
}

var favCmd = &cobra.Command{
	Use:     "fav [title]",
	GroupID: "feedback",
	Short:   "Toggle or list favorites",
	Long: `Toggle an item's favorite mark, or list favorites with no argument.

Favorites are a purely local preference keyed by item title; they never
leave this machine.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		favs := a.state.Favorites()

		if len(args) == 0 {
			titles, err := favs.List()
			if err != nil {
				return err
			}
			if len(titles) == 0 {
				fmt.Println(ui.RenderDim("No favorites yet"))
				return nil
			}
			for _, t := range titles {
				fmt.Printf("%s %s\n", ui.RenderAccent("★"), t)
			}
			return nil
		}

		on, err := favs.Toggle(args[0])
		if err != nil {
			return err
		}
		if on {
			fmt.Printf("%s Favorited %s\n", ui.RenderPass("★"), ui.RenderAccent(args[0]))
		} else {
			fmt.Printf("%s Unfavorited %s\n", ui.RenderDim("☆"), args[0])
		}
		return nil
	},
}

func init() {
	feedbackListCmd.Flags().Bool("active", false, "show only unresolved feedback")

	feedbackCmd.AddCommand(feedbackAddCmd)
	feedbackCmd.AddCommand(feedbackResolveCmd)
	feedbackCmd.AddCommand(feedbackListCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(favCmd)
}
