package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gorkemtikic/shotlib/internal/catalog"
	"github.com/gorkemtikic/shotlib/internal/sync"
	"github.com/gorkemtikic/shotlib/internal/ui"
)

var pullCmd = &cobra.Command{
	Use:     "pull",
	GroupID: "library",
	Short:   "Fetch the library into the local working copy",
	Long: `Fetch the item and feedback documents from the raw host and write
them to the working directory.

The working copy is what 'shotlib serve' watches for edits; pulling
again discards local changes in favor of the remote state.`,
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

		if err := os.MkdirAll(a.cfg.Paths.WorkingDir, 0o755); err != nil {
			return fmt.Errorf("failed to create working directory: %w", err)
		}

		items, err := catalog.EncodeItems(a.store.Items())
		if err != nil {
			return err
		}
		dataPath := a.cfg.WorkingDataPath()
		if err := os.WriteFile(dataPath, items, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dataPath, err)
		}

		fbs, err := catalog.EncodeFeedbacks(a.store.Feedbacks())
		if err != nil {
			return err
		}
		fbPath := a.cfg.WorkingFeedbacksPath()
		if err := os.WriteFile(fbPath, fbs, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", fbPath, err)
		}

		fmt.Printf("%s Pulled %d items, %d feedbacks\n",
			ui.RenderPass("✓"), a.store.Len(), len(a.store.Feedbacks()))
		fmt.Printf("   Items: %s\n", dataPath)
		fmt.Printf("   Feedbacks: %s\n", fbPath)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:     "add",
	GroupID: "library",
	Short:   "Add an item to the library",
	Long: `Add a new item, optionally uploading a screenshot in the same commit.

The screenshot and the collection update land atomically: a concurrent
editor's push cannot leave the library referencing a missing image.

Example:
  shotlib add --title "Deposit flow" --text "Tap Assets, then Deposit" \
      --topic Deposits --language English --platform mobile \
      --image ./deposit.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		title, _ := cmd.Flags().GetString("title")
		text, _ := cmd.Flags().GetString("text")
		textTR, _ := cmd.Flags().GetString("text-tr")
		topic, _ := cmd.Flags().GetString("topic")
		language, _ := cmd.Flags().GetString("language")
		platform, _ := cmd.Flags().GetString("platform")
		imagePath, _ := cmd.Flags().GetString("image")
		imageRef, _ := cmd.Flags().GetString("image-ref")

		item := catalog.Item{
			Title:    title,
			Text:     text,
			Topic:    topic,
			Language: language,
			Platform: catalog.Platform(platform),
			Image:    imageRef,
		}
		if textTR != "" {
			item.TextTR = &textTR
		}

		mut := sync.Mutation{Op: sync.OpAdd, Item: &item}
		if imagePath != "" {
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			mut.Asset = &sync.Asset{Name: filepath.Base(imagePath), Data: data}
		}

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.coord.Apply(ctx, mut)
		if err != nil {
			return describeSyncError(err)
		}

		a.analytics.Log(ctx, "item_added", map[string]string{"title": title})

		fmt.Printf("%s Added %s (library now has %d items)\n",
			ui.RenderPass("✓"), ui.RenderAccent(title), len(items))
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:     "set <item-id>",
	GroupID: "library",
	Short:   "Update fields of an existing item",
	Long: `Update an item in place. Only the flags you pass change; everything
else keeps its current value. Passing --text-tr "" clears the
translation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[0])
		}

		patch := catalog.ItemPatch{}
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			patch.Title = &v
		}
		if cmd.Flags().Changed("text") {
			v, _ := cmd.Flags().GetString("text")
			patch.Text = &v
		}
		if cmd.Flags().Changed("text-tr") {
			v, _ := cmd.Flags().GetString("text-tr")
			patch.TextTR = &v
		}
		if cmd.Flags().Changed("topic") {
			v, _ := cmd.Flags().GetString("topic")
			patch.Topic = &v
		}
		if cmd.Flags().Changed("language") {
			v, _ := cmd.Flags().GetString("language")
			patch.Language = &v
		}
		if cmd.Flags().Changed("platform") {
			v, _ := cmd.Flags().GetString("platform")
			p := catalog.Platform(v)
			patch.Platform = &p
		}
		if cmd.Flags().Changed("image-ref") {
			v, _ := cmd.Flags().GetString("image-ref")
			patch.Image = &v
		}

		mut := sync.Mutation{Op: sync.OpUpdate, ID: id, Patch: &patch}
		if cmd.Flags().Changed("image") {
			imagePath, _ := cmd.Flags().GetString("image")
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			mut.Asset = &sync.Asset{Name: filepath.Base(imagePath), Data: data}
		}

		if patch.IsZero() && mut.Asset == nil {
			return fmt.Errorf("nothing to update, pass at least one field flag")
		}

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.coord.Apply(ctx, mut); err != nil {
			return describeSyncError(err)
		}

		a.analytics.Log(ctx, "item_updated", map[string]string{"id": args[0]})

		fmt.Printf("%s Updated item %s\n", ui.RenderPass("✓"), ui.RenderAccent(args[0]))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <item-id>",
	GroupID: "library",
	Short:   "Delete an item from the library",
	Long: `Delete an item. Feedback entries referencing it stay in the feedback
document; they simply have nothing to point at anymore.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[0])
		}

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.coord.Apply(ctx, sync.Mutation{Op: sync.OpDelete, ID: id}); err != nil {
			return describeSyncError(err)
		}

		a.analytics.Log(ctx, "item_deleted", map[string]string{"id": args[0]})

		fmt.Printf("%s Deleted item %s\n", ui.RenderPass("✓"), ui.RenderAccent(args[0]))
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:     "backfill",
	GroupID: "library",
	Short:   "Fill in missing timestamps across the library",
	Long: `Assign an update timestamp to every item that lacks one, then push the
whole collection in one commit.

Items whose id looks like a creation timestamp get that instant;
anything else gets the current time.`,
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

		items := a.store.Items()
		n := catalog.Backfill(items)
		if n == 0 {
			fmt.Printf("%s Nothing to backfill, all %d items have timestamps\n",
				ui.RenderPass("✓"), len(items))
			return nil
		}

		if err := a.coord.OverwriteItems(ctx, items, fmt.Sprintf("Backfill timestamps for %d items via shotlib", n)); err != nil {
			return describeSyncError(err)
		}

		fmt.Printf("%s Backfilled %d of %d items\n", ui.RenderPass("✓"), n, len(items))
		return nil
	},
}

// describeSyncError turns coordinator failures into actionable CLI
// messages.
func describeSyncError(err error) error {
	switch {
	case errors.Is(err, sync.ErrConcurrentModification):
		return fmt.Errorf("someone else pushed first, nothing was written; re-run the command to retry on fresh state (%v)", err)
	case errors.Is(err, sync.ErrCorruptRemoteState):
		return fmt.Errorf("the remote collection document is unparseable and needs a manual fix before any write can proceed (%v)", err)
	case errors.Is(err, sync.ErrNoSuchItem):
		return fmt.Errorf("no such item: %v", err)
	default:
		return err
	}
}

func init() {
	for _, c := range []*cobra.Command{addCmd, setCmd} {
		c.Flags().String("title", "", "item title")
		c.Flags().String("text", "", "explanation text")
		c.Flags().String("text-tr", "", "Turkish translation (empty clears it)")
		c.Flags().String("topic", "", "topic bucket")
		c.Flags().String("language", "", "interface language, e.g. English")
		c.Flags().String("platform", "", "mobile or web")
		c.Flags().String("image", "", "local screenshot file to upload")
		c.Flags().String("image-ref", "", "existing repository image reference")
	}

	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(backfillCmd)
}
