package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gorkemtikic/shotlib/internal/catalog"
	"github.com/gorkemtikic/shotlib/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "library",
	Short:   "List library items",
	Long: `List items, newest first, with optional filters.

Example:
  shotlib list --topic Deposits --language Turkish --platform mobile`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		topic, _ := cmd.Flags().GetString("topic")
		language, _ := cmd.Flags().GetString("language")
		platform, _ := cmd.Flags().GetString("platform")
		favOnly, _ := cmd.Flags().GetBool("favorites")

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.load(ctx); err != nil {
			return err
		}

		shown := 0
		for _, it := range a.store.Items() {
			if topic != "" && it.Topic != topic {
				continue
			}
			if language != "" && it.Language != language {
				continue
			}
			if platform != "" && string(it.Platform) != platform {
				continue
			}

			fav, _ := a.store.IsFavorite(it.Title)
			if favOnly && !fav {
				continue
			}
			shown++

			star := " "
			if fav {
				star = ui.RenderAccent("★")
			}

			updated := ui.RenderDim(it.UpdatedAt)
			fmt.Printf("%s %-14d %s [%s/%s] %s\n",
				star, it.ID, ui.RenderAccent(it.Title),
				catalog.LangCode(it.Language), it.Platform, updated)
			if it.Topic != "" {
				fmt.Printf("    %s\n", ui.RenderDim(it.Topic))
			}
		}

		if shown == 0 {
			fmt.Println(ui.RenderDim("No items match"))
		} else {
			fmt.Printf("\n%d items\n", shown)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().String("topic", "", "filter by topic")
	listCmd.Flags().String("language", "", "filter by language")
	listCmd.Flags().String("platform", "", "filter by platform")
	listCmd.Flags().Bool("favorites", false, "only favorited items")

	rootCmd.AddCommand(listCmd)
}
