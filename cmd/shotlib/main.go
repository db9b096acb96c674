// Command shotlib manages a screenshot library hosted in a GitHub
// repository: the item collection, its feedback log, and the uploaded
// screenshot assets.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "shotlib",
	Short: "Screenshot library manager",
	Long: `shotlib manages a screenshot library stored in a GitHub repository.

The library is a pair of JSON documents (items and feedbacks) plus the
screenshot assets themselves. All writes go through the repository's
git object API so concurrent editors never silently overwrite each
other: a conflicting push fails cleanly and can be retried on fresh
state.

Run 'shotlib config init' once to create a config file, then
'shotlib auth login' to store an access token.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.shotlib/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "library", Title: "Library commands:"},
		&cobra.Group{ID: "feedback", Title: "Feedback commands:"},
		&cobra.Group{ID: "service", Title: "Service commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
