package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/gorkemtikic/shotlib/internal/remote"
	"github.com/gorkemtikic/shotlib/internal/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage repository access credentials",
	Long: `Manage the access token used for repository writes.

The token is stored in the local state database, never in the config
file. SHOTLIB_TOKEN overrides the stored token when set.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [token]",
	Short: "Store and verify an access token",
	Long: `Store an access token after verifying it against the hosting API.

With no argument the token is read from an interactive prompt, so it
never lands in shell history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().
					Title("Access token").
					Description("A token with write access to the library repository").
					EchoMode(huh.EchoModePassword).
					Value(&token),
			))
			if err := form.Run(); err != nil {
				return fmt.Errorf("prompt aborted: %w", err)
			}
		}

		token = strings.TrimSpace(token)
		if token == "" {
			return fmt.Errorf("token cannot be empty")
		}

		if err := a.cfg.Validate(); err != nil {
			return err
		}

		client, err := remote.New(remote.Config{
			Owner:      a.cfg.Repo.Owner,
			Repo:       a.cfg.Repo.Name,
			Branch:     a.cfg.Repo.Branch,
			Token:      token,
			APIBaseURL: a.cfg.Repo.APIBaseURL,
			RawBaseURL: a.cfg.Repo.RawBaseURL,
		})
		if err != nil {
			return err
		}

		login, err := client.VerifyToken(ctx)
		if err != nil {
			return fmt.Errorf("token verification failed: %w", err)
		}

		if err := a.state.SetToken(ctx, token); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}

		fmt.Printf("%s Authenticated as %s\n", ui.RenderPass("✓"), ui.RenderAccent(login))
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a working token is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		login, err := a.client.VerifyToken(ctx)
		if err != nil {
			fmt.Printf("%s Stored token no longer works: %v\n", ui.RenderFail("✗"), err)
			return nil
		}

		fmt.Printf("%s Authenticated as %s against %s/%s\n",
			ui.RenderPass("✓"), ui.RenderAccent(login),
			a.cfg.Repo.Owner, a.cfg.Repo.Name)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.state.SetToken(ctx, ""); err != nil {
			return fmt.Errorf("failed to clear token: %w", err)
		}

		fmt.Printf("%s Token cleared\n", ui.RenderPass("✓"))
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}
