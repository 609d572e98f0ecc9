package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bskyfollow/pkg/ui"
	"bskyfollow/pkg/whitelist"
)

var whitelistScope string

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Manage handles that are never selected by default",
	Long: `Manage the two whitelists:

  unfollow  non-followers that 'unfollow' leaves alone (whitelist.json)
  follow    fans that 'follow' does not follow back (follow-whitelist.json)

Both are JSON arrays of handles in the whitelist directory. Handles are
matched case-insensitively.`,
}

var whitelistAddCmd = &cobra.Command{
	Use:     "add <handle>...",
	Short:   "Add handles to a whitelist",
	Example: `  bskyfollow whitelist add alice.bsky.social @bob.example.com --scope follow`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editWhitelist(cmd, args, true)
	},
}

var whitelistRemoveCmd = &cobra.Command{
	Use:   "remove <handle>...",
	Short: "Remove handles from a whitelist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editWhitelist(cmd, args, false)
	},
}

var whitelistShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a whitelist",
	Args:  cobra.NoArgs,
	RunE:  runWhitelistShow,
}

func init() {
	rootCmd.AddCommand(whitelistCmd)
	whitelistCmd.AddCommand(whitelistAddCmd)
	whitelistCmd.AddCommand(whitelistRemoveCmd)
	whitelistCmd.AddCommand(whitelistShowCmd)
	whitelistCmd.PersistentFlags().StringVar(&whitelistScope, "scope", "unfollow", "whitelist to use: unfollow or follow")
}

func parseScope(name string) (whitelist.Scope, error) {
	switch whitelist.Scope(name) {
	case whitelist.ScopeUnfollow, whitelist.ScopeFollow:
		return whitelist.Scope(name), nil
	default:
		return "", fmt.Errorf("unknown scope %q (want unfollow or follow)", name)
	}
}

func openScope(cmd *cobra.Command) (*whitelist.Store, error) {
	scope, err := parseScope(whitelistScope)
	if err != nil {
		return nil, err
	}
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return whitelist.Open(cfg.Whitelist.Directory, scope, log)
}

func editWhitelist(cmd *cobra.Command, handles []string, add bool) error {
	store, err := openScope(cmd)
	if err != nil {
		return err
	}

	for _, h := range handles {
		var changed bool
		if add {
			changed, err = store.Add(h)
		} else {
			changed, err = store.Remove(h)
		}
		if err != nil {
			return err
		}

		switch {
		case !changed && add:
			ui.PrintInfo("Already whitelisted", h)
		case !changed:
			ui.PrintInfo("Not whitelisted", h)
		case add:
			ui.PrintSuccess("Whitelisted " + h)
		default:
			ui.PrintSuccess("Removed " + h)
		}
	}

	info(fmt.Sprintf("%s whitelist", whitelistScope), fmt.Sprintf("%d handles in %s", store.Len(), store.Path()))
	return nil
}

func runWhitelistShow(cmd *cobra.Command, args []string) error {
	store, err := openScope(cmd)
	if err != nil {
		return err
	}

	handles := store.List()
	if len(handles) == 0 {
		ui.PrintInfo(fmt.Sprintf("%s whitelist", whitelistScope), "empty")
		return nil
	}

	ui.PrintHighlight(fmt.Sprintf("%s whitelist (%d)", whitelistScope, len(handles)))
	for _, h := range handles {
		fmt.Printf("  @%s\n", h)
	}
	return nil
}
