package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bskyfollow/pkg/bulk"
	"bskyfollow/pkg/config"
	"bskyfollow/pkg/manager"
	"bskyfollow/pkg/models"
	"bskyfollow/pkg/ui"
	"bskyfollow/pkg/ui/tui"
)

var (
	// Bulk run flags
	onlyHandles []string
	runLimit    int
	assumeYes   bool
	useTUI      bool
	listSet     string
)

// runKind is one of the bulk commands
type runKind int

const (
	runUnfollow runKind = iota
	runFollow
	runList
	runListAndUnfollow
	runListAndFollow
)

var unfollowCmd = &cobra.Command{
	Use:   "unfollow",
	Short: "Unfollow accounts that do not follow you back",
	Long: `Unfollow every account you follow that does not follow you back, except
handles on the unfollow whitelist.

Writes are paced by limits.unfollow (per_minute, per_hour, per_day, delay).
When the per-minute or per-hour quota is used up the run pauses with a
countdown; the per-day quota ends the run.`,
	Example: `  # Unfollow everyone eligible, asking for confirmation
  bskyfollow unfollow

  # Unfollow two specific accounts without asking
  bskyfollow unfollow --only alice.bsky.social --only bob.bsky.social --yes

  # Unfollow at most 100 accounts with the full-screen display
  bskyfollow unfollow --limit 100 --tui`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulk(cmd, runUnfollow)
	},
}

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Follow back accounts that follow you",
	Long: `Follow back every follower you do not follow yet, except handles on the
follow whitelist. Writes are paced by limits.follow.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulk(cmd, runFollow)
	},
}

var listCreateCmd = &cobra.Command{
	Use:   "list",
	Short: "Put non-followers or fans on a new curation list",
	Long: `Create a dated curation list on your account and add the selected accounts
of --set to it. Nothing is followed or unfollowed.`,
	Example: `  bskyfollow list --set non-followers
  bskyfollow list --set fans --limit 50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulk(cmd, runList)
	},
}

var listAndUnfollowCmd = &cobra.Command{
	Use:   "list-and-unfollow",
	Short: "List non-followers, then unfollow them",
	Long: `Put the selected non-followers on a new curation list, then unfollow the
same selection. If the list cannot be created the unfollow still runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulk(cmd, runListAndUnfollow)
	},
}

var listAndFollowCmd = &cobra.Command{
	Use:   "list-and-follow",
	Short: "List fans, then follow them back",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulk(cmd, runListAndFollow)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{unfollowCmd, followCmd, listCreateCmd, listAndUnfollowCmd, listAndFollowCmd} {
		rootCmd.AddCommand(cmd)
		cmd.Flags().StringArrayVar(&onlyHandles, "only", nil, "only these handles (repeatable; bypasses the whitelist)")
		cmd.Flags().IntVar(&runLimit, "limit", 0, "process at most this many accounts (0 = all)")
		cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
		cmd.Flags().BoolVar(&useTUI, "tui", false, "use the full-screen display")
	}
	listCreateCmd.Flags().StringVar(&listSet, "set", "non-followers", "accounts to list: non-followers or fans")
}

// set returns the account set the run works on
func (k runKind) set() (manager.Set, error) {
	switch k {
	case runFollow, runListAndFollow:
		return manager.Fans, nil
	case runList:
		return parseSet(listSet)
	default:
		return manager.NonFollowBacks, nil
	}
}

func (k runKind) String() string {
	switch k {
	case runFollow:
		return "follow"
	case runList:
		return "list"
	case runListAndUnfollow:
		return "list and unfollow"
	case runListAndFollow:
		return "list and follow"
	default:
		return "unfollow"
	}
}

// quotas returns the limits shown while k runs
func (k runKind) quotas(cfg *config.Config) tui.Quotas {
	var q config.QuotaConfig
	switch k {
	case runList:
		return tui.Quotas{Delay: cfg.Limits.ListItemDelay}
	case runFollow, runListAndFollow:
		q = cfg.Limits.Follow
	default:
		q = cfg.Limits.Unfollow
	}
	return tui.Quotas{PerMinute: q.PerMinute, PerHour: q.PerHour, PerDay: q.PerDay, Delay: q.Delay}
}

func runBulk(cmd *cobra.Command, kind runKind) error {
	set, err := kind.set()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}

	accounts := a.mgr.Accounts(set)
	sel, missing := buildSelection(accounts, a.mgr.DefaultSelection(set), onlyHandles, runLimit)
	for _, h := range missing {
		ui.PrintWarning("Not in "+set.String(), h)
	}
	if sel.Len() == 0 {
		info("Nothing to do", fmt.Sprintf("no %s selected", set))
		return nil
	}

	info("Selected", fmt.Sprintf("%d of %d %s: %s", sel.Len(), len(accounts), set, previewHandles(accounts, sel, 5)))
	if !assumeYes && !confirm(fmt.Sprintf("Run %s on %d accounts?", kind, sel.Len())) {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	var (
		result  models.RunResult
		list    *models.ListResult
		listErr error
	)
	err = display(a.cfg, kind.String(), kind.quotas(a.cfg), cancel, func(rep bulk.Reporter) error {
		var err error
		switch kind {
		case runUnfollow:
			result, err = a.mgr.Unfollow(runCtx, sel, rep)
		case runFollow:
			result, err = a.mgr.Follow(runCtx, sel, rep)
		case runList:
			list, err = a.mgr.CreateList(runCtx, set, sel, rep)
		case runListAndUnfollow, runListAndFollow:
			var combined manager.CombinedResult
			if kind == runListAndUnfollow {
				combined, err = a.mgr.ListAndUnfollow(runCtx, sel, rep)
			} else {
				combined, err = a.mgr.ListAndFollow(runCtx, sel, rep)
			}
			list, listErr, result = combined.List, combined.ListError, combined.Run
		}
		return err
	})

	if kind != runUnfollow && kind != runFollow {
		ui.PrintListSummary(os.Stdout, list)
		if listErr != nil {
			ui.PrintWarning("List step failed", listErr)
		}
	}
	if kind != runList {
		ui.PrintRunSummary(os.Stdout, kind.String(), result, time.Since(start))
	}

	switch {
	case errors.Is(err, context.Canceled):
		ui.PrintWarning("Run cancelled")
		return errSilent
	case err != nil:
		return err
	case result.Failed > 0 || (list != nil && list.Failed > 0):
		return errSilent
	}

	if kind != runList && !quiet {
		counts := a.mgr.Stats()
		ui.PrintCounts(os.Stdout, a.session.Handle, counts)
	}
	return nil
}

// display runs work with the console reporter, or the full-screen TUI when
// --tui is set. The TUI shows completion itself, so notifications only wrap
// the console reporter.
func display(cfg *config.Config, title string, quotas tui.Quotas, cancel context.CancelFunc, work func(bulk.Reporter) error) error {
	wrap := func(rep bulk.Reporter) bulk.Reporter {
		if !cfg.Notifications.Enabled {
			return rep
		}
		return ui.NotifyingReporter{
			Reporter:    rep,
			Notifier:    ui.NewNotifier(cfg.Notifications.NotificationType),
			OnComplete:  cfg.Notifications.OnComplete,
			OnRateLimit: cfg.Notifications.OnRateLimit,
		}
	}

	if useTUI {
		return tui.NewTUI(title, quotas, cancel).Run(work)
	}

	rep := ui.NewConsoleReporter(os.Stdout, title, verbose)
	defer rep.Close()
	return work(wrap(rep))
}
