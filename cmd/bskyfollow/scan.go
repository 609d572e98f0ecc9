package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"bskyfollow/pkg/manager"
	"bskyfollow/pkg/models"
	"bskyfollow/pkg/ui"
)

var (
	scanSet    string
	scanEnrich bool
	scanShow   int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Show who does not follow back and who you do not follow back",
	Long: `Load your follows and followers and print the relationship summary,
followed by the accounts of one or both sets. Whitelisted handles are marked.

With --enrich, each listed account's follower, following and post counts
are fetched from its profile.`,
	Example: `  bskyfollow scan
  bskyfollow scan --set fans --enrich --show 50`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanSet, "set", "both", "set to list: non-followers, fans or both")
	scanCmd.Flags().BoolVar(&scanEnrich, "enrich", false, "fetch profile counters for the listed accounts")
	scanCmd.Flags().IntVar(&scanShow, "show", 25, "accounts to list per set (0 = summary only, -1 = all)")
}

func runScan(cmd *cobra.Command, args []string) error {
	var sets []manager.Set
	if scanSet == "both" {
		sets = []manager.Set{manager.NonFollowBacks, manager.Fans}
	} else {
		set, err := parseSet(scanSet)
		if err != nil {
			return err
		}
		sets = []manager.Set{set}
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}

	fmt.Println()
	ui.PrintCounts(os.Stdout, a.session.Handle, a.mgr.Stats())

	for _, set := range sets {
		if scanEnrich {
			rep := ui.NewConsoleReporter(os.Stdout, "enrich "+set.String(), verbose)
			n, err := a.mgr.Enrich(ctx, set, rep.Progress)
			rep.Close()
			if err != nil {
				return err
			}
			a.log.WithField("set", set.String()).WithField("enriched", n).Info("Enrichment finished")
		}

		if scanShow == 0 {
			continue
		}
		accounts := a.mgr.Accounts(set)
		fmt.Printf("\n%s %s (%d)\n", ui.Magenta("→"), set, len(accounts))
		fmt.Println(accountTable(accounts, a.mgr.DefaultSelection(set), scanShow))
	}
	return nil
}

// accountTable renders up to limit accounts. Rows outside def are
// whitelisted.
func accountTable(accounts []models.Account, def *models.Selection, limit int) string {
	if limit < 0 || limit > len(accounts) {
		limit = len(accounts)
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	muted := cell.Faint(true)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "HANDLE", "NAME", "FOLLOWERS", "FOLLOWING", "POSTS", "").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case row >= 0 && row < limit && !def.Has(row):
				return muted
			default:
				return cell
			}
		})

	for i, acc := range accounts[:limit] {
		mark := ""
		if !def.Has(i) {
			mark = "whitelisted"
		}
		t.Row(strconv.Itoa(i+1), "@"+acc.Handle, acc.DisplayName,
			counter(acc, acc.FollowersCount), counter(acc, acc.FollowsCount), counter(acc, acc.PostsCount), mark)
	}

	out := t.Render()
	if limit < len(accounts) {
		out += fmt.Sprintf("\n  ... and %d more", len(accounts)-limit)
	}
	return out
}

func counter(a models.Account, n int) string {
	if !a.Enriched {
		return "-"
	}
	return strconv.Itoa(n)
}
