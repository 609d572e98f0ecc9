package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"bskyfollow/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	identifier    string
	service       string
	notifications bool
	verbose       bool
	quiet         bool
)

// errSilent is returned by commands that already printed their failure
var errSilent = errors.New("")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bskyfollow",
	Short: "Bulk follow and unfollow management for Bluesky",
	Long: `bskyfollow loads who you follow and who follows you on Bluesky, and works
through two sets of accounts:

  non-followers  accounts you follow that do not follow you back
  fans           accounts that follow you but you do not follow back

It can unfollow non-followers, follow back fans, or put either set on a
curation list. Writes are paced by per-minute, per-hour and per-day quotas,
and handles you whitelist are never selected by default.

Log in with an app password: bsky.app -> Settings -> Privacy and security
-> App passwords.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !quiet && cmd.Name() != "version" && cmd.Name() != "help" && !useTUI {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			ui.PrintError("Error", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.bskyfollow.yaml or ~/.config/bskyfollow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&identifier, "identifier", "i", "", "handle, DID or email to log in as")
	rootCmd.PersistentFlags().StringVar(&service, "service", "", "PDS URL (default https://bsky.social)")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "notify when a run finishes or hits a quota")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show info logs and quota bucket events")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress the logo and informational output")

	rootCmd.SetVersionTemplate(`bskyfollow {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
