package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bskyfollow/pkg/config"
	"bskyfollow/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage bskyfollow configuration files.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (BSKYFOLLOW_*)
  - .env file
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.bskyfollow.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after merging all sources. The app password is masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# bskyfollow configuration
#
# Every value can also be set with a BSKYFOLLOW_ environment variable, for
# example BSKYFOLLOW_IDENTIFIER or BSKYFOLLOW_UNFOLLOWS_PER_DAY.

bluesky:
  # PDS to log in to
  service: "https://bsky.social"
  # Web app used for profile and list links
  app_url: "https://bsky.app"
  # Handle, DID or email. Leave empty to use 'bskyfollow auth login'
  identifier: ""
  # Prefer 'bskyfollow auth login' over storing an app password here
  app_password: ""

limits:
  # 0 disables a ceiling. The per-day count only includes successful writes
  follow:
    per_minute: 60
    per_hour: 1600
    per_day: 10000
    delay: 1s
  unfollow:
    per_minute: 60
    per_hour: 3000
    per_day: 30000
    delay: 1s
  # Pause between list members
  list_item_delay: 25ms
  # Ceiling on all API requests
  requests_per_window: 2500
  window: 5m

http:
  timeout: 30s
  # Attempts for reads. Writes are never retried
  max_attempts: 3
  retry_delay: 1s

enrichment:
  # Concurrent profile lookups for 'scan --enrich'
  workers: 4
  profile_delay: 25ms

whitelist:
  # Holds whitelist.json and follow-whitelist.json.
  # Defaults to ~/.config/bskyfollow
  # directory: "/path/to/data"

notifications:
  enabled: true
  on_complete: true
  on_rate_limit: true
  # terminal, desktop or none
  notification_type: "terminal"

logging:
  # debug, info, warn, error
  level: "info"
  # Optional log file
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".bskyfollow.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return errSilent
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Run 'bskyfollow auth login' to store an app password")
	fmt.Println("2. Adjust the limits in the configuration file if needed")
	fmt.Println("3. Run 'bskyfollow scan' to see who does not follow back")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	displayCfg := *cfg
	if displayCfg.Bluesky.AppPassword != "" {
		displayCfg.Bluesky.AppPassword = "********"
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (" + config.EnvPrefix + "*)")
	fmt.Println("3. .env file")
	if configFile != "" {
		fmt.Printf("4. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("4. Configuration file: (first found of .bskyfollow.yaml, ~/.config/bskyfollow/config.yaml)")
	}
	fmt.Println("5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		ui.PrintError("Configuration validation failed", err)
		return errSilent
	}

	var warnings []string
	if !cfg.HasCredentials() {
		warnings = append(warnings, "no credentials in the configuration; 'bskyfollow auth login' will be used")
	}
	if cfg.Limits.Unfollow.PerDay == 0 || cfg.Limits.Follow.PerDay == 0 {
		warnings = append(warnings, "a per-day limit is disabled")
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Service: %s\n", cfg.Bluesky.Service)
	fmt.Printf("  Unfollow limits: %d/min, %d/hour, %d/day, %s delay\n",
		cfg.Limits.Unfollow.PerMinute, cfg.Limits.Unfollow.PerHour, cfg.Limits.Unfollow.PerDay, cfg.Limits.Unfollow.Delay)
	fmt.Printf("  Follow limits: %d/min, %d/hour, %d/day, %s delay\n",
		cfg.Limits.Follow.PerMinute, cfg.Limits.Follow.PerHour, cfg.Limits.Follow.PerDay, cfg.Limits.Follow.Delay)
	fmt.Printf("  Whitelist directory: %s\n", cfg.Whitelist.Directory)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
