package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bskyfollow/pkg/auth"
	"bskyfollow/pkg/bsky"
	"bskyfollow/pkg/ui"
)

var skipVerify bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Bluesky app passwords",
	Long: `Manage stored Bluesky credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables BSKYFOLLOW_IDENTIFIER / BSKYFOLLOW_APP_PASSWORD (read-only)

Use an app password, never your main account password.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [identifier]",
	Short: "Store an app password",
	Long: `Store a Bluesky app password in the system keychain or encrypted file.

The identifier is your handle (alice.bsky.social), DID or account email.
The password is checked against the service before it is stored.`,
	Example: `  # Interactive login
  bskyfollow auth login

  # Login for a handle on a self-hosted PDS
  bskyfollow auth login alice.example.com --service https://pds.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [identifier]",
	Short: "Remove stored credentials",
	Long: `Remove stored credentials. Without an identifier every stored account is
listed and you can pick one, or remove all of them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authListCmd)

	loginCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "store without checking the password against the service")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	id := cfg.Bluesky.Identifier
	if len(args) > 0 {
		id = args[0]
	}

	auth.ShowQuickGuide()
	fmt.Println()

	if id == "" {
		if id, err = prompt("Handle or email: "); err != nil {
			return fmt.Errorf("failed to read identifier: %w", err)
		}
	}
	id = bsky.NormalizeHandle(id)
	if id == "" {
		return fmt.Errorf("identifier is required")
	}

	if existing, _ := manager.Retrieve(id); existing != nil {
		if !confirm(fmt.Sprintf("\nAccount '%s' already exists. Replace its app password?", id)) {
			return nil
		}
	}

	fmt.Print("App password (hidden): ")
	password, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read app password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("app password is required")
	}
	if !auth.IsAppPassword(password) {
		ui.PrintWarning("That does not look like an app password (xxxx-xxxx-xxxx-xxxx)")
		if !confirm("Use it anyway?") {
			auth.ShowAppPasswordGuide()
			return nil
		}
	}

	if !skipVerify {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
		defer cancel()

		client := bsky.NewClientFromConfig(cfg, log)
		session, err := client.CreateSession(ctx, id, password)
		if err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Logged in as @%s (%s)", session.Handle, session.DID))
	}

	account := &auth.Account{
		Identifier:   id,
		AppPassword:  password,
		LastModified: time.Now(),
	}
	if cfg.Bluesky.Service != bsky.DefaultService {
		account.Service = cfg.Bluesky.Service
	}
	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	ui.PrintSuccess("Credentials stored for " + account.Identifier)
	fmt.Println("\nNext:")
	fmt.Println("  $ bskyfollow scan              # see who does not follow back")
	fmt.Println("  $ bskyfollow unfollow          # unfollow them")
	fmt.Println("  $ bskyfollow whitelist add h   # protect a handle")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintWarning("No stored accounts found")
		return nil
	}

	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Identifier)
	}
	fmt.Printf("  %d. Remove all accounts\n", len(accounts)+1)
	fmt.Printf("  0. Cancel\n\n")

	input, _ := prompt("Choice: ")
	var choice int
	fmt.Sscanf(input, "%d", &choice)

	switch {
	case choice == 0:
		return nil
	case choice == len(accounts)+1:
		if !confirm("Remove ALL accounts? This cannot be undone!") {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			return fmt.Errorf("failed to remove all accounts: %w", err)
		}
		ui.PrintSuccess("All accounts removed")
	case choice > 0 && choice <= len(accounts):
		account := accounts[choice-1]
		if err := manager.Delete(account.Identifier); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		ui.PrintSuccess("Account removed: " + account.Identifier)
	default:
		return fmt.Errorf("invalid choice %q", input)
	}
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'bskyfollow auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. %s\n", i+1, sanitized.Identifier)
		fmt.Printf("   App password: %s\n", sanitized.AppPassword)
		if sanitized.Service != "" {
			fmt.Printf("   Service: %s\n", sanitized.Service)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
	return nil
}
