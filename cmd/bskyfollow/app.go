package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bskyfollow/pkg/auth"
	"bskyfollow/pkg/bsky"
	"bskyfollow/pkg/config"
	"bskyfollow/pkg/logger"
	"bskyfollow/pkg/manager"
	"bskyfollow/pkg/ui"
	"bskyfollow/pkg/whitelist"
)

// app is everything a logged-in command needs
type app struct {
	cfg        *config.Config
	log        logger.Logger
	client     *bsky.Client
	mgr        *manager.Manager
	whitelists map[whitelist.Scope]*whitelist.Store
	session    *bsky.Session
}

// loadConfig loads configuration and initializes the global logger
func loadConfig(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	flags := make(map[string]interface{})
	if service != "" {
		flags["service"] = service
	}
	if identifier != "" {
		flags["identifier"] = identifier
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = notifications
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Info logs would break the progress line unless asked for
	logCfg := cfg.Logging
	if logLevel == "" && !verbose {
		logCfg.Level = "warn"
	}

	// The full-screen display owns the terminal
	if useTUI && logCfg.File == "" {
		logger.SetLogger(logger.NewNopLogger())
		return cfg, logger.GetLogger(), nil
	}

	if err := logger.Initialize(&logCfg); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.GetLogger(), nil
}

// resolveCredentials fills identifier and app password from the config,
// the environment, or the credential store, in that order.
func resolveCredentials(cfg *config.Config, log logger.Logger) error {
	if cfg.HasCredentials() {
		return nil
	}

	creds, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var account *auth.Account
	if cfg.Bluesky.Identifier != "" {
		account, err = creds.Retrieve(cfg.Bluesky.Identifier)
	} else {
		account, err = creds.RetrieveDefault()
	}
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return errors.New("no stored credentials; run 'bskyfollow auth login' first")
		}
		return err
	}

	cfg.Bluesky.Identifier = account.Identifier
	cfg.Bluesky.AppPassword = account.AppPassword
	if account.Service != "" && service == "" {
		cfg.Bluesky.Service = account.Service
	}
	log.WithField("identifier", account.Identifier).Debug("Using stored credentials")
	return nil
}

// openWhitelists opens both whitelist scopes
func openWhitelists(cfg *config.Config, log logger.Logger) (map[whitelist.Scope]*whitelist.Store, error) {
	stores := make(map[whitelist.Scope]*whitelist.Store, 2)
	for _, scope := range []whitelist.Scope{whitelist.ScopeUnfollow, whitelist.ScopeFollow} {
		store, err := whitelist.Open(cfg.Whitelist.Directory, scope, log)
		if err != nil {
			return nil, err
		}
		stores[scope] = store
	}
	return stores, nil
}

// openApp logs in and loads the relationship snapshot
func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := resolveCredentials(cfg, log); err != nil {
		return nil, err
	}

	wls, err := openWhitelists(cfg, log)
	if err != nil {
		return nil, err
	}

	client := bsky.NewClientFromConfig(cfg, log)
	mgr := manager.New(client, cfg,
		manager.WithLogger(log),
		manager.WithWhitelist(manager.NonFollowBacks, wls[whitelist.ScopeUnfollow]),
		manager.WithWhitelist(manager.Fans, wls[whitelist.ScopeFollow]),
	)

	a := &app{cfg: cfg, log: log, client: client, mgr: mgr, whitelists: wls}

	info("Logging in", cfg.Bluesky.Identifier)
	a.session, err = mgr.Login(ctx, cfg.Bluesky.Identifier, cfg.Bluesky.AppPassword)
	if err != nil {
		return nil, err
	}

	info("Loading", "follows and followers of @"+a.session.Handle)
	if _, err := mgr.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}
	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func info(label, value string) {
	if !quiet {
		ui.PrintInfo(label, value)
	}
}

// confirm asks a yes/no question on stdin, defaulting to no
func confirm(prompt string) bool {
	fmt.Printf("%s (y/N): ", prompt)
	input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y")
}

// prompt reads one line from stdin
func prompt(label string) (string, error) {
	fmt.Print(label)
	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
