package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"jobtally/internal/config"
	"jobtally/internal/gmail"
)

var (
	cfgFile string
	homeDir string
	verbose bool
	cfg     *config.Config
	logger  *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jobtally",
	Short: "Count job application emails in Gmail",
	Long: `jobtally counts job application emails in a Gmail mailbox over a
look-back window, breaks them down by phrase, month, weekday and hour,
and exports the result as CSV, PNG charts and a local run archive.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := log.InfoLevel
		if verbose {
			level = log.DebugLevel
		}
		logger = log.NewWithOptions(os.Stderr, log.Options{
			Level:           level,
			ReportTimestamp: true,
			Prefix:          "jobtally",
		})

		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.HomeDir, err)
		}
		logger.Debug("config loaded", "path", cfg.ConfigPath, "home", cfg.HomeDir)
		return nil
	},
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newAuthorizer builds the credential service from config.
func newAuthorizer() (*gmail.Authorizer, error) {
	tokens, err := tokenStore()
	if err != nil {
		return nil, err
	}
	return &gmail.Authorizer{
		ClientSecrets: cfg.Auth.ClientSecrets,
		Tokens:        tokens,
		Logger:        logger,
	}, nil
}

func tokenStore() (gmail.TokenStore, error) {
	switch cfg.Auth.TokenStore {
	case config.TokenStoreKeyring:
		ring, err := gmail.OpenKeyring(cfg.HomeDir)
		if err != nil {
			return nil, err
		}
		return gmail.KeyringTokenStore{Ring: ring}, nil
	default:
		return gmail.FileTokenStore{Path: cfg.TokenPath()}, nil
	}
}

// wrapOAuthError adds setup instructions when the client secrets file is
// missing or unreadable.
func wrapOAuthError(err error) error {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return fmt.Errorf(`%w

To use jobtally you need a Google Cloud OAuth client for a desktop app:
  1. Enable the Gmail API in a Google Cloud project
  2. Download the client_secret.json file
  3. Save it as %s, or set [auth] client_secrets in %s`,
			err, cfg.Auth.ClientSecrets, cfg.ConfigPath)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.jobtally/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides JOBTALLY_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
