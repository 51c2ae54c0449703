package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"xhsclient/pkg/auth"
	"xhsclient/pkg/config"
	errs "xhsclient/pkg/errors"
	"xhsclient/pkg/logger"
	"xhsclient/pkg/xhs"
)

// newCredentialManager is replaced in tests
var newCredentialManager = auth.NewManager

// cliFlags collects the global flags that override configuration. Keys
// follow config.MergeCommandLineFlags.
func cliFlags() map[string]interface{} {
	flags := map[string]interface{}{
		"token-server":    tokenServer,
		"api-key":         apiKey,
		"insecure":        insecure,
		"cookies":         cookiesPath,
		"log-dir":         responseLogDir,
		"no-response-log": noResponseLog,
		"rate-limit":      rateLimit,
		"log-level":       logLevel,
	}
	if maxRetries >= 0 {
		flags["max-retries"] = maxRetries
	}
	return flags
}

// loadConfig resolves configuration, fills the token service credentials
// from the credential store when none were given and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadUnvalidated(configFile, cliFlags())
	if err != nil {
		return nil, err
	}

	if err := applyCredentials(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		if cfg.TokenServer.APIKey == "" {
			printer.Warn("No token service API key. Run 'xhsclient auth login' or set %s", auth.APIKeyEnv)
		}
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func applyCredentials(cfg *config.Config) error {
	if profileName == "" && cfg.TokenServer.APIKey != "" {
		return nil
	}

	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var cred *auth.Credential
	if profileName != "" {
		cred, err = manager.Retrieve(profileName)
		if err != nil {
			return fmt.Errorf("profile %q: %w", profileName, err)
		}
	} else {
		cred, err = manager.RetrieveDefault()
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	if apiKey == "" {
		cfg.TokenServer.APIKey = cred.APIKey
	}
	if tokenServer == "" && cred.ServerURL != "" {
		cfg.TokenServer.URL = cred.ServerURL
	}
	if cookiesPath == "" && cred.CookiesPath != "" {
		cfg.Platform.CookiesPath = cred.CookiesPath
	}
	logger.WithField("profile", cred.Name).Debug("Using stored credentials")
	return nil
}

// newClient builds the API client, explaining how to export cookies when
// they are missing
func newClient(cfg *config.Config) (*xhs.Client, error) {
	client, err := xhs.New(cfg)
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeCookie {
			auth.WriteQuickGuide(os.Stderr, cfg.Platform.CookiesPath)
		}
		return nil, err
	}
	return client, nil
}

// setup loads configuration and builds a client
func setup() (*config.Config, *xhs.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

// commandContext is cancelled on Ctrl-C so collectors can return what they
// gathered
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// emit prints a result and saves it when --output is set
func emit(client *xhs.Client, v interface{}, render func() error) error {
	if err := render(); err != nil {
		return err
	}
	if outputFile == "" {
		return nil
	}
	if err := client.SaveResponse(v, outputFile); err != nil {
		return fmt.Errorf("failed to save output: %w", err)
	}
	printer.Success("Saved to %s", outputFile)
	return nil
}

// describeError adds a hint for errors a user can fix
func describeError(err error, cfg *config.Config) error {
	switch errs.TypeOf(err) {
	case errs.ErrorTypeAuth:
		auth.WriteQuickGuide(os.Stderr, cfg.Platform.CookiesPath)
	case errs.ErrorTypeRateLimit:
		printer.Warn("Rate limited by the platform. Wait a while or lower --rate-limit")
	case errs.ErrorTypeToken:
		printer.Warn("Token service failed. Check it with 'xhsclient token health'")
	}
	return err
}
