package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"xhsclient/pkg/auth"
	"xhsclient/pkg/config"
	"xhsclient/pkg/cookies"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage xhsclient configuration files.

Configuration is resolved from, in order of priority:
  - Command line flags
  - Environment variables (XHS_*, also read from .env)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Long: `Write a configuration file with the default settings.

The file is created as '.xhsclient.yaml' in the current directory unless
--config names another path.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Long: `Show the configuration after flags, environment and file are applied.
The API key is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".xhsclient.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(cliFlags())
	if err := cfg.Save(path); err != nil {
		return err
	}

	printer.Success("Configuration written to %s", path)
	if cfg.TokenServer.APIKey == "" {
		printer.Info("Next", "store your token service API key with 'xhsclient auth login'")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadUnvalidated(configFile, cliFlags())
	if err != nil {
		return err
	}
	if err := applyCredentials(cfg); err != nil {
		printer.Warn("Stored credentials unavailable: %v", err)
	}

	display := *cfg
	if display.TokenServer.APIKey != "" {
		display.TokenServer.APIKey = auth.MaskString(display.TokenServer.APIKey)
	}

	if printer.JSONMode() {
		return printer.JSON(display)
	}
	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadUnvalidated(configFile, cliFlags())
	if err != nil {
		return err
	}
	if err := applyCredentials(cfg); err != nil {
		printer.Warn("Stored credentials unavailable: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		printer.Error("Configuration is invalid", err)
		return &exitError{msg: "invalid configuration"}
	}

	var warnings []string
	jar, err := cookies.Load(cfg.Platform.CookiesPath)
	if err != nil {
		warnings = append(warnings, err.Error())
	}
	if cfg.RateLimit.PlatformRequestsPerMinute == 0 {
		warnings = append(warnings, "platform requests are not rate limited")
	}
	for _, w := range warnings {
		printer.Warn(w)
	}

	printer.Success("Configuration is valid")
	printer.Info("Token server", cfg.TokenServer.URL)
	printer.Info("Platform", cfg.Platform.BaseURL)
	if jar != nil {
		printer.Info("Cookies", fmt.Sprintf("%d (%s)", jar.Len(), strings.Join(jar.Names(), ", ")))
	}
	printer.Info("Rate limit", fmt.Sprintf("%d requests/minute", cfg.RateLimit.PlatformRequestsPerMinute))
	printer.Info("Max retries", fmt.Sprintf("%d", cfg.Retry.MaxAttempts))
	if cfg.ResponseLog.Enabled {
		printer.Info("Response log", cfg.ResponseLog.Directory)
	}
	return nil
}
