package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xhsclient/pkg/config"
	"xhsclient/pkg/cookies"
	"xhsclient/pkg/logger"
	"xhsclient/pkg/tokens"
)

var signPayload string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect the token service",
	Long: `Inspect the token service that signs platform requests with x-s,
x-s-common and x-t headers.`,
}

var tokenHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the token service is reachable",
	Args:  cobra.NoArgs,
	RunE:  runTokenHealth,
}

var tokenStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics for your API key",
	Args:  cobra.NoArgs,
	RunE:  runTokenStats,
}

var tokenSignCmd = &cobra.Command{
	Use:   "sign <endpoint>",
	Short: "Generate the signature headers for one request",
	Long: `Generate x-s, x-t and x-s-common for a request to endpoint with the
JSON body given by --data. The device id comes from the cookies file.`,
	Example: `  xhsclient token sign /api/sns/web/v1/homefeed --data '{"num":20}'`,
	Args:    cobra.ExactArgs(1),
	RunE:    runTokenSign,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenHealthCmd, tokenStatsCmd, tokenSignCmd)

	tokenSignCmd.Flags().StringVar(&signPayload, "data", "{}", "request body as JSON")
}

func newTokenClient(cfg *config.Config) *tokens.Client {
	return tokens.New(cfg.TokenServer, tokens.Options{Logger: logger.GetLogger()})
}

func runTokenHealth(cmd *cobra.Command, args []string) error {
	// health needs no API key
	cfg, err := config.LoadUnvalidated(configFile, cliFlags())
	if err != nil {
		return err
	}
	if err := applyCredentials(cfg); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	tc := newTokenClient(cfg)
	start := time.Now()
	if !tc.Health(ctx) {
		printer.Error("Token service unhealthy", fmt.Errorf("no 200 from %s/health", strings.TrimRight(cfg.TokenServer.URL, "/")))
		return &exitError{msg: "token service unhealthy"}
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	// details are optional; a bare 200 is enough to be healthy
	status, err := tc.HealthStatus(ctx)
	if err != nil {
		status = &tokens.HealthStatus{Status: "healthy"}
	}
	if printer.JSONMode() {
		return printer.JSON(status)
	}
	printer.Success("Token service is healthy (%s)", elapsed)
	printer.Info("URL", cfg.TokenServer.URL)
	printer.Info("Status", status.Status)
	if err == nil {
		printer.Info("Cache", fmt.Sprintf("%t", status.CacheAvailable))
	}
	return nil
}

func runTokenStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	stats, err := newTokenClient(cfg).Stats(ctx)
	if err != nil {
		return describeError(err, cfg)
	}
	return printer.TokenStats(stats)
}

type signResult struct {
	XS       string `json:"x-s"`
	XT       int64  `json:"x-t"`
	XSCommon string `json:"x-s-common"`
}

func runTokenSign(cmd *cobra.Command, args []string) error {
	var payload interface{}
	if err := json.Unmarshal([]byte(signPayload), &payload); err != nil {
		return fmt.Errorf("--data is not valid JSON: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	jar, err := cookies.Load(cfg.Platform.CookiesPath)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	sig, err := newTokenClient(cfg).Sign(ctx, args[0], payload, jar.DeviceID())
	if err != nil {
		return describeError(err, cfg)
	}
	return printer.JSON(signResult{XS: sig.XS, XT: sig.XT, XSCommon: sig.XSCommon})
}
