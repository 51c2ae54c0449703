package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"xhsclient/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile     string
	logLevel       string
	quiet          bool
	verbose        bool
	jsonOutput     bool
	profileName    string
	tokenServer    string
	apiKey         string
	cookiesPath    string
	insecure       bool
	noResponseLog  bool
	responseLogDir string
	maxRetries     int
	rateLimit      int
	outputFile     string

	printer = ui.NewPrinter(os.Stdout, os.Stderr, false, false)
)

var rootCmd = &cobra.Command{
	Use:   "xhsclient",
	Short: "Command-line client for the XiaoHongShu web API",
	Long: `xhsclient reads XiaoHongShu feeds through the platform's private web API.

Requests are signed with x-s / x-s-common tokens from a token service and
sent with the cookies of a logged-in browser session. It can:
  - Page through the homefeed and keyword searches
  - Fetch comments and related posts of a note
  - Fetch a user's posted notes and profile
  - Collect comments of many notes concurrently
  - Resume interrupted collections from a checkpoint

Every raw response is written to the response log directory.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		printer = ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, jsonOutput)
		// the progress line is the default output; logs come with --verbose
		if !cmd.Flags().Changed("log-level") && os.Getenv("XHS_LOG_LEVEL") == "" {
			switch {
			case quiet || jsonOutput:
				logLevel = "error"
			case verbose:
				logLevel = "debug"
			default:
				logLevel = "warn"
			}
		}
		switch cmd.Name() {
		case "help", "completion", "guide":
		default:
			printer.Banner(version)
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) {
			printer.Error("Error", err)
		}
		os.Exit(1)
	}
}

// exitError fails the process after the command already reported why
type exitError struct{ msg string }

func (e *exitError) Error() string { return e.msg }

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default is ./.xhsclient.yaml or ~/.config/xhsclient/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress status output, print results only")
	pf.BoolVarP(&verbose, "verbose", "v", false, "show debug logs")
	pf.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	pf.StringVarP(&profileName, "profile", "p", "", "stored token service profile to use")
	pf.StringVar(&tokenServer, "token-server", "", "token service URL")
	pf.StringVar(&apiKey, "api-key", "", "token service API key")
	pf.StringVar(&cookiesPath, "cookies", "", "path to the exported cookies JSON file")
	pf.BoolVar(&insecure, "insecure", false, "skip TLS verification for the token service")
	pf.BoolVar(&noResponseLog, "no-response-log", false, "do not write raw responses to disk")
	pf.StringVar(&responseLogDir, "log-dir", "", "directory for raw response logs")
	pf.IntVar(&maxRetries, "max-retries", -1, "maximum retry attempts per request")
	pf.IntVar(&rateLimit, "rate-limit", 0, "platform requests per minute")
	pf.StringVarP(&outputFile, "output", "o", "", "also save the result as JSON to this file")

	rootCmd.SetVersionTemplate(`xhsclient {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
