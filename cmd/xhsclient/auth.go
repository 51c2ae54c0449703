package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xhsclient/pkg/auth"
	"xhsclient/pkg/config"
)

var (
	loginServer  string
	loginCookies string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage token service credentials",
	Long: `Manage stored token service credentials.

A profile holds the token service API key and, optionally, its URL and the
cookies file to use. Profiles are stored in:
  - The system keychain (when available)
  - An encrypted file protected by a passphrase
The ` + auth.APIKeyEnv + ` environment variable overrides stored profiles.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store a token service API key",
	Long: `Store a token service API key under a profile name ("default" when
omitted). The key is read without echo.`,
	Example: `  xhsclient auth login
  xhsclient auth login work --server https://tokens.example.com:8443 --cookies work-cookies.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [profile]",
	Short: "Remove a stored profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var authGuideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to export browser cookies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cookiesPath
		if path == "" {
			path = config.DefaultConfig().Platform.CookiesPath
		}
		auth.WriteCookieExportGuide(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authListCmd, authLogoutCmd, authGuideCmd)

	authLoginCmd.Flags().StringVar(&loginServer, "server", "", "token service URL for this profile")
	authLoginCmd.Flags().StringVar(&loginCookies, "cookies-file", "", "cookies file for this profile")
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(string(b)), err
	}
	line, err := reader.ReadString('\n')
	return strings.TrimSpace(line), err
}

func confirm(reader *bufio.Reader, prompt string) bool {
	fmt.Fprint(os.Stderr, prompt+" (y/N): ")
	input, _ := reader.ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := auth.DefaultProfile
	if len(args) == 1 {
		name = args[0]
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	if existing, _ := manager.Retrieve(name); existing != nil {
		if !confirm(reader, fmt.Sprintf("Profile '%s' already exists. Replace it?", name)) {
			return nil
		}
	}

	fmt.Fprint(os.Stderr, "Token service API key: ")
	key, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if key == "" {
		return fmt.Errorf("API key is required")
	}

	if loginServer != "" && !strings.HasPrefix(loginServer, "http://") && !strings.HasPrefix(loginServer, "https://") {
		return fmt.Errorf("--server must be an http or https URL")
	}

	cred := &auth.Credential{
		Name:        name,
		APIKey:      key,
		ServerURL:   loginServer,
		CookiesPath: loginCookies,
	}
	if err := manager.Store(cred); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	printer.Success("Profile '%s' saved", name)
	printer.Info("API key", auth.MaskString(key))
	if name != auth.DefaultProfile {
		printer.Info("Use it with", "--profile "+name)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	creds, err := manager.List()
	if err != nil {
		return err
	}

	sanitized := make([]*auth.Credential, len(creds))
	for i, c := range creds {
		sanitized[i] = auth.Sanitize(c)
	}
	if printer.JSONMode() {
		return printer.JSON(sanitized)
	}
	if len(sanitized) == 0 {
		printer.Warn("No stored profiles. Run 'xhsclient auth login'")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, c := range sanitized {
		fmt.Fprintf(out, "%-12s %s", c.Name, c.APIKey)
		if c.ServerURL != "" {
			fmt.Fprintf(out, "  %s", c.ServerURL)
		}
		if c.CookiesPath != "" {
			fmt.Fprintf(out, "  cookies=%s", c.CookiesPath)
		}
		if !c.LastModified.IsZero() {
			fmt.Fprintf(out, "  (%s)", c.LastModified.Format("2006-01-02"))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := auth.DefaultProfile
	if len(args) == 1 {
		name = args[0]
	}
	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("failed to remove profile '%s': %w", name, err)
	}
	printer.Success("Profile '%s' removed", name)
	return nil
}
