package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igcrawl/pkg/auth"
	"igcrawl/pkg/ui"
)

var (
	loginClientID     string
	loginClientSecret string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API access tokens",
	Long: `Manage stored API access tokens.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only)

Never share your tokens or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store an access token securely",
	Long: `Store an API access token in the system keychain or encrypted file.

The token is read from the terminal without echo. The name defaults to
"default"; pass --account <name> to crawl with a specific token.`,
	Example: `  # Interactive login
  igcrawl auth login

  # Store a second token under its own name
  igcrawl auth login research --client-id abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <name>",
	Short: "Remove a stored token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize token manager: %w", err)
		}
		if err := manager.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to remove token: %w", err)
		}
		ui.PrintSuccess("Token removed: " + args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tokens",
	Long:  `List stored tokens with their secrets masked. The first entry is used when no --account is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize token manager: %w", err)
		}

		tokens, err := manager.List()
		if err != nil {
			return fmt.Errorf("failed to list tokens: %w", err)
		}
		if len(tokens) == 0 {
			ui.PrintInfo("No stored tokens", "Use 'igcrawl auth login' to add one")
			return nil
		}

		for i, t := range tokens {
			s := auth.Sanitize(t)
			fmt.Fprintf(ui.Out, "%d. %s\n", i+1, ui.Cyan(s.Name))
			fmt.Fprintf(ui.Out, "   Access Token: %s\n", s.AccessToken)
			if s.ClientID != "" {
				fmt.Fprintf(ui.Out, "   Client ID: %s\n", s.ClientID)
			}
			if !s.LastModified.IsZero() {
				fmt.Fprintf(ui.Out, "   Last Modified: %s\n", s.LastModified.Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintln(ui.Out)
		}
		return nil
	},
}

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show how to obtain an access token",
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowTokenGuide(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(guideCmd)

	loginCmd.Flags().StringVar(&loginClientID, "client-id", "", "API client ID")
	loginCmd.Flags().StringVar(&loginClientSecret, "client-secret", "", "API client secret")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize token manager: %w", err)
	}

	name := "default"
	if len(args) > 0 {
		name = args[0]
	}

	reader := bufio.NewReader(os.Stdin)
	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("Token '%s' already exists. Replace it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("Access token (hidden): ")
	token, err := readPassword(reader)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if token == "" {
		return errors.New("access token is required")
	}

	if err := manager.Store(&auth.Token{
		Name:         name,
		AccessToken:  token,
		ClientID:     loginClientID,
		ClientSecret: loginClientSecret,
	}); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Token saved: %s", name))
	fmt.Println("\nCrawl with it:")
	fmt.Println("   $ igcrawl crawl <handle>")
	if name != "default" {
		fmt.Printf("   $ igcrawl crawl <handle> --account %s\n", name)
	}
	return nil
}

// readPassword reads a secret from stdin without echoing
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
