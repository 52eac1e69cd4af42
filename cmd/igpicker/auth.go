package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"igpicker/pkg/auth"
	"igpicker/pkg/ui"
)

var (
	loginToken string
	logoutAll  bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Apify API tokens",
	Long: `Manage stored Apify API tokens.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables IGPICKER_PROVIDER_TOKEN / APIFY_TOKEN (read-only)

Never share your token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store an API token securely",
	Long: `Store an Apify API token in the system keychain or encrypted file.

The token is stored under the given name, or "default". The default token
is used by 'pick' and 'serve' when no token is configured.`,
	Example: `  # Interactive login
  igpicker auth login

  # Store a second token under a name
  igpicker auth login work`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored tokens",
	Example: `  igpicker auth logout
  igpicker auth logout work
  igpicker auth logout --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tokens (masked)",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().StringVar(&loginToken, "token", "", "token to store (prompted when omitted)")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored token")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := auth.DefaultName
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	if existing, _ := manager.Retrieve(name); existing != nil && loginToken == "" {
		if !confirm(fmt.Sprintf("Token '%s' already exists. Replace it?", name)) {
			return nil
		}
	}

	token := strings.TrimSpace(loginToken)
	if token == "" {
		auth.ShowTokenGuide(os.Stdout)
		fmt.Print("Apify API token (hidden): ")
		token, err = readPassword()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}
	if token == "" {
		return fmt.Errorf("%w: token is required", auth.ErrInvalidCredentials)
	}

	if err := manager.Store(&auth.Credential{Name: name, Token: token}); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Token saved as '%s' (%s)", name, auth.MaskToken(token)))
	fmt.Println("\nFetch posts with:")
	fmt.Println("  $ igpicker pick natgeo nasa")
	fmt.Println("  $ igpicker serve")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if logoutAll {
		if !confirm("Remove ALL stored tokens?") {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			return fmt.Errorf("failed to remove tokens: %w", err)
		}
		ui.PrintSuccess("All tokens removed")
		return nil
	}

	name := auth.DefaultName
	if len(args) > 0 {
		name = args[0]
	}
	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("failed to remove token '%s': %w", name, err)
	}
	ui.PrintSuccess("Token removed: " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}
	if len(creds) == 0 {
		ui.PrintInfo("No stored tokens", "Use 'igpicker auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Tokens")
	fmt.Println()
	for i, cred := range creds {
		s := auth.Sanitize(cred)
		fmt.Printf("%d. %s\n", i+1, s.Name)
		fmt.Printf("   Token: %s\n", s.Token)
		if !s.LastModified.IsZero() {
			fmt.Printf("   Last Modified: %s\n", s.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
	return nil
}
