package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"artcollector/pkg/auth"
	"artcollector/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var setupGuide bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Tumblr and MEGA credentials",
	Long: `Manage stored credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (TUMBLR_CONSUMER_KEY, TUMBLR_OAUTH_TOKEN, MEGA_EMAIL, MEGA_PASSWORD)

Never share your credentials or config files!`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store credentials securely",
	Long: `Store a Tumblr API key or OAuth token, and optionally MEGA credentials,
under an account name. Secrets are read without echo.`,
	Example: `  # Store the default account
  artcollector auth login

  # Show where to find each credential first
  artcollector auth login --setup-guide`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogin,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

var authDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"logout"},
	Short:   "Remove stored credentials",
	Args:    cobra.ExactArgs(1),
	RunE:    runAuthDelete,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authDeleteCmd)

	authLoginCmd.Flags().BoolVar(&setupGuide, "setup-guide", false, "show where to obtain each credential")
}

// prompter reads answers from a terminal or a plain reader
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newPrompter(in *os.File, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out, fd: int(in.Fd())}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	input, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// secret reads a value without echoing it when stdin is a terminal
func (p *prompter) secret(label string) (string, error) {
	if !term.IsTerminal(p.fd) {
		return p.line(label)
	}
	fmt.Fprint(p.out, label)
	value, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(value)), nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	if setupGuide {
		auth.ShowSetupGuide()
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err)
		return err
	}

	name := auth.DefaultAccount
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	p := newPrompter(os.Stdin, cmd.OutOrStdout())

	if existing, _ := manager.Retrieve(name); existing != nil {
		answer, err := p.line(fmt.Sprintf("Account '%s' already exists. Update credentials? (y/N): ", name))
		if err != nil {
			return err
		}
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	account := &auth.Account{Name: name, LastModified: time.Now()}
	if account.TumblrAPIKey, err = p.secret("Tumblr consumer key: "); err != nil {
		return fmt.Errorf("failed to read consumer key: %w", err)
	}
	if account.TumblrToken, err = p.secret("Tumblr OAuth token (Enter to skip): "); err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if account.MegaEmail, err = p.line("MEGA email (Enter to skip): "); err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	if account.MegaEmail != "" {
		if account.MegaPassword, err = p.secret("MEGA password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err)
		return err
	}

	ui.PrintSuccess("Account saved: " + name)
	if auth.IsKeyringAvailable() {
		fmt.Fprintln(cmd.OutOrStdout(), "   Stored in the system keychain")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "   Stored in an encrypted file")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nStart collecting with:\n   artcollector run")
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err)
		return err
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'artcollector auth login' to add one")
		return nil
	}

	out := cmd.OutOrStdout()
	for i, account := range accounts {
		s := auth.SanitizeAccount(account)
		fmt.Fprintf(out, "%d. %s\n", i+1, s.Name)
		fmt.Fprintf(out, "   Tumblr key:   %s\n", orNone(s.TumblrAPIKey))
		fmt.Fprintf(out, "   Tumblr token: %s\n", orNone(s.TumblrToken))
		fmt.Fprintf(out, "   MEGA:         %s\n", orNone(s.MegaEmail))
		if !s.LastModified.IsZero() {
			fmt.Fprintf(out, "   Modified:     %s\n", s.LastModified.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

func runAuthDelete(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err)
		return err
	}

	name := strings.TrimSpace(args[0])
	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove account", err)
		return err
	}
	ui.PrintSuccess("Account removed: " + name)
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
