package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lborres/volunteer/core"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and persist the token",
	Long: `Log in with email and password. The token is written to the configured
token store and reused by every other command.

Examples:
  volunteer-console login --email ada@example.org               # Prompt for the password on stdin
  echo "$PW" | volunteer-console login --email ada@example.org  # Password from a pipe`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear the stored token",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Resolve the stored token and show the session",
	RunE:  runWhoami,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Check whether the role profile is complete",
	RunE:  runProfile,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, profileCmd)

	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (read from stdin when empty)")
	_ = loginCmd.MarkFlagRequired("email")

	whoamiCmd.Flags().Bool("json", false, "output as JSON")
	profileCmd.Flags().Bool("json", false, "output as JSON")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		var err error
		if password, err = readLine(cmd.InOrStdin()); err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
	}

	console, closeConsole, err := newConsole(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer closeConsole()

	state, err := console.Auth.Login(cmd.Context(), core.LoginInput{Email: email, Password: password})
	if err != nil {
		return describeError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", state.User.Email, state.User.PrimaryRole())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	console, closeConsole, err := newConsole(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer closeConsole()

	console.Start(cmd.Context())
	console.Auth.Logout(cmd.Context())

	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	console, closeConsole, err := newConsole(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer closeConsole()

	state := console.Start(cmd.Context())
	out := cmd.OutOrStdout()

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Phase string `json:"phase"`
			core.State
		}{Phase: state.Phase().String(), State: state})
	}

	if !state.Authenticated() {
		fmt.Fprintln(out, "Not logged in")
		return nil
	}
	user := state.User
	fmt.Fprintf(out, "%s <%s>\n", user.Name, user.Email)
	fmt.Fprintf(out, "roles:    %s\n", strings.Join(user.Roles.Strings(), ", "))
	fmt.Fprintf(out, "verified: %t\n", user.EmailVerified())
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	console, closeConsole, err := newConsole(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer closeConsole()

	state := console.Start(cmd.Context())
	if !state.Authenticated() {
		return core.ErrNotAuthenticated
	}

	role := state.User.PrimaryRole()
	result := console.Profiles.Check(cmd.Context(), role)
	out := cmd.OutOrStdout()

	if jsonOutput {
		return json.NewEncoder(out).Encode(result)
	}
	if result.IsComplete {
		fmt.Fprintf(out, "The %s profile is complete\n", role)
		return nil
	}
	fmt.Fprintf(out, "The %s profile is incomplete. Missing: %s\n", role, strings.Join(result.MissingFields, ", "))
	return nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// describeError renders err with its field messages for the terminal.
func describeError(err error) error {
	msg := core.UserMessage(err)
	fields := core.FieldErrors(err)
	if len(fields) == 0 {
		return fmt.Errorf("%s: %w", msg, err)
	}
	var b strings.Builder
	b.WriteString(msg)
	for field, messages := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", field, strings.Join(messages, " "))
	}
	return fmt.Errorf("%s: %w", b.String(), err)
}
