package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voucherdesk/voucherdesk/internal/domain"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringP("username", "u", "", "Staff username")
	loginCmd.Flags().StringP("password", "p", "", "Password (read from stdin when omitted)")

	registerCmd.Flags().StringP("username", "u", "", "New username")
	registerCmd.Flags().StringP("email", "e", "", "Email address")
	registerCmd.Flags().StringP("password", "p", "", "Password (read from stdin when omitted)")
}

// ─── login ──────────────────────────────────────────────────────────────────

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and show the first page of active vouchers",
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	rt := current(cmd)
	username, _ := cmd.Flags().GetString("username")
	password, err := passwordFlag(cmd)
	if err != nil {
		return err
	}
	if err := rt.desk.Login(cmd.Context(), username, password); err != nil {
		return err
	}
	printView(cmd.OutOrStdout(), rt.desk.View())
	return nil
}

// ─── logout ─────────────────────────────────────────────────────────────────

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		if err := rt.desk.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

// ─── register ───────────────────────────────────────────────────────────────

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a staff account",
	RunE:  runRegister,
}

func runRegister(cmd *cobra.Command, args []string) error {
	rt := current(cmd)
	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")
	password, err := passwordFlag(cmd)
	if err != nil {
		return err
	}
	_, err = rt.desk.Register(cmd.Context(), username, email, password)
	return err
}

// ─── whoami ─────────────────────────────────────────────────────────────────

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		if !rt.desk.Authenticated() {
			return domain.ErrNotAuthenticated
		}
		p := rt.desk.Profile()
		role := "staff"
		if p.IsSuperuser {
			role = "superuser"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) at %s\n", p.Username, role, rt.cfg.API.BaseURL)
		return nil
	},
}

// passwordFlag returns --password, or the first line of stdin.
func passwordFlag(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
