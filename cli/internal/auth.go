package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/courtside/clubapp/internal/client"
)

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	for _, unit := range []struct {
		n    int
		name string
	}{
		{days, "day"},
		{hours, "hour"},
		{minutes, "minute"},
	} {
		switch {
		case unit.n == 1:
			parts = append(parts, "1 "+unit.name)
		case unit.n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", unit.n, unit.name))
		}
	}
	// Seconds only matter for short durations
	if len(parts) == 0 && seconds > 0 {
		if seconds == 1 {
			parts = append(parts, "1 second")
		} else {
			parts = append(parts, fmt.Sprintf("%d seconds", seconds))
		}
	}

	switch len(parts) {
	case 0:
		return "0 seconds"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
		Long:  `Manage the club API session for the current context`,
	}

	cmd.AddCommand(newAuthRequestCodeCommand())
	cmd.AddCommand(newAuthLoginCommand())
	cmd.AddCommand(newAuthRegisterCommand())
	cmd.AddCommand(newAuthLogoutCommand())
	cmd.AddCommand(newAuthStatusCommand())
	cmd.AddCommand(newAuthWhoamiCommand())
	cmd.AddCommand(newAuthRefreshCommand())
	cmd.AddCommand(newAuthTokenCommand())

	return cmd
}

func newAuthRequestCodeCommand() *cobra.Command {
	var phone string

	cmd := &cobra.Command{
		Use:   "request-code",
		Short: "Send a verification code to a phone",
		Long: `Send a verification code for use with --code on login or register.

Codes expire after a while; request a new one if login reports it expired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getCliContext(cmd).Client.RequestVerification(cmd.Context(), phone); err != nil {
				return fmt.Errorf("failed to request verification code: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Verification code sent to %s\n", phone)
			return nil
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "Phone number in international format")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	var (
		phone string
		code  string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with a phone verification code",
		Long: `Request a verification code for a phone number and exchange it for a session.

Examples:
  # Request a code and type it when prompted
  clubctl auth login --phone +34600111222

  # Non-interactive, with a code requested earlier
  clubctl auth request-code --phone +34600111222
  clubctl auth login --phone +34600111222 --code 123456`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCliContext(cmd).Client

			if code == "" {
				if err := c.RequestVerification(cmd.Context(), phone); err != nil {
					return fmt.Errorf("failed to request verification code: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Verification code sent to %s\n", phone)

				var err error
				if code, err = promptCode(cmd); err != nil {
					return err
				}
			}
			return verify(cmd, phone, code)
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "Phone number in international format")
	cmd.Flags().StringVar(&code, "code", "", "Verification code (if not provided, one is requested and prompted for)")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

func verify(cmd *cobra.Command, phone, code string) error {
	cliCtx := getCliContext(cmd)
	cliCtx.Logger.Info("verifying phone", "phone", phone)

	if _, err := cliCtx.Client.VerifyPhone(cmd.Context(), phone, code); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == 404 {
			return fmt.Errorf("%s is not a club member yet, run 'clubctl auth register'", phone)
		}
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in to %s\n", cliCtx.ContextName)
	return nil
}

func newAuthRegisterCommand() *cobra.Command {
	var (
		name  string
		phone string
		code  string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register as a new club member",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)
			c := cliCtx.Client

			if code == "" {
				if err := c.RequestVerification(cmd.Context(), phone); err != nil {
					return fmt.Errorf("failed to request verification code: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Verification code sent to %s\n", phone)

				var err error
				if code, err = promptCode(cmd); err != nil {
					return err
				}
			}

			member, err := c.RegisterMember(cmd.Context(), client.MemberRegistration{
				Name:             name,
				Phone:            phone,
				VerificationCode: code,
			})
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered %s (member %s) and logged in\n", member.Name, member.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number in international format")
	cmd.Flags().StringVar(&code, "code", "", "Verification code (if not provided, one is requested and prompted for)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCliContext(cmd).Client

			loggedIn, err := c.Store().IsLoggedIn(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read session: %w", err)
			}
			if !loggedIn {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}

			if err := c.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("failed to remove session: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Successfully logged out")
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)
			store := cliCtx.Client.Store()
			out := cmd.OutOrStdout()

			loggedIn, err := store.IsLoggedIn(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read session: %w", err)
			}
			if !loggedIn {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}

			fmt.Fprintf(out, "Logged in to: %s (%s)\n", cliCtx.ContextName, cliCtx.Client.BaseURL())

			accessToken, err := store.GetAccessToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read session: %w", err)
			}
			expiresAt, err := client.AccessTokenExpiry(accessToken)
			if err != nil {
				fmt.Fprintln(out, "Access token expiry unknown")
				return nil
			}

			fmt.Fprintf(out, "Access token expires: %s\n", expiresAt.Local().Format("2006-01-02 15:04:05 MST"))
			now := time.Now()
			if now.After(expiresAt) {
				fmt.Fprintf(out, "⚠  Access token expired %s ago - it will be refreshed on the next request\n", formatDuration(now.Sub(expiresAt)))
			} else {
				fmt.Fprintf(out, "✓  Valid for %s\n", formatDuration(expiresAt.Sub(now)))
			}
			return nil
		},
	}
}

func newAuthWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the member owning the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCliContext(cmd).Client

			member, err := c.Me(cmd.Context())
			if err != nil {
				return sessionError(cmd, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name: %s\n", member.Name)
			fmt.Fprintf(out, "Member ID: %s\n", member.ID)
			fmt.Fprintf(out, "Phone: %s\n", member.Phone)
			return nil
		},
	}
}

func newAuthRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new session now",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCliContext(cmd).Client

			pair, err := c.Refresh(cmd.Context())
			if errors.Is(err, client.ErrNotLoggedIn) {
				return fmt.Errorf("not logged in, run 'clubctl auth login'")
			}
			if err != nil {
				return fmt.Errorf("%w\nSession cleared, run 'clubctl auth login' to sign in again", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Session refreshed")
			if expiresAt, err := client.AccessTokenExpiry(pair.AccessToken); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Access token valid for %s\n", formatDuration(time.Until(expiresAt)))
			}
			return nil
		},
	}
}

func newAuthTokenCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Display the current access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := getCliContext(cmd).Client.Store()

			get := store.GetAccessToken
			if refresh {
				get = store.GetRefreshToken
			}
			token, err := get(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read session: %w", err)
			}
			if token == "" {
				return fmt.Errorf("not logged in")
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Display the refresh token instead")
	return cmd
}

// promptCode reads a verification code, hiding input on a terminal
func promptCode(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	fmt.Fprint(cmd.OutOrStdout(), "Verification code: ")

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		codeBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout()) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("failed to read verification code: %w", err)
		}
		return strings.TrimSpace(string(codeBytes)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read verification code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return "", fmt.Errorf("no verification code given, pass --code when not running interactively")
	}
	return code, nil
}

// sessionError turns a failed call into advice when the session is gone
func sessionError(cmd *cobra.Command, err error) error {
	loggedIn, storeErr := getCliContext(cmd).Client.Store().IsLoggedIn(cmd.Context())
	if storeErr == nil && !loggedIn {
		return fmt.Errorf("%w\nYou are not logged in, run 'clubctl auth login' to sign in", err)
	}
	return err
}
