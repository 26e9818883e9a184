package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/auth"
	"github.com/aiswide/gpudash/internal/branding"
	"github.com/aiswide/gpudash/internal/config"
	"github.com/aiswide/gpudash/internal/render"
	"github.com/aiswide/gpudash/internal/session"
	"github.com/spf13/cobra"
)

var (
	loginUsername      string
	loginPasswordStdin bool
	whoamiRole         string
)

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Login name (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin without prompting")
	whoamiCmd.Flags().StringVar(&whoamiRole, "require-role", "", "Exit non-zero unless the signed-in user has this role")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the dashboard backend",
	Long: `Sign in with your dashboard credentials. The access and refresh tokens are
stored in ~/` + branding.HomeDir() + `/session.json (mode 0600) and used by every other command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		p := newPrompter(cmd)
		username := loginUsername
		if username == "" {
			if username, err = p.ask("Username: "); err != nil {
				return err
			}
		}
		label := "Password: "
		if loginPasswordStdin {
			label = ""
		}
		password, err := p.password(label)
		if err != nil {
			return err
		}
		if username == "" || password == "" {
			return errors.New("username and password are required")
		}

		res, err := a.authenticator().Login(cmd.Context(), username, password)
		if err != nil {
			var le *auth.LoginError
			if errors.As(err, &le) {
				return fmt.Errorf("login failed: %s", le.Detail)
			}
			return err
		}

		name := res.User.Name
		if name == "" {
			name = res.User.Email
		}
		fmt.Fprintf(a.out, "Signed in as %s (%s).\n", name, res.User.Role)
		if res.RefreshToken == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "The backend issued no refresh token; you will need to sign in again when the session expires.")
		}
		fmt.Fprintf(a.out, "Landing: %s\n", res.Landing)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and delete stored tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := auth.Logout(store); err != nil {
			return fmt.Errorf("signing out: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

// identity is the whoami view.
type identity struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Department string     `json:"department,omitempty"`
	Landing    string     `json:"landing"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Valid      bool       `json:"valid"`
	Refresh    bool       `json:"refresh_token"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(config.Output())
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}

		now := time.Now()
		redirect := auth.Guard(store, whoamiRole, now)
		user, err := session.CurrentUser(store)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Not signed in. Run `%s login` to sign in.\n", branding.CLIName())
			return err
		}

		tokens := session.Load(store)
		id := identity{
			Name:       user.Name,
			Email:      user.Email,
			Role:       user.Role,
			Department: user.Department,
			Landing:    auth.Landing(user.Role),
			Valid:      session.TokenValid(tokens.AccessToken, now),
			Refresh:    tokens.HasRefresh(),
		}
		if claims, err := session.ParseClaims(tokens.AccessToken); err == nil {
			if exp, ok := claims.Expiry(); ok {
				id.ExpiresAt = &exp
			}
			if id.Name == "" {
				id.Name = claims.DisplayName()
			}
		}

		t := render.Table{
			Header: []string{"NAME", "EMAIL", "ROLE", "LANDING", "EXPIRES", "REFRESH"},
			Rows:   [][]string{{id.Name, id.Email, id.Role, id.Landing, expiresText(id.ExpiresAt, id.Valid, now), yesNo(id.Refresh)}},
		}
		if err := render.Print(cmd.OutOrStdout(), format, id, t); err != nil {
			return err
		}

		switch {
		case whoamiRole == "" || redirect == "":
		case redirect == apiclient.SignInPath:
			return fmt.Errorf("session is not valid for role %q; sign in again", whoamiRole)
		default:
			return fmt.Errorf("role %q required, signed in as %q (home: %s)", whoamiRole, user.Role, redirect)
		}
		return nil
	},
}

func expiresText(exp *time.Time, valid bool, now time.Time) string {
	switch {
	case exp == nil && valid:
		return "never"
	case exp == nil:
		return "invalid"
	case !valid:
		return "expired"
	default:
		return exp.Sub(now).Round(time.Second).String()
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
