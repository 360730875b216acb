package cli

import (
	"errors"
	"strings"

	"schedule-cli/internal/form"
	"schedule-cli/internal/model"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var email string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return writeErr(cmd, errors.New("missing --email"))
			}
			pw, err := readSecret(cmd, "Password: ", passwordStdin)
			if err != nil {
				return writeErr(cmd, err)
			}
			creds := model.Credentials{Email: strings.TrimSpace(email), Password: pw}
			if errs := form.ValidateCredentials(creds); errs != nil {
				return writeErr(cmd, errs)
			}
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := e.client.Login(cmd.Context(), creds); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"server": e.server, "email": creds.Email, "loggedIn": true})
		},
	}

	cmd.Flags().StringVar(&email, "email", envOr("SCHEDULE_EMAIL", ""), "Account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token and the cached calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			had := e.sess.LoggedIn()
			if err := e.client.Logout(); err != nil {
				return writeErr(cmd, err)
			}
			if !had {
				// The logout hook only runs when a token was held.
				clearSnapshot(e.store, e.server)
			}
			return writeOut(cmd, app, map[string]any{"server": e.server, "loggedIn": false})
		},
	}
}

func newRegisterCmd(app *App) *cobra.Command {
	var reg model.Registration
	var passwordStdin bool
	var login bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd, "Password: ", passwordStdin)
			if err != nil {
				return writeErr(cmd, err)
			}
			r := reg
			r.Password = pw
			r.Email = strings.TrimSpace(r.Email)
			if errs := form.ValidateRegistration(r); errs != nil {
				return writeErr(cmd, errs)
			}
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			if err := e.client.Register(ctx, r); err != nil {
				return writeErr(cmd, err)
			}
			out := map[string]any{"email": r.Email, "registered": true, "loggedIn": false}
			if login {
				if err := e.client.Login(ctx, model.Credentials{Email: r.Email, Password: r.Password}); err != nil {
					return writeErr(cmd, err)
				}
				out["loggedIn"] = true
			}
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	cmd.Flags().BoolVar(&login, "login", false, "Sign in after registering")
	return cmd
}

func newUserCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Current user profile",
	}
	cmd.AddCommand(newUserMeCmd(app))
	cmd.AddCommand(newUserUpdateCmd(app))
	return cmd
}

func newUserMeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			u, err := e.client.Me(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, u)
		},
	}
}

func newUserUpdateCmd(app *App) *cobra.Command {
	var upd model.UserUpdate
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change name or password",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := upd
			if passwordStdin {
				pw, err := readSecret(cmd, "New password: ", true)
				if err != nil {
					return writeErr(cmd, err)
				}
				u.Password = pw
			}
			if strings.TrimSpace(u.FirstName) == "" && strings.TrimSpace(u.LastName) == "" && u.Password == "" {
				return writeErr(cmd, errors.New("nothing to change; pass --first-name, --last-name or --password-stdin"))
			}
			if errs := form.ValidateUserUpdate(u); errs != nil {
				return writeErr(cmd, errs)
			}
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			if err := e.client.UpdateMe(ctx, u); err != nil {
				return writeErr(cmd, err)
			}
			me, err := e.client.Me(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, me)
		},
	}

	cmd.Flags().StringVar(&upd.FirstName, "first-name", "", "New first name")
	cmd.Flags().StringVar(&upd.LastName, "last-name", "", "New last name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read a new password from the first line of stdin")
	return cmd
}
