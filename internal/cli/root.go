package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"schedule-cli/internal/api"
	"schedule-cli/internal/format"
	"schedule-cli/internal/log"
	"schedule-cli/internal/session"
	"schedule-cli/internal/store"

	"github.com/spf13/cobra"
)

type App struct {
	Server     string
	ConfigDir  string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "schedule",
		Short:        "Schedule calendar CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive calendar
  schedule

  # Sign in once; the token is kept in the OS keyring
  schedule login --email ada@example.com

  # Scriptable commands
  schedule items list --from 2024-01-01 --to 2024-01-08
  schedule items add --title Standup --type work --location "Room 1" --start "2024-01-02 09:00" --end "2024-01-02 09:15"

  # Direct item lookup (shortcut for: schedule items show <id>)
  schedule 42
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("SCHEDULE_SERVER", ""), "Schedule service base URL (default: config server, then "+api.DefaultServer+")")
	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr("SCHEDULE_CONFIG_DIR", ""), "Config directory (default ~/.schedule)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("SCHEDULE_FORMAT", "json"), "Output format (json|text)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newUserCmd(app))
	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newSyncCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// env is everything a command needs once flags are parsed.
type env struct {
	store  store.Store
	cfg    *store.Config
	server string
	sess   *session.Session
	client *api.Client
}

func (app *App) open(cmd *cobra.Command) (*env, error) {
	st, err := store.Open(app.ConfigDir)
	if err != nil {
		return nil, err
	}
	cfg, err := st.LoadConfig()
	if err != nil {
		return nil, err
	}

	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(log.ParseLevel(envOr("SCHEDULE_LOG_LEVEL", cfg.LogLevel)))

	server := strings.TrimRight(strings.TrimSpace(app.Server), "/")
	if server == "" {
		server = cfg.Server
	}

	sess, err := session.New(tokenStore(server, st.Dir))
	if err != nil {
		log.Warn("load session", "err", err)
	}
	// Logout (explicit or after a 401) drops the cached snapshot of this
	// server so the next user never sees it.
	sess.OnLogout(func() { clearSnapshot(st, server) })

	return &env{
		store:  st,
		cfg:    cfg,
		server: server,
		sess:   sess,
		client: api.New(server, sess, api.WithTimeout(cfg.Timeout)),
	}, nil
}

// tokenStore picks the token backend. SCHEDULE_TOKEN_STORE=file skips the
// OS keyring (headless machines, tests).
func tokenStore(server, dir string) session.TokenStore {
	if strings.EqualFold(os.Getenv("SCHEDULE_TOKEN_STORE"), "file") {
		return session.NewFileStore(dir)
	}
	return session.NewDefaultStore(server, dir)
}

func clearSnapshot(st store.Store, server string) {
	ctx := context.Background()
	c, err := st.OpenCache(ctx)
	if err != nil {
		log.Warn("open cache", "err", err)
		return
	}
	defer c.Close()
	if err := c.ClearSnapshot(ctx, server); err != nil {
		log.Warn("clear snapshot", "server", server, "err", err)
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	err = userError(err)
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
