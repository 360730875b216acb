package cli

import (
	"strconv"

	"schedule-cli/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change config.yaml",
	}
	cmd.AddCommand(newConfigShowCmd(app))
	cmd.AddCommand(newConfigSetCmd(app))
	return cmd
}

func configView(st store.Store, cfg *store.Config) map[string]string {
	return map[string]string{
		"path":         st.ConfigPath(),
		"server":       cfg.Server,
		"timeout":      cfg.Timeout.String(),
		"theme":        cfg.Theme,
		"week_start":   cfg.WeekStart,
		"slot_minutes": strconv.Itoa(cfg.SlotMinutes),
		"log_level":    cfg.LogLevel,
		"log_file":     cfg.LogFile,
	}
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(app.ConfigDir)
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg, err := st.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, configView(st, cfg))
		},
	}
}

func newConfigSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set one configuration key",
		Args:      cobra.ExactArgs(2),
		ValidArgs: store.ConfigKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(app.ConfigDir)
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg, err := st.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			cfg.Normalize()
			if err := st.SaveConfig(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, configView(st, cfg))
		},
	}
}
