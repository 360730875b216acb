package cli

import (
	"schedule-cli/internal/calendar"
	"schedule-cli/internal/log"
	"schedule-cli/internal/tui"

	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, app *App) error {
	e, err := app.open(cmd)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := e.store.Ensure(); err != nil {
		return writeErr(cmd, err)
	}

	// The alternate screen owns the terminal; logs go to a file.
	logPath := e.cfg.LogFile
	if logPath == "" {
		logPath = e.store.LogPath()
	}
	if err := log.SetFile(logPath); err != nil {
		log.Discard()
	}
	defer log.SetOutput(cmd.ErrOrStderr())

	var snaps calendar.Snapshots
	c, err := e.store.OpenCache(cmd.Context())
	if err != nil {
		log.Warn("open cache", "err", err)
	} else {
		defer c.Close()
		snaps = c.For(e.server)
	}

	log.Info("tui start", "server", e.server)
	return tui.Run(tui.Options{
		Backend:   e.client,
		Store:     e.store,
		Config:    e.cfg,
		Snapshots: snaps,
		Theme:     envOr("SCHEDULE_THEME", e.cfg.Theme),
	})
}
