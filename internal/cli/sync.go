package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"schedule-cli/internal/api"
	"schedule-cli/internal/log"
	"schedule-cli/internal/session"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newSyncCmd(app *App) *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh the offline snapshot now, or on a cron schedule",
		Example: strings.TrimSpace(`
  schedule sync
  schedule sync --cron "*/15 * * * *"
  schedule sync --cron "@every 10m"
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(spec) == "" {
				res, err := syncOnce(cmd.Context(), e)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, res)
			}

			sched, err := cron.ParseStandard(spec)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("--cron: %w", err))
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSyncSchedule(ctx, cmd, e, sched)
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "Cron expression (5 fields or @every/@hourly); runs until interrupted")
	return cmd
}

func syncOnce(ctx context.Context, e *env) (map[string]any, error) {
	p, release, err := e.loadPage(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return map[string]any{
		"server":   e.server,
		"items":    len(p.Events()),
		"syncedAt": time.Now().Format(time.RFC3339),
	}, nil
}

// runSyncSchedule syncs once, then on every tick of sched until ctx ends or
// the session expires.
func runSyncSchedule(ctx context.Context, cmd *cobra.Command, e *env, sched cron.Schedule) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fatal error
	run := func() {
		res, err := syncOnce(ctx, e)
		if err != nil {
			log.Error("sync", err)
			if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, session.ErrNotLoggedIn) {
				fatal = err
				cancel()
			}
			return
		}
		log.Info("synced", "items", res["items"], "server", e.server)
	}

	c := cron.New()
	c.Schedule(sched, cron.FuncJob(run))
	run()
	if fatal != nil {
		return writeErr(cmd, fatal)
	}
	c.Start()
	log.Info("sync scheduled", "next", sched.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()
	<-c.Stop().Done()
	if fatal != nil {
		return writeErr(cmd, fatal)
	}
	return nil
}
