package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"schedule-cli/internal/api"
	"schedule-cli/internal/form"
	"schedule-cli/internal/ics"
	"schedule-cli/internal/log"
	"schedule-cli/internal/model"
	"schedule-cli/internal/session"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

func newExportCmd(app *App) *cobra.Command {
	var out, from, to, name string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export items as an iCalendar (.ics) file",
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, hi, err := parseRange(from, to)
			if err != nil {
				return writeErr(cmd, err)
			}
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			items, err := e.client.ListItems(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			selected := make([]model.ScheduleItem, 0, len(items))
			for _, it := range items {
				if !lo.IsZero() && !it.EndTime.After(lo) {
					continue
				}
				if !hi.IsZero() && !it.StartTime.Before(hi) {
					continue
				}
				selected = append(selected, it)
			}

			var buf bytes.Buffer
			if err := ics.Export(&buf, selected, ics.ExportOptions{Name: name}); err != nil {
				return writeErr(cmd, err)
			}
			if out == "" || out == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"path": out, "count": len(selected)})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&from, "from", "", "Only items ending after this")
	cmd.Flags().StringVar(&to, "to", "", "Only items starting before this (a date includes the whole day)")
	cmd.Flags().StringVar(&name, "name", "Schedule", "Calendar name")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	var horizon, from string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file.ics>",
		Short: "Create items from an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			span, err := parseSpan(horizon)
			if err != nil || span <= 0 {
				return writeErr(cmd, fmt.Errorf("--horizon: invalid span %q", horizon))
			}
			start := model.Now().Day()
			if strings.TrimSpace(from) != "" {
				if start, err = parseWhen(from); err != nil {
					return writeErr(cmd, fmt.Errorf("--from: %w", err))
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := ics.Import(f, ics.ImportOptions{From: start, To: start.Add(span)})
			_ = f.Close()
			if err != nil {
				return writeErr(cmd, err)
			}

			// Items the form would reject are reported rather than sent.
			var valid []model.ScheduleItem
			for _, it := range res.Items {
				fm := form.NewEdit(it)
				fm.Mode = form.ModeCreate
				if errs := fm.Validate(); errs != nil {
					res.Skipped = append(res.Skipped, ics.Skipped{UID: it.Title, Reason: errs.Error()})
					continue
				}
				valid = append(valid, it)
			}

			summary := map[string]any{
				"parsed":    len(res.Items),
				"skipped":   res.Skipped,
				"truncated": res.Truncated,
				"dryRun":    dryRun,
			}
			if dryRun {
				summary["items"] = valid
				return writeOut(cmd, app, summary)
			}

			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := e.sess.Require(); err != nil {
				return writeErr(cmd, err)
			}
			created, failed, err := createAll(cmd, e.client, valid)
			summary["created"] = created
			summary["failed"] = failed
			if created > 0 {
				// Items were created outside the page; refetch so the snapshot includes them.
				if _, serr := syncOnce(cmd.Context(), e); serr != nil {
					log.Warn("refresh snapshot after import", "err", serr)
				}
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, summary)
		},
	}

	cmd.Flags().StringVar(&horizon, "horizon", "90d", "How far ahead recurring events are expanded")
	cmd.Flags().StringVar(&from, "from", "", "Start of the expansion window (default today)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and validate only; create nothing")
	return cmd
}

// createAll creates items one by one behind a progress bar. Individual
// failures are counted; an expired session stops the run.
func createAll(cmd *cobra.Command, c *api.Client, items []model.ScheduleItem) (int, int, error) {
	if len(items) == 0 {
		return 0, 0, nil
	}
	ctx := cmd.Context()
	p := mpb.NewWithContext(ctx, mpb.WithOutput(cmd.ErrOrStderr()), mpb.WithWidth(40))
	bar := p.AddBar(int64(len(items)),
		mpb.PrependDecorators(decor.Name("import "), decor.CountersNoUnit("%d/%d")),
		mpb.AppendDecorators(decor.Percentage()),
	)

	created, failed := 0, 0
	var stop error
	for _, it := range items {
		if _, err := c.CreateItem(ctx, it); err != nil {
			if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, session.ErrNotLoggedIn) || ctx.Err() != nil {
				stop = err
				break
			}
			log.Warn("import item", "title", it.Title, "start", it.StartTime, "err", err)
			failed++
		} else {
			created++
		}
		bar.Increment()
	}
	if stop != nil {
		bar.Abort(false)
	}
	p.Wait()
	return created, failed, stop
}
