package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"schedule-cli/internal/calendar"
	"schedule-cli/internal/form"
	"schedule-cli/internal/log"
	"schedule-cli/internal/model"

	"github.com/spf13/cobra"
)

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item", "events"},
		Short:   "Schedule item commands",
	}

	cmd.AddCommand(newItemsListCmd(app))
	cmd.AddCommand(newItemsShowCmd(app))
	cmd.AddCommand(newItemsAddCmd(app))
	cmd.AddCommand(newItemsEditCmd(app))
	cmd.AddCommand(newItemsDeleteCmd(app))
	cmd.AddCommand(newItemsShiftCmd(app, "move", "Move an item, keeping its duration"))
	cmd.AddCommand(newItemsShiftCmd(app, "resize", "Move the end of an item"))

	return cmd
}

// loadPage builds a calendar page with the snapshot cache attached and
// fetches the current list. The returned func releases the cache.
func (e *env) loadPage(ctx context.Context) (*calendar.Page, func(), error) {
	var opts []calendar.Option
	release := func() {}
	if c, err := e.store.OpenCache(ctx); err != nil {
		log.Warn("open cache", "err", err)
	} else {
		opts = append(opts, calendar.WithSnapshots(c.For(e.server)))
		release = func() { _ = c.Close() }
	}
	p := calendar.New(e.client, opts...)
	if err := p.Load(ctx); err != nil {
		release()
		return nil, func() {}, err
	}
	return p, release, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", s)
	}
	return id, nil
}

func newItemsListCmd(app *App) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items, optionally overlapping [--from, --to)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			lo, hi, err := parseRange(from, to)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, release, err := e.loadPage(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer release()

			evs := p.Events()
			if !lo.IsZero() || !hi.IsZero() {
				if lo.IsZero() {
					lo = model.At(1, 1, 1, 0, 0)
				}
				if hi.IsZero() {
					hi = model.At(9999, 12, 31, 0, 0)
				}
				evs = p.EventsBetween(lo, hi)
			}
			items := make([]model.ScheduleItem, 0, len(evs))
			for _, ev := range evs {
				items = append(items, ev.Item())
			}
			return writeOut(cmd, app, items)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Only items ending after this (YYYY-MM-DD or YYYY-MM-DD HH:MM)")
	cmd.Flags().StringVar(&to, "to", "", "Only items starting before this (a date includes the whole day)")
	return cmd
}

func parseRange(from, to string) (model.WallTime, model.WallTime, error) {
	var lo, hi model.WallTime
	var err error
	if strings.TrimSpace(from) != "" {
		if lo, err = parseBound(from, false); err != nil {
			return lo, hi, fmt.Errorf("--from: %w", err)
		}
	}
	if strings.TrimSpace(to) != "" {
		if hi, err = parseBound(to, true); err != nil {
			return lo, hi, fmt.Errorf("--to: %w", err)
		}
	}
	if !lo.IsZero() && !hi.IsZero() && !lo.Before(hi) {
		return lo, hi, errors.New("--to must be after --from")
	}
	return lo, hi, nil
}

func newItemsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			it, err := e.client.GetItem(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, it)
		},
	}
}

// itemFlags are shared by add and edit. Only flags the user set are applied.
type itemFlags struct {
	title, typ, location, description string
	start, end, priority              string
}

func (fl *itemFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&fl.title, "title", "", "Title (max 100)")
	cmd.Flags().StringVar(&fl.typ, "type", "", "Type, e.g. work (max 50)")
	cmd.Flags().StringVar(&fl.location, "location", "", "Location (max 100)")
	cmd.Flags().StringVar(&fl.description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&fl.start, "start", "", "Start (YYYY-MM-DD HH:MM)")
	cmd.Flags().StringVar(&fl.end, "end", "", "End (YYYY-MM-DD HH:MM; default start + 1h on add)")
	cmd.Flags().StringVar(&fl.priority, "priority", "", "Priority (low|medium|high)")
}

func (fl *itemFlags) changed(cmd *cobra.Command) bool {
	for _, name := range []string{"title", "type", "location", "description", "start", "end", "priority"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// apply copies the changed flags onto f. Moving the start without an explicit
// end keeps the item's duration.
func (fl *itemFlags) apply(cmd *cobra.Command, f *form.Form) error {
	changed := cmd.Flags().Changed
	text := map[string]form.Field{
		"title":       form.FieldTitle,
		"type":        form.FieldType,
		"location":    form.FieldLocation,
		"description": form.FieldDescription,
		"priority":    form.FieldPriority,
	}
	values := map[string]string{
		"title":       fl.title,
		"type":        fl.typ,
		"location":    fl.location,
		"description": fl.description,
		"priority":    fl.priority,
	}
	for name, field := range text {
		if changed(name) {
			f.Set(field, values[name])
		}
	}

	oldStart, _ := model.ParseDateClock(f.StartDate, f.StartTime)
	oldEnd, _ := model.ParseDateClock(f.EndDate, f.EndTime)
	if changed("start") {
		start, err := parseWhen(fl.start)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		f.StartDate, f.StartTime = start.DateString(), start.ClockString()
		if !changed("end") {
			dur := oldEnd.Sub(oldStart)
			if f.Mode == form.ModeCreate || dur <= 0 {
				dur = time.Hour
			}
			end := start.Add(dur)
			f.EndDate, f.EndTime = end.DateString(), end.ClockString()
		}
	}
	if changed("end") {
		end, err := parseWhen(fl.end)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		f.EndDate, f.EndTime = end.DateString(), end.ClockString()
	}
	return nil
}

func newItemsAddCmd(app *App) *cobra.Command {
	var fl itemFlags

	cmd := &cobra.Command{
		Use:     "add",
		Aliases: []string{"create"},
		Short:   "Add an item",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("start") {
				return writeErr(cmd, errors.New("missing --start"))
			}
			start, err := parseWhen(fl.start)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("--start: %w", err))
			}
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			p, release, err := e.loadPage(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer release()

			f, err := p.OpenCreate(start)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := fl.apply(cmd, &f); err != nil {
				return writeErr(cmd, err)
			}
			saved, err := p.Submit(ctx, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, saved)
		},
	}

	fl.bind(cmd)
	return cmd
}

func newItemsEditCmd(app *App) *cobra.Command {
	var fl itemFlags

	cmd := &cobra.Command{
		Use:     "edit <id>",
		Aliases: []string{"update"},
		Short:   "Edit an item; only the given flags change",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if !fl.changed(cmd) {
				return writeErr(cmd, errors.New("nothing to change; pass at least one of --title, --type, --location, --description, --start, --end, --priority"))
			}
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			p, release, err := e.loadPage(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer release()

			f, err := p.OpenEdit(id)
			if errors.Is(err, calendar.ErrUnknownEvent) {
				return writeErr(cmd, errNotFound("item", id))
			} else if err != nil {
				return writeErr(cmd, err)
			}
			if err := fl.apply(cmd, &f); err != nil {
				return writeErr(cmd, err)
			}
			saved, err := p.Submit(ctx, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, saved)
		},
	}

	fl.bind(cmd)
	return cmd
}

func newItemsDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an item (asks for confirmation unless --yes)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			p, release, err := e.loadPage(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer release()

			f, err := p.OpenEdit(id)
			if errors.Is(err, calendar.ErrUnknownEvent) {
				return writeErr(cmd, errNotFound("item", id))
			} else if err != nil {
				return writeErr(cmd, err)
			}
			if err := p.RequestDelete(); err != nil {
				return writeErr(cmd, err)
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Delete %q on %s %s?", f.Title, f.StartDate, f.StartTime)) {
				p.CancelDelete()
				return writeOut(cmd, app, map[string]any{"id": id, "deleted": false})
			}
			if err := p.ConfirmDelete(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"id": id, "deleted": true})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// newItemsShiftCmd builds `items move` and `items resize`.
func newItemsShiftCmd(app *App, use, short string) *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   use + " <id> --by <span>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			d, err := parseSpan(by)
			if err != nil {
				return writeErr(cmd, err)
			}
			if d == 0 {
				return writeErr(cmd, errors.New("--by must not be zero"))
			}
			e, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			p, release, err := e.loadPage(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer release()

			var saved model.ScheduleItem
			if use == "resize" {
				saved, err = p.ResizeBy(ctx, id, d)
			} else {
				saved, err = p.MoveBy(ctx, id, d)
			}
			if errors.Is(err, calendar.ErrUnknownEvent) {
				return writeErr(cmd, errNotFound("item", id))
			} else if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, saved)
		},
	}

	cmd.Flags().StringVar(&by, "by", "", "Span, e.g. 30m, -1h, 1d, 1w")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}
