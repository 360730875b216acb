// Package calendar owns the authoritative in-memory event list and reconciles
// it with user actions: loading, the add/edit modal, deletion and
// move/resize with revert on failure.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"schedule-cli/internal/api"
	"schedule-cli/internal/form"
	"schedule-cli/internal/log"
	"schedule-cli/internal/model"
	"schedule-cli/internal/session"
)

var (
	ErrModalOpen    = errors.New("a form is already open")
	ErrNoModal      = errors.New("no form is open")
	ErrNotEditing   = errors.New("delete is only available when editing an event")
	ErrNotConfirmed = errors.New("delete not confirmed")
	ErrBusy         = errors.New("another change is still in progress")
	ErrUnknownEvent = errors.New("event not found")
	ErrInvalidRange = errors.New("end must be after start")
	ErrReset        = errors.New("calendar was reset while the change was in flight")
)

// Service is the subset of the schedule API the page needs.
type Service interface {
	ListItems(ctx context.Context) ([]model.ScheduleItem, error)
	CreateItem(ctx context.Context, it model.ScheduleItem) (*model.ScheduleItem, error)
	UpdateItem(ctx context.Context, id int64, it model.ScheduleItem) (*model.ScheduleItem, error)
	DeleteItem(ctx context.Context, id int64) error
}

// Snapshots caches the last successful fetch for startup.
type Snapshots interface {
	SaveSnapshot(ctx context.Context, items []model.ScheduleItem) error
	LoadSnapshot(ctx context.Context) ([]model.ScheduleItem, time.Time, error)
}

// snapshotClearer is implemented by caches that can forget their snapshot.
type snapshotClearer interface {
	Clear(ctx context.Context) error
}

// ModalState is Closed (Open=false) or Open in create or edit mode.
type ModalState struct {
	Open             bool
	Mode             form.Mode
	EventID          int64
	Day              model.WallTime
	ConfirmingDelete bool
}

type Option func(*Page)

func WithSnapshots(s Snapshots) Option {
	return func(p *Page) { p.snaps = s }
}

// WithClock sets the time source used to stamp notices.
func WithClock(now func() time.Time) Option {
	return func(p *Page) {
		if now != nil {
			p.now = now
		}
	}
}

// Page is safe for concurrent use. Network calls are made without holding
// the lock.
type Page struct {
	svc   Service
	snaps Snapshots
	now   func() time.Time

	// snapMu orders snapshot writes against the clear in Reset.
	snapMu sync.Mutex

	mu sync.Mutex
	// gen is bumped by Reset. Results of calls started under an older
	// generation are dropped.
	gen        uint64
	events     []model.CalendarEvent
	loaded     bool
	stale      bool
	fetchedAt  time.Time
	modal      ModalState
	busy       bool
	notice     *Notice
	noticeSeq  uint64
	needsLogin bool
}

func New(svc Service, opts ...Option) *Page {
	p := &Page{svc: svc, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load fetches all events. On failure the previous list is kept, a notice is
// set and the error is returned; there is no automatic retry.
func (p *Page) Load(ctx context.Context) error {
	gen := p.generation()
	items, err := p.svc.ListItems(ctx)
	if err != nil {
		if p.generation() != gen {
			return err
		}
		p.fail("load events", "Could not load events", err)
		return err
	}
	if !p.replace(gen, items) {
		log.Debug("dropped events fetched before reset", "count", len(items))
		return nil
	}
	p.saveSnapshot(ctx, gen, items)
	log.Debug("events loaded", "count", len(items))
	return nil
}

func (p *Page) generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// LoadCached seeds the list from the last snapshot. It does nothing once a
// live fetch has succeeded.
func (p *Page) LoadCached(ctx context.Context) error {
	if p.snaps == nil {
		return nil
	}
	gen := p.generation()
	items, savedAt, err := p.snaps.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen || p.loaded || items == nil {
		return nil
	}
	p.events = sortedEvents(items)
	p.stale = true
	p.fetchedAt = savedAt
	return nil
}

// replace installs a fetched list unless the page was reset since gen.
func (p *Page) replace(gen uint64, items []model.ScheduleItem) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return false
	}
	p.events = sortedEvents(items)
	p.loaded = true
	p.stale = false
	p.fetchedAt = p.now()
	p.needsLogin = false
	return true
}

func sortedEvents(items []model.ScheduleItem) []model.CalendarEvent {
	evs := model.Events(items)
	model.SortEvents(evs)
	return evs
}

func (p *Page) saveSnapshot(ctx context.Context, gen uint64, items []model.ScheduleItem) {
	if p.snaps == nil {
		return
	}
	p.snapMu.Lock()
	defer p.snapMu.Unlock()
	if p.generation() != gen {
		return
	}
	if err := p.snaps.SaveSnapshot(ctx, items); err != nil {
		log.Warn("save snapshot", "err", err)
	}
}

func (p *Page) snapshotCurrent(ctx context.Context, gen uint64) {
	if p.snaps == nil {
		return
	}
	p.mu.Lock()
	items := make([]model.ScheduleItem, 0, len(p.events))
	for _, ev := range p.events {
		items = append(items, ev.Item())
	}
	p.mu.Unlock()
	p.saveSnapshot(ctx, gen, items)
}

// OpenCreate opens the add form pre-filled with day.
func (p *Page) OpenCreate(day model.WallTime) (form.Form, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.modal.Open {
		return form.Form{}, ErrModalOpen
	}
	p.modal = ModalState{Open: true, Mode: form.ModeCreate, Day: day.Day()}
	return form.NewCreate(day), nil
}

// OpenEdit opens the edit form pre-filled from event id.
func (p *Page) OpenEdit(id int64) (form.Form, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.modal.Open {
		return form.Form{}, ErrModalOpen
	}
	i := p.indexLocked(id)
	if i < 0 {
		return form.Form{}, ErrUnknownEvent
	}
	ev := p.events[i]
	p.modal = ModalState{Open: true, Mode: form.ModeEdit, EventID: id, Day: ev.Start.Day()}
	return form.NewEdit(ev.Item()), nil
}

// Close discards the open form, if any.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modal = ModalState{}
}

func (p *Page) Modal() ModalState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modal
}

func (p *Page) acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy {
		return ErrBusy
	}
	p.busy = true
	return nil
}

func (p *Page) release() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

// Busy reports whether a mutation is in flight.
func (p *Page) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}

// Submit validates f and sends it. Invalid forms return form.Errors without
// any network call. On success the server's copy becomes the page's entry
// and the modal closes; on failure the modal stays open and nothing changes.
func (p *Page) Submit(ctx context.Context, f form.Form) (model.ScheduleItem, error) {
	modal := p.Modal()
	if !modal.Open {
		return model.ScheduleItem{}, ErrNoModal
	}
	if f.Mode != modal.Mode || (f.Mode == form.ModeEdit && f.ID != modal.EventID) {
		return model.ScheduleItem{}, fmt.Errorf("form does not match the open %s modal", modal.Mode)
	}
	payload, err := f.Submit()
	if err != nil {
		return model.ScheduleItem{}, err
	}
	if err := p.acquire(); err != nil {
		return model.ScheduleItem{}, err
	}
	defer p.release()
	gen := p.generation()

	var saved *model.ScheduleItem
	if f.Mode == form.ModeEdit {
		saved, err = p.svc.UpdateItem(ctx, f.ID, payload)
	} else {
		saved, err = p.svc.CreateItem(ctx, payload)
	}
	if p.generation() != gen {
		return model.ScheduleItem{}, ErrReset
	}
	if err != nil {
		verb := "create"
		if f.Mode == form.ModeEdit {
			verb = "update"
		}
		p.fail(verb+" event", fmt.Sprintf("Could not %s %q", verb, payload.Title), err)
		return model.ScheduleItem{}, err
	}

	result := payload
	refreshed := true
	if saved != nil {
		result = *saved
		if !p.apply(gen, func() { p.upsertLocked(result) }) {
			return result, ErrReset
		}
		p.snapshotCurrent(ctx, gen)
	} else if rerr := p.reconcile(ctx, gen); rerr != nil {
		log.Warn("reconcile after save", "err", rerr)
		refreshed = false
	} else if f.Mode == form.ModeCreate {
		result = p.findCreated(payload)
	} else if ev, ok := p.Event(f.ID); ok {
		result = ev.Item()
	}

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return result, ErrReset
	}
	p.modal = ModalState{}
	if refreshed {
		verb := "Created"
		if f.Mode == form.ModeEdit {
			verb = "Updated"
		}
		p.setNoticeLocked(NoticeSuccess, fmt.Sprintf("%s %q", verb, result.Title))
	}
	p.mu.Unlock()
	return result, nil
}

// reconcile refetches once after a write the service only acknowledged.
func (p *Page) reconcile(ctx context.Context, gen uint64) error {
	items, err := p.svc.ListItems(ctx)
	if p.generation() != gen {
		return ErrReset
	}
	if err != nil {
		p.mu.Lock()
		p.setNoticeLocked(NoticeWarning, "Saved, but the calendar could not be refreshed")
		p.mu.Unlock()
		p.noteAuth(err)
		return err
	}
	if !p.replace(gen, items) {
		return ErrReset
	}
	p.saveSnapshot(ctx, gen, items)
	return nil
}

// findCreated picks the newest entry matching the submitted payload.
func (p *Page) findCreated(payload model.ScheduleItem) model.ScheduleItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	var best *model.CalendarEvent
	for i := range p.events {
		ev := &p.events[i]
		if ev.Title == payload.Title && ev.Start.Equal(payload.StartTime) && ev.End.Equal(payload.EndTime) {
			if best == nil || ev.ID > best.ID {
				best = ev
			}
		}
	}
	if best == nil {
		return payload
	}
	return best.Item()
}

// RequestDelete arms the delete confirmation of the open edit modal.
func (p *Page) RequestDelete() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.modal.Open || p.modal.Mode != form.ModeEdit {
		return ErrNotEditing
	}
	p.modal.ConfirmingDelete = true
	return nil
}

func (p *Page) CancelDelete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modal.ConfirmingDelete = false
}

// ConfirmDelete deletes the event of the open edit modal. It requires a prior
// RequestDelete.
func (p *Page) ConfirmDelete(ctx context.Context) error {
	p.mu.Lock()
	modal := p.modal
	p.mu.Unlock()
	if !modal.Open || modal.Mode != form.ModeEdit {
		return ErrNotEditing
	}
	if !modal.ConfirmingDelete {
		return ErrNotConfirmed
	}
	if err := p.acquire(); err != nil {
		return err
	}
	defer p.release()
	gen := p.generation()

	title := ""
	if ev, ok := p.Event(modal.EventID); ok {
		title = ev.Title
	}
	err := p.svc.DeleteItem(ctx, modal.EventID)
	if p.generation() != gen {
		return ErrReset
	}
	if err != nil {
		p.mu.Lock()
		p.modal.ConfirmingDelete = false
		p.mu.Unlock()
		p.fail("delete event", fmt.Sprintf("Could not delete %q", title), err)
		return err
	}

	if !p.apply(gen, func() {
		p.removeLocked(modal.EventID)
		p.modal = ModalState{}
		p.setNoticeLocked(NoticeSuccess, fmt.Sprintf("Deleted %q", title))
	}) {
		return ErrReset
	}
	p.snapshotCurrent(ctx, gen)
	return nil
}

// Reschedule moves event id to [start, end). The view changes immediately;
// if the service rejects the change the previous times are restored.
func (p *Page) Reschedule(ctx context.Context, id int64, start, end model.WallTime) (model.ScheduleItem, error) {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return model.ScheduleItem{}, ErrInvalidRange
	}
	if err := p.acquire(); err != nil {
		return model.ScheduleItem{}, err
	}
	defer p.release()

	p.mu.Lock()
	gen := p.gen
	i := p.indexLocked(id)
	if i < 0 {
		p.mu.Unlock()
		return model.ScheduleItem{}, ErrUnknownEvent
	}
	prev := p.events[i]
	moved := prev
	moved.Start, moved.End = start, end
	p.events[i] = moved
	model.SortEvents(p.events)
	p.mu.Unlock()

	saved, err := p.svc.UpdateItem(ctx, id, moved.Item())
	if p.generation() != gen {
		return moved.Item(), ErrReset
	}
	if err != nil {
		p.mu.Lock()
		if j := p.indexLocked(id); j >= 0 {
			p.events[j] = prev
			model.SortEvents(p.events)
		}
		p.mu.Unlock()
		p.fail("reschedule event", fmt.Sprintf("Could not move %q; change reverted", prev.Title), err)
		return prev.Item(), err
	}

	result := moved.Item()
	if saved != nil {
		result = *saved
		if !p.apply(gen, func() { p.upsertLocked(result) }) {
			return result, ErrReset
		}
	}
	p.snapshotCurrent(ctx, gen)
	return result, nil
}

// MoveBy shifts event id by d, keeping its duration.
func (p *Page) MoveBy(ctx context.Context, id int64, d time.Duration) (model.ScheduleItem, error) {
	ev, ok := p.Event(id)
	if !ok {
		return model.ScheduleItem{}, ErrUnknownEvent
	}
	return p.Reschedule(ctx, id, ev.Start.Add(d), ev.End.Add(d))
}

// ResizeBy moves the end of event id by d. The end never reaches the start.
func (p *Page) ResizeBy(ctx context.Context, id int64, d time.Duration) (model.ScheduleItem, error) {
	ev, ok := p.Event(id)
	if !ok {
		return model.ScheduleItem{}, ErrUnknownEvent
	}
	return p.Reschedule(ctx, id, ev.Start, ev.End.Add(d))
}

// fail logs err, sets an error notice and records session expiry.
func (p *Page) fail(op, msg string, err error) {
	log.Error(op+" failed", err)
	if p.noteAuth(err) {
		return
	}
	p.mu.Lock()
	p.setNoticeLocked(NoticeError, msg+": "+err.Error())
	p.mu.Unlock()
}

func (p *Page) noteAuth(err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) && !errors.Is(err, session.ErrNotLoggedIn) {
		return false
	}
	p.mu.Lock()
	p.needsLogin = true
	p.modal = ModalState{}
	p.setNoticeLocked(NoticeWarning, "Session expired; please log in again")
	p.mu.Unlock()
	return true
}

// NeedsLogin reports whether the last call failed because the session ended.
func (p *Page) NeedsLogin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.needsLogin
}

// apply runs fn under the lock unless the page was reset since gen.
func (p *Page) apply(gen uint64, fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return false
	}
	fn()
	return true
}

// Reset drops all state and the snapshot, e.g. after logout. Calls still in
// flight finish without touching the page or the cache.
func (p *Page) Reset() {
	p.mu.Lock()
	p.gen++
	p.resetLocked()
	p.mu.Unlock()

	if c, ok := p.snaps.(snapshotClearer); ok {
		p.snapMu.Lock()
		if err := c.Clear(context.Background()); err != nil {
			log.Warn("clear snapshot", "err", err)
		}
		p.snapMu.Unlock()
	}
}

func (p *Page) resetLocked() {
	p.events = nil
	p.loaded = false
	p.stale = false
	p.fetchedAt = time.Time{}
	p.modal = ModalState{}
	p.notice = nil
	p.needsLogin = false
}

func (p *Page) setNoticeLocked(kind NoticeKind, msg string) {
	p.noticeSeq++
	p.notice = &Notice{Kind: kind, Message: msg, At: p.now(), Seq: p.noticeSeq}
}

// SetNotice replaces the banner.
func (p *Page) SetNotice(kind NoticeKind, msg string) Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setNoticeLocked(kind, msg)
	return *p.notice
}

func (p *Page) Notice() (Notice, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notice == nil {
		return Notice{}, false
	}
	return *p.notice, true
}

func (p *Page) DismissNotice() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notice = nil
}

// DismissNoticeSeq dismisses the banner only if it is still notice seq.
func (p *Page) DismissNoticeSeq(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notice != nil && p.notice.Seq == seq {
		p.notice = nil
	}
}

func (p *Page) indexLocked(id int64) int {
	for i := range p.events {
		if p.events[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *Page) upsertLocked(it model.ScheduleItem) {
	ev := it.Event()
	if i := p.indexLocked(it.ID); i >= 0 {
		p.events[i] = ev
	} else {
		p.events = append(p.events, ev)
	}
	model.SortEvents(p.events)
}

func (p *Page) removeLocked(id int64) {
	if i := p.indexLocked(id); i >= 0 {
		p.events = append(p.events[:i], p.events[i+1:]...)
	}
}
