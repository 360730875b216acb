package tui

import "github.com/charmbracelet/bubbles/key"

type calendarKeys struct {
	PrevDay     key.Binding
	NextDay     key.Binding
	PrevWeek    key.Binding
	NextWeek    key.Binding
	Down        key.Binding
	Up          key.Binding
	Today       key.Binding
	New         key.Binding
	Edit        key.Binding
	MoveEarlier key.Binding
	MoveLater   key.Binding
	SlotEarlier key.Binding
	SlotLater   key.Binding
	Shorten     key.Binding
	Lengthen    key.Binding
	Refresh     key.Binding
	ToggleDark  key.Binding
	Settings    key.Binding
	Logout      key.Binding
	Dismiss     key.Binding
	Quit        key.Binding
}

func newCalendarKeys() calendarKeys {
	b := func(help, desc string, keys ...string) key.Binding {
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
	}
	return calendarKeys{
		PrevDay:     b("h", "prev day", "h", "left"),
		NextDay:     b("l", "next day", "l", "right"),
		PrevWeek:    b("H", "prev week", "H"),
		NextWeek:    b("L", "next week", "L"),
		Down:        b("j", "next event", "j", "down"),
		Up:          b("k", "prev event", "k", "up"),
		Today:       b("t", "today", "t"),
		New:         b("n", "new", "n"),
		Edit:        b("enter", "edit", "enter"),
		MoveEarlier: b("<", "-1 day", "<"),
		MoveLater:   b(">", "+1 day", ">"),
		SlotEarlier: b("[", "earlier", "["),
		SlotLater:   b("]", "later", "]"),
		Shorten:     b("{", "shorter", "{"),
		Lengthen:    b("}", "longer", "}"),
		Refresh:     b("r", "refresh", "r"),
		ToggleDark:  b("D", "dark mode", "D"),
		Settings:    b("u", "account", "u"),
		Logout:      b("O", "log out", "O"),
		Dismiss:     b("x", "dismiss", "x"),
		Quit:        b("q", "quit", "q", "ctrl+c"),
	}
}

func (k calendarKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevDay, k.NextDay, k.Down, k.Up, k.New, k.Edit, k.MoveLater, k.SlotLater, k.Lengthen, k.Refresh, k.ToggleDark, k.Settings, k.Logout, k.Quit}
}

func (k calendarKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevDay, k.NextDay, k.PrevWeek, k.NextWeek, k.Today},
		{k.Down, k.Up, k.New, k.Edit},
		{k.MoveEarlier, k.MoveLater, k.SlotEarlier, k.SlotLater, k.Shorten, k.Lengthen},
		{k.Refresh, k.ToggleDark, k.Settings, k.Logout, k.Dismiss, k.Quit},
	}
}
