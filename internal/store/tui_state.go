package store

import (
	"encoding/json"
	"errors"
	"os"
)

const tuiStateFileName = "tui_state.json"

// TUIState restores the calendar where the user left it. It is best effort:
// a missing or corrupt file yields the zero state.
type TUIState struct {
	Version int `json:"version"`

	// Date is the focused day, YYYY-MM-DD.
	Date string `json:"date,omitempty"`

	// View is day or week.
	View string `json:"view,omitempty"`

	SelectedID int64 `json:"selectedId,omitempty"`
}

func (s Store) LoadTUIState() (*TUIState, error) {
	b, err := os.ReadFile(s.path(tuiStateFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &TUIState{Version: 1}, nil
		}
		return nil, err
	}
	var st TUIState
	if err := json.Unmarshal(b, &st); err != nil {
		return &TUIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (s Store) SaveTUIState(st *TUIState) error {
	if st == nil {
		return nil
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(s.Dir, "tui_state.json.*.tmp", s.path(tuiStateFileName), b, 0o644)
}
