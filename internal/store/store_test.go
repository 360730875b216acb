package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"schedule-cli/internal/model"
)

func TestDefaultDirHonorsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCHEDULE_CONFIG_DIR", dir)

	s, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Dir != dir {
		t.Fatalf("Dir = %q, want %q", s.Dir, dir)
	}
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	s := Store{Dir: t.TempDir()}
	cfg, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server != DefaultServer || cfg.Timeout != DefaultTimeout || cfg.Theme != "auto" || cfg.WeekStart != "monday" || cfg.SlotMinutes != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Slot() != 30*time.Minute || cfg.FirstWeekday() != time.Monday {
		t.Fatalf("unexpected derived values")
	}
}

func TestSaveConfig_RoundTripAndBackup(t *testing.T) {
	t.Parallel()

	s := Store{Dir: t.TempDir()}
	cfg := DefaultConfig()
	if err := cfg.Set("server", "https://cal.example.com/"); err != nil {
		t.Fatalf("Set server: %v", err)
	}
	if err := cfg.Set("timeout", "5s"); err != nil {
		t.Fatalf("Set timeout: %v", err)
	}
	if err := cfg.Set("theme", "dark"); err != nil {
		t.Fatalf("Set theme: %v", err)
	}
	if err := s.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	b, err := os.ReadFile(s.ConfigPath())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(b), "timeout: 5s") || !strings.Contains(string(b), "theme: dark") {
		t.Fatalf("unexpected yaml:\n%s", b)
	}
	st, _ := os.Stat(s.ConfigPath())
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("perm = %v", st.Mode().Perm())
	}

	cfg.SlotMinutes = 15
	if err := s.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig (2): %v", err)
	}
	if _, err := os.Stat(s.ConfigPath() + ".bak"); err != nil {
		t.Fatalf("expected .bak of previous config: %v", err)
	}

	got, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Server != "https://cal.example.com" || got.Timeout != 5*time.Second || got.Theme != "dark" || got.SlotMinutes != 15 {
		t.Fatalf("unexpected loaded config: %+v", got)
	}
}

func TestConfigSetRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, kv := range [][2]string{
		{"timeout", "soon"},
		{"theme", "blue"},
		{"week_start", "friday"},
		{"slot_minutes", "0"},
		{"log_level", "loud"},
		{"colour", "red"},
	} {
		if err := cfg.Set(kv[0], kv[1]); err == nil {
			t.Fatalf("Set(%q, %q): expected error", kv[0], kv[1])
		}
	}
}

func TestLoadConfig_NormalizesUnknownValues(t *testing.T) {
	t.Parallel()

	s := Store{Dir: t.TempDir()}
	raw := "server: http://x:9000/\ntheme: neon\nweek_start: sunday\nslot_minutes: -4\n"
	if err := os.WriteFile(filepath.Join(s.Dir, "config.yaml"), []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server != "http://x:9000" || cfg.Theme != "auto" || cfg.FirstWeekday() != time.Sunday || cfg.SlotMinutes != DefaultSlotMinutes {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestTUIState_SaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	s := Store{Dir: t.TempDir()}
	st0, err := s.LoadTUIState()
	if err != nil {
		t.Fatalf("LoadTUIState: %v", err)
	}
	if st0 == nil || st0.Version != 1 {
		t.Fatalf("expected default Version=1; got %#v", st0)
	}

	want := &TUIState{Version: 1, Date: "2024-01-02", View: "week", SelectedID: 7}
	if err := s.SaveTUIState(want); err != nil {
		t.Fatalf("SaveTUIState: %v", err)
	}
	got, err := s.LoadTUIState()
	if err != nil {
		t.Fatalf("LoadTUIState (after save): %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("roundtrip mismatch:\nwant: %#v\ngot:  %#v", want, got)
	}

	if err := os.WriteFile(filepath.Join(s.Dir, tuiStateFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, err := s.LoadTUIState(); err != nil || got.Version != 1 || got.Date != "" {
		t.Fatalf("corrupt state should read as default; got %#v err=%v", got, err)
	}
}

func TestCacheSnapshots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := Store{Dir: t.TempDir()}
	c, err := s.OpenCache(ctx)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer c.Close()

	items, _, err := c.LoadSnapshot(ctx, "http://a")
	if err != nil || items != nil {
		t.Fatalf("expected no snapshot; items=%v err=%v", items, err)
	}

	late := model.ScheduleItem{ID: 2, Title: "Late", Type: "t", Location: "l", StartTime: model.At(2024, 1, 1, 18, 0), EndTime: model.At(2024, 1, 1, 19, 0), Priority: model.PriorityLow}
	early := model.ScheduleItem{ID: 1, Title: "Early", Type: "t", Location: "l", StartTime: model.At(2024, 1, 1, 8, 0), EndTime: model.At(2024, 1, 1, 9, 0), Priority: model.PriorityHigh}
	if err := c.SaveSnapshot(ctx, "http://a/", []model.ScheduleItem{late, early}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := c.SaveSnapshot(ctx, "http://b", []model.ScheduleItem{late}); err != nil {
		t.Fatalf("SaveSnapshot b: %v", err)
	}

	got, savedAt, err := c.For("http://a").LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got) != 2 || got[0] != early || got[1] != late {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if time.Since(savedAt) > time.Minute {
		t.Fatalf("unexpected savedAt %v", savedAt)
	}

	if err := c.SaveSnapshot(ctx, "http://a", nil); err != nil {
		t.Fatalf("SaveSnapshot empty: %v", err)
	}
	got, _, _ = c.LoadSnapshot(ctx, "http://a")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil snapshot; got %#v", got)
	}

	if err := c.For("http://b").Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _, _ := c.LoadSnapshot(ctx, "http://b"); got != nil {
		t.Fatalf("expected snapshot cleared; got %+v", got)
	}
}
