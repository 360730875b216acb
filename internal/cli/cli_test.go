package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"schedule-cli/internal/apitest"
	"schedule-cli/internal/ics"
	"schedule-cli/internal/model"
	"schedule-cli/internal/session"
	"schedule-cli/internal/store"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "secret1"
)

// cliEnv points the CLI at a fresh config dir and a fake service. The token
// goes to a file so tests never touch the OS keyring.
func cliEnv(t *testing.T) *apitest.Server {
	t.Helper()
	t.Setenv("SCHEDULE_CONFIG_DIR", t.TempDir())
	t.Setenv("SCHEDULE_TOKEN_STORE", "file")
	t.Setenv("SCHEDULE_SERVER", "")
	t.Setenv("SCHEDULE_FORMAT", "")
	srv := apitest.New(t)
	srv.AddUser(testEmail, testPassword)
	return srv
}

func runCLI(t *testing.T, srv *apitest.Server, stdin string, args ...string) ([]byte, []byte, error) {
	t.Helper()

	cmd := NewRootCmd()
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(stdin))
	if srv != nil {
		args = append([]string{"--server", srv.URL}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

func mustRun(t *testing.T, srv *apitest.Server, stdin string, args ...string) []byte {
	t.Helper()
	out, errOut, err := runCLI(t, srv, stdin, args...)
	if err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, err, string(errOut))
	}
	return out
}

func decodeData[T any](t *testing.T, out []byte) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("decode %q: %v", string(out), err)
	}
	return env.Data
}

func login(t *testing.T, srv *apitest.Server) {
	t.Helper()
	out := mustRun(t, srv, testPassword+"\n", "login", "--email", testEmail, "--password-stdin")
	got := decodeData[map[string]any](t, out)
	if got["loggedIn"] != true {
		t.Fatalf("expected loggedIn=true, got %v", got)
	}
}

// snapshotLen reports how many items the local cache holds for srv, or -1
// when there is no snapshot.
func snapshotLen(t *testing.T, srv *apitest.Server) int {
	t.Helper()
	st, err := store.Open(os.Getenv("SCHEDULE_CONFIG_DIR"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	ctx := context.Background()
	c, err := st.OpenCache(ctx)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer c.Close()
	items, _, err := c.LoadSnapshot(ctx, srv.URL)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if items == nil {
		return -1
	}
	return len(items)
}

func TestItems_AddEditMoveDelete(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	out := mustRun(t, srv, "", "items", "add",
		"--title", "Standup", "--type", "work", "--location", "Room 1",
		"--start", "2024-01-03 09:00", "--end", "2024-01-03 09:15", "--priority", "high")
	added := decodeData[model.ScheduleItem](t, out)
	if added.ID == 0 || added.Title != "Standup" || added.Priority != model.PriorityHigh {
		t.Fatalf("unexpected added item: %+v", added)
	}

	out = mustRun(t, srv, "", "items", "list", "--from", "2024-01-03", "--to", "2024-01-03")
	if items := decodeData[[]model.ScheduleItem](t, out); len(items) != 1 || items[0].ID != added.ID {
		t.Fatalf("expected the new item in a date-only range, got %+v", items)
	}

	out = mustRun(t, srv, "", "items", "edit", "1", "--title", "Daily standup")
	edited := decodeData[model.ScheduleItem](t, out)
	if edited.Title != "Daily standup" || edited.Location != "Room 1" {
		t.Fatalf("edit should change only the title: %+v", edited)
	}

	out = mustRun(t, srv, "", "items", "move", "1", "--by", "30m")
	moved := decodeData[model.ScheduleItem](t, out)
	if !moved.StartTime.Equal(model.At(2024, 1, 3, 9, 30)) {
		t.Fatalf("start after move = %s", moved.StartTime)
	}
	if d := moved.EndTime.Sub(moved.StartTime); d != 15*time.Minute {
		t.Fatalf("move changed the duration to %v", d)
	}

	out = mustRun(t, srv, "", "items", "delete", "1", "--yes")
	if got := decodeData[map[string]any](t, out); got["deleted"] != true {
		t.Fatalf("expected deleted=true, got %v", got)
	}
	if items := srv.Items(testEmail); len(items) != 0 {
		t.Fatalf("expected server to be empty, got %+v", items)
	}
}

func TestItems_AddRejectsInvalidFormBeforeSending(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	_, errOut, err := runCLI(t, srv, "", "items", "add",
		"--title", "", "--type", "work", "--location", "Room 1",
		"--start", "2024-01-03 09:00")
	if err == nil {
		t.Fatalf("expected a validation error")
	}
	if !strings.Contains(string(errOut), "Title") {
		t.Fatalf("expected the title error on stderr, got %q", string(errOut))
	}
	if n := srv.CountRequests("POST", "/api/schedule/add"); n != 0 {
		t.Fatalf("expected no add request, got %d", n)
	}
}

func TestItems_DeleteDeclinedKeepsItem(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)
	srv.Seed(testEmail, model.ScheduleItem{
		Title: "Gym", Type: "health", Location: "Club",
		StartTime: model.At(2024, 1, 4, 18, 0), EndTime: model.At(2024, 1, 4, 19, 0),
	})

	out, errOut, err := runCLI(t, srv, "n\n", "items", "delete", "1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(string(errOut), `Delete "Gym"`) {
		t.Fatalf("expected a prompt on stderr, got %q", string(errOut))
	}
	if got := decodeData[map[string]any](t, out); got["deleted"] != false {
		t.Fatalf("expected deleted=false, got %v", got)
	}
	if n := srv.CountRequests("DELETE", "/api/schedule/delete/"); n != 0 {
		t.Fatalf("expected no delete request, got %d", n)
	}
	if len(srv.Items(testEmail)) != 1 {
		t.Fatalf("item should still exist")
	}
}

func TestItems_UnknownIDIsNotFound(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	_, errOut, err := runCLI(t, srv, "", "items", "edit", "99", "--title", "x")
	var nf notFoundError
	if !errors.As(err, &nf) || nf.id != 99 {
		t.Fatalf("expected notFoundError for 99, got %v", err)
	}
	if !strings.Contains(string(errOut), "item not found: 99") {
		t.Fatalf("unexpected stderr %q", string(errOut))
	}
}

func TestItems_RequiresLogin(t *testing.T) {
	srv := cliEnv(t)

	_, errOut, err := runCLI(t, srv, "", "items", "list")
	if !errors.Is(err, session.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if !strings.Contains(string(errOut), "schedule login") {
		t.Fatalf("expected a login hint, got %q", string(errOut))
	}
	if n := srv.CountRequests("GET", "/api/schedule/list"); n != 0 {
		t.Fatalf("expected no list request without a token, got %d", n)
	}
}

func TestItems_ExpiredSessionClearsToken(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)
	srv.RevokeTokens()

	_, errOut, err := runCLI(t, srv, "", "items", "list")
	if !errors.Is(err, errSessionExpired) {
		t.Fatalf("expected errSessionExpired, got %v", err)
	}
	if !strings.Contains(string(errOut), "session expired") {
		t.Fatalf("unexpected stderr %q", string(errOut))
	}

	_, _, err = runCLI(t, srv, "", "items", "list")
	if !errors.Is(err, session.ErrNotLoggedIn) {
		t.Fatalf("token should be gone after a 401, got %v", err)
	}
}

func TestLogin_WrongPasswordIsNotSessionExpired(t *testing.T) {
	srv := cliEnv(t)

	_, _, err := runCLI(t, srv, "wrong-password\n", "login", "--email", testEmail, "--password-stdin")
	if err == nil {
		t.Fatalf("expected login to fail")
	}
	if errors.Is(err, errSessionExpired) {
		t.Fatalf("a failed login must not read as an expired session: %v", err)
	}
}

func TestLogout_ForgetsToken(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	out := mustRun(t, srv, "", "logout")
	if got := decodeData[map[string]any](t, out); got["loggedIn"] != false {
		t.Fatalf("expected loggedIn=false, got %v", got)
	}
	if _, _, err := runCLI(t, srv, "", "user", "me"); !errors.Is(err, session.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn after logout, got %v", err)
	}
}

func TestLogout_ClearsSnapshot(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)
	srv.Seed(testEmail, model.ScheduleItem{Title: "Standup", Type: "work", Location: "Room 1",
		StartTime: model.At(2024, 1, 3, 9, 0), EndTime: model.At(2024, 1, 3, 9, 15)})

	mustRun(t, srv, "", "sync")
	if n := snapshotLen(t, srv); n != 1 {
		t.Fatalf("expected one cached item after sync, got %d", n)
	}

	mustRun(t, srv, "", "logout")
	if n := snapshotLen(t, srv); n != -1 {
		t.Fatalf("logout left %d cached items behind", n)
	}
}

func TestUser_MeAndUpdate(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	out := mustRun(t, srv, "", "user", "update", "--first-name", "Ada", "--last-name", "Lovelace")
	u := decodeData[model.User](t, out)
	if u.FirstName != "Ada" || u.LastName != "Lovelace" || u.Email != testEmail {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, _, err := runCLI(t, srv, "", "user", "update"); err == nil {
		t.Fatalf("expected an error when nothing changes")
	}
}

func TestRegister_ThenLogin(t *testing.T) {
	srv := cliEnv(t)

	out := mustRun(t, srv, "hunter22\n", "register",
		"--first-name", "Grace", "--last-name", "Hopper", "--email", "grace@example.com",
		"--password-stdin", "--login")
	got := decodeData[map[string]any](t, out)
	if got["registered"] != true || got["loggedIn"] != true {
		t.Fatalf("unexpected register output: %v", got)
	}
	if srv.Password("grace@example.com") != "hunter22" {
		t.Fatalf("account not stored")
	}
}

func TestFormatText_ListsItemsAsTable(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)
	srv.Seed(testEmail, model.ScheduleItem{
		Title: "Standup", Type: "work", Location: "Room 1",
		StartTime: model.At(2024, 1, 3, 9, 0), EndTime: model.At(2024, 1, 3, 9, 15),
	})

	out := string(mustRun(t, srv, "", "--format", "text", "items", "list"))
	for _, want := range []string{"ID", "PRIORITY", "Standup", "2024-01-03", "09:00-09:15", "medium"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in text output:\n%s", want, out)
		}
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("text output should not be JSON:\n%s", out)
	}
}

func TestExport_WritesCalendarToStdout(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)
	srv.Seed(testEmail,
		model.ScheduleItem{Title: "Standup", Type: "work", Location: "Room 1",
			StartTime: model.At(2024, 1, 3, 9, 0), EndTime: model.At(2024, 1, 3, 9, 15)},
		model.ScheduleItem{Title: "Later", Type: "work", Location: "Room 2",
			StartTime: model.At(2024, 3, 1, 9, 0), EndTime: model.At(2024, 3, 1, 10, 0)},
	)

	out := string(mustRun(t, srv, "", "export", "--from", "2024-01-01", "--to", "2024-01-31"))
	for _, want := range []string{"BEGIN:VCALENDAR", "SUMMARY:Standup", "END:VCALENDAR"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in export:\n%s", want, out)
		}
	}
	if strings.Contains(out, "SUMMARY:Later") {
		t.Fatalf("export should honour --to:\n%s", out)
	}
}

func TestImport_DryRunSendsNothing(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)

	var buf bytes.Buffer
	err := ics.Export(&buf, []model.ScheduleItem{
		{Title: "Planning", Type: "work", Location: "Room 1",
			StartTime: model.At(2024, 1, 8, 9, 0), EndTime: model.At(2024, 1, 8, 10, 0)},
		{Title: "Review", Type: "work", Location: "Room 2",
			StartTime: model.At(2024, 1, 9, 9, 0), EndTime: model.At(2024, 1, 9, 10, 0)},
	}, ics.ExportOptions{Name: "Import", Now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	path := filepath.Join(t.TempDir(), "in.ics")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := mustRun(t, srv, "", "import", path, "--from", "2024-01-01", "--horizon", "30d", "--dry-run")
	got := decodeData[map[string]any](t, out)
	if got["parsed"] != float64(2) || got["dryRun"] != true {
		t.Fatalf("unexpected summary: %v", got)
	}
	if n := srv.CountRequests("POST", "/api/schedule/add"); n != 0 {
		t.Fatalf("dry run sent %d add requests", n)
	}

	out = mustRun(t, srv, "", "import", path, "--from", "2024-01-01", "--horizon", "30d")
	if got := decodeData[map[string]any](t, out); got["created"] != float64(2) {
		t.Fatalf("unexpected summary: %v", got)
	}
	if len(srv.Items(testEmail)) != 2 {
		t.Fatalf("expected two items on the server")
	}
	if n := snapshotLen(t, srv); n != 2 {
		t.Fatalf("expected the snapshot to include imported items, got %d", n)
	}
}

func TestSync_RefreshesSnapshot(t *testing.T) {
	srv := cliEnv(t)
	login(t, srv)
	srv.Seed(testEmail, model.ScheduleItem{Title: "Standup", Type: "work", Location: "Room 1",
		StartTime: model.At(2024, 1, 3, 9, 0), EndTime: model.At(2024, 1, 3, 9, 15)})

	out := mustRun(t, srv, "", "sync")
	if got := decodeData[map[string]any](t, out); got["items"] != float64(1) {
		t.Fatalf("unexpected sync output: %v", got)
	}
}

func TestConfig_SetThenShow(t *testing.T) {
	cliEnv(t)

	mustRun(t, nil, "", "config", "set", "slot_minutes", "15")
	out := mustRun(t, nil, "", "config", "show")
	got := decodeData[map[string]string](t, out)
	if got["slot_minutes"] != "15" {
		t.Fatalf("expected slot_minutes=15, got %v", got)
	}
	if !strings.HasSuffix(got["path"], "config.yaml") {
		t.Fatalf("unexpected config path %q", got["path"])
	}

	if _, _, err := runCLI(t, nil, "", "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
}

func TestParseSpan(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30m", want: 30 * time.Minute},
		{in: "-1h", want: -time.Hour},
		{in: "1d", want: 24 * time.Hour},
		{in: "2w", want: 14 * 24 * time.Hour},
		{in: "soon", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseSpan(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseSpan(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("parseSpan(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestParseRange_DateOnlyUpperBoundIsInclusive(t *testing.T) {
	t.Parallel()

	lo, hi, err := parseRange("2024-01-03", "2024-01-03")
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if !lo.Equal(model.At(2024, 1, 3, 0, 0)) || !hi.Equal(model.At(2024, 1, 4, 0, 0)) {
		t.Fatalf("got [%s, %s)", lo, hi)
	}
	if _, _, err := parseRange("2024-01-03 10:00", "2024-01-03 09:00"); err == nil {
		t.Fatalf("expected reversed range to fail")
	}
}
