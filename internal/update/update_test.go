package update

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/taskmaster/internal/clock"
	"github.com/sandeepkv93/taskmaster/internal/model"
	"github.com/sandeepkv93/taskmaster/internal/scheduler"
	"github.com/sandeepkv93/taskmaster/internal/service"
	"github.com/sandeepkv93/taskmaster/internal/storage"
)

var start = time.Date(2026, 2, 9, 8, 10, 0, 0, time.UTC)

func newService(t *testing.T) *service.Service {
	t.Helper()
	repo, err := storage.Open(storage.DriverPure, filepath.Join(t.TempDir(), "tui.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return service.New(repo, clock.NewFrozen(start), time.UTC)
}

func addTask(t *testing.T, svc *service.Service, in service.TaskInput) model.Task {
	t.Helper()
	task, err := svc.AddTask(context.Background(), in)
	if err != nil {
		t.Fatalf("add %q: %v", in.Title, err)
	}
	return task
}

// loaded runs the load command synchronously and feeds its result back.
func loaded(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.loadCmd()()
	lm, ok := msg.(LoadedMsg)
	if !ok {
		t.Fatalf("expected LoadedMsg, got %T", msg)
	}
	if lm.Err != nil {
		t.Fatalf("load failed: %v", lm.Err)
	}
	updated, _ := m.Update(lm)
	return updated.(Model)
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(newService(t), nil)
	if m.CurrentView != ViewToday {
		t.Fatalf("expected default view %q, got %q", ViewToday, m.CurrentView)
	}
	if m.Keys.Quit != "q" || !m.Loading {
		t.Fatalf("unexpected defaults: keys=%+v loading=%v", m.Keys, m.Loading)
	}
	if m.Init() == nil {
		t.Fatal("init should start loading")
	}
}

func TestUpdateKeySwitchesView(t *testing.T) {
	m := NewModel(newService(t), nil)
	m = press(t, m, "2")
	if m.CurrentView != ViewStats {
		t.Fatalf("expected stats view, got %q", m.CurrentView)
	}
	m = press(t, m, "3")
	if m.CurrentView != ViewChains {
		t.Fatalf("expected chains view, got %q", m.CurrentView)
	}

	updated, _ := m.Update(SwitchViewMsg{View: View("Unknown")})
	if next := updated.(Model); next.CurrentView != ViewChains {
		t.Fatalf("expected view unchanged for unknown view, got %q", next.CurrentView)
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	m := NewModel(newService(t), nil)
	updated, _ := m.Update(SetStatusMsg{Text: "ready"})
	next := updated.(Model)
	if next.Status.Text != "ready" || next.Status.IsError {
		t.Fatalf("unexpected status: %+v", next.Status)
	}

	updated, _ = next.Update(AppErrorMsg{Err: errors.New("boom")})
	next = updated.(Model)
	if next.LastError == nil || !next.Status.IsError || next.Status.Text != "boom" {
		t.Fatalf("unexpected error state: %+v %v", next.Status, next.LastError)
	}
	if len(next.Notifications) != 1 || next.Notifications[0].Level != "error" {
		t.Fatalf("errors should be recorded as notifications: %+v", next.Notifications)
	}

	updated, _ = next.Update(ClearStatusMsg{})
	if next = updated.(Model); next.Status.Text != "" {
		t.Fatalf("expected cleared status, got: %+v", next.Status)
	}
}

func TestLoadBuildsTimelineAndArmsWakes(t *testing.T) {
	svc := newService(t)
	daily, err := model.EveryXY(1, model.UnitDay)
	if err != nil {
		t.Fatalf("recurrence: %v", err)
	}
	water := addTask(t, svc, service.TaskInput{Title: "Water plants", Recurrence: daily})
	addTask(t, svc, service.TaskInput{Title: "Pay rent", Priority: 4})
	if _, err := svc.Complete(context.Background(), water.ID, service.CompletionInput{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	engine := scheduler.NewEngine(8)
	m := loaded(t, NewModel(svc, engine))
	if m.Loading {
		t.Fatal("loading flag should clear")
	}
	if m.Summary.Total != 2 || m.Summary.Completed != 1 {
		t.Fatalf("unexpected summary: %+v", m.Summary)
	}
	if m.SelectedTaskID != m.Entries[0].Task.ID {
		t.Fatalf("first entry should be selected, got %d", m.SelectedTaskID)
	}
	// one reappear event plus the midnight rollover
	if got := engine.Pending(); got != 2 {
		t.Fatalf("expected 2 pending wake events, got %d", got)
	}

	view := m.View()
	for _, want := range []string{"taskmaster | view: Today", "Pay rent", "Water plants", "1/2 done"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestCompleteAndUndoSelected(t *testing.T) {
	svc := newService(t)
	rent := addTask(t, svc, service.TaskInput{Title: "Pay rent", Priority: 4})
	m := loaded(t, NewModel(svc, nil))

	m = press(t, m, "x")
	if m.Status.IsError || !strings.Contains(m.Status.Text, "done: Pay rent") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	m = loaded(t, m)
	if m.Summary.Completed != 1 || m.SelectedTaskID != rent.ID {
		t.Fatalf("completion not reflected: %+v selected=%d", m.Summary, m.SelectedTaskID)
	}

	m = press(t, m, "x")
	if !m.Status.IsError || !errors.Is(m.LastError, service.ErrAlreadyCompleted) {
		t.Fatalf("second completion should fail: %+v %v", m.Status, m.LastError)
	}

	m = press(t, m, "u")
	if m.Status.IsError || m.Status.Text != "reopened: Pay rent" {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	m = loaded(t, m)
	if m.Summary.Completed != 0 {
		t.Fatalf("undo not reflected: %+v", m.Summary)
	}
}

func TestCursorMovesAndNextSelects(t *testing.T) {
	svc := newService(t)
	low := addTask(t, svc, service.TaskInput{Title: "Low", Priority: 1})
	high := addTask(t, svc, service.TaskInput{Title: "High", Priority: 4})
	m := loaded(t, NewModel(svc, nil))
	if m.SelectedTaskID != high.ID {
		t.Fatalf("highest score should be planned first, got %d", m.SelectedTaskID)
	}
	m = press(t, m, "j", "j")
	if m.Cursor != 1 || m.SelectedTaskID != low.ID {
		t.Fatalf("cursor should stop at the last entry: cursor=%d selected=%d", m.Cursor, m.SelectedTaskID)
	}
	m = press(t, m, "n")
	if m.SelectedTaskID != high.ID || m.Status.Text != "next: High" {
		t.Fatalf("next should select the best task: selected=%d status=%+v", m.SelectedTaskID, m.Status)
	}
}

func TestPaletteAddsTask(t *testing.T) {
	svc := newService(t)
	m := loaded(t, NewModel(svc, nil))

	m = press(t, m, "/")
	if !m.Palette.Active {
		t.Fatal("palette should open on /")
	}
	m = press(t, m, "add stretch p:3 every:1d est:10m")
	if m.Palette.Input != "add stretch p:3 every:1d est:10m" {
		t.Fatalf("palette input not captured: %q", m.Palette.Input)
	}
	m = press(t, m, "enter")
	if m.Palette.Active || m.Status.IsError || !strings.HasPrefix(m.Status.Text, "added #1 stretch") {
		t.Fatalf("unexpected palette result: active=%v status=%+v", m.Palette.Active, m.Status)
	}

	tasks, err := svc.Tasks(context.Background())
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Priority != 3 || tasks[0].EstimatedDuration != 10*time.Minute || !tasks[0].IsRecurring() {
		t.Fatalf("unexpected stored task: %+v", tasks)
	}
}

func TestPaletteErrors(t *testing.T) {
	svc := newService(t)
	addTask(t, svc, service.TaskInput{Title: "wash", ChainID: 1, ChainOrder: 1})
	dry := addTask(t, svc, service.TaskInput{Title: "dry", ChainID: 1, ChainOrder: 2})
	m := loaded(t, NewModel(svc, nil))

	run := func(m Model, input string) Model {
		t.Helper()
		m = press(t, m, "/")
		m.commandInput.SetValue(input)
		return press(t, m, "enter")
	}

	m = run(m, "frobnicate")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "unknown_command") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	m = run(m, "done #"+strconv.FormatInt(dry.ID, 10))
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "waiting on the previous chain step") {
		t.Fatalf("blocked completion should be explained: %+v", m.Status)
	}
	m = run(m, "add x due:someday")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "invalid_argument") {
		t.Fatalf("bad due date should be rejected: %+v", m.Status)
	}

	m = press(t, m, "/", "esc")
	if m.Palette.Active || m.Status.Text != "command palette closed" {
		t.Fatalf("esc should close the palette: %+v", m.Status)
	}
}

func TestPalettePreviewAndStats(t *testing.T) {
	svc := newService(t)
	daily, err := model.EveryXY(1, model.UnitDay)
	if err != nil {
		t.Fatalf("recurrence: %v", err)
	}
	addTask(t, svc, service.TaskInput{Title: "Journal", Recurrence: daily})
	m := loaded(t, NewModel(svc, nil))

	m = press(t, m, "/")
	m.commandInput.SetValue("preview selected 2")
	m = press(t, m, "enter")
	if len(m.Preview) != 2 || m.Preview[0] != "tomorrow 08:10" {
		t.Fatalf("unexpected preview: %v (status %+v)", m.Preview, m.Status)
	}
	if !strings.Contains(m.View(), "upcoming:") {
		t.Fatal("preview should be shown next to the details")
	}

	m = press(t, m, "/")
	m.commandInput.SetValue("stats")
	m = press(t, m, "enter")
	if m.CurrentView != ViewStats || m.Status.Text != "stats: 0/1 done, 0 today" {
		t.Fatalf("unexpected stats result: view=%s status=%+v", m.CurrentView, m.Status)
	}
}

func TestWakeMsgTriggersReload(t *testing.T) {
	m := loaded(t, NewModel(newService(t), scheduler.NewEngine(4)))
	updated, cmd := m.Update(WakeMsg{Event: scheduler.WakeEvent{TaskID: 7, Title: "Stretch", Reason: scheduler.WakeReappear, At: start}})
	next := updated.(Model)
	if !next.Loading || cmd == nil {
		t.Fatal("wake should start a reload")
	}
	if len(next.Notifications) == 0 || !strings.Contains(next.Notifications[len(next.Notifications)-1].Body, `"Stretch" is due again`) {
		t.Fatalf("missing wake notification: %+v", next.Notifications)
	}
}

func TestHelpToggle(t *testing.T) {
	m := loaded(t, NewModel(newService(t), nil))
	m = press(t, m, "?")
	if !m.HelpVisible || !strings.Contains(m.View(), "complete selected") {
		t.Fatal("help should list the today bindings")
	}
	m = press(t, m, "?")
	if m.HelpVisible {
		t.Fatal("help should toggle off")
	}
}
