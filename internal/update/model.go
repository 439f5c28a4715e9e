package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/sandeepkv93/taskmaster/internal/model"
	"github.com/sandeepkv93/taskmaster/internal/scheduler"
	"github.com/sandeepkv93/taskmaster/internal/scoring"
	"github.com/sandeepkv93/taskmaster/internal/service"
	"github.com/sandeepkv93/taskmaster/internal/stats"
)

type View string

const (
	ViewToday  View = "Today"
	ViewStats  View = "Stats"
	ViewChains View = "Chains"
)

// Backend is the part of service.Service the TUI drives.
type Backend interface {
	Now() time.Time
	Location() *time.Location
	Tasks(ctx context.Context) ([]model.Task, error)
	Plan(ctx context.Context) (service.Plan, error)
	Stats(ctx context.Context) (stats.Report, error)
	AddTask(ctx context.Context, in service.TaskInput) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64, in service.CompletionInput) (service.CompletionResult, error)
	Uncomplete(ctx context.Context, id int64) (model.Task, error)
	Next(ctx context.Context) (model.Task, bool, error)
	Preview(ctx context.Context, id int64, n int) ([]time.Time, error)
	WakeEvents(tasks []model.Task, now time.Time) []scheduler.WakeEvent
}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Today  string
	Stats  string
	Chains string
	Help   string
	Quit   string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type Model struct {
	CurrentView    View
	SelectedTaskID int64
	Cursor         int
	Entries        []scheduler.TimelineEntry
	Summary        scheduler.Summary
	Tasks          []model.Task
	Report         stats.Report
	Preview        []string
	Wake           *scheduler.Engine
	Palette        CommandPaletteState
	HelpVisible    bool
	Notifications  []Notification
	Status         StatusBar
	Keys           GlobalKeyMap
	Loading        bool
	Quitting       bool
	LastError      error

	backend Backend
	scorer  *scoring.Scorer
	width   int
	height  int
	// Bubble components
	commandInput  textinput.Model
	loadSpinner   spinner.Model
	helpModel     help.Model
	dayProgress   progress.Model
	statsViewport viewport.Model
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// LoadedMsg carries a fresh read of the task list.
type LoadedMsg struct {
	Plan   service.Plan
	Tasks  []model.Task
	Report stats.Report
	Err    error
}

type WakeMsg struct {
	Event scheduler.WakeEvent
}

// NewModel builds the TUI over backend. wake may be nil, in which case the
// task list is only re-read after user actions.
func NewModel(backend Backend, wake *scheduler.Engine) Model {
	m := Model{
		CurrentView: ViewToday,
		Wake:        wake,
		Loading:     true,
		Keys: GlobalKeyMap{
			Today:  "1",
			Stats:  "2",
			Chains: "3",
			Help:   "?",
			Quit:   "q",
		},
		backend: backend,
		scorer:  scoring.NewScorer(backend.Location()),
	}
	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.Placeholder = "add water plants every:2d"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.loadSpinner = spinner.New()
	m.loadSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
	m.dayProgress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	m.statsViewport = viewport.New(56, 18)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	pane := width/2 - 4
	if pane < 30 {
		pane = 30
	}
	m.commandInput.Width = pane - 2
	m.dayProgress.Width = pane - 2
	m.statsViewport.Width = pane
	if height > 10 {
		m.statsViewport.Height = height - 10
	}
	m.statsViewport.SetContent(m.renderStatsContent())
}

func (m Model) ctx() context.Context {
	return context.Background()
}

func (m Model) selectedTask() (model.Task, bool) {
	for _, task := range m.Tasks {
		if task.ID == m.SelectedTaskID {
			return task, true
		}
	}
	return model.Task{}, false
}

func isKnownView(v View) bool {
	switch v {
	case ViewToday, ViewStats, ViewChains:
		return true
	default:
		return false
	}
}
