package update

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/taskmaster/internal/chain"
	"github.com/sandeepkv93/taskmaster/internal/scheduler"
	"github.com/sandeepkv93/taskmaster/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadCmd(), m.loadSpinner.Tick}
	if m.Wake != nil {
		cmds = append(cmds, waitForWakeCmd(m.Wake.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.SetValue("")
			m.commandInput.Focus()
			m.Status = StatusBar{Text: "command palette active"}
			return m, textinputBlink()
		case m.Keys.Today:
			m.CurrentView = ViewToday
			return m, nil
		case m.Keys.Stats:
			m.CurrentView = ViewStats
			return m, nil
		case m.Keys.Chains:
			m.CurrentView = ViewChains
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		case "r":
			return m.reload()
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		switch m.CurrentView {
		case ViewToday:
			return m.handleTodayKey(typed)
		case ViewStats:
			var cmd tea.Cmd
			m.statsViewport, cmd = m.statsViewport.Update(typed)
			return m, cmd
		}
	case tea.WindowSizeMsg:
		m.resize(typed.Width, typed.Height)
		return m, nil
	case spinner.TickMsg:
		if m.Loading {
			var cmd tea.Cmd
			m.loadSpinner, cmd = m.loadSpinner.Update(typed)
			return m, cmd
		}
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	case LoadedMsg:
		m.Loading = false
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: fmt.Sprintf("load failed: %v", typed.Err), IsError: true}
			return m, nil
		}
		m.applyLoaded(typed)
		m.scheduleWakes()
		return m, nil
	case WakeMsg:
		switch typed.Event.Reason {
		case scheduler.WakeRollover:
			m.notify("New day", "a new day started, plan refreshed", "info")
		default:
			m.notify("Back on the list", fmt.Sprintf("%q is due again", typed.Event.Title), "info")
		}
		m.Loading = true
		cmds := []tea.Cmd{m.loadCmd(), m.loadSpinner.Tick}
		if m.Wake != nil {
			cmds = append(cmds, waitForWakeCmd(m.Wake.C()))
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) reload() (Model, tea.Cmd) {
	m.Loading = true
	return m, tea.Batch(m.loadCmd(), m.loadSpinner.Tick)
}

func (m *Model) applyLoaded(msg LoadedMsg) {
	m.Entries = msg.Plan.Entries
	m.Summary = msg.Plan.Summary
	m.Tasks = msg.Tasks
	m.Report = msg.Report
	m.statsViewport.SetContent(m.renderStatsContent())

	m.Cursor = 0
	for i, e := range m.Entries {
		if e.Task.ID == m.SelectedTaskID {
			m.Cursor = i
			break
		}
	}
	m.syncSelectedTaskToCursor()
}

// scheduleWakes arms the wake engine for every upcoming reappearance. Events
// already in the past were handled by the read that produced this snapshot.
func (m *Model) scheduleWakes() {
	if m.Wake == nil {
		return
	}
	for _, ev := range m.backend.WakeEvents(m.Tasks, m.backend.Now()) {
		if err := m.Wake.Schedule(ev); err != nil && !errors.Is(err, scheduler.ErrInvalidWakeTime) {
			m.Status = StatusBar{Text: fmt.Sprintf("wake schedule failed: %v", err), IsError: true}
			return
		}
	}
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	now := m.backend.Now()

	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewToday:
		leftPane = m.renderTodayView()
		rightPane = m.renderDetailPane()
	case ViewStats:
		leftPane = "stats:\n" + m.statsViewport.View()
		rightPane = m.renderDetailPane()
	case ViewChains:
		leftPane = views.RenderChainsPanel(chain.All(m.Tasks))
		rightPane = m.renderDetailPane()
	}
	rightPane = joinSections(rightPane, m.renderCommandPalette(), m.renderHelpIfVisible())

	header := fmt.Sprintf("taskmaster | view: %s | %s", m.CurrentView, now.Format("Mon 02 Jan 15:04"))
	if m.Loading {
		header += " | " + m.loadSpinner.View() + " loading"
	}
	status := ""
	if m.Status.Text != "" {
		status = "status: " + m.Status.Text
	}

	return views.RenderApp(views.AppData{
		Header:       header,
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		StatusError:  m.Status.IsError,
		Notification: m.renderNotificationsView(),
		Footer: fmt.Sprintf("keys: %s today | %s stats | %s chains | / cmd | %s help | %s quit",
			m.Keys.Today, m.Keys.Stats, m.Keys.Chains, m.Keys.Help, m.Keys.Quit),
		Width: m.width,
	})
}

func (m Model) renderStatsContent() string {
	return views.RenderMarkdown(views.StatsMarkdown(m.Report), m.statsViewport.Width)
}

func joinSections(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return strings.Join(out, "\n\n")
}
