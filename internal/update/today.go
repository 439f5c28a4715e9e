package update

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/taskmaster/internal/chain"
	"github.com/sandeepkv93/taskmaster/internal/service"
	"github.com/sandeepkv93/taskmaster/internal/views"
)

func (m Model) handleTodayKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
		m.syncSelectedTaskToCursor()
	case "down", "j":
		if m.Cursor < len(m.Entries)-1 {
			m.Cursor++
		}
		m.syncSelectedTaskToCursor()
	case "x", "enter":
		if m.SelectedTaskID == 0 {
			m.Status = StatusBar{Text: "no task selected", IsError: true}
			return m, nil
		}
		text, err := m.completeTask(m.SelectedTaskID, service.CompletionInput{})
		return m.afterAction(text, err)
	case "u":
		if m.SelectedTaskID == 0 {
			m.Status = StatusBar{Text: "no task selected", IsError: true}
			return m, nil
		}
		text, err := m.uncompleteTask(m.SelectedTaskID)
		return m.afterAction(text, err)
	case "n":
		text, err := m.selectNext()
		if err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
			return m, nil
		}
		m.Status = StatusBar{Text: text}
	}
	return m, nil
}

// afterAction reports the outcome of a write and re-reads the task list on
// success.
func (m Model) afterAction(text string, err error) (Model, tea.Cmd) {
	if err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	m.Status = StatusBar{Text: text}
	return m.reload()
}

func (m *Model) syncSelectedTaskToCursor() {
	if len(m.Entries) == 0 || m.Cursor < 0 || m.Cursor >= len(m.Entries) {
		m.SelectedTaskID = 0
		m.Preview = nil
		return
	}
	id := m.Entries[m.Cursor].Task.ID
	if id != m.SelectedTaskID {
		m.Preview = nil
	}
	m.SelectedTaskID = id
}

func (m *Model) completeTask(id int64, in service.CompletionInput) (string, error) {
	res, err := m.backend.Complete(m.ctx(), id, in)
	switch {
	case errors.Is(err, service.ErrBlocked):
		return "", fmt.Errorf("%q is waiting on the previous chain step", m.titleOf(id))
	case err != nil:
		return "", err
	}
	text := fmt.Sprintf("done: %s", res.Task.Title)
	if res.Task.CurrentStreak > 0 {
		text += fmt.Sprintf(" (streak %d)", res.Task.CurrentStreak)
	}
	if res.Milestone > 0 {
		text += fmt.Sprintf(" 🎉 %d-day milestone!", res.Milestone)
		m.notify("Milestone", fmt.Sprintf("%s reached a %d-day streak", res.Task.Title, res.Milestone), "info")
	}
	if !res.Task.Completed {
		text += fmt.Sprintf(" (%d/%d this %s)", res.Task.CompletionsThisPeriod, res.Task.Recurrence.Amount(), res.Task.Recurrence.Unit())
	}
	return text, nil
}

func (m *Model) uncompleteTask(id int64) (string, error) {
	task, err := m.backend.Uncomplete(m.ctx(), id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("reopened: %s", task.Title), nil
}

func (m *Model) selectNext() (string, error) {
	task, ok, err := m.backend.Next(m.ctx())
	if err != nil {
		return "", err
	}
	if !ok {
		return "all clear, nothing left to do", nil
	}
	for i, e := range m.Entries {
		if e.Task.ID == task.ID {
			m.Cursor = i
			break
		}
	}
	m.SelectedTaskID = task.ID
	return fmt.Sprintf("next: %s", task.Title), nil
}

func (m Model) titleOf(id int64) string {
	for _, task := range m.Tasks {
		if task.ID == id {
			return task.Title
		}
	}
	return fmt.Sprintf("#%d", id)
}

func (m Model) renderTodayView() string {
	panel := views.RenderTimelinePanel(views.TimelinePanelData{
		Entries:    m.Entries,
		Summary:    m.Summary,
		SelectedID: m.SelectedTaskID,
		Now:        m.backend.Now(),
		Blocked:    chain.Blocker(m.Tasks),
	})
	if m.Summary.Total == 0 {
		return panel
	}
	pct := float64(m.Summary.Completed) / float64(m.Summary.Total)
	return panel + "\n" + m.dayProgress.ViewAs(pct)
}

func (m Model) renderDetailPane() string {
	task, ok := m.selectedTask()
	if !ok {
		return "details:\n(no selection)"
	}
	now := m.backend.Now()
	out := views.RenderTaskDetail(task, m.Tasks, m.scorer.Breakdown(task, now), now)
	if len(m.Preview) > 0 {
		out += "\n\nupcoming:\n- " + strings.Join(m.Preview, "\n- ")
	}
	return out
}
