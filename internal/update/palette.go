package update

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/taskmaster/internal/commands"
	"github.com/sandeepkv93/taskmaster/internal/service"
	"github.com/sandeepkv93/taskmaster/internal/views"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}

	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			due, err := commands.ParseDue(a.Due, m.backend.Now(), m.backend.Location())
			if err != nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
			}
			task, err := m.backend.AddTask(m.ctx(), service.TaskInput{
				Title:              a.Title,
				Category:           a.Category,
				Priority:           a.Priority,
				DueAt:              due,
				Recurrence:         a.Recurrence,
				Estimate:           a.Estimate,
				PreferredTimeOfDay: a.TimeOfDay,
				ChainID:            a.ChainID,
				ChainOrder:         a.ChainOrder,
			})
			if err != nil {
				return commands.Result{}, err
			}
			m.SelectedTaskID = task.ID
			return commands.Result{Message: fmt.Sprintf("added #%d %s", task.ID, task.Title), Refresh: true}, nil
		},
		Done: func(a commands.DoneArgs) (commands.Result, error) {
			id, err := m.resolveTarget(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			text, err := m.completeTask(id, service.CompletionInput{Minutes: a.Minutes, Difficulty: a.Difficulty})
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: text, Refresh: true}, nil
		},
		Undo: func(a commands.TargetArgs) (commands.Result, error) {
			id, err := m.resolveTarget(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			text, err := m.uncompleteTask(id)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: text, Refresh: true}, nil
		},
		Delete: func(a commands.TargetArgs) (commands.Result, error) {
			id, err := m.resolveTarget(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			title := m.titleOf(id)
			if err := m.backend.DeleteTask(m.ctx(), id); err != nil {
				return commands.Result{}, err
			}
			if m.SelectedTaskID == id {
				m.SelectedTaskID = 0
			}
			return commands.Result{Message: fmt.Sprintf("deleted: %s", title), Refresh: true}, nil
		},
		Next: func() (commands.Result, error) {
			m.CurrentView = ViewToday
			text, err := m.selectNext()
			return commands.Result{Message: text}, err
		},
		Plan: func() (commands.Result, error) {
			m.CurrentView = ViewToday
			return commands.Result{Message: "plan: " + views.SummaryLine(m.Summary), Refresh: true}, nil
		},
		Stats: func() (commands.Result, error) {
			m.CurrentView = ViewStats
			o := m.Report.Overview
			return commands.Result{Message: fmt.Sprintf("stats: %d/%d done, %d today", o.Completed, o.Total, o.Today), Refresh: true}, nil
		},
		Preview: func(a commands.PreviewArgs) (commands.Result, error) {
			id, err := m.resolveTarget(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			dates, err := m.backend.Preview(m.ctx(), id, a.Count)
			if err != nil {
				return commands.Result{}, err
			}
			if len(dates) == 0 {
				return commands.Result{Message: fmt.Sprintf("%s does not repeat", m.titleOf(id))}, nil
			}
			m.SelectedTaskID = id
			m.Preview = formatPreview(dates, m.backend.Now())
			return commands.Result{Message: fmt.Sprintf("next %d occurrence(s) of %s", len(dates), m.titleOf(id))}, nil
		},
	})
	if err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command failed", err.Error(), "error")
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message}
	if res.Refresh {
		return m.reload()
	}
	return m, nil
}

func (m Model) resolveTarget(t commands.Target) (int64, error) {
	if !t.Selected {
		return t.ID, nil
	}
	if m.SelectedTaskID == 0 {
		return 0, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "no task selected"}
	}
	return m.SelectedTaskID, nil
}

func formatPreview(dates []time.Time, now time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, views.FormatDue(d, now))
	}
	return out
}

func (m Model) renderCommandPalette() string {
	return views.RenderCommandPalette(m.Palette.Active, m.commandInput.View())
}
