package update

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/taskmaster/internal/scheduler"
)

// loadCmd re-reads tasks off the UI goroutine. The read applies any pending
// resets before the plan and report are built from it.
func (m Model) loadCmd() tea.Cmd {
	backend := m.backend
	ctx := m.ctx()
	return func() tea.Msg {
		tasks, err := backend.Tasks(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		plan, err := backend.Plan(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		report, err := backend.Stats(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		return LoadedMsg{Plan: plan, Tasks: tasks, Report: report}
	}
}

func waitForWakeCmd(ch <-chan scheduler.WakeEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return WakeMsg{Event: ev}
	}
}

func textinputBlink() tea.Cmd {
	return textinput.Blink
}
