// Package chain orders tasks that share a ChainID into sequences where each
// member is blocked until the one before it is done.
package chain

import (
	"sort"
	"strings"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

type Info struct {
	ID        int64
	Tasks     []model.Task
	Cyclic    bool
	Completed int
}

// Progress is the completed share in percent.
func (i Info) Progress() float64 {
	if len(i.Tasks) == 0 {
		return 0
	}
	return float64(i.Completed) / float64(len(i.Tasks)) * 100
}

func (i Info) Done() bool {
	return len(i.Tasks) > 0 && i.Completed == len(i.Tasks)
}

// Members returns the tasks of chainID sorted by ChainOrder.
func Members(tasks []model.Task, chainID int64) []model.Task {
	if chainID == 0 {
		return nil
	}
	out := make([]model.Task, 0)
	for _, task := range tasks {
		if task.ChainID == chainID {
			out = append(out, task)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChainOrder < out[j].ChainOrder
	})
	return out
}

func indexOf(members []model.Task, id int64) int {
	for i, m := range members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Previous returns the member before task, if any. The first member has none.
func Previous(tasks []model.Task, task model.Task) (model.Task, bool) {
	members := Members(tasks, task.ChainID)
	idx := indexOf(members, task.ID)
	if idx <= 0 {
		return model.Task{}, false
	}
	return members[idx-1], true
}

// Next returns the member after task, wrapping to the first.
func Next(tasks []model.Task, task model.Task) (model.Task, bool) {
	members := Members(tasks, task.ChainID)
	idx := indexOf(members, task.ID)
	if idx < 0 {
		return model.Task{}, false
	}
	return members[(idx+1)%len(members)], true
}

// IsBlocked reports whether the previous member of task's chain is still open.
func IsBlocked(tasks []model.Task, task model.Task) bool {
	if task.ChainID == 0 {
		return false
	}
	prev, ok := Previous(tasks, task)
	return ok && !prev.Completed
}

// Blocker adapts IsBlocked to a predicate over a fixed snapshot.
func Blocker(tasks []model.Task) func(model.Task) bool {
	return func(task model.Task) bool {
		return IsBlocked(tasks, task)
	}
}

// NextAvailable returns the first open member of chainID.
func NextAvailable(tasks []model.Task, chainID int64) (model.Task, bool) {
	for _, m := range Members(tasks, chainID) {
		if !m.Completed {
			return m, true
		}
	}
	return model.Task{}, false
}

func Progress(tasks []model.Task, chainID int64) float64 {
	return Describe(tasks, chainID).Progress()
}

func Describe(tasks []model.Task, chainID int64) Info {
	members := Members(tasks, chainID)
	info := Info{ID: chainID, Tasks: members, Cyclic: len(members) > 1}
	for _, m := range members {
		if m.Completed {
			info.Completed++
		}
	}
	return info
}

// All groups every chained task by chain, ordered by chain id.
func All(tasks []model.Task) []Info {
	seen := make(map[int64]bool)
	ids := make([]int64, 0)
	for _, task := range tasks {
		if task.ChainID != 0 && !seen[task.ChainID] {
			seen[task.ChainID] = true
			ids = append(ids, task.ChainID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Info, 0, len(ids))
	for _, id := range ids {
		out = append(out, Describe(tasks, id))
	}
	return out
}

// ResetChain reopens every completed member and returns the changed copies.
func ResetChain(tasks []model.Task, chainID int64) []model.Task {
	out := make([]model.Task, 0)
	for _, m := range Members(tasks, chainID) {
		if !m.Completed {
			continue
		}
		m.Completed = false
		m.CompletedAt = time.Time{}
		out = append(out, m)
	}
	return out
}

// Visual renders a chain as "✓A → ☐B → ☐C ↺".
func Visual(tasks []model.Task, chainID int64) string {
	info := Describe(tasks, chainID)
	if len(info.Tasks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(info.Tasks))
	for _, m := range info.Tasks {
		mark := "☐"
		if m.Completed {
			mark = "✓"
		}
		parts = append(parts, mark+m.Title)
	}
	out := strings.Join(parts, " → ")
	if info.Cyclic {
		out += " ↺"
	}
	return out
}
