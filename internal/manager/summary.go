package manager

import (
	"fmt"
	"strings"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// SummaryItem identifies one todo inside a summary listing.
type SummaryItem struct {
	ID      string
	Content string
}

// Summary partitions the todo set by status. Listings preserve insertion
// order, so two calls without an intervening mutation produce identical
// summaries.
type Summary struct {
	Total      int
	Pending    []SummaryItem
	Ready      []SummaryItem
	InProgress []SummaryItem
	Completed  []SummaryItem
	Failed     []SummaryItem
	Blocked    []SummaryItem
}

// Count returns the number of todos with the given status.
func (s Summary) Count(status models.TodoStatus) int {
	switch status {
	case models.TodoStatusPending:
		return len(s.Pending)
	case models.TodoStatusReady:
		return len(s.Ready)
	case models.TodoStatusInProgress:
		return len(s.InProgress)
	case models.TodoStatusCompleted:
		return len(s.Completed)
	case models.TodoStatusFailed:
		return len(s.Failed)
	case models.TodoStatusBlocked:
		return len(s.Blocked)
	default:
		return 0
	}
}

// String renders the summary as deterministic text, suitable for reports
// and for the reasoning prompt context.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d todos: %d pending, %d ready, %d in_progress, %d completed, %d failed, %d blocked\n",
		s.Total, len(s.Pending), len(s.Ready), len(s.InProgress),
		len(s.Completed), len(s.Failed), len(s.Blocked))

	writeSection := func(name string, items []SummaryItem) {
		for _, item := range items {
			fmt.Fprintf(&b, "- [%s] %s (%s)\n", name, item.Content, item.ID)
		}
	}
	writeSection("pending", s.Pending)
	writeSection("ready", s.Ready)
	writeSection("in_progress", s.InProgress)
	writeSection("completed", s.Completed)
	writeSection("failed", s.Failed)
	writeSection("blocked", s.Blocked)
	return b.String()
}

// Summary returns counts and listings partitioned by status.
func (m *Manager) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Summary
	for _, id := range m.graph.IDs() {
		todo := m.graph.Node(id)
		item := SummaryItem{ID: todo.ID, Content: todo.Content}
		s.Total++
		switch todo.Status {
		case models.TodoStatusPending:
			s.Pending = append(s.Pending, item)
		case models.TodoStatusReady:
			s.Ready = append(s.Ready, item)
		case models.TodoStatusInProgress:
			s.InProgress = append(s.InProgress, item)
		case models.TodoStatusCompleted:
			s.Completed = append(s.Completed, item)
		case models.TodoStatusFailed:
			s.Failed = append(s.Failed, item)
		case models.TodoStatusBlocked:
			s.Blocked = append(s.Blocked, item)
		}
	}
	return s
}

// Snapshot returns the read-only view of every todo, in insertion order.
func (m *Manager) Snapshot() []models.TodoSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.graph.IDs()
	snaps := make([]models.TodoSnapshot, 0, len(ids))
	for _, id := range ids {
		todo := m.graph.Node(id)
		snaps = append(snaps, models.TodoSnapshot{
			ID:           todo.ID,
			Content:      todo.Content,
			Status:       todo.Status,
			Priority:     todo.Priority,
			Dependencies: append([]string(nil), todo.Dependencies...),
			Feedback:     append([]models.FeedbackEntry(nil), todo.Feedback...),
		})
	}
	return snaps
}
