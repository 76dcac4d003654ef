// Package tui provides the live terminal view of a running process.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rgoodwin/cotflow/internal/engine"
	"github.com/rgoodwin/cotflow/pkg/models"
)

// Status icons for todo states.
const (
	iconPending    = "[ ]"
	iconReady      = "[◌]"
	iconInProgress = "[●]"
	iconCompleted  = "[✓]"
	iconFailed     = "[✗]"
	iconBlocked    = "[⊘]"
)

// EngineEventMsg wraps an engine event for the TUI.
type EngineEventMsg struct {
	Event engine.Event
}

// SnapshotMsg refreshes the rendered todo table.
type SnapshotMsg struct {
	Snapshot models.ProcessSnapshot
}

// DoneMsg signals that the process run has finished.
type DoneMsg struct {
	Status models.ProcessStatus
	Err    error
}

// LogEntry is one line of the activity log.
type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// App is the main bubbletea model for the cotflow TUI.
type App struct {
	query     string
	spinner   spinner.Model
	snapshot  models.ProcessSnapshot
	logs      []LogEntry
	iteration int
	width     int
	done      bool
	final     models.ProcessStatus
	runErr    error
	quitting  bool

	headerStyle    lipgloss.Style
	queryStyle     lipgloss.Style
	completedStyle lipgloss.Style
	failedStyle    lipgloss.Style
	blockedStyle   lipgloss.Style
	activeStyle    lipgloss.Style
	mutedStyle     lipgloss.Style
	logStyle       lipgloss.Style
}

// New creates a new App for the given query.
func New(query string) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &App{
		query:   query,
		spinner: s,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")),
		queryStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Italic(true),
		completedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green
		failedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red
		blockedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")), // Orange
		activeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")), // Blue
		mutedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")), // Gray
		logStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case EngineEventMsg:
		a.handleEvent(msg.Event)

	case SnapshotMsg:
		a.snapshot = msg.Snapshot

	case DoneMsg:
		a.done = true
		a.final = msg.Status
		a.runErr = msg.Err
	}

	return a, nil
}

// handleEvent folds an engine event into the log and counters.
func (a *App) handleEvent(ev engine.Event) {
	if ev.Iteration > a.iteration {
		a.iteration = ev.Iteration
	}

	var line string
	switch ev.Type {
	case engine.EventProcessStarted:
		line = "process started"
	case engine.EventTodosCreated:
		line = ev.Message
	case engine.EventIterationStarted:
		line = fmt.Sprintf("iteration %d: %s", ev.Iteration, ev.Message)
	case engine.EventTodoStarted:
		line = fmt.Sprintf("running %s", shorten(ev.TodoID))
	case engine.EventTodoCompleted:
		line = fmt.Sprintf("completed %s", shorten(ev.TodoID))
	case engine.EventTodoFailed:
		line = fmt.Sprintf("failed %s: %s", shorten(ev.TodoID), ev.Message)
	case engine.EventProcessFinished:
		line = fmt.Sprintf("finished: %s", ev.Status)
	default:
		line = ev.Message
	}

	a.logs = append(a.logs, LogEntry{Timestamp: ev.Timestamp, Message: line})
	if len(a.logs) > 50 {
		a.logs = a.logs[len(a.logs)-50:]
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder

	if a.done {
		b.WriteString(a.headerStyle.Render("cotflow — " + string(a.final)))
	} else {
		b.WriteString(a.spinner.View() + " " + a.headerStyle.Render("cotflow — running"))
	}
	b.WriteString("\n")
	b.WriteString(a.queryStyle.Render(a.query))
	b.WriteString("\n")
	b.WriteString(a.mutedStyle.Render(fmt.Sprintf("iteration %d", a.iteration)))
	b.WriteString("\n\n")

	for _, todo := range a.snapshot.Todos {
		b.WriteString(a.renderTodo(todo))
		b.WriteString("\n")
	}
	if len(a.snapshot.Todos) == 0 {
		b.WriteString(a.mutedStyle.Render("no todos yet"))
		b.WriteString("\n")
	}

	if n := len(a.logs); n > 0 {
		b.WriteString("\n")
		start := n - 5
		if start < 0 {
			start = 0
		}
		for _, entry := range a.logs[start:] {
			b.WriteString(a.logStyle.Render(entry.Timestamp.Format("15:04:05") + "  " + entry.Message))
			b.WriteString("\n")
		}
	}

	if a.runErr != nil {
		b.WriteString("\n")
		b.WriteString(a.failedStyle.Render("error: " + a.runErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if a.done {
		b.WriteString(a.mutedStyle.Render("q to quit"))
	} else {
		b.WriteString(a.mutedStyle.Render("q to detach (run continues)"))
	}
	b.WriteString("\n")

	return b.String()
}

// renderTodo renders one todo row.
func (a *App) renderTodo(todo models.TodoSnapshot) string {
	var icon string
	var style lipgloss.Style
	switch todo.Status {
	case models.TodoStatusCompleted:
		icon, style = iconCompleted, a.completedStyle
	case models.TodoStatusFailed:
		icon, style = iconFailed, a.failedStyle
	case models.TodoStatusBlocked:
		icon, style = iconBlocked, a.blockedStyle
	case models.TodoStatusInProgress:
		icon, style = iconInProgress, a.activeStyle
	case models.TodoStatusReady:
		icon, style = iconReady, a.activeStyle
	default:
		icon, style = iconPending, a.mutedStyle
	}

	content := todo.Content
	if a.width > 10 && len(content) > a.width-10 {
		content = content[:a.width-13] + "..."
	}
	return style.Render(icon) + " " + content + " " + a.mutedStyle.Render("("+shorten(todo.ID)+")")
}

// shorten truncates a UUID for display.
func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Run starts the TUI program, pumping engine events and periodic snapshots
// into the model until done is closed.
func Run(app *App, events <-chan engine.Event, snapshots func() models.ProcessSnapshot, refresh time.Duration, done <-chan DoneMsg) error {
	if refresh <= 0 {
		refresh = 100 * time.Millisecond
	}
	p := tea.NewProgram(app)

	go func() {
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				p.Send(EngineEventMsg{Event: ev})
			case <-ticker.C:
				p.Send(SnapshotMsg{Snapshot: snapshots()})
			case msg, ok := <-done:
				if !ok {
					return
				}
				p.Send(SnapshotMsg{Snapshot: snapshots()})
				p.Send(msg)
			}
		}
	}()

	_, err := p.Run()
	return err
}
