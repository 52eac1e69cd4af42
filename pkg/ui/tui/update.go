package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"igpicker/pkg/selection"
)

// UsernameStartedMsg is sent before a username is fetched
type UsernameStartedMsg struct {
	Index    int
	Total    int
	Username string
}

// UsernameFinishedMsg carries the outcome for one username
type UsernameFinishedMsg struct {
	Index  int
	Total  int
	Result selection.Result
}

// FetchDoneMsg ends the fetch phase. Session may be partial when Err is a
// cancellation, and nil when the input was rejected.
type FetchDoneMsg struct {
	Session *selection.Session
	Err     error
}

// LogMsg is sent to add a status line
type LogMsg struct {
	Level   string
	Message string
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(60, max(10, msg.Width-10))
		m.ensureVisible()
		return m, nil

	case spinner.TickMsg:
		if m.phase != PhaseFetching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case UsernameStartedMsg:
		m.current = msg.Username
		m.total = msg.Total
		return m, nil

	case UsernameFinishedMsg:
		m.done = msg.Index + 1
		m.total = msg.Total
		m.fetched = append(m.fetched, msg.Result)
		return m, nil

	case FetchDoneMsg:
		return m.handleFetchDone(msg)

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleFetchDone(msg FetchDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Session == nil {
		m.err = msg.Err
		m.phase = PhaseDone
		return m, tea.Quit
	}
	if m.cancelled {
		m.phase = PhaseDone
		return m, tea.Quit
	}

	m.setSession(msg.Session)
	if msg.Err != nil {
		m.AddLogMessage("WARN", "Fetch stopped early: "+msg.Err.Error())
	}

	sum := msg.Session.Summary()
	switch {
	case sum.Posts > 0:
		m.AddLogMessage("INFO", fmt.Sprintf("%d posts from %d usernames ready for selection", sum.Posts, sum.Success))
	case msg.Session.HasRows():
		m.AddLogMessage("WARN", "No images returned; press enter to export empty rows")
	default:
		m.AddLogMessage("ERROR", "Nothing to export")
	}
	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "Q", "esc":
		m.cancelled = true
		if m.phase == PhaseSelecting {
			m.phase = PhaseDone
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}

	if m.phase != PhaseSelecting {
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "tab", "right", "l":
		m.jumpResult(1)
	case "shift+tab", "left", "h":
		m.jumpResult(-1)
	case " ", "x":
		m.toggleCurrent()
	case "a":
		m.toggleAllCurrent()
	case "enter", "e":
		if !m.session.HasRows() {
			m.AddLogMessage("ERROR", "Nothing to export")
			return m, nil
		}
		m.exportRequested = true
		m.phase = PhaseDone
		return m, tea.Quit
	}
	m.ensureVisible()
	return m, nil
}

func (m *Model) toggleCurrent() {
	key, ok := m.currentKey()
	if !ok {
		return
	}
	if _, err := m.session.Toggle(key); err != nil {
		m.AddLogMessage("ERROR", err.Error())
		return
	}
	m.selected = m.session.Summary().Selected
}

// toggleAllCurrent selects every post of the username under the cursor, or
// clears them when all are already selected
func (m *Model) toggleAllCurrent() {
	key, ok := m.currentKey()
	if !ok {
		return
	}
	r, err := m.session.Result(key.Result)
	if err != nil {
		return
	}
	all := len(r.Selected) > 0
	for _, s := range r.Selected {
		all = all && s
	}
	if err := m.session.SelectAll(key.Result, !all); err != nil {
		m.AddLogMessage("ERROR", err.Error())
		return
	}
	m.selected = m.session.Summary().Selected
}
