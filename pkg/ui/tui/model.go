package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"igpicker/pkg/selection"
)

// Phase is the screen the picker is showing
type Phase int

const (
	PhaseFetching Phase = iota
	PhaseSelecting
	PhaseDone
)

// line is one rendered row: a username header (post < 0) or a post
type line struct {
	result int
	post   int
}

// LogMessage is a status line shown under the list
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the bubbletea model of the picker: a fetch progress screen
// followed by a checkbox list over the session's posts
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	phase     Phase
	total     int
	done      int
	current   string
	fetched   []selection.Result
	startTime time.Time

	session  *selection.Session
	lines    []line
	cursor   int // index into lines
	offset   int
	selected int

	width    int
	height   int
	showHelp bool

	exportRequested bool
	cancelled       bool
	err             error

	logMessages    []LogMessage
	maxLogMessages int
}

// NewModel creates a model waiting for the fetch of total usernames
func NewModel(total int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:        s,
		progress:       p,
		phase:          PhaseFetching,
		total:          total,
		startTime:      time.Now(),
		maxLogMessages: 5,
	}
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Phase returns the current screen
func (m *Model) Phase() Phase {
	return m.phase
}

// Session returns the fetched session, nil while fetching
func (m *Model) Session() *selection.Session {
	return m.session
}

// ExportRequested reports whether the user confirmed the selection
func (m *Model) ExportRequested() bool {
	return m.exportRequested
}

// Cancelled reports whether the user quit without exporting
func (m *Model) Cancelled() bool {
	return m.cancelled
}

// Err returns the error that ended the fetch, if any
func (m *Model) Err() error {
	return m.err
}

// setSession switches to the selection screen
func (m *Model) setSession(s *selection.Session) {
	m.session = s
	m.lines = m.lines[:0]
	for i, r := range s.Results() {
		m.lines = append(m.lines, line{result: i, post: -1})
		for p := range r.Posts {
			m.lines = append(m.lines, line{result: i, post: p})
		}
	}
	m.cursor = m.firstPost()
	m.offset = 0
	m.selected = s.Summary().Selected
	m.phase = PhaseSelecting
}

func (m *Model) firstPost() int {
	for i, l := range m.lines {
		if l.post >= 0 {
			return i
		}
	}
	return -1
}

// moveCursor steps over header lines to the next post in direction dir
func (m *Model) moveCursor(dir int) {
	if m.cursor < 0 {
		return
	}
	for i := m.cursor + dir; i >= 0 && i < len(m.lines); i += dir {
		if m.lines[i].post >= 0 {
			m.cursor = i
			return
		}
	}
}

// jumpResult moves the cursor to the first post of the next or previous
// username that has posts
func (m *Model) jumpResult(dir int) {
	if m.cursor < 0 {
		return
	}
	current := m.lines[m.cursor].result
	for i := m.cursor + dir; i >= 0 && i < len(m.lines); i += dir {
		l := m.lines[i]
		if l.post < 0 || l.result == current {
			continue
		}
		if dir < 0 {
			for i > 0 && m.lines[i-1].result == l.result && m.lines[i-1].post >= 0 {
				i--
			}
		}
		m.cursor = i
		return
	}
}

func (m *Model) currentKey() (selection.Key, bool) {
	if m.cursor < 0 || m.cursor >= len(m.lines) {
		return selection.Key{}, false
	}
	l := m.lines[m.cursor]
	return selection.Key{Result: l.result, Post: l.post}, l.post >= 0
}

// AddLogMessage adds a status line, keeping the most recent few
func (m *Model) AddLogMessage(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}
