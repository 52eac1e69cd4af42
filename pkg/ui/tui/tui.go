package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"igpicker/pkg/picker"
	"igpicker/pkg/selection"
)

// FetchFunc runs the fetch cycle, reporting progress to obs
type FetchFunc func(ctx context.Context, obs picker.Observer) (*selection.Session, error)

// Outcome is how the interactive session ended
type Outcome struct {
	Session *selection.Session
	Export  bool
	Err     error
}

// TUI runs the fetch in the background while showing its progress, then
// lets the user pick posts
type TUI struct {
	program *tea.Program
	model   *Model
	fetch   FetchFunc
}

// New creates a TUI for total usernames
func New(fetch FetchFunc, total int, opts ...tea.ProgramOption) *TUI {
	model := NewModel(total)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
		fetch:   fetch,
	}
}

// Run blocks until the user exports or quits. Quitting during the fetch
// cancels it.
func (t *TUI) Run(ctx context.Context) (Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		session, err := t.fetch(ctx, programObserver{t.program})
		t.program.Send(FetchDoneMsg{Session: session, Err: err})
	}()

	if _, err := t.program.Run(); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Session: t.model.Session(),
		Export:  t.model.ExportRequested(),
		Err:     t.model.Err(),
	}, nil
}

// programObserver forwards picker progress into the program's event loop
type programObserver struct {
	program *tea.Program
}

func (o programObserver) StateChanged(state picker.State) {
	if state == picker.StateRejected {
		o.program.Send(LogMsg{Level: "ERROR", Message: "Input rejected"})
	}
}

func (o programObserver) UsernameStarted(index, total int, username string) {
	o.program.Send(UsernameStartedMsg{Index: index, Total: total, Username: username})
}

func (o programObserver) UsernameFinished(index, total int, result selection.Result) {
	o.program.Send(UsernameFinishedMsg{Index: index, Total: total, Result: result})
}
