package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igpicker/pkg/selection"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleSession() *selection.Session {
	s := selection.NewSession(5)
	s.AddSuccess("alpha", []selection.Post{
		{Rank: 1, ImageURL: "https://cdn/a1.jpg", Caption: "first"},
		{Rank: 2, ImageURL: "https://cdn/a2.jpg"},
		{Rank: 3, ImageURL: "https://cdn/a3.jpg", Caption: "third"},
	})
	s.AddEmpty("beta", "No posts found.")
	s.AddSuccess("gamma", []selection.Post{{Rank: 1, ImageURL: "https://cdn/g1.jpg"}})
	return s
}

func selectingModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel(3)
	_, cmd := m.Update(FetchDoneMsg{Session: sampleSession()})
	assert.Nil(t, cmd)
	require.Equal(t, PhaseSelecting, m.Phase())
	return &m
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(key(k))
	}
	return cmd
}

func TestFetchProgressMessages(t *testing.T) {
	m := NewModel(2)
	m.Update(UsernameStartedMsg{Index: 0, Total: 2, Username: "alpha"})
	m.Update(UsernameFinishedMsg{Index: 0, Total: 2, Result: selection.Result{Username: "alpha", Status: selection.StatusSuccess}})

	assert.Equal(t, 1, m.done)
	assert.Equal(t, "alpha", m.current)
	assert.Contains(t, m.View(), "FETCHING")
	assert.Contains(t, m.View(), "@alpha")
}

func TestKeysIgnoredWhileFetching(t *testing.T) {
	m := NewModel(1)
	press(&m, "space", "enter")
	assert.Equal(t, PhaseFetching, m.Phase())
	assert.False(t, m.ExportRequested())
}

func TestCursorSkipsHeaders(t *testing.T) {
	m := selectingModel(t)

	k, ok := m.currentKey()
	require.True(t, ok)
	assert.Equal(t, selection.Key{Result: 0, Post: 0}, k)

	press(m, "down", "down", "down")
	k, _ = m.currentKey()
	assert.Equal(t, selection.Key{Result: 2, Post: 0}, k)

	press(m, "down")
	k, _ = m.currentKey()
	assert.Equal(t, selection.Key{Result: 2, Post: 0}, k, "cursor stops at the last post")

	press(m, "up")
	k, _ = m.currentKey()
	assert.Equal(t, selection.Key{Result: 0, Post: 2}, k)
}

func TestJumpBetweenUsernames(t *testing.T) {
	m := selectingModel(t)

	press(m, "tab")
	k, _ := m.currentKey()
	assert.Equal(t, selection.Key{Result: 2, Post: 0}, k)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	k, _ = m.currentKey()
	assert.Equal(t, selection.Key{Result: 0, Post: 0}, k)
}

func TestToggleAndExport(t *testing.T) {
	m := selectingModel(t)

	press(m, "space", "down", "down", "x")
	assert.Equal(t, 2, m.selected)

	cmd := press(m, "enter")
	require.NotNil(t, cmd)
	assert.True(t, m.ExportRequested())
	assert.Equal(t, PhaseDone, m.Phase())

	rows := m.Session().Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"https://cdn/a1.jpg", "https://cdn/a3.jpg", "", "", ""}, rows[0].Photos)
	assert.Equal(t, "gamma", rows[1].Username)
}

func TestToggleAllCurrentUsername(t *testing.T) {
	m := selectingModel(t)

	press(m, "a")
	assert.Equal(t, 3, m.selected)

	press(m, "a")
	assert.Equal(t, 0, m.selected)
}

func TestQuitWithoutExport(t *testing.T) {
	m := selectingModel(t)
	press(m, "space")

	cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.True(t, m.Cancelled())
	assert.False(t, m.ExportRequested())
}

func TestEnterWithNothingToExport(t *testing.T) {
	s := selection.NewSession(5)
	s.AddFailed("broken", "Error: provider server error")

	m := NewModel(1)
	m.Update(FetchDoneMsg{Session: s})
	cmd := press(&m, "enter")

	assert.Nil(t, cmd)
	assert.False(t, m.ExportRequested())
	assert.Contains(t, m.View(), "Nothing to export")
}

func TestFetchDoneWithoutSessionQuits(t *testing.T) {
	m := NewModel(0)
	_, cmd := m.Update(FetchDoneMsg{Err: context.Canceled})
	require.NotNil(t, cmd)
	assert.ErrorIs(t, m.Err(), context.Canceled)
	assert.Equal(t, PhaseDone, m.Phase())
}

func TestPartialSessionAfterCancelShowsWarning(t *testing.T) {
	m := NewModel(3)
	m.Update(FetchDoneMsg{Session: sampleSession(), Err: context.Canceled})
	assert.Equal(t, PhaseSelecting, m.Phase())
	assert.Contains(t, m.View(), "Fetch stopped early")
}

func TestViewRendersSelection(t *testing.T) {
	m := selectingModel(t)
	press(m, "space")

	view := m.View()
	assert.Contains(t, view, "SELECT POSTS  1/4")
	assert.Contains(t, view, "[x]")
	assert.Contains(t, view, "#1 first")
	assert.Contains(t, view, "No posts found.")
}

func TestScrollKeepsCursorVisible(t *testing.T) {
	s := selection.NewSession(5)
	for _, u := range []string{"a", "b", "c", "d", "e", "f"} {
		posts := make([]selection.Post, 5)
		for i := range posts {
			posts[i] = selection.Post{Rank: i + 1, ImageURL: "https://cdn/" + u}
		}
		s.AddSuccess(u, posts)
	}

	m := NewModel(6)
	m.Update(FetchDoneMsg{Session: s})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	for i := 0; i < 20; i++ {
		press(&m, "down")
	}
	height := m.visibleHeight()
	assert.GreaterOrEqual(t, m.cursor, m.offset)
	assert.Less(t, m.cursor, m.offset+height)
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "a b", caption(selection.Post{Caption: " a \n b "}, 10))
	assert.Equal(t, "https://x", caption(selection.Post{ImageURL: "https://x"}, 10))
	assert.Equal(t, "abcd…", caption(selection.Post{Caption: "abcdefgh"}, 5))
}
