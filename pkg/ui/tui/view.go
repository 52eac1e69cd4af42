package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"igpicker/pkg/selection"
)

const logo = `╦╔═╗  ╔═╗╦╔═╗╦╔═╔═╗╦═╗
║║ ╦  ╠═╝║║  ╠╩╗║╣ ╠╦╝
╩╚═╝  ╩  ╩╚═╝╩ ╩╚═╝╩╚═`

// View renders the current phase
func (m Model) View() string {
	var sections []string
	sections = append(sections, logoStyle.Render(logo))

	switch m.phase {
	case PhaseFetching:
		sections = append(sections, m.renderFetching())
	case PhaseSelecting:
		sections = append(sections, m.renderSelecting())
	default:
		return ""
	}

	if logs := m.renderLogs(); logs != "" {
		sections = append(sections, logs)
	}
	sections = append(sections, m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderFetching() string {
	title := titleStyle.Render(" FETCHING ")

	percent := 0.0
	if m.total > 0 {
		percent = float64(m.done) / float64(m.total)
	}
	status := fmt.Sprintf("%s %s %s",
		m.spinner.View(),
		usernameStyle.Render(m.current),
		dimStyle.Render(fmt.Sprintf("%d/%d  %s", m.done, m.total, formatDuration(time.Since(m.startTime)))),
	)

	rows := []string{title, status, m.progress.ViewAs(percent)}
	for _, r := range m.fetched {
		rows = append(rows, renderStatus(r))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderSelecting() string {
	sum := m.session.Summary()
	title := titleStyle.Render(fmt.Sprintf(" SELECT POSTS  %d/%d ", m.selected, sum.Posts))

	rendered := make([]string, len(m.lines))
	for i, l := range m.lines {
		rendered[i] = m.renderLine(i, l)
	}

	visible := m.visibleHeight()
	body := strings.Join(rendered[m.offset:m.offset+visible], "\n")
	if m.offset+visible < len(rendered) {
		body += "\n" + dimStyle.Render(fmt.Sprintf("  ... %d more", len(rendered)-m.offset-visible))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

// visibleHeight returns how many list lines fit on screen
func (m Model) visibleHeight() int {
	n := len(m.lines)
	if m.height <= 0 {
		return n
	}
	// logo, panel border, title, logs and help
	height := m.height - 16
	if height < 3 {
		height = 3
	}
	if height > n {
		height = n
	}
	return height
}

// ensureVisible scrolls so the cursor stays on screen
func (m *Model) ensureVisible() {
	n := len(m.lines)
	height := m.visibleHeight()
	if m.cursor >= 0 {
		if m.cursor < m.offset {
			m.offset = m.cursor
			// keep the username header in view with its first post
			if m.offset > 0 && m.lines[m.offset-1].post < 0 {
				m.offset--
			}
		}
		if m.cursor >= m.offset+height {
			m.offset = m.cursor - height + 1
		}
	}
	if m.offset > n-height {
		m.offset = n - height
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) renderLine(i int, l line) string {
	r, err := m.session.Result(l.result)
	if err != nil {
		return ""
	}
	if l.post < 0 {
		return renderStatus(r)
	}

	post := r.Posts[l.post]
	box := "[ ]"
	if r.Selected[l.post] {
		box = checkedStyle.Render("[x]")
	}
	text := fmt.Sprintf("#%d %s", post.Rank, caption(post, 48))

	pointer := "  "
	if i == m.cursor {
		pointer = cursorStyle.Render("▸ ")
		text = cursorStyle.Render(text)
	} else {
		text = postStyle.Render(text)
	}
	return fmt.Sprintf("  %s%s %s", pointer, box, text)
}

func renderStatus(r selection.Result) string {
	switch r.Status {
	case selection.StatusSuccess:
		return fmt.Sprintf("%s %s %s", successStyle.Render("✓"), usernameStyle.Render("@"+r.Username), dimStyle.Render(fmt.Sprintf("%d posts", len(r.Posts))))
	case selection.StatusEmpty:
		return fmt.Sprintf("%s %s %s", warningStyle.Render("!"), usernameStyle.Render("@"+r.Username), warningStyle.Render(r.Message))
	default:
		return fmt.Sprintf("%s %s %s", errorStyle.Render("✗"), usernameStyle.Render("@"+r.Username), errorStyle.Render(r.Message))
	}
}

// caption returns a one-line caption cut to max runes, or the image URL
// when the post has none
func caption(p selection.Post, max int) string {
	text := strings.Join(strings.Fields(p.Caption), " ")
	if text == "" {
		text = p.ImageURL
	}
	runes := []rune(text)
	if len(runes) > max {
		return string(runes[:max-1]) + "…"
	}
	return text
}

func (m Model) renderLogs() string {
	if len(m.logMessages) == 0 {
		return ""
	}
	var rows []string
	for _, msg := range m.logMessages {
		rows = append(rows, fmt.Sprintf("%s %s",
			dimStyle.Render(msg.Time.Format("15:04:05")),
			levelStyle(msg.Level).Render(msg.Message)))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderHelp() string {
	if !m.showHelp {
		return helpStyle.Render("space toggle • a all • enter export • q quit • ? help")
	}
	return helpStyle.Render(strings.Join([]string{
		"↑/k ↓/j     move",
		"tab/→ ⇧tab/← next / previous username",
		"space/x     toggle post",
		"a           toggle all posts of username",
		"enter/e     export selection",
		"q/esc       quit without exporting",
	}, "\n"))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
