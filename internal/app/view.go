package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jwulff/prompter/internal/answer"
	"github.com/jwulff/prompter/internal/ui"
)

func (m *Model) scrollToBottom() {
	m.transcriptScroll = m.maxTranscriptScroll()
}

func (m Model) maxTranscriptScroll() int {
	totalLines := len(m.entries)
	if m.partialText != "" {
		totalLines++
	}
	visible := m.transcriptPanelHeight() - 1
	if totalLines <= visible {
		return 0
	}
	return totalLines - visible
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + divider(1) + divider(1) + error(1) + footer(1) + padding
	reserved := 8
	return max(9, m.height-reserved)
}

// transcriptPanelHeight is the transcript share of the right column. The
// answer panel gets the rest, minus one divider row.
func (m Model) transcriptPanelHeight() int {
	return max(4, m.contentHeight()*45/100)
}

func (m Model) answerPanelHeight() int {
	return max(4, m.contentHeight()-m.transcriptPanelHeight()-1)
}

func (m Model) questionPanelWidth() int {
	if m.width == 0 {
		return 30
	}
	return max(24, m.width*35/100)
}

func (m Model) rightPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(30, m.width-m.questionPanelWidth()-3)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Main content: questions | transcript over answer
	sections = append(sections, m.renderMainContent())

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("PROMPTER")
	var locale string
	if m.cfg.Locale != "" {
		locale = ui.DimStyle.Render(" " + m.cfg.Locale)
	}
	return title + locale
}

func (m Model) renderStatusBar() string {
	var dot string
	if m.listening {
		dot = ui.ListeningDotStyle.Render("● LISTENING")
	} else {
		dot = ui.IdleDotStyle.Render("○ IDLE")
	}

	var level string
	if m.listening && m.recording {
		level = "  " + renderLevelMeter("MIC", m.level)
	}

	var working string
	if m.session.State == answer.Requesting || m.session.State == answer.Streaming {
		working = "  " + ui.SpinnerStyle.Render("⟳ AI")
	}

	var status string
	if m.statusText != "" {
		status = "  " + ui.StatusStyle.Render(m.statusText)
	}

	return dot + level + working + status
}

func renderLevelMeter(label string, level float32) string {
	const barLen = 8
	filled := int(level * barLen)
	if filled > barLen {
		filled = barLen
	}

	var bar string
	for i := 0; i < barLen; i++ {
		if i < filled {
			pct := float32(i) / float32(barLen)
			if pct > 0.6 {
				bar += ui.LevelYellowStyle.Render("█")
			} else {
				bar += ui.LevelGreenStyle.Render("█")
			}
		} else {
			bar += ui.LevelGrayStyle.Render("░")
		}
	}

	return ui.MicLabelStyle.Render(label) + " " + bar
}

func (m Model) renderMainContent() string {
	leftW := m.questionPanelWidth()
	rightW := m.rightPanelWidth()
	contentH := m.contentHeight()

	leftLines := strings.Split(m.renderQuestionPanel(leftW, contentH), "\n")

	rightLines := strings.Split(m.renderTranscriptPanel(rightW, m.transcriptPanelHeight()), "\n")
	rightLines = append(rightLines, ui.DividerStyle.Render(strings.Repeat("─", rightW)))
	rightLines = append(rightLines, strings.Split(m.renderAnswerPanel(rightW, m.answerPanelHeight()), "\n")...)

	for len(leftLines) < contentH {
		leftLines = append(leftLines, strings.Repeat(" ", leftW))
	}

	divider := ui.DividerStyle.Render("│")
	var rows []string
	for i := 0; i < contentH; i++ {
		r := ""
		if i < len(rightLines) {
			r = rightLines[i]
		}
		rows = append(rows, leftLines[i]+divider+r)
	}

	return strings.Join(rows, "\n")
}

func (m Model) panelHeader(title string, focus PanelFocus) string {
	if m.focusedPanel == focus {
		return ui.PanelTitleActiveStyle.Render(title)
	}
	return ui.PanelTitleStyle.Render(title)
}

func (m Model) renderQuestionPanel(width, height int) string {
	questions := m.registry.Questions()
	selected := m.registry.SelectedIndex()
	selLine := -1

	var lines []string
	lines = append(lines, padRight(m.panelHeader(fmt.Sprintf("QUESTIONS (%d)", len(questions)), FocusQuestions), width))

	if len(questions) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No questions yet..."))
		lines = append(lines, ui.DimStyle.Render("  Technical questions appear here"))
	} else {
		textWidth := max(10, width-4)
		for i, q := range questions {
			if i == selected {
				selLine = len(lines)
			}
			wrapped := wrapText(q.Text, textWidth)
			marker := "  "
			first := wrapped[0]
			if i == selected {
				marker = ui.SelectedStyle.Render("> ")
				first = ui.SelectedStyle.Render(first)
			}
			lines = append(lines, truncateToWidth(marker+first, width))
			for _, wl := range wrapped[1:] {
				if i == selected {
					wl = ui.SelectedStyle.Render(wl)
				}
				lines = append(lines, "  "+wl)
			}

			meta := ui.TimestampStyle.Render(q.Timestamp)
			if q.Category != "" {
				meta += " " + ui.CategoryStyle.Render(string(q.Category))
			}
			meta += " " + ui.ConfidenceStyle.Render(fmt.Sprintf("%.0f%%", q.Confidence*100))
			lines = append(lines, "    "+meta)
		}
	}

	// Keep the selection visible below the header.
	if len(lines) > height && selLine >= height-1 {
		skip := selLine - (height - 3)
		lines = append(lines[:1], lines[1+skip:]...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	for i, l := range lines {
		lines[i] = padRight(l, width)
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderTranscriptPanel(width, height int) string {
	var badge string
	if m.transcriptLive {
		badge = ui.LiveBadgeStyle.Render(" LIVE")
	} else {
		badge = ui.ScrollBadgeStyle.Render(" SCROLL")
	}

	var lines []string
	lines = append(lines, m.panelHeader("TRANSCRIPT", FocusTranscript)+badge)

	contentHeight := height - 1

	if !m.connected {
		if m.reconnecting {
			lines = append(lines, ui.ErrorTextStyle.Render("  Recognizer unavailable. Reconnecting..."))
			if m.connError != "" {
				lines = append(lines, ui.DimStyle.Render("  "+truncateToWidth(m.connError, max(10, width-4))))
			}
		} else {
			lines = append(lines, ui.DimStyle.Render("  Connecting to recognizer..."))
		}
	} else if len(m.entries) == 0 && m.partialText == "" {
		lines = append(lines, ui.DimStyle.Render("  Press Space to start listening"))
	} else {
		// Prefix: "  [HH:MM:SS] " = ~13 chars visible
		prefixWidth := 11
		textWidth := max(10, width-prefixWidth-2)
		indentStr := strings.Repeat(" ", prefixWidth)

		var displayLines []string
		for _, e := range m.entries {
			ts := ui.TimestampStyle.Render(e.Timestamp.Format("[15:04:05]"))
			wrapped := wrapText(e.Text, textWidth)
			displayLines = append(displayLines, ts+" "+wrapped[0])
			for _, wl := range wrapped[1:] {
				displayLines = append(displayLines, indentStr+wl)
			}
		}

		if m.partialText != "" {
			ts := ui.TimestampStyle.Render(time.Now().Format("[15:04:05]"))
			wrapped := wrapText(m.partialText+"▌", textWidth)
			displayLines = append(displayLines, ts+" "+ui.PartialTextStyle.Render(wrapped[0]))
			for _, wl := range wrapped[1:] {
				displayLines = append(displayLines, indentStr+ui.PartialTextStyle.Render(wl))
			}
		}

		start := 0
		if m.transcriptLive {
			if len(displayLines) > contentHeight {
				start = len(displayLines) - contentHeight
			}
		} else {
			start = m.transcriptScroll
		}
		start = max(0, min(start, len(displayLines)))

		end := min(start+contentHeight, len(displayLines))
		for i := start; i < end; i++ {
			lines = append(lines, "  "+displayLines[i])
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderAnswerPanel(width, height int) string {
	s := m.session

	var suffix string
	switch {
	case s.State == answer.Completed && s.Cached:
		suffix = ui.DimStyle.Render(" (cached)")
	case s.Done() && s.Elapsed > 0:
		suffix = ui.DimStyle.Render(fmt.Sprintf(" (%.1fs)", s.Elapsed.Seconds()))
	}

	var lines []string
	lines = append(lines, m.panelHeader("ANSWER", FocusAnswer)+suffix)

	textWidth := max(10, width-4)
	var body []string

	if s.QuestionID == "" {
		body = append(body, ui.DimStyle.Render("Select a question and press Enter"))
	} else {
		for _, wl := range wrapText(s.Question, textWidth) {
			body = append(body, ui.SelectedStyle.Render(wl))
		}
		body = append(body, "")

		switch s.State {
		case answer.Idle:
			if !m.cfg.HasAPIKey() {
				body = append(body, ui.ErrorTextStyle.Render("Set OPENAI_API_KEY to fetch answers"))
			} else {
				body = append(body, ui.DimStyle.Render("Press Enter to answer"))
			}
		case answer.Requesting:
			body = append(body, ui.SpinnerStyle.Render("Requesting answer..."))
		case answer.Streaming:
			for _, wl := range wrapText(s.Partial+"▌", textWidth) {
				body = append(body, ui.AnswerTextStyle.Render(wl))
			}
		case answer.Completed:
			for _, wl := range wrapText(s.Partial, textWidth) {
				body = append(body, ui.AnswerTextStyle.Render(wl))
			}
		case answer.Failed:
			for _, wl := range wrapText(s.Err, textWidth) {
				body = append(body, ui.ErrorTextStyle.Render(wl))
			}
			body = append(body, ui.DimStyle.Render("Press r to retry"))
		}
	}

	contentHeight := height - 1
	start := 0
	if len(body) > contentHeight {
		start = min(m.answerScroll, len(body)-contentHeight)
		if s.State == answer.Streaming {
			start = len(body) - contentHeight
		}
	}
	end := min(start+contentHeight, len(body))
	for _, l := range body[start:end] {
		lines = append(lines, "  "+l)
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string

	if m.connected {
		if m.listening {
			parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Stop"))
		} else {
			parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Listen"))
		}
	}
	parts = append(parts, ui.FooterKeyStyle.Render("Tab")+ui.FooterDescStyle.Render(" Focus"))
	parts = append(parts, ui.FooterKeyStyle.Render("j/k")+ui.FooterDescStyle.Render(" Nav"))
	parts = append(parts, ui.FooterKeyStyle.Render("Enter")+ui.FooterDescStyle.Render(" Answer"))
	parts = append(parts, ui.FooterKeyStyle.Render("r")+ui.FooterDescStyle.Render(" Refetch"))
	parts = append(parts, ui.FooterKeyStyle.Render("Esc")+ui.FooterDescStyle.Render(" Cancel"))
	parts = append(parts, ui.FooterKeyStyle.Render("c/x")+ui.FooterDescStyle.Render(" Clear"))
	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	// Simple truncation for non-styled strings
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
