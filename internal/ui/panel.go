package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/workpanel/internal/model"
)

// OK prints a success line.
func OK(w io.Writer, msg string) {
	t := current
	fmt.Fprintln(w, t.Success.Render(t.SymOK+" "+msg))
}

// Fail prints an error line.
func Fail(w io.Writer, msg string) {
	t := current
	fmt.Fprintln(w, t.Error.Render(t.SymFail+" "+msg))
}

// Box frames content with the theme's border.
func Box(content string) string {
	t := current
	return lipgloss.NewStyle().
		Border(t.Border).
		BorderForeground(t.BorderColor).
		Padding(0, 1).
		Render(content)
}

// Panel prints lines in a box.
func Panel(w io.Writer, lines []string) {
	fmt.Fprintln(w, Box(strings.Join(lines, "\n")))
}

// ProgressBar renders a bar with a done/total counter.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width <= 0 {
		width = 28
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("] %d/%d", done, total)
}

// Checkbox is the box symbol for a completion state.
func Checkbox(done bool) string {
	t := current
	if done {
		return t.Success.Render(t.BoxChecked)
	}
	return t.Muted.Render(t.BoxUnchecked)
}

// Priority colors a task priority by urgency.
func Priority(p model.Priority) string {
	t := current
	switch p {
	case model.PriorityTop:
		return t.Error.Render(string(p))
	case model.PriorityHigh:
		return t.Pending.Render(string(p))
	case model.PriorityLow:
		return t.Muted.Render(string(p))
	}
	return t.Accent.Render(string(p))
}

// TaskLine is one task as shown in lists: checkbox, description, priority
// and due date. pending marks a change still awaiting the server.
func TaskLine(task model.Task, pending bool) string {
	t := current
	text := task.Description
	if task.IsCompleted {
		text = t.Done.Render(text)
	}
	parts := []string{Checkbox(task.IsCompleted), text, Priority(task.Priority)}
	if task.DueDate != nil {
		parts = append(parts, t.Muted.Render("due "+task.DueDate.Format(model.DueDateLayout)))
	}
	if pending {
		parts = append(parts, t.Pending.Render(t.SymPending))
	}
	return strings.Join(parts, " ")
}

// ChallengeLine is one daily challenge as shown in lists.
func ChallengeLine(c model.DailyChallenge, pending bool) string {
	t := current
	title := t.Title.Render(c.Title)
	if c.IsCompleted {
		title = t.Done.Render(c.Title)
	}
	line := Checkbox(c.IsCompleted) + " " + title
	if c.Description != "" {
		line += " " + t.Muted.Render(c.Description)
	}
	if pending {
		line += " " + t.Pending.Render(t.SymPending)
	}
	return line
}
