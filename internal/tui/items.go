package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/panel"
	"github.com/Makepad-fr/workpanel/internal/ui"
)

// taskItem adapts a task to bubbles/list.Item.
type taskItem struct {
	task    model.Task
	pending bool
}

func (i taskItem) FilterValue() string { return i.task.Description }

type challengeItem struct {
	challenge model.DailyChallenge
	pending   bool
}

func (i challengeItem) FilterValue() string { return i.challenge.Title }

// lineDelegate renders every item on a single line.
type lineDelegate struct{}

func (d lineDelegate) Height() int                         { return 1 }
func (d lineDelegate) Spacing() int                        { return 0 }
func (d lineDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d lineDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	var line string
	switch it := item.(type) {
	case taskItem:
		line = ui.TaskLine(it.task, it.pending)
	case challengeItem:
		line = ui.ChallengeLine(it.challenge, it.pending)
	default:
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = ui.Current().Selected.Render(">") + " "
	}
	fmt.Fprint(w, prefix+line)
}

func taskItems(p *panel.WorkPanel) []list.Item {
	tasks := p.Tasks()
	out := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskItem{task: t, pending: p.IsPending(t.ID)})
	}
	return out
}

func challengeItems(v *panel.DailyChallenges) []list.Item {
	cs := v.Challenges()
	out := make([]list.Item, 0, len(cs))
	for _, c := range cs {
		out = append(out, challengeItem{challenge: c, pending: v.IsPending(c.ID)})
	}
	return out
}

func newList(title string) list.Model {
	t := ui.Current()
	l := list.New(nil, lineDelegate{}, 0, 0)
	l.Title = title
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = t.Title
	l.Styles.HelpStyle = t.Help
	l.Styles.PaginationStyle = t.Help
	l.FilterInput.Prompt = "/ "
	return l
}
