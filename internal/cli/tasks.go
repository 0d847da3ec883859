package cli

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/panel"
	"github.com/Makepad-fr/workpanel/internal/tui"
	"github.com/Makepad-fr/workpanel/internal/ui"
)

func (a *App) doPanel() int {
	a.inTUI = true
	defer func() { a.inTUI = false }()
	err := a.interactive(tui.Options{
		Tasks:      a.tasks,
		Challenges: a.challenges,
		Session:    a.sess,
		Auth:       a.client,
		Timeout:    a.cfg.RequestTimeout,
		Logger:     a.l,
	})
	if err != nil {
		ui.Fail(a.Err, "tui: "+err.Error())
		return 1
	}
	return 0
}

func (a *App) loadTasks() int {
	ctx, cancel := a.context()
	defer cancel()
	if err := a.tasks.Load(ctx); err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *App) doTasks() int {
	if code := a.loadTasks(); code != 0 {
		return code
	}
	t := ui.Current()
	tasks := a.tasks.Tasks()

	lines := []string{
		fmt.Sprintf("%s   %s %d", t.Title.Render("Work panel"), t.Pending.Render(t.BoxUnchecked), len(tasks)),
		"",
	}
	if a.opt.Group {
		lines = append(lines, groupLines(tasks)...)
	} else {
		lines = append(lines, taskLines(tasks, 0)...)
	}
	lines = append(lines, "", t.Muted.Render(`Tip: add with workpanel add "Stretch for 10 minutes"`))
	ui.Panel(a.Out, lines)
	return 0
}

func (a *App) doAdd(args []string) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(a.Err)
	var d panel.Draft
	fs.StringVar(&d.Priority, "priority", "", "Low, Medium, High or Top")
	fs.StringVar(&d.DueDate, "due", "", "due date, YYYY-MM-DD")
	fs.StringVar(&d.Category, "category", "", strings.Join(panel.Categories, ", "))
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		return a.usage("workpanel add [--priority P] [--due YYYY-MM-DD] [--category C] <description...>")
	}
	d.Description = strings.Join(fs.Args(), " ")

	ctx, cancel := a.context()
	defer cancel()
	task, err := a.tasks.Create(ctx, d)
	if err != nil {
		return a.fail(err)
	}
	ui.OK(a.Out, "added "+task.Description)
	return 0
}

func (a *App) doComplete(args []string) int {
	task, code := a.taskAt("done", args)
	if code != 0 {
		return code
	}
	ctx, cancel := a.context()
	defer cancel()
	if _, err := a.tasks.Complete(ctx, task.ID); err != nil {
		return a.fail(err)
	}
	ui.OK(a.Out, "completed "+task.Description)
	return 0
}

func (a *App) doRemove(args []string) int {
	task, code := a.taskAt("rm", args)
	if code != 0 {
		return code
	}
	ctx, cancel := a.context()
	defer cancel()
	if err := a.tasks.Delete(ctx, task.ID); err != nil {
		return a.fail(err)
	}
	ui.OK(a.Out, "removed "+task.Description)
	return 0
}

// taskAt loads the panel and resolves a 1-based index into it.
func (a *App) taskAt(cmd string, args []string) (model.Task, int) {
	if len(args) != 1 {
		return model.Task{}, a.usage("workpanel " + cmd + " <index>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		ui.Fail(a.Err, cmd+": not a number: "+args[0])
		return model.Task{}, 2
	}
	if code := a.loadTasks(); code != 0 {
		return model.Task{}, code
	}
	tasks := a.tasks.Tasks()
	if n < 1 || n > len(tasks) {
		ui.Fail(a.Err, fmt.Sprintf("index out of range: have %d, got %d", len(tasks), n))
		fmt.Fprintln(a.Err, ui.Current().Muted.Render("Hint: run `workpanel tasks` to see valid indexes"))
		return model.Task{}, 2
	}
	return tasks[n-1], 0
}

func taskLines(tasks []model.Task, offset int) []string {
	if len(tasks) == 0 {
		return []string{ui.Current().Muted.Render("nothing pending")}
	}
	out := make([]string, 0, len(tasks))
	for i, t := range tasks {
		idx := ui.Current().Muted.Render(fmt.Sprintf("%2d.", offset+i+1))
		out = append(out, idx+" "+ui.TaskLine(t, false))
	}
	return out
}

// groupLines lists tasks under their priority, most urgent first. Indexes
// stay those of the flat list so done and rm keep working.
func groupLines(tasks []model.Task) []string {
	t := ui.Current()
	prios := model.Priorities()
	var lines []string
	for i := len(prios) - 1; i >= 0; i-- {
		p := prios[i]
		lines = append(lines, t.Accent.Render(string(p)))
		n := 0
		for j, task := range tasks {
			if task.Priority == p {
				lines = append(lines, taskLines([]model.Task{task}, j)...)
				n++
			}
		}
		if n == 0 {
			lines = append(lines, t.Muted.Render("(none)"))
		}
		if i > 0 {
			lines = append(lines, "")
		}
	}
	return lines
}
