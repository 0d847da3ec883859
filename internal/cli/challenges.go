package cli

import (
	"fmt"
	"strconv"

	"github.com/Makepad-fr/workpanel/internal/challenges"
	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/ui"
)

func (a *App) loadChallenges() int {
	ctx, cancel := a.context()
	defer cancel()
	if err := a.challenges.Load(ctx); err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *App) doChallenges() int {
	if code := a.loadChallenges(); code != 0 {
		return code
	}
	t := ui.Current()
	cs := a.challenges.Challenges()
	done := 0
	for _, c := range cs {
		if c.IsCompleted {
			done++
		}
	}

	lines := []string{
		t.Title.Render("Daily challenges"),
		t.Muted.Render(ui.ProgressBar(done, len(cs), 28)),
		"",
	}
	if len(cs) == 0 {
		lines = append(lines, t.Muted.Render("no challenges today"))
	}
	for i, c := range cs {
		lines = append(lines, t.Muted.Render(fmt.Sprintf("%2d.", i+1))+" "+ui.ChallengeLine(c, false))
	}
	if a.challenges.AllCompleted() {
		lines = append(lines, "", t.Success.Render(t.SymOK+" All of today's challenges are done!"))
	}
	ui.Panel(a.Out, lines)
	return 0
}

func (a *App) doChallenge(args []string) int {
	if len(args) != 2 || args[0] != "done" {
		return a.usage("workpanel challenge done <index|id>")
	}
	if code := a.loadChallenges(); code != 0 {
		return code
	}
	c, ok := a.challengeRef(args[1])
	if !ok {
		ui.Fail(a.Err, "no such challenge today: "+args[1])
		fmt.Fprintln(a.Err, ui.Current().Muted.Render("Hint: run `workpanel challenges` to see valid indexes"))
		return 2
	}

	ctx, cancel := a.context()
	defer cancel()
	if _, err := a.challenges.Complete(ctx, c.ID); err != nil {
		return a.fail(err)
	}
	ui.OK(a.Out, "completed "+c.Title)
	if a.challenges.AllCompleted() {
		ui.OK(a.Out, "All of today's challenges are done!")
	}
	return 0
}

// challengeRef accepts a 1-based index or a challenge id.
func (a *App) challengeRef(ref string) (model.DailyChallenge, bool) {
	cs := a.challenges.Challenges()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(cs) {
			return model.DailyChallenge{}, false
		}
		return cs[n-1], true
	}
	for _, c := range cs {
		if c.ID == ref {
			return c, true
		}
	}
	return model.DailyChallenge{}, false
}

// doRandom browses the static catalogue; no login needed.
func (a *App) doRandom(args []string) int {
	t := ui.Current()
	switch {
	case len(args) == 0:
		for _, s := range challenges.Sections() {
			a.printSection(s)
		}
		return 0
	case args[0] == "pick":
		if len(args) > 2 {
			return a.usage("workpanel random pick [section|any]")
		}
		key := "any"
		if len(args) == 2 {
			key = args[1]
		}
		s, entry, err := challenges.Pick(key, a.rand)
		if err != nil {
			ui.Fail(a.Err, err.Error())
			return 2
		}
		ui.Panel(a.Out, []string{t.Accent.Render(s.Title), entry})
		return 0
	case len(args) == 1:
		s, err := challenges.Lookup(args[0])
		if err != nil {
			ui.Fail(a.Err, err.Error())
			return 2
		}
		a.printSection(s)
		return 0
	}
	return a.usage("workpanel random [section] | random pick [section|any]")
}

func (a *App) printSection(s challenges.Section) {
	t := ui.Current()
	lines := []string{t.Title.Render(s.Title) + " " + t.Muted.Render("("+s.Key+")")}
	for _, e := range s.Entries {
		lines = append(lines, t.Muted.Render("•")+" "+e)
	}
	ui.Panel(a.Out, lines)
}
