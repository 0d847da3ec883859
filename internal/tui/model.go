// Package tui is the interactive work panel: pending tasks, today's
// challenges and a login screen, on Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/workpanel/internal/logging"
	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/optimistic"
	"github.com/Makepad-fr/workpanel/internal/panel"
	"github.com/Makepad-fr/workpanel/internal/session"
	"github.com/Makepad-fr/workpanel/internal/ui"
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type Options struct {
	Tasks      *panel.WorkPanel
	Challenges *panel.DailyChallenges
	Session    *session.Session
	Auth       Authenticator
	// Timeout bounds each request; zero means none.
	Timeout time.Duration
	Logger  logging.Logger
}

type view int

const (
	viewTasks view = iota
	viewChallenges
	viewLogin
)

type (
	loadedMsg   struct{ err error }
	resolvedMsg struct {
		what string
		err  error
	}
	createdMsg struct {
		task model.Task
		err  error
	}
	loggedInMsg struct{ err error }
)

// Model implements tea.Model.
type Model struct {
	opts Options
	l    logging.Logger

	view       view
	tasks      list.Model
	challenges list.Model
	login      loginForm
	spin       spinner.Model
	inflight   int

	adding bool
	ti     textinput.Model
	addErr string

	status    string
	statusErr bool

	width, height int
}

func New(opts Options) Model {
	l := opts.Logger
	if l == nil {
		l = logging.Discard()
	}
	m := Model{
		opts:       opts,
		l:          l,
		tasks:      newList("Work panel"),
		challenges: newList("Daily challenges"),
		login:      newLoginForm(),
		spin:       spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		width:      80,
		height:     24,
	}
	m.tasks.SetStatusBarItemName("task", "tasks")
	m.challenges.SetStatusBarItemName("challenge", "challenges")
	m.tasks.AdditionalShortHelpKeys = keys.taskHelp
	m.tasks.AdditionalFullHelpKeys = keys.taskHelp
	m.challenges.AdditionalShortHelpKeys = keys.challengeHelp
	m.challenges.AdditionalFullHelpKeys = keys.challengeHelp

	m.ti = textinput.New()
	m.ti.Prompt = "> "
	m.ti.Placeholder = "What needs doing?"
	m.ti.CharLimit = 200

	if opts.Session.IsLoggedIn() {
		m.inflight = 1 // Init loads
	} else {
		m.view = viewLogin
	}
	m.resize()
	return m
}

// Run starts the program in the alternate screen and blocks until the user
// quits.
func Run(opts Options) error {
	_, err := tea.NewProgram(New(opts), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	if m.view == viewLogin {
		return textinput.Blink
	}
	return tea.Batch(m.spin.Tick, m.load())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case loadedMsg:
		m.done()
		m.report("", msg.err)
		return m.afterServer(), nil
	case resolvedMsg:
		m.done()
		m.report(msg.what, msg.err)
		return m.afterServer(), nil
	case createdMsg:
		m.done()
		if errors.Is(msg.err, panel.ErrValidation) {
			m.adding = true
			m.addErr = panel.UserMessage(msg.err)
			m.ti.Focus()
			return m, nil
		}
		m.report("added "+msg.task.Description, msg.err)
		m.refresh()
		if msg.err == nil {
			m.tasks.Select(0)
		}
		return m.afterServer(), nil
	case loggedInMsg:
		m.done()
		m.login.busy = false
		if msg.err != nil {
			m.login.err = panel.UserMessage(msg.err)
			return m, nil
		}
		m.login.reset()
		m.view = viewTasks
		m.setStatus("logged in", false)
		cmd := m.resolve(m.load())
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.passToActive(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch {
	case m.view == viewLogin:
		return m.loginKey(msg)
	case m.adding:
		return m.addKey(msg)
	case m.active().FilterState() == list.Filtering:
		return m.passToActive(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Switch):
		if m.view == viewTasks {
			m.view = viewChallenges
		} else {
			m.view = viewTasks
		}
		m.status = ""
		return m, nil
	case key.Matches(msg, keys.Refresh):
		cmd := m.resolve(m.load())
		return m, cmd
	case key.Matches(msg, keys.Logout):
		if err := m.opts.Session.Logout(); err != nil {
			m.setStatus(err.Error(), true)
		}
		return m.afterServer(), nil
	case key.Matches(msg, keys.Complete):
		return m.complete()
	case m.view == viewTasks && key.Matches(msg, keys.Delete):
		return m.delete()
	case m.view == viewTasks && key.Matches(msg, keys.Add):
		m.adding = true
		m.addErr = ""
		m.ti.SetValue("")
		m.ti.Focus()
		m.resize()
		return m, textinput.Blink
	}
	return m.passToActive(msg)
}

func (m Model) complete() (tea.Model, tea.Cmd) {
	switch m.view {
	case viewTasks:
		it, ok := m.tasks.SelectedItem().(taskItem)
		if !ok {
			return m, nil
		}
		op, err := m.opts.Tasks.BeginComplete(it.task.ID)
		if err != nil {
			m.report("", err)
			return m.afterServer(), nil
		}
		m.refresh()
		cmd := m.resolve(resolveCmd(m.requestContext, op, "completed "+it.task.Description))
		return m, cmd
	case viewChallenges:
		it, ok := m.challenges.SelectedItem().(challengeItem)
		if !ok {
			return m, nil
		}
		op, err := m.opts.Challenges.BeginComplete(it.challenge.ID)
		if err != nil {
			m.report("", err)
			return m.afterServer(), nil
		}
		m.refresh()
		cmd := m.resolve(resolveCmd(m.requestContext, op, "completed "+it.challenge.Title))
		return m, cmd
	}
	return m, nil
}

func (m Model) delete() (tea.Model, tea.Cmd) {
	it, ok := m.tasks.SelectedItem().(taskItem)
	if !ok {
		return m, nil
	}
	op, err := m.opts.Tasks.BeginDelete(it.task.ID)
	if err != nil {
		m.report("", err)
		return m.afterServer(), nil
	}
	m.refresh()
	cmd := m.resolve(resolveCmd(m.requestContext, op, "deleted "+it.task.Description))
	return m, cmd
}

func (m Model) addKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.adding = false
		m.ti.Blur()
		m.resize()
		draft := panel.Draft{Description: m.ti.Value()}
		m.ti.SetValue("")
		tasks, ctxFn := m.opts.Tasks, m.requestContext
		cmd := m.resolve(func() tea.Msg {
			ctx, cancel := ctxFn()
			defer cancel()
			t, err := tasks.Create(ctx, draft)
			return createdMsg{task: t, err: err}
		})
		return m, cmd
	case tea.KeyEsc:
		m.adding = false
		m.addErr = ""
		m.ti.SetValue("")
		m.ti.Blur()
		m.resize()
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) loginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.login.toggleFocus()
		return m, nil
	case tea.KeyEnter:
		if m.login.busy {
			return m, nil
		}
		user, pass, problem := m.login.values()
		if problem != "" {
			m.login.err = problem
			return m, nil
		}
		m.login.busy = true
		m.login.err = ""
		auth, sess, ctxFn := m.opts.Auth, m.opts.Session, m.requestContext
		cmd := m.resolve(func() tea.Msg {
			ctx, cancel := ctxFn()
			defer cancel()
			token, err := auth.Login(ctx, user, pass)
			if err == nil {
				err = sess.Login(token)
			}
			return loggedInMsg{err: err}
		})
		return m, cmd
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.update(msg)
	return m, cmd
}

// resolve counts a request as in flight while cmd runs.
func (m *Model) resolve(cmd tea.Cmd) tea.Cmd {
	m.inflight++
	return tea.Batch(m.spin.Tick, cmd)
}

func (m *Model) done() {
	if m.inflight > 0 {
		m.inflight--
	}
}

func resolveCmd[T any](ctxFn func() (context.Context, context.CancelFunc), op *optimistic.Op[T], what string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := ctxFn()
		defer cancel()
		_, err := op.Resolve(ctx)
		return resolvedMsg{what: what, err: err}
	}
}

func (m Model) load() tea.Cmd {
	tasks, chals, ctxFn := m.opts.Tasks, m.opts.Challenges, m.requestContext
	return func() tea.Msg {
		ctx, cancel := ctxFn()
		defer cancel()
		if err := tasks.Load(ctx); err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{err: chals.Load(ctx)}
	}
}

func (m Model) requestContext() (context.Context, context.CancelFunc) {
	if m.opts.Timeout > 0 {
		return context.WithTimeout(context.Background(), m.opts.Timeout)
	}
	return context.WithCancel(context.Background())
}

// afterServer refreshes the lists and falls back to the login screen once
// the session is gone.
func (m Model) afterServer() Model {
	m.refresh()
	if !m.opts.Session.IsLoggedIn() && m.view != viewLogin {
		m.view = viewLogin
		m.adding = false
		m.login.reset()
		m.setStatus("logged out", false)
	}
	return m
}

func (m *Model) report(what string, err error) {
	switch {
	case err != nil:
		m.l.Warn("request failed", "err", err)
		m.setStatus(panel.UserMessage(err), true)
	case what != "":
		m.setStatus(what, false)
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) refresh() {
	m.tasks.SetItems(taskItems(m.opts.Tasks))
	m.challenges.SetItems(challengeItems(m.opts.Challenges))
}

func (m *Model) active() *list.Model {
	if m.view == viewChallenges {
		return &m.challenges
	}
	return &m.tasks
}

func (m Model) passToActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case viewLogin:
		m.login, cmd = m.login.update(msg)
	case viewChallenges:
		m.challenges, cmd = m.challenges.Update(msg)
	default:
		m.tasks, cmd = m.tasks.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize() {
	h := m.height - 6
	if m.adding {
		h -= 3
	}
	if h < 3 {
		h = 3
	}
	m.tasks.SetSize(m.width-4, h)
	m.challenges.SetSize(m.width-4, h-1)
}

func (m Model) View() string {
	t := ui.Current()
	var b strings.Builder

	switch m.view {
	case viewLogin:
		b.WriteString(m.login.view())
	case viewChallenges:
		b.WriteString(m.header())
		b.WriteString("\n")
		if m.opts.Challenges.AllCompleted() {
			b.WriteString(t.Success.Render(t.SymOK + " All of today's challenges are done!"))
			b.WriteString("\n")
		}
		b.WriteString(m.challenges.View())
	default:
		b.WriteString(m.header())
		b.WriteString("\n")
		b.WriteString(m.tasks.View())
		if m.adding {
			title := "Add task"
			if m.addErr != "" {
				title += ": " + t.Error.Render(m.addErr)
			}
			b.WriteString("\n")
			b.WriteString(ui.Box(title + "\n" + m.ti.View()))
		}
	}

	if m.status != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString(t.Error.Render(t.SymFail + " " + m.status))
		} else {
			b.WriteString(t.Muted.Render(m.status))
		}
	}
	return ui.Box(b.String())
}

func (m Model) header() string {
	t := ui.Current()
	tasks := m.opts.Tasks.Tasks()
	cs := m.opts.Challenges.Challenges()
	done := 0
	for _, c := range cs {
		if c.IsCompleted {
			done++
		}
	}
	h := fmt.Sprintf("%s %d pending   %s %s",
		t.Pending.Render(t.BoxUnchecked), len(tasks),
		t.Accent.Render("challenges"), ui.ProgressBar(done, len(cs), 10),
	)
	if m.inflight > 0 {
		h += "  " + m.spin.View()
	}
	return h
}
