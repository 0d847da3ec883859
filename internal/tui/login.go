package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/workpanel/internal/ui"
)

// loginForm is shown whenever there is no token.
type loginForm struct {
	user, pass textinput.Model
	focus      int
	err        string
	busy       bool
}

func newLoginForm() loginForm {
	u := textinput.New()
	u.Prompt = "username > "
	u.CharLimit = 100
	p := textinput.New()
	p.Prompt = "password > "
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'
	p.CharLimit = 100
	f := loginForm{user: u, pass: p}
	f.user.Focus()
	return f
}

func (f *loginForm) reset() {
	f.user.SetValue("")
	f.pass.SetValue("")
	f.err = ""
	f.busy = false
	f.focus = 0
	f.pass.Blur()
	f.user.Focus()
}

func (f *loginForm) toggleFocus() {
	if f.focus == 0 {
		f.focus = 1
		f.user.Blur()
		f.pass.Focus()
		return
	}
	f.focus = 0
	f.pass.Blur()
	f.user.Focus()
}

// values returns the trimmed username and the password, or a message
// naming what is missing.
func (f loginForm) values() (string, string, string) {
	u := strings.TrimSpace(f.user.Value())
	p := f.pass.Value()
	if u == "" || p == "" {
		return "", "", "Username and password are required."
	}
	return u, p, ""
}

func (f loginForm) update(msg tea.Msg) (loginForm, tea.Cmd) {
	var c1, c2 tea.Cmd
	f.user, c1 = f.user.Update(msg)
	f.pass, c2 = f.pass.Update(msg)
	return f, tea.Batch(c1, c2)
}

func (f loginForm) view() string {
	t := ui.Current()
	lines := []string{
		t.Title.Render("Log in"),
		"",
		f.user.View(),
		f.pass.View(),
		"",
	}
	switch {
	case f.busy:
		lines = append(lines, t.Muted.Render("logging in"+t.SymPending))
	case f.err != "":
		lines = append(lines, t.Error.Render(f.err))
	default:
		lines = append(lines, t.Help.Render("tab switch field • enter log in • esc quit"))
	}
	return strings.Join(lines, "\n")
}
