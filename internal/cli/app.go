// Package cli routes workpanel subcommands. Every command returns an exit
// code: 0 ok, 1 error, 2 usage or not logged in.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"

	"github.com/Makepad-fr/workpanel/internal/api"
	"github.com/Makepad-fr/workpanel/internal/config"
	"github.com/Makepad-fr/workpanel/internal/logging"
	"github.com/Makepad-fr/workpanel/internal/panel"
	"github.com/Makepad-fr/workpanel/internal/session"
	"github.com/Makepad-fr/workpanel/internal/tui"
	"github.com/Makepad-fr/workpanel/internal/ui"
)

// Options tune behavior from root flags.
type Options struct {
	Group  bool   // task lists grouped by priority
	Server string // overrides the configured backend URL
	Theme  string // overrides the configured theme
}

// App is one invocation's wiring: configuration, session, client and views.
type App struct {
	Out, Err io.Writer

	cfg        config.Config
	opt        Options
	l          logging.Logger
	in         *bufio.Reader
	stdin      io.Reader
	sess       *session.Session
	client     *api.Client
	tasks      *panel.WorkPanel
	challenges *panel.DailyChallenges
	rand       *rand.Rand

	// interactive runs the full-screen panel.
	interactive func(tui.Options) error
	// inTUI silences the logout notice while the panel owns the screen.
	inTUI bool
}

// Run loads configuration, wires everything and dispatches args.
func Run(args []string, opt Options) int {
	cfg, err := config.Load()
	if err != nil {
		ui.Fail(os.Stderr, "config: "+err.Error())
		return 1
	}
	l, closer, err := logging.OpenFile(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		ui.Fail(os.Stderr, "log: "+err.Error())
		return 1
	}
	defer closer.Close()

	storage := &session.FileStore{Path: cfg.CredentialsPath, EnvKey: config.KeyToken}
	app, err := New(cfg, opt, l, storage, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return 1
	}
	return app.Run(args)
}

// New wires an App. storage backs the session; in, out and errOut stand in
// for the terminal.
func New(cfg config.Config, opt Options, l logging.Logger, storage session.Storage, in io.Reader, out, errOut io.Writer) (*App, error) {
	if l == nil {
		l = logging.Discard()
	}
	if opt.Server != "" {
		cfg.BackendURL = strings.TrimRight(opt.Server, "/")
	}
	if opt.Theme != "" {
		cfg.Theme = opt.Theme
	}
	ui.SetTheme(cfg.Theme)

	a := &App{
		Out:         out,
		Err:         errOut,
		cfg:         cfg,
		opt:         opt,
		l:           l,
		in:          bufio.NewReader(in),
		stdin:       in,
		rand:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		interactive: tui.Run,
	}

	sess, err := session.New(storage,
		session.WithLogger(l),
		session.OnLogout(a.loggedOut),
	)
	if err != nil {
		return nil, err
	}
	a.sess = sess

	clientOpts := []api.Option{api.WithLogger(l)}
	if cfg.LogoutOnUnauthorized {
		clientOpts = append(clientOpts, api.OnUnauthorized(func() {
			l.Warn("token rejected, logging out")
			_ = sess.Logout()
		}))
	}
	a.client = api.New(cfg.BackendURL, sess, clientOpts...)
	a.tasks = panel.NewWorkPanel(a.client, sess, l)
	a.challenges = panel.NewDailyChallenges(a.client, sess, l)
	return a, nil
}

// Run dispatches subcommands and returns an exit code.
func (a *App) Run(args []string) int {
	if len(args) == 0 {
		a.printHelp()
		return 2
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		a.printHelp()
		return 0
	case "login":
		return a.doLogin(rest)
	case "register":
		return a.doRegister(rest)
	case "logout":
		return a.doLogout()
	case "status":
		return a.doStatus()
	case "whoami":
		return a.doWhoAmI()
	case "ls", "panel":
		return a.doPanel()
	case "tasks":
		return a.doTasks()
	case "add":
		return a.doAdd(rest)
	case "done":
		return a.doComplete(rest)
	case "rm":
		return a.doRemove(rest)
	case "challenges":
		return a.doChallenges()
	case "challenge":
		return a.doChallenge(rest)
	case "random":
		return a.doRandom(rest)
	}

	ui.Fail(a.Err, "unknown subcommand: "+cmd)
	fmt.Fprintln(a.Err)
	a.printHelp()
	return 2
}

// loggedOut is the session's OnLogout hook: point the user back at login.
func (a *App) loggedOut() {
	if a.inTUI {
		return
	}
	fmt.Fprintln(a.Err, ui.Current().Muted.Render("Logged out. Run: workpanel login"))
}

func (a *App) context() (context.Context, context.CancelFunc) {
	if a.cfg.RequestTimeout > 0 {
		return context.WithTimeout(context.Background(), a.cfg.RequestTimeout)
	}
	return context.WithCancel(context.Background())
}

// fail prints err the way the user should see it and picks the exit code.
func (a *App) fail(err error) int {
	ui.Fail(a.Err, panel.UserMessage(err))
	switch {
	case errors.Is(err, session.ErrNotLoggedIn), errors.Is(err, panel.ErrValidation):
		return 2
	}
	return 1
}

func (a *App) usage(msg string) int {
	ui.Fail(a.Err, "usage: "+msg)
	return 2
}

func (a *App) readLine(prompt string) (string, error) {
	fmt.Fprint(a.Err, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readSecret reads without echo when stdin is a terminal.
func (a *App) readSecret(prompt string) (string, error) {
	f, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return a.readLine(prompt)
	}
	fmt.Fprint(a.Err, prompt)
	b, err := term.ReadPassword(f.Fd())
	fmt.Fprintln(a.Err)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func (a *App) printHelp() {
	fmt.Fprint(a.Out, `workpanel - tasks and daily challenges from your terminal

Usage:
  workpanel [--server URL] [--theme classic|neon|mono] [--group] <subcommand> [args]

Account:
  register [username]          Create an account
  login [username]             Log in (password is prompted)
  login --token TOKEN          Store a token you already have
  logout                       Forget the stored token
  status                       Show where the token comes from
  whoami                       Decode the token payload if it is a JWT

Tasks:
  ls | panel                   Interactive work panel
  tasks                        Print pending tasks
  add [flags] <description...> Add a task
      --priority Low|Medium|High|Top   (default Medium)
      --due YYYY-MM-DD
      --category Training|Cleaning|Study
  done <index>                 Complete the task at 1-based index
  rm <index>                   Delete the task at 1-based index

Challenges:
  challenges                   Today's daily challenges
  challenge done <index|id>    Complete a daily challenge
  random [section]             Browse random challenge ideas
  random pick [section|any]    Pick one at random

Environment:
  WORKPANEL_TOKEN overrides the stored token; see workpanel.conf for the rest.
`)
}
