package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Makepad-fr/workpanel/internal/config"
	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/session"
	"github.com/Makepad-fr/workpanel/internal/ui"
)

func (a *App) doLogin(args []string) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.Err)
	token := fs.String("token", "", "store this token instead of logging in")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *token != "" {
		if err := a.sess.Login(strings.TrimSpace(*token)); err != nil {
			return a.fail(err)
		}
		ui.OK(a.Out, "token saved")
		return 0
	}

	username, password, code := a.askCredentials(fs.Args())
	if code != 0 {
		return code
	}
	ctx, cancel := a.context()
	defer cancel()
	tok, err := a.client.Login(ctx, username, password)
	if err != nil {
		return a.fail(err)
	}
	if err := a.sess.Login(tok); err != nil {
		return a.fail(err)
	}
	ui.OK(a.Out, "logged in as "+username)
	return 0
}

func (a *App) doRegister(args []string) int {
	username, password, code := a.askCredentials(args)
	if code != 0 {
		return code
	}
	ctx, cancel := a.context()
	defer cancel()
	u, err := a.client.Register(ctx, model.Credentials{Username: username, Password: password})
	if err != nil {
		return a.fail(err)
	}
	ui.OK(a.Out, "registered "+u.Username)
	fmt.Fprintln(a.Out, ui.Current().Muted.Render("Next: workpanel login "+u.Username))
	return 0
}

// askCredentials takes the username from args or prompts for it, then
// prompts for the password. Both must be present.
func (a *App) askCredentials(args []string) (string, string, int) {
	if len(args) > 1 {
		return "", "", a.usage("workpanel login|register [username]")
	}
	var username string
	if len(args) == 1 {
		username = args[0]
	} else {
		var err error
		if username, err = a.readLine("Username: "); err != nil {
			return "", "", a.fail(err)
		}
	}
	password, err := a.readSecret("Password: ")
	if err != nil {
		return "", "", a.fail(err)
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		ui.Fail(a.Err, "Username and password are required.")
		return "", "", 2
	}
	return username, password, 0
}

func (a *App) doLogout() int {
	if a.sess.Source() == session.SourceEnv {
		ui.OK(a.Out, "token is provided by "+config.KeyToken+" (nothing to delete)")
		return 0
	}
	if !a.sess.IsLoggedIn() {
		ui.OK(a.Out, "already logged out")
		return 0
	}
	if err := a.sess.Logout(); err != nil {
		return a.fail(err)
	}
	ui.OK(a.Out, "logged out")
	return 0
}

func (a *App) doStatus() int {
	t := ui.Current()
	fmt.Fprintf(a.Out, "backend: %s\n", a.client.BaseURL())
	if !a.sess.IsLoggedIn() {
		fmt.Fprintln(a.Out, t.Muted.Render("not logged in"))
		fmt.Fprintln(a.Out, "Run: workpanel login")
		return 0
	}
	fmt.Fprintf(a.Out, "source: %s\n", a.sess.Source())
	if a.sess.Source() == session.SourceFile {
		fmt.Fprintf(a.Out, "file: %s\n", a.cfg.CredentialsPath)
	}
	tok, _ := a.sess.Token()
	if exp, ok := tokenExpiry(tok); ok {
		fmt.Fprintf(a.Out, "expires: %s\n", exp.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(a.Out, "expires: (unknown)")
	}
	fmt.Fprintf(a.Out, "env override: %s\n", config.KeyToken)
	return 0
}

// doWhoAmI decodes a JWT payload locally without verifying it. Opaque
// tokens only report their source.
func (a *App) doWhoAmI() int {
	tok, err := session.Require(a.sess)
	if err != nil {
		return a.fail(err)
	}
	if payload, ok := jwtPayload(tok); ok {
		fmt.Fprintln(a.Out, "JWT payload:")
		fmt.Fprintln(a.Out, payload)
		return 0
	}
	fmt.Fprintln(a.Out, "Opaque token (cannot introspect locally).")
	fmt.Fprintln(a.Out, "source:", a.sess.Source())
	return 0
}

func jwtPayload(token string) (string, bool) {
	claims, ok := unverifiedClaims(token)
	if !ok {
		return "", false
	}
	pretty, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return "", false
	}
	return string(pretty), true
}

func tokenExpiry(token string) (time.Time, bool) {
	claims, ok := unverifiedClaims(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// unverifiedClaims reads a JWT's claims without checking its signature; the
// client has no key and only displays them.
func unverifiedClaims(token string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}
