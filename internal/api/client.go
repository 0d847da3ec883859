// Package api is the REST client for the task backend. Authorized calls take
// their bearer token from a session.TokenSource and refuse to send anything
// when there is none.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Makepad-fr/workpanel/internal/logging"
	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/session"
)

// DefaultBaseURL is where the backend listens in development.
const DefaultBaseURL = "http://localhost:8000"

type Client struct {
	baseURL        string
	hc             *http.Client
	tokens         session.TokenSource
	l              logging.Logger
	onUnauthorized func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.l = l }
}

// OnUnauthorized runs fn whenever an authorized call gets a 401. Unset by
// default: a 401 is then reported like any other server error.
func OnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(baseURL string, tokens session.TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      http.DefaultClient,
		tokens:  tokens,
		l:       logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Login exchanges a username and password for an access token. It does not
// touch the session; the caller decides what to do with the token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok model.AccessToken
	req := request{
		method:      http.MethodPost,
		path:        "/auth/token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}
	if err := c.do(ctx, req, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("login: response has no access_token")
	}
	return tok.AccessToken, nil
}

func (c *Client) Register(ctx context.Context, creds model.Credentials) (model.User, error) {
	var u model.User
	req, err := jsonRequest(http.MethodPost, "/users/", creds)
	if err != nil {
		return u, err
	}
	err = c.do(ctx, req, &u)
	return u, err
}

func (c *Client) ListTodos(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := c.do(ctx, request{method: http.MethodGet, path: "/todos/", auth: true}, &tasks)
	return tasks, err
}

func (c *Client) CreateTodo(ctx context.Context, t model.NewTask) (model.Task, error) {
	var created model.Task
	req, err := jsonRequest(http.MethodPost, "/todos/", t)
	if err != nil {
		return created, err
	}
	req.auth = true
	err = c.do(ctx, req, &created)
	return created, err
}

func (c *Client) CompleteTodo(ctx context.Context, id string) (model.Task, error) {
	var updated model.Task
	req := request{
		method:      http.MethodPut,
		path:        "/todos/" + url.PathEscape(id) + "/complete",
		contentType: "application/json",
		auth:        true,
	}
	err := c.do(ctx, req, &updated)
	return updated, err
}

// DeleteTodo succeeds only on 204 No Content.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	req := request{
		method: http.MethodDelete,
		path:   "/todos/" + url.PathEscape(id),
		auth:   true,
		expect: http.StatusNoContent,
	}
	return c.do(ctx, req, nil)
}

func (c *Client) ListDailyChallenges(ctx context.Context) ([]model.DailyChallenge, error) {
	var cs []model.DailyChallenge
	req := request{
		method:      http.MethodGet,
		path:        "/daily-challenges/",
		contentType: "application/json",
		auth:        true,
	}
	err := c.do(ctx, req, &cs)
	return cs, err
}

func (c *Client) CompleteDailyChallenge(ctx context.Context, id string) (model.DailyChallenge, error) {
	var ch model.DailyChallenge
	req := request{
		method:      http.MethodPost,
		path:        "/daily-challenges/" + url.PathEscape(id) + "/complete",
		contentType: "application/json",
		auth:        true,
	}
	err := c.do(ctx, req, &ch)
	return ch, err
}

// -------------- plumbing ----------------

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	auth        bool
	expect      int // exact status required; 0 means any 2xx
}

func jsonRequest(method, path string, payload any) (request, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("json marshal: %w", err)
	}
	return request{
		method:      method,
		path:        path,
		body:        bytes.NewReader(b),
		contentType: "application/json",
	}, nil
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var token string
	if r.auth {
		tok, err := session.Require(c.tokens)
		if err != nil {
			return err
		}
		token = tok
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.l.Warn("request failed", "method", r.method, "path", r.path, "error", err)
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	c.l.Debug("request", "method", r.method, "path", r.path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseError(resp, body)
		if apiErr.Unauthorized() && r.auth && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}
	if r.expect != 0 && resp.StatusCode != r.expect {
		return fmt.Errorf("%w: want %d, got %d", ErrUnexpectedStatus, r.expect, resp.StatusCode)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}
