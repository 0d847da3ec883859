package panel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/workpanel/internal/api"
	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/session"
)

// fakeAPI is an in-memory backend whose answers the test controls.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	tasks      []model.Task
	challenges []model.DailyChallenge
	created    []model.NewTask

	fail    error
	release chan struct{} // when set, requests wait for it
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	release, fail := f.release, f.fail
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return fail
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) ListTodos(context.Context) ([]model.Task, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	return f.tasks, nil
}

func (f *fakeAPI) CreateTodo(_ context.Context, nt model.NewTask) (model.Task, error) {
	if err := f.record("create"); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	f.created = append(f.created, nt)
	f.mu.Unlock()
	return model.Task{ID: "srv-1", Description: nt.Description, Priority: nt.Priority, DueDate: nt.DueDate}, nil
}

func (f *fakeAPI) CompleteTodo(_ context.Context, id string) (model.Task, error) {
	if err := f.record("complete " + id); err != nil {
		return model.Task{}, err
	}
	now := time.Now()
	return model.Task{ID: id, IsCompleted: true, CompletedAt: &now}, nil
}

func (f *fakeAPI) DeleteTodo(_ context.Context, id string) error {
	return f.record("delete " + id)
}

func (f *fakeAPI) ListDailyChallenges(context.Context) ([]model.DailyChallenge, error) {
	if err := f.record("challenges"); err != nil {
		return nil, err
	}
	return f.challenges, nil
}

func (f *fakeAPI) CompleteDailyChallenge(_ context.Context, id string) (model.DailyChallenge, error) {
	if err := f.record("challenge " + id); err != nil {
		return model.DailyChallenge{}, err
	}
	now := time.Now()
	return model.DailyChallenge{ID: id, Title: "server", IsCompleted: true, CompletedAt: &now}, nil
}

func loggedIn(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(session.NewMemoryStore("tok"))
	require.NoError(t, err)
	return s
}

func loggedOut(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(session.NewMemoryStore(""))
	require.NoError(t, err)
	return s
}

func TestWorkPanelLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("KeepsOnlyPending", func(t *testing.T) {
		f := &fakeAPI{tasks: []model.Task{{ID: "1"}, {ID: "2", IsCompleted: true}, {ID: "3"}}}
		p := NewWorkPanel(f, loggedIn(t), nil)
		require.NoError(t, p.Load(ctx))
		assert.Equal(t, []model.Task{{ID: "1"}, {ID: "3"}}, p.Tasks())
	})

	t.Run("RefreshKeepsChangesAwaitingServer", func(t *testing.T) {
		f := &fakeAPI{tasks: []model.Task{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
		p := NewWorkPanel(f, loggedIn(t), nil)
		require.NoError(t, p.Load(ctx))

		del, err := p.BeginDelete("2")
		require.NoError(t, err)
		done, err := p.BeginComplete("3")
		require.NoError(t, err)

		require.NoError(t, p.Load(ctx))
		assert.Equal(t, []string{"1", "3"}, ids(p.Tasks()))
		got, _ := p.tasks.Get("3")
		assert.True(t, got.IsCompleted)

		_, err = del.Resolve(ctx)
		require.NoError(t, err)
		_, err = done.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, ids(p.Tasks()))
	})

	t.Run("CreatedTaskListedOnce", func(t *testing.T) {
		f := &fakeAPI{tasks: []model.Task{{ID: "srv-1", Description: "x"}, {ID: "1"}}}
		p := NewWorkPanel(f, loggedIn(t), nil)
		require.NoError(t, p.Load(ctx))
		_, err := p.Create(ctx, Draft{Description: "x"})
		require.NoError(t, err)
		assert.Equal(t, []string{"srv-1", "1"}, ids(p.Tasks()))
	})

	t.Run("RequiresLogin", func(t *testing.T) {
		f := &fakeAPI{}
		p := NewWorkPanel(f, loggedOut(t), nil)
		err := p.Load(ctx)
		assert.ErrorIs(t, err, session.ErrNotLoggedIn)
		assert.Empty(t, f.Calls())
	})
}

func TestWorkPanelCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyDescriptionSendsNothing", func(t *testing.T) {
		f := &fakeAPI{}
		p := NewWorkPanel(f, loggedIn(t), nil)
		_, err := p.Create(ctx, Draft{Description: "   "})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "Description is required.", UserMessage(err))
		assert.Empty(t, f.Calls())
	})

	t.Run("AddedAfterServerAssignsID", func(t *testing.T) {
		f := &fakeAPI{tasks: []model.Task{{ID: "old"}}}
		p := NewWorkPanel(f, loggedIn(t), nil)
		require.NoError(t, p.Load(ctx))

		task, err := p.Create(ctx, Draft{Description: " run 5k ", Category: "training", DueDate: "2025-06-21"})
		require.NoError(t, err)
		assert.Equal(t, "srv-1", task.ID)
		assert.Equal(t, []string{"srv-1", "old"}, ids(p.Tasks()))

		require.Len(t, f.created, 1)
		nt := f.created[0]
		assert.Equal(t, "[Training] run 5k", nt.Description)
		assert.Equal(t, model.PriorityMedium, nt.Priority)
		b, err := json.Marshal(nt)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"due_date":"2025-06-21T00:00:00Z"`)
	})

	t.Run("BadInputIsLocal", func(t *testing.T) {
		f := &fakeAPI{}
		p := NewWorkPanel(f, loggedIn(t), nil)
		_, err := p.Create(ctx, Draft{Description: "x", Priority: "urgent"})
		assert.ErrorIs(t, err, ErrValidation)
		_, err = p.Create(ctx, Draft{Description: "x", DueDate: "21/06/2025"})
		assert.ErrorIs(t, err, ErrValidation)
		_, err = p.Create(ctx, Draft{Description: "x", Category: "Gardening"})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, f.Calls())
	})

	t.Run("ServerErrorLeavesListAlone", func(t *testing.T) {
		f := &fakeAPI{tasks: []model.Task{{ID: "old"}}}
		p := NewWorkPanel(f, loggedIn(t), nil)
		require.NoError(t, p.Load(ctx))
		f.fail = &api.Error{StatusCode: http.StatusBadRequest, Detail: "nope"}
		_, err := p.Create(ctx, Draft{Description: "x"})
		assert.Equal(t, "nope", UserMessage(err))
		assert.Equal(t, []string{"old"}, ids(p.Tasks()))
	})
}

func TestWorkPanelComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("ConfirmedTaskLeavesPanel", func(t *testing.T) {
		f := &fakeAPI{tasks: []model.Task{{ID: "1"}, {ID: "2"}}}
		p := NewWorkPanel(f, loggedIn(t), nil)
		require.NoError(t, p.Load(ctx))

		done, err := p.Complete(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "1", done.ID)
		assert.True(t, done.IsCompleted)
		assert.Equal(t, []string{"2"}, ids(p.Tasks()))
	})

	t.Run("ShownDoneThenRevertedOnFailure", func(t *testing.T) {
		f := &fakeAPI{tasks: []model.Task{{ID: "1"}, {ID: "2"}}}
		p := NewWorkPanel(f, loggedIn(t), nil)
		require.NoError(t, p.Load(ctx))
		before := p.Tasks()

		f.release = make(chan struct{})
		f.fail = errors.Join(api.ErrNetwork, errors.New("connection refused"))
		op, err := p.BeginComplete("1")
		require.NoError(t, err)
		assert.True(t, p.Tasks()[0].IsCompleted)
		assert.NotNil(t, p.Tasks()[0].CompletedAt)
		assert.True(t, p.IsPending("1"))

		close(f.release)
		_, err = op.Resolve(ctx)
		assert.ErrorIs(t, err, api.ErrNetwork)
		assert.Equal(t, before, p.Tasks())
		assert.False(t, p.IsPending("1"))
	})

	t.Run("UnknownTask", func(t *testing.T) {
		p := NewWorkPanel(&fakeAPI{}, loggedIn(t), nil)
		_, err := p.Complete(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotInPanel)
	})
}

func TestWorkPanelDelete(t *testing.T) {
	ctx := context.Background()

	backend := func(status int) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `[{"id":"t1","description":"a","priority":"Low","is_completed":false},{"id":"t2","description":"b","priority":"Top","is_completed":false}]`)
			case http.MethodDelete:
				if status == http.StatusNoContent {
					w.WriteHeader(status)
					return
				}
				w.WriteHeader(status)
				_, _ = io.WriteString(w, `{"detail":"Todo not found"}`)
			}
		}))
	}

	t.Run("NoContentRemoves", func(t *testing.T) {
		srv := backend(http.StatusNoContent)
		defer srv.Close()
		sess := loggedIn(t)
		p := NewWorkPanel(api.New(srv.URL, sess), sess, nil)
		require.NoError(t, p.Load(ctx))

		require.NoError(t, p.Delete(ctx, "t1"))
		assert.Equal(t, []string{"t2"}, ids(p.Tasks()))
	})

	t.Run("NotFoundKeepsTask", func(t *testing.T) {
		srv := backend(http.StatusNotFound)
		defer srv.Close()
		sess := loggedIn(t)
		p := NewWorkPanel(api.New(srv.URL, sess), sess, nil)
		require.NoError(t, p.Load(ctx))
		before := p.Tasks()

		err := p.Delete(ctx, "t1")
		require.Error(t, err)
		assert.Equal(t, "Todo not found", UserMessage(err))
		assert.Equal(t, before, p.Tasks())
	})

	t.Run("LoggedOutDoesNotTouchList", func(t *testing.T) {
		f := &fakeAPI{tasks: []model.Task{{ID: "1"}}}
		sess := loggedIn(t)
		p := NewWorkPanel(f, sess, nil)
		require.NoError(t, p.Load(ctx))
		require.NoError(t, sess.Logout())

		err := p.Delete(ctx, "1")
		assert.ErrorIs(t, err, session.ErrNotLoggedIn)
		assert.Equal(t, []string{"1"}, ids(p.Tasks()))
		assert.Equal(t, []string{"list"}, f.Calls())
	})
}

func TestDailyChallenges(t *testing.T) {
	ctx := context.Background()
	seed := []model.DailyChallenge{
		{ID: "c1", Title: "Walk barefoot"},
		{ID: "c2", Title: "Call a friend"},
	}

	t.Run("OptimisticThenReverted", func(t *testing.T) {
		f := &fakeAPI{challenges: append([]model.DailyChallenge(nil), seed...)}
		v := NewDailyChallenges(f, loggedIn(t), nil)
		require.NoError(t, v.Load(ctx))

		f.release = make(chan struct{})
		f.fail = &api.Error{StatusCode: http.StatusBadRequest, Detail: "Challenge already completed today"}
		op, err := v.BeginComplete("c1")
		require.NoError(t, err)

		c1 := v.Challenges()[0]
		assert.True(t, c1.IsCompleted)
		assert.NotNil(t, c1.CompletedAt)

		close(f.release)
		_, err = op.Resolve(ctx)
		assert.Equal(t, "Challenge already completed today", UserMessage(err))

		c1 = v.Challenges()[0]
		assert.False(t, c1.IsCompleted)
		assert.Nil(t, c1.CompletedAt)
		assert.Equal(t, seed, v.Challenges())
	})

	t.Run("ConfirmedTakesServerVersion", func(t *testing.T) {
		f := &fakeAPI{challenges: append([]model.DailyChallenge(nil), seed...)}
		v := NewDailyChallenges(f, loggedIn(t), nil)
		require.NoError(t, v.Load(ctx))

		c, err := v.Complete(ctx, "c2")
		require.NoError(t, err)
		assert.Equal(t, "c2", c.ID)
		assert.Equal(t, "server", v.Challenges()[1].Title)
		assert.False(t, v.AllCompleted())

		_, err = v.Complete(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, v.AllCompleted())
	})

	t.Run("CompletedChallengeOffersNoControl", func(t *testing.T) {
		now := time.Now()
		f := &fakeAPI{challenges: []model.DailyChallenge{{ID: "c1", IsCompleted: true, CompletedAt: &now}}}
		v := NewDailyChallenges(f, loggedIn(t), nil)
		require.NoError(t, v.Load(ctx))

		assert.False(t, v.Challenges()[0].Completable())
		_, err := v.Complete(ctx, "c1")
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
		assert.Equal(t, []string{"challenges"}, f.Calls())
	})

	t.Run("EmptyListIsNotAllCompleted", func(t *testing.T) {
		v := NewDailyChallenges(&fakeAPI{}, loggedIn(t), nil)
		require.NoError(t, v.Load(ctx))
		assert.False(t, v.AllCompleted())
	})
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Contains(t, UserMessage(session.ErrNotLoggedIn), "logged in")
	assert.Equal(t, "Not Found", UserMessage(&api.Error{StatusCode: 404}))
}

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
