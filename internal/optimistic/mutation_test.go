package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/workpanel/internal/session"
)

type item struct {
	ID   string
	Done bool
	Rev  int
}

func key(it item) string { return it.ID }

func loggedIn(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(session.NewMemoryStore("tok"))
	require.NoError(t, err)
	return s
}

func seeded(items ...item) *Collection[item] {
	c := NewCollection("test", key)
	c.Replace(items)
	return c
}

func markDone(id string) Transform[item] {
	return UpdateByKey(key, id, func(it item) item { it.Done = true; return it })
}

var errBoom = errors.New("boom")

func TestApply(t *testing.T) {
	ctx := context.Background()
	initial := []item{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	t.Run("SuccessTakesServerVersion", func(t *testing.T) {
		c := seeded(initial...)
		got, err := Apply(ctx, c, loggedIn(t), Mutation[item]{
			ID:        "b",
			Tentative: markDone("b"),
			Request: func(context.Context) (*item, error) {
				return &item{ID: "b", Done: true, Rev: 7}, nil
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "b", got.ID)
		assert.Equal(t, []item{{ID: "a"}, {ID: "b", Done: true, Rev: 7}, {ID: "c"}}, c.Items())
	})

	t.Run("SuccessWithoutBodyKeepsTentative", func(t *testing.T) {
		c := seeded(initial...)
		_, err := Apply(ctx, c, loggedIn(t), Mutation[item]{
			ID:        "a",
			Tentative: RemoveByKey(key, "a"),
			Request:   func(context.Context) (*item, error) { return nil, nil },
		})
		require.NoError(t, err)
		assert.Equal(t, []item{{ID: "b"}, {ID: "c"}}, c.Items())
	})

	t.Run("FailureRestoresExactly", func(t *testing.T) {
		for _, tentative := range []Transform[item]{markDone("b"), RemoveByKey(key, "b")} {
			c := seeded(initial...)
			_, err := Apply(ctx, c, loggedIn(t), Mutation[item]{
				ID:        "b",
				Tentative: tentative,
				Request:   func(context.Context) (*item, error) { return nil, errBoom },
			})
			assert.ErrorIs(t, err, errBoom)
			assert.Equal(t, initial, c.Items())
		}
	})

	t.Run("FailureWithRemovalAtEveryPosition", func(t *testing.T) {
		for _, id := range []string{"a", "b", "c"} {
			c := seeded(initial...)
			_, err := Apply(ctx, c, loggedIn(t), Mutation[item]{
				ID:        id,
				Tentative: RemoveByKey(key, id),
				Request:   func(context.Context) (*item, error) { return nil, errBoom },
			})
			assert.Error(t, err)
			assert.Equal(t, initial, c.Items(), "removing %s", id)
		}
	})

	t.Run("NoCredentialLeavesStateAlone", func(t *testing.T) {
		s, err := session.New(session.NewMemoryStore(""))
		require.NoError(t, err)
		c := seeded(initial...)
		called := false
		_, err = Apply(ctx, c, s, Mutation[item]{
			ID:        "a",
			Tentative: RemoveByKey(key, "a"),
			Request: func(context.Context) (*item, error) {
				called = true
				return nil, nil
			},
		})
		assert.ErrorIs(t, err, session.ErrNotLoggedIn)
		assert.False(t, called)
		assert.Equal(t, initial, c.Items())
	})

	t.Run("CreationAddsOnlyAfterServer", func(t *testing.T) {
		c := seeded(initial...)
		_, err := Apply(ctx, c, loggedIn(t), Mutation[item]{
			ID: "new",
			Request: func(context.Context) (*item, error) {
				assert.Equal(t, initial, c.Items())
				return &item{ID: "srv-1"}, nil
			},
			Confirm: Prepend[item],
		})
		require.NoError(t, err)
		assert.Equal(t, "srv-1", c.Items()[0].ID)
		assert.Equal(t, 4, c.Len())
	})
}

func TestBeginResolve(t *testing.T) {
	ctx := context.Background()
	c := seeded(item{ID: "a"}, item{ID: "b"})

	release := make(chan struct{})
	op, err := Begin(c, loggedIn(t), Mutation[item]{
		ID:        "a",
		Tentative: markDone("a"),
		Request: func(context.Context) (*item, error) {
			<-release
			return nil, errBoom
		},
	})
	require.NoError(t, err)

	// tentative is visible before the request resolves
	got, _ := c.Get("a")
	assert.True(t, got.Done)
	assert.True(t, c.IsPending("a"))
	assert.Equal(t, Pending, op.State())

	close(release)
	_, err = op.Resolve(ctx)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, Reverted, op.State())
	assert.False(t, c.IsPending("a"))
	got, _ = c.Get("a")
	assert.False(t, got.Done)

	// resolving twice does not re-run the request
	_, err = op.Resolve(ctx)
	assert.ErrorIs(t, err, errBoom)
}

func TestInterleavedMutations(t *testing.T) {
	ctx := context.Background()
	c := seeded(item{ID: "a"}, item{ID: "b"}, item{ID: "c"})
	s := loggedIn(t)

	first, err := Begin(c, s, Mutation[item]{
		ID:        "a",
		Tentative: markDone("a"),
		Request:   func(context.Context) (*item, error) { return nil, errBoom },
	})
	require.NoError(t, err)
	second, err := Begin(c, s, Mutation[item]{
		ID:        "c",
		Tentative: RemoveByKey(key, "c"),
		Request:   func(context.Context) (*item, error) { return nil, nil },
	})
	require.NoError(t, err)

	_, err = second.Resolve(ctx)
	require.NoError(t, err)
	_, err = first.Resolve(ctx)
	require.Error(t, err)

	// a is rolled back without resurrecting c
	assert.Equal(t, []item{{ID: "a"}, {ID: "b"}}, c.Items())
	assert.Equal(t, Confirmed, second.State())
	assert.Equal(t, Reverted, first.State())
}

func TestRollbackAfterCreate(t *testing.T) {
	ctx := context.Background()
	c := seeded(item{ID: "a"}, item{ID: "b"})
	s := loggedIn(t)

	del, err := Begin(c, s, Mutation[item]{
		ID:        "b",
		Tentative: RemoveByKey(key, "b"),
		Request:   func(context.Context) (*item, error) { return nil, errBoom },
	})
	require.NoError(t, err)
	_, err = Apply(ctx, c, s, Mutation[item]{
		ID:      "new",
		Request: func(context.Context) (*item, error) { return &item{ID: "x"}, nil },
		Confirm: Prepend[item],
	})
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "x"}, {ID: "a"}}, c.Items())

	_, err = del.Resolve(ctx)
	require.Error(t, err)
	assert.Equal(t, []item{{ID: "x"}, {ID: "a"}, {ID: "b"}}, c.Items())
}

func TestRestoreKey(t *testing.T) {
	restore := RestoreKey(key, "b")
	before := []item{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	t.Run("AfterLastSurvivingPredecessor", func(t *testing.T) {
		got := restore(before, []item{{ID: "x"}, {ID: "a"}, {ID: "y"}, {ID: "c"}})
		assert.Equal(t, []item{{ID: "x"}, {ID: "a"}, {ID: "b"}, {ID: "y"}, {ID: "c"}}, got)
	})

	t.Run("BeforeFirstSurvivingSuccessor", func(t *testing.T) {
		got := restore(before, []item{{ID: "x"}, {ID: "c"}})
		assert.Equal(t, []item{{ID: "x"}, {ID: "b"}, {ID: "c"}}, got)
	})

	t.Run("FrontWhenNeighboursAreGone", func(t *testing.T) {
		got := restore(before, []item{{ID: "x"}})
		assert.Equal(t, []item{{ID: "b"}, {ID: "x"}}, got)
	})

	t.Run("AbsentBeforeIsDropped", func(t *testing.T) {
		got := RestoreKey(key, "z")(before, []item{{ID: "a"}, {ID: "z"}})
		assert.Equal(t, []item{{ID: "a"}}, got)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	fetched := func(items ...item) func(context.Context) ([]item, error) {
		return func(context.Context) ([]item, error) { return items, nil }
	}

	t.Run("KeepsPendingTentative", func(t *testing.T) {
		c := seeded(item{ID: "a"}, item{ID: "b"})
		op, err := Begin(c, loggedIn(t), Mutation[item]{
			ID:        "b",
			Tentative: RemoveByKey(key, "b"),
			Request:   func(context.Context) (*item, error) { return nil, nil },
		})
		require.NoError(t, err)

		require.NoError(t, c.Refresh(ctx, fetched(item{ID: "a"}, item{ID: "b"}, item{ID: "c"})))
		assert.Equal(t, []item{{ID: "a"}, {ID: "c"}}, c.Items())
		assert.True(t, c.IsPending("b"))

		_, err = op.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, []item{{ID: "a"}, {ID: "c"}}, c.Items())
	})

	t.Run("RollbackRestoresFetchedVersion", func(t *testing.T) {
		c := seeded(item{ID: "a"}, item{ID: "b"})
		op, err := Begin(c, loggedIn(t), Mutation[item]{
			ID:        "b",
			Tentative: markDone("b"),
			Request:   func(context.Context) (*item, error) { return nil, errBoom },
		})
		require.NoError(t, err)

		require.NoError(t, c.Refresh(ctx, fetched(item{ID: "a"}, item{ID: "b", Rev: 2})))
		assert.Equal(t, []item{{ID: "a"}, {ID: "b", Done: true, Rev: 2}}, c.Items())

		_, err = op.Resolve(ctx)
		require.Error(t, err)
		assert.Equal(t, []item{{ID: "a"}, {ID: "b", Rev: 2}}, c.Items())
	})

	t.Run("ConfirmedDuringFetchIsReplayed", func(t *testing.T) {
		c := seeded(item{ID: "a"}, item{ID: "b"})
		s := loggedIn(t)
		del, err := Begin(c, s, Mutation[item]{
			ID:        "b",
			Tentative: RemoveByKey(key, "b"),
			Request:   func(context.Context) (*item, error) { return nil, nil },
		})
		require.NoError(t, err)
		upd, err := Begin(c, s, Mutation[item]{
			ID:        "a",
			Tentative: markDone("a"),
			Request: func(context.Context) (*item, error) {
				return &item{ID: "a", Done: true, Rev: 3}, nil
			},
		})
		require.NoError(t, err)

		err = c.Refresh(ctx, func(ctx context.Context) ([]item, error) {
			_, err := del.Resolve(ctx)
			require.NoError(t, err)
			_, err = upd.Resolve(ctx)
			require.NoError(t, err)
			// answered before the server saw either change
			return []item{{ID: "a"}, {ID: "b"}}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []item{{ID: "a", Done: true, Rev: 3}}, c.Items())
		assert.Empty(t, c.settled)
		assert.Empty(t, c.inflight)
	})

	t.Run("FetchErrorKeepsList", func(t *testing.T) {
		c := seeded(item{ID: "a"})
		err := c.Refresh(ctx, func(context.Context) ([]item, error) { return nil, errBoom })
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, []item{{ID: "a"}}, c.Items())
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "reverted", Reverted.String())
}
