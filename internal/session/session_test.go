package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{ MemoryStore }

func (f *failingStore) Delete() error { return errors.New("disk gone") }

func TestSession(t *testing.T) {
	t.Run("LoginThenToken", func(t *testing.T) {
		for _, tok := range []string{"abc", "Bearer xyz", "eyJhbGciOi.eyJzdWIiOi.sig", " spaced "} {
			s, err := New(NewMemoryStore(""))
			require.NoError(t, err)
			require.NoError(t, s.Login(tok))

			got, ok := s.Token()
			assert.True(t, ok)
			assert.Equal(t, tok, got)
			assert.True(t, s.IsLoggedIn())
		}
	})

	t.Run("LoginReplacesPreviousToken", func(t *testing.T) {
		store := NewMemoryStore("old")
		s, err := New(store)
		require.NoError(t, err)
		require.NoError(t, s.Login("new"))

		got, _ := s.Token()
		assert.Equal(t, "new", got)
		c, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "new", c.Token)
	})

	t.Run("LogoutClearsRegardlessOfState", func(t *testing.T) {
		for _, initial := range []string{"", "tok"} {
			store := NewMemoryStore(initial)
			s, err := New(store)
			require.NoError(t, err)

			require.NoError(t, s.Logout())
			got, ok := s.Token()
			assert.False(t, ok)
			assert.Empty(t, got)
			assert.False(t, s.IsLoggedIn())

			c, err := store.Load()
			require.NoError(t, err)
			assert.Nil(t, c)
		}
	})

	t.Run("LogoutRunsHooks", func(t *testing.T) {
		calls := 0
		s, err := New(NewMemoryStore("tok"), OnLogout(func() { calls++ }))
		require.NoError(t, err)
		require.NoError(t, s.Logout())
		assert.Equal(t, 1, calls)
	})

	t.Run("LogoutClearsMemoryEvenIfStorageFails", func(t *testing.T) {
		store := &failingStore{}
		require.NoError(t, store.Save("tok"))
		s, err := New(store)
		require.NoError(t, err)

		assert.Error(t, s.Logout())
		assert.False(t, s.IsLoggedIn())
	})

	t.Run("RestoresFromStorage", func(t *testing.T) {
		s, err := New(NewMemoryStore("persisted"))
		require.NoError(t, err)
		got, ok := s.Token()
		assert.True(t, ok)
		assert.Equal(t, "persisted", got)
		assert.Equal(t, SourceFile, s.Source())
	})

	t.Run("Require", func(t *testing.T) {
		s, err := New(NewMemoryStore(""))
		require.NoError(t, err)
		_, err = Require(s)
		assert.ErrorIs(t, err, ErrNotLoggedIn)

		require.NoError(t, s.Login("tok"))
		tok, err := Require(s)
		require.NoError(t, err)
		assert.Equal(t, "tok", tok)
	})
}

func TestFileStore(t *testing.T) {
	t.Run("MissingFileIsLoggedOut", func(t *testing.T) {
		fs := &FileStore{Path: filepath.Join(t.TempDir(), "credentials.json")}
		c, err := fs.Load()
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("SurvivesRestart", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dir", "credentials.json")
		s, err := New(&FileStore{Path: path})
		require.NoError(t, err)
		require.NoError(t, s.Login("tok-1"))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		reloaded, err := New(&FileStore{Path: path})
		require.NoError(t, err)
		got, ok := reloaded.Token()
		assert.True(t, ok)
		assert.Equal(t, "tok-1", got)

		require.NoError(t, reloaded.Logout())
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("EnvOverride", func(t *testing.T) {
		t.Setenv("WORKPANEL_TEST_TOKEN", "Bearer from-env")
		fs := &FileStore{Path: filepath.Join(t.TempDir(), "c.json"), EnvKey: "WORKPANEL_TEST_TOKEN"}
		c, err := fs.Load()
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "from-env", c.Token)
		assert.Equal(t, SourceEnv, c.Source)
	})

	t.Run("CorruptFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		_, err := New(&FileStore{Path: path})
		assert.Error(t, err)
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		fs := &FileStore{Path: filepath.Join(t.TempDir(), "c.json")}
		assert.NoError(t, fs.Delete())
	})
}
