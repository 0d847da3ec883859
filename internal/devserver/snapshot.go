package devserver

import (
	"net/http"
	"time"

	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/store/jsonstore"
)

// snapshot is the store as written to disk.
type snapshot struct {
	Secret []byte                          `json:"secret"`
	Users  []userRecord                    `json:"users"`
	Todos  map[string][]model.Task         `json:"todos"`
	Done   map[string]map[string]time.Time `json:"done"`
}

type userRecord struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Hash     []byte `json:"password_hash"`
}

func (s *store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sn := snapshot{
		Secret: s.secret,
		Todos:  make(map[string][]model.Task, len(s.todos)),
		Done:   make(map[string]map[string]time.Time, len(s.done)),
	}
	for _, u := range s.users {
		sn.Users = append(sn.Users, userRecord{ID: u.id, Username: u.name, Hash: u.hash})
	}
	for k, v := range s.todos {
		sn.Todos[k] = append([]model.Task(nil), v...)
	}
	for k, v := range s.done {
		days := make(map[string]time.Time, len(v))
		for d, at := range v {
			days[d] = at
		}
		sn.Done[k] = days
	}
	return sn
}

func (s *store) restore(sn snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range sn.Users {
		s.users[u.Username] = &user{id: u.ID, name: u.Username, hash: u.Hash}
	}
	if len(sn.Secret) > 0 {
		s.secret = sn.Secret
	}
	for k, v := range sn.Todos {
		s.todos[k] = v
	}
	for k, v := range sn.Done {
		s.done[k] = v
	}
}

// Open is New plus a JSON snapshot at path: existing state is loaded and
// every write request saves it again.
func Open(path string, opts ...Option) (*Server, error) {
	s := New(opts...)
	f := jsonstore.File[snapshot]{Path: path}
	sn, ok, err := f.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		s.st.restore(sn)
		s.l.Info("state restored", "path", path, "users", len(sn.Users))
	}
	s.file = &f
	return s, nil
}

func (s *Server) persist(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if s.file == nil || r.Method == http.MethodGet {
			return
		}
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		if err := s.file.Save(s.st.snapshot()); err != nil {
			s.l.Error("save state", "path", s.file.Path, "err", err)
		}
	})
}
