// Package devserver is an in-memory implementation of the task backend's REST
// surface, so the client can be run and tested end to end without the real
// service. State is kept in memory unless the server was built with Open.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/Makepad-fr/workpanel/internal/logging"
	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/store/jsonstore"
)

type ctxKey struct{}

type Server struct {
	st     *store
	l      logging.Logger
	router *mux.Router

	file   *jsonstore.File[snapshot]
	saveMu sync.Mutex
}

type Option func(*Server)

// WithClock replaces time.Now, mostly for tests that cross midnight.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.st.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.l = l }
}

func New(opts ...Option) *Server {
	s := &Server{
		st: newStore(time.Now),
		l:  logging.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.persist)
	r.HandleFunc("/auth/token", s.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/users/", s.handleRegister).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.requireUser)
	authed.HandleFunc("/todos/", s.handleListTodos).Methods(http.MethodGet)
	authed.HandleFunc("/todos/", s.handleCreateTodo).Methods(http.MethodPost)
	authed.HandleFunc("/todos/{id}/complete", s.handleCompleteTodo).Methods(http.MethodPut)
	authed.HandleFunc("/todos/{id}", s.handleDeleteTodo).Methods(http.MethodDelete)
	authed.HandleFunc("/daily-challenges/", s.handleListChallenges).Methods(http.MethodGet)
	authed.HandleFunc("/daily-challenges/{id}/complete", s.handleCompleteChallenge).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// -------------- middleware ----------------

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.l.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		userID, ok := s.st.userForToken(tok)
		if tok == "" || !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// -------------- handlers ----------------

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	tok, err := s.st.login(r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	writeJSON(w, http.StatusOK, model.AccessToken{AccessToken: tok, TokenType: "bearer"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid JSON: "+err.Error())
		return
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}
	u, err := s.st.register(creds.Username, creds.Password)
	if errors.Is(err, errUserExists) {
		writeError(w, http.StatusBadRequest, "Username already registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.st.listTodos(userID(r)))
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var nt model.NewTask
	if err := json.NewDecoder(r.Body).Decode(&nt); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid JSON: "+err.Error())
		return
	}
	nt.Description = strings.TrimSpace(nt.Description)
	if nt.Description == "" {
		writeError(w, http.StatusUnprocessableEntity, "description must not be empty")
		return
	}
	if nt.Priority == "" {
		nt.Priority = model.DefaultPriority
	}
	if !validPriority(nt.Priority) {
		writeError(w, http.StatusUnprocessableEntity, "priority must be one of Low, Medium, High, Top")
		return
	}
	writeJSON(w, http.StatusCreated, s.st.createTodo(userID(r), nt))
}

func (s *Server) handleCompleteTodo(w http.ResponseWriter, r *http.Request) {
	t, err := s.st.completeTodo(userID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := s.st.deleteTodo(userID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.st.dailyChallenges(userID(r)))
}

func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := s.st.completeChallenge(userID(r), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "Daily challenge not found for today")
	case errors.Is(err, errAlreadyDone):
		writeError(w, http.StatusBadRequest, "Challenge already completed today")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, c)
	}
}

func validPriority(p model.Priority) bool {
	for _, known := range model.Priorities() {
		if p == known {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, model.ErrorBody{Detail: detail})
}
