package devserver

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Makepad-fr/workpanel/internal/challenges"
	"github.com/Makepad-fr/workpanel/internal/model"
)

var (
	errUserExists   = errors.New("username already registered")
	errBadLogin     = errors.New("incorrect username or password")
	errNotFound     = errors.New("not found")
	errAlreadyDone  = errors.New("already completed")
	challengeIDRoot = uuid.MustParse("6f1d3c52-9a4e-4e8b-8f43-0c7a3d9e51b2")
)

// DailyChallengesPerDay is how many catalogue entries are served each day.
const DailyChallengesPerDay = 3

// TokenTTL is how long an access token is accepted.
const TokenTTL = 24 * time.Hour

// tokenClaims is the payload of the HS256 access tokens the server issues.
type tokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type user struct {
	id   string
	name string
	hash []byte
}

// store is the in-memory state behind the server. Every method locks.
type store struct {
	mu     sync.Mutex
	now    func() time.Time
	secret []byte                          // HMAC key for access tokens
	users  map[string]*user                // by username
	todos  map[string][]model.Task         // user id -> tasks, newest first
	done   map[string]map[string]time.Time // user id -> day/challenge id -> completed at
}

func newStore(now func() time.Time) *store {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("devserver: token secret: %v", err))
	}
	return &store{
		now:    now,
		secret: secret,
		users:  map[string]*user{},
		todos:  map[string][]model.Task{},
		done:   map[string]map[string]time.Time{},
	}
}

func (s *store) register(name, password string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; ok {
		return model.User{}, errUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := &user{id: uuid.NewString(), name: name, hash: hash}
	s.users[name] = u
	return model.User{ID: u.id, Username: u.name}, nil
}

func (s *store) login(name, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return "", errBadLogin
	}
	if err := bcrypt.CompareHashAndPassword(u.hash, []byte(password)); err != nil {
		return "", errBadLogin
	}
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID: u.id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.name,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// userForToken verifies an access token and returns the user it was issued
// to, provided that user still exists.
func (s *store) userForToken(raw string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", false
	}
	u, ok := s.users[claims.Subject]
	if !ok || u.id != claims.UserID {
		return "", false
	}
	return u.id, true
}

func (s *store) listTodos(userID string) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, len(s.todos[userID]))
	copy(out, s.todos[userID])
	return out
}

func (s *store) createTodo(userID string, nt model.NewTask) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := model.Task{
		ID:          uuid.NewString(),
		Description: nt.Description,
		Priority:    nt.Priority,
		DueDate:     nt.DueDate,
		CreatedAt:   s.now().UTC(),
		UserID:      userID,
	}
	s.todos[userID] = append([]model.Task{t}, s.todos[userID]...)
	return t
}

func (s *store) completeTodo(userID, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos[userID] {
		if t.ID != id {
			continue
		}
		if !t.IsCompleted {
			now := s.now().UTC()
			t.IsCompleted = true
			t.CompletedAt = &now
			s.todos[userID][i] = t
		}
		return t, nil
	}
	return model.Task{}, errNotFound
}

func (s *store) deleteTodo(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.todos[userID]
	for i, t := range tasks {
		if t.ID == id {
			s.todos[userID] = append(tasks[:i:i], tasks[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

// dailyChallenges rotates through the catalogue so each day serves a
// different, deterministic set with ids stable for that day.
func (s *store) dailyChallenges(userID string) []model.DailyChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyChallengesLocked(userID, s.now().UTC())
}

func (s *store) dailyChallengesLocked(userID string, now time.Time) []model.DailyChallenge {
	day := now.Format(model.DueDateLayout)

	var all []struct{ title, desc string }
	for _, sec := range challenges.Sections() {
		for _, e := range sec.Entries {
			all = append(all, struct{ title, desc string }{sec.Title, e})
		}
	}
	offset := int(now.Unix()/86400) * DailyChallengesPerDay

	out := make([]model.DailyChallenge, 0, DailyChallengesPerDay)
	for i := 0; i < DailyChallengesPerDay; i++ {
		e := all[(offset+i)%len(all)]
		id := uuid.NewSHA1(challengeIDRoot, []byte(fmt.Sprintf("%s/%d", day, i))).String()
		c := model.DailyChallenge{ID: id, Title: e.title, Description: e.desc}
		if at, ok := s.done[userID][day+"/"+id]; ok {
			at := at
			c.IsCompleted = true
			c.CompletedAt = &at
		}
		out = append(out, c)
	}
	return out
}

func (s *store) completeChallenge(userID, id string) (model.DailyChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, c := range s.dailyChallengesLocked(userID, now) {
		if c.ID != id {
			continue
		}
		if c.IsCompleted {
			return c, errAlreadyDone
		}
		if s.done[userID] == nil {
			s.done[userID] = map[string]time.Time{}
		}
		s.done[userID][now.Format(model.DueDateLayout)+"/"+id] = now
		c.IsCompleted = true
		c.CompletedAt = &now
		return c, nil
	}
	return model.DailyChallenge{}, errNotFound
}
