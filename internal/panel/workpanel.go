package panel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Makepad-fr/workpanel/internal/logging"
	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/optimistic"
	"github.com/Makepad-fr/workpanel/internal/session"
)

// TodoAPI is the part of the backend the work panel talks to.
type TodoAPI interface {
	ListTodos(ctx context.Context) ([]model.Task, error)
	CreateTodo(ctx context.Context, t model.NewTask) (model.Task, error)
	CompleteTodo(ctx context.Context, id string) (model.Task, error)
	DeleteTodo(ctx context.Context, id string) error
}

// Categories a new task can be filed under.
var Categories = []string{"Training", "Cleaning", "Study"}

// Draft is what the user typed into the new-task form.
type Draft struct {
	Description string
	Priority    string // empty means model.DefaultPriority
	DueDate     string // YYYY-MM-DD or empty
	Category    string // optional, one of Categories
}

// WorkPanel lists the user's pending tasks.
type WorkPanel struct {
	api   TodoAPI
	sess  session.TokenSource
	tasks *optimistic.Collection[model.Task]
	now   func() time.Time
	l     logging.Logger
}

func NewWorkPanel(api TodoAPI, sess session.TokenSource, l logging.Logger) *WorkPanel {
	if l == nil {
		l = logging.Discard()
	}
	return &WorkPanel{
		api:   api,
		sess:  sess,
		tasks: optimistic.NewCollection("tasks", model.Task.Key, optimistic.WithLogger[model.Task](l)),
		now:   time.Now,
		l:     l,
	}
}

// Load fetches the task list and keeps only pending tasks.
func (p *WorkPanel) Load(ctx context.Context) error {
	if err := requireLogin(p.sess); err != nil {
		return err
	}
	total := 0
	err := p.tasks.Refresh(ctx, func(ctx context.Context) ([]model.Task, error) {
		all, err := p.api.ListTodos(ctx)
		total = len(all)
		return pendingOnly(all), err
	})
	if err != nil {
		return err
	}
	p.l.Debug("work panel loaded", "total", total, "pending", p.tasks.Len())
	return nil
}

func (p *WorkPanel) Tasks() []model.Task { return p.tasks.Items() }

// IsPending reports whether a change to task id is awaiting the server.
func (p *WorkPanel) IsPending(id string) bool { return p.tasks.IsPending(id) }

// Create validates the draft locally, sends it, and puts the server's task at
// the top of the list. Nothing is shown before the server assigns an id.
func (p *WorkPanel) Create(ctx context.Context, d Draft) (model.Task, error) {
	nt, err := d.build()
	if err != nil {
		return model.Task{}, err
	}
	created, err := optimistic.Apply(ctx, p.tasks, p.sess, optimistic.Mutation[model.Task]{
		ID: "new:" + nt.Description,
		Request: func(ctx context.Context) (*model.Task, error) {
			t, err := p.api.CreateTodo(ctx, nt)
			if err != nil {
				return nil, err
			}
			return &t, nil
		},
		Confirm: func(items []model.Task, server model.Task) []model.Task {
			items = optimistic.RemoveByKey(model.Task.Key, server.ID)(items)
			if server.IsCompleted {
				return items
			}
			return optimistic.Prepend(items, server)
		},
	})
	if err != nil {
		return model.Task{}, err
	}
	return *created, nil
}

// BeginComplete marks the task done locally. The returned op must be
// resolved to send the request. Once the server confirms, the task leaves
// the panel.
func (p *WorkPanel) BeginComplete(id string) (*optimistic.Op[model.Task], error) {
	t, ok := p.tasks.Get(id)
	if !ok {
		return nil, fmt.Errorf("task %q: %w", id, ErrNotInPanel)
	}
	if !t.Completable() {
		return nil, fmt.Errorf("task %q: %w", id, ErrAlreadyCompleted)
	}
	return optimistic.Begin(p.tasks, p.sess, optimistic.Mutation[model.Task]{
		ID: id,
		Tentative: optimistic.UpdateByKey(model.Task.Key, id, func(t model.Task) model.Task {
			now := p.now().UTC()
			t.IsCompleted = true
			t.CompletedAt = &now
			return t
		}),
		Request: func(ctx context.Context) (*model.Task, error) {
			t, err := p.api.CompleteTodo(ctx, id)
			if err != nil {
				return nil, err
			}
			return &t, nil
		},
		Confirm: func(items []model.Task, server model.Task) []model.Task {
			return pendingOnly(optimistic.ReplaceByKey(model.Task.Key, server)(items))
		},
	})
}

func (p *WorkPanel) Complete(ctx context.Context, id string) (model.Task, error) {
	op, err := p.BeginComplete(id)
	if err != nil {
		return model.Task{}, err
	}
	t, err := op.Resolve(ctx)
	if err != nil {
		return model.Task{}, err
	}
	return *t, nil
}

// BeginDelete drops the task locally. It comes back if the server answers
// with anything but 204 No Content.
func (p *WorkPanel) BeginDelete(id string) (*optimistic.Op[model.Task], error) {
	if _, ok := p.tasks.Get(id); !ok {
		return nil, fmt.Errorf("task %q: %w", id, ErrNotInPanel)
	}
	return optimistic.Begin(p.tasks, p.sess, optimistic.Mutation[model.Task]{
		ID:        id,
		Tentative: optimistic.RemoveByKey(model.Task.Key, id),
		Request: func(ctx context.Context) (*model.Task, error) {
			return nil, p.api.DeleteTodo(ctx, id)
		},
	})
}

func (p *WorkPanel) Delete(ctx context.Context, id string) error {
	op, err := p.BeginDelete(id)
	if err != nil {
		return err
	}
	_, err = op.Resolve(ctx)
	return err
}

func (d Draft) build() (model.NewTask, error) {
	desc := strings.TrimSpace(d.Description)
	if desc == "" {
		return model.NewTask{}, invalid("Description is required.")
	}
	if d.Category != "" {
		cat, err := ParseCategory(d.Category)
		if err != nil {
			return model.NewTask{}, err
		}
		desc = fmt.Sprintf("[%s] %s", cat, desc)
	}

	prio := model.DefaultPriority
	if strings.TrimSpace(d.Priority) != "" {
		var err error
		if prio, err = model.ParsePriority(d.Priority); err != nil {
			return model.NewTask{}, invalid(err.Error())
		}
	}

	due, err := model.ParseDueDate(d.DueDate)
	if err != nil {
		return model.NewTask{}, invalid(err.Error())
	}
	return model.NewTask{Description: desc, Priority: prio, DueDate: due}, nil
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (string, error) {
	for _, c := range Categories {
		if strings.EqualFold(c, strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", invalid(fmt.Sprintf("unknown category %q (want one of %s)", s, strings.Join(Categories, ", ")))
}

func pendingOnly(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsCompleted {
			out = append(out, t)
		}
	}
	return out
}
