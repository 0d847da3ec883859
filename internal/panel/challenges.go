package panel

import (
	"context"
	"fmt"
	"time"

	"github.com/Makepad-fr/workpanel/internal/logging"
	"github.com/Makepad-fr/workpanel/internal/model"
	"github.com/Makepad-fr/workpanel/internal/optimistic"
	"github.com/Makepad-fr/workpanel/internal/session"
)

// ChallengeAPI is the part of the backend the daily challenges view uses.
type ChallengeAPI interface {
	ListDailyChallenges(ctx context.Context) ([]model.DailyChallenge, error)
	CompleteDailyChallenge(ctx context.Context, id string) (model.DailyChallenge, error)
}

// DailyChallenges shows today's challenges and lets the user tick them off.
type DailyChallenges struct {
	api  ChallengeAPI
	sess session.TokenSource
	list *optimistic.Collection[model.DailyChallenge]
	now  func() time.Time
}

func NewDailyChallenges(api ChallengeAPI, sess session.TokenSource, l logging.Logger) *DailyChallenges {
	if l == nil {
		l = logging.Discard()
	}
	return &DailyChallenges{
		api:  api,
		sess: sess,
		list: optimistic.NewCollection("daily-challenges", model.DailyChallenge.Key, optimistic.WithLogger[model.DailyChallenge](l)),
		now:  time.Now,
	}
}

func (v *DailyChallenges) Load(ctx context.Context) error {
	if err := requireLogin(v.sess); err != nil {
		return err
	}
	return v.list.Refresh(ctx, v.api.ListDailyChallenges)
}

func (v *DailyChallenges) Challenges() []model.DailyChallenge { return v.list.Items() }

// AllCompleted is true once every one of today's challenges is done.
func (v *DailyChallenges) AllCompleted() bool { return model.AllCompleted(v.list.Items()) }

func (v *DailyChallenges) IsPending(id string) bool { return v.list.IsPending(id) }

// BeginComplete shows the challenge as done right away. If the server
// refuses, it goes back to not completed with no completion time.
func (v *DailyChallenges) BeginComplete(id string) (*optimistic.Op[model.DailyChallenge], error) {
	c, ok := v.list.Get(id)
	if !ok {
		return nil, fmt.Errorf("challenge %q: %w", id, ErrNotInPanel)
	}
	if !c.Completable() {
		return nil, fmt.Errorf("challenge %q: %w", id, ErrAlreadyCompleted)
	}
	return optimistic.Begin(v.list, v.sess, optimistic.Mutation[model.DailyChallenge]{
		ID: id,
		Tentative: optimistic.UpdateByKey(model.DailyChallenge.Key, id, func(c model.DailyChallenge) model.DailyChallenge {
			now := v.now().UTC()
			c.IsCompleted = true
			c.CompletedAt = &now
			return c
		}),
		Request: func(ctx context.Context) (*model.DailyChallenge, error) {
			c, err := v.api.CompleteDailyChallenge(ctx, id)
			if err != nil {
				return nil, err
			}
			return &c, nil
		},
		Rollback: func(_, current []model.DailyChallenge) []model.DailyChallenge {
			return optimistic.UpdateByKey(model.DailyChallenge.Key, id, func(c model.DailyChallenge) model.DailyChallenge {
				c.IsCompleted = false
				c.CompletedAt = nil
				return c
			})(current)
		},
	})
}

func (v *DailyChallenges) Complete(ctx context.Context, id string) (model.DailyChallenge, error) {
	op, err := v.BeginComplete(id)
	if err != nil {
		return model.DailyChallenge{}, err
	}
	c, err := op.Resolve(ctx)
	if err != nil {
		return model.DailyChallenge{}, err
	}
	return *c, nil
}
