// Package panel holds the list views: the work panel of pending tasks and
// today's daily challenges. Each view owns its collection and changes it only
// through optimistic mutations.
package panel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Makepad-fr/workpanel/internal/api"
	"github.com/Makepad-fr/workpanel/internal/session"
)

var (
	// ErrValidation is a local presence check that failed; nothing was sent.
	ErrValidation = errors.New("validation failed")
	// ErrNotInPanel means the id isn't in the view's current list.
	ErrNotInPanel = errors.New("not in panel")
	// ErrAlreadyCompleted means the completion control is not offered.
	ErrAlreadyCompleted = errors.New("already completed")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// UserMessage turns an error from a view into the text shown to the user.
func UserMessage(err error) string {
	var apiErr *api.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrNotLoggedIn):
		return "You must be logged in to do that. Run: workpanel login"
	case errors.Is(err, ErrValidation):
		return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	case errors.As(err, &apiErr):
		return apiErr.Message()
	case errors.Is(err, api.ErrNetwork):
		return "Network error: " + strings.TrimPrefix(err.Error(), api.ErrNetwork.Error()+": ")
	}
	return err.Error()
}

func requireLogin(ts session.TokenSource) error {
	_, err := session.Require(ts)
	return err
}
