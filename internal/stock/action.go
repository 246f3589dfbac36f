package stock

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks a malformed or missing required parameter.
// The HTTP layer maps it to a 400 without retrying.
var ErrInvalidRequest = errors.New("invalid request")

// Action is the closed set of operations the proxy performs.
type Action string

const (
	ActionSearch     Action = "search"
	ActionQuote      Action = "quote"
	ActionHistory    Action = "history"
	ActionFinancials Action = "financials"
	ActionNews       Action = "news"
)

// ValidActions is the documented action list, used in error messages.
const ValidActions = "search, quote, history, financials, news"

// ParseAction validates a raw action string against the closed set.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionSearch, ActionQuote, ActionHistory, ActionFinancials, ActionNews:
		return a, nil
	}
	return "", fmt.Errorf("%w: invalid action. Valid actions: %s", ErrInvalidRequest, ValidActions)
}
