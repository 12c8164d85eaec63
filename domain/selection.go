package domain

import (
	"strings"

	agenterrors "agent-lab/errors"
)

// FinishSentinel ends the conversation when the selection policy returns it.
const FinishSentinel = "FINISH"

// Decision is the outcome of one selection round.
type Decision struct {
	Role     string
	Finished bool
}

// Decide maps a free-form policy response to an eligible role or the
// termination sentinel. Matching is case-insensitive containment, tested in
// the eligible list's original order; the first matching role wins. The
// sentinel is only considered after no role matched, so a response naming a
// role always grants the turn. Anything else is ErrInvalidSelection.
//
// This is deliberately a pure function: it is the actual selection algorithm,
// kept testable without a live generation backend.
func Decide(eligible []Role, response string) (Decision, error) {
	lowered := strings.ToLower(response)

	for _, role := range eligible {
		if strings.Contains(lowered, strings.ToLower(role.Name)) {
			return Decision{Role: role.Name}, nil
		}
	}

	if strings.Contains(lowered, strings.ToLower(FinishSentinel)) {
		return Decision{Finished: true}, nil
	}

	return Decision{}, agenterrors.ErrInvalidSelection
}
