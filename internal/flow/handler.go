// Package flow implements the conversation handlers that drive order
// intake. An orchestrator handler collects the order title and
// description and classifies the request; generic and bulk order
// handlers confirm details and persist the finished order. Handlers
// signal transitions between one another through handoffs, which the
// conversation controller resolves.
package flow

import (
	"context"

	"github.com/nishant5790/ordering-agent/internal/models"
)

// Handoff requests that the session's active handler be replaced.
// Draft carries the working order into the next handler; a nil Draft
// means the next handler starts from a blank order. SkipOpening makes
// a fresh orchestrator treat the next message as the order title
// rather than as an opening request.
type Handoff struct {
	Target      models.HandlerKind
	Draft       *models.OrderDraft
	SkipOpening bool
}

// Result is the outcome of handling one user message.
type Result struct {
	Reply   string
	Handoff *Handoff
}

// Handler processes user messages for one stage of order intake.
// Begin is called once when the handler takes over a session after a
// handoff; its return value, if non-empty, is appended to the reply
// of the turn that triggered the handoff.
type Handler interface {
	Kind() models.HandlerKind
	State() models.StateType
	Begin(ctx context.Context) (string, error)
	Handle(ctx context.Context, userText string) (Result, error)
}
