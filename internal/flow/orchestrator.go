package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nishant5790/ordering-agent/internal/classify"
	"github.com/nishant5790/ordering-agent/internal/models"
)

// Orchestrator collects the order title and description, classifies
// the request, and hands the session off to the matching order
// handler.
type Orchestrator struct {
	classifier *classify.Classifier
	draft      *models.OrderDraft
	state      models.StateType

	// openingCaptured is false until the user's opening request has
	// been recorded. The first message of a brand-new session is the
	// request itself ("I need 10 wooden desks"), not the title, so it
	// is stashed as a draft detail and the title is prompted for.
	openingCaptured bool
}

// NewOrchestrator creates an orchestrator for a fresh session. The
// first message is treated as the opening request.
func NewOrchestrator(classifier *classify.Classifier) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		draft:      models.NewOrderDraft(),
		state:      models.StateAwaitingTitle,
	}
}

// NewTitleOrchestrator creates an orchestrator whose next message is
// taken directly as the order title. It is used after an explicit
// restart, where the restart prompt already asked for the title.
func NewTitleOrchestrator(classifier *classify.Classifier) *Orchestrator {
	o := NewOrchestrator(classifier)
	o.openingCaptured = true
	return o
}

func (o *Orchestrator) Kind() models.HandlerKind { return models.HandlerOrchestrator }

func (o *Orchestrator) State() models.StateType { return o.state }

// Begin is a no-op: the orchestrator speaks only in response to user
// messages.
func (o *Orchestrator) Begin(ctx context.Context) (string, error) {
	return "", nil
}

func (o *Orchestrator) Handle(ctx context.Context, userText string) (Result, error) {
	slog.Debug("Orchestrator handling message", "state", o.state)

	switch o.state {
	case models.StateAwaitingTitle:
		if !o.openingCaptured {
			o.draft.SetDetail("initial_request", userText)
			o.openingCaptured = true
			return Result{Reply: "Please provide a title for this order."}, nil
		}
		o.draft.Title = userText
		o.state = models.StateAwaitingDescription
		return Result{Reply: "Describe the request."}, nil

	case models.StateAwaitingDescription:
		o.draft.Description = userText
		o.state = models.StateClassifying

		// No quantity has been established by the conversation yet; the
		// classifier derives one from the description itself.
		orderType := o.classifier.Classify(ctx, userText, nil)
		if err := o.draft.SetType(orderType); err != nil {
			return Result{}, fmt.Errorf("classifying order: %w", err)
		}
		o.state = models.StateDispatched
		slog.Info("Order classified", "type", orderType, "title", o.draft.Title)

		if orderType == models.OrderTypeBulk {
			return Result{
				Reply:   "Classified as bulk order. Handing off to Bulk Order Agent...",
				Handoff: &Handoff{Target: models.HandlerBulk, Draft: o.draft},
			}, nil
		}
		return Result{
			Reply:   "Classified as generic order. Handing off to Generic Order Agent...",
			Handoff: &Handoff{Target: models.HandlerGeneric, Draft: o.draft},
		}, nil

	default:
		// Unexpected state: start over rather than wedge the session.
		slog.Warn("Orchestrator in unexpected state, restarting intake", "state", o.state)
		o.draft = models.NewOrderDraft()
		o.state = models.StateAwaitingTitle
		o.openingCaptured = true
		return Result{Reply: "Please provide a title for this order."}, nil
	}
}
