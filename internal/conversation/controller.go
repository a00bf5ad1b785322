// Package conversation coordinates per-session order intake. The
// controller owns the session registry, routes each incoming message
// to the session's active handler, resolves handoffs between
// handlers, and records every exchange in the transcript store.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nishant5790/ordering-agent/internal/classify"
	"github.com/nishant5790/ordering-agent/internal/extract"
	"github.com/nishant5790/ordering-agent/internal/flow"
	"github.com/nishant5790/ordering-agent/internal/models"
	"github.com/nishant5790/ordering-agent/internal/store"
)

// ErrInvalidHandoffTarget indicates a handler requested a transition
// to a handler kind the controller cannot build.
var ErrInvalidHandoffTarget = errors.New("invalid handoff target")

// restartCommands reset the session's intake regardless of state. The
// transcript is kept; only the working order is discarded.
var restartCommands = map[string]bool{
	"start over": true,
	"reset":      true,
	"new order":  true,
	"restart":    true,
}

const restartReply = "Starting fresh! Please provide a title for your order."

// session holds one conversation's state. mu serializes message
// processing so concurrent submits for the same session observe a
// consistent handler.
type session struct {
	mu      sync.Mutex
	id      string
	created time.Time
	turns   []models.Turn
	handler flow.Handler
}

// Controller routes user messages to per-session handlers.
type Controller struct {
	classifier *classify.Classifier
	extractor  *extract.Extractor
	store      store.Store

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewController creates a controller backed by the given store. The
// classifier and extractor are shared across sessions.
func NewController(classifier *classify.Classifier, extractor *extract.Extractor, st store.Store) *Controller {
	return &Controller{
		classifier: classifier,
		extractor:  extractor,
		store:      st,
		sessions:   make(map[string]*session),
	}
}

// Submit processes one user message for the session and returns the
// reply. Unknown session IDs start a new session. Messages for the
// same session are processed strictly one at a time.
func (c *Controller) Submit(ctx context.Context, sessionID, text string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session ID is empty")
	}
	sess := c.getOrCreate(sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if restartCommands[strings.ToLower(strings.TrimSpace(text))] {
		slog.Info("Session restarted by user", "sessionID", sessionID)
		sess.handler = flow.NewTitleOrchestrator(c.classifier)
		c.recordTurn(sess, text, restartReply, models.HandlerOrchestrator)
		return restartReply, nil
	}

	handlerKind := sess.handler.Kind()
	res, err := sess.handler.Handle(ctx, text)
	if err != nil {
		slog.Error("Handler failed", "error", err, "sessionID", sessionID, "handler", handlerKind)
		reply := "Something went wrong. Please try again."
		c.recordTurn(sess, text, reply, handlerKind)
		return reply, nil
	}

	reply := res.Reply
	if res.Handoff != nil {
		opening, err := c.resolveHandoff(ctx, sess, res.Handoff)
		if err != nil {
			// The session is reset rather than wedged; the transcript
			// survives.
			slog.Error("Handoff failed, resetting session", "error", err, "sessionID", sessionID, "target", res.Handoff.Target)
			sess.handler = flow.NewOrchestrator(c.classifier)
			reply = reply + "\n\nSomething went wrong with your order. Let's start again: what would you like to order?"
		} else if opening != "" {
			reply = reply + "\n\n" + opening
		}
	}

	c.recordTurn(sess, text, reply, handlerKind)
	return reply, nil
}

// resolveHandoff swaps the session's handler and returns the new
// handler's opening message.
func (c *Controller) resolveHandoff(ctx context.Context, sess *session, h *flow.Handoff) (string, error) {
	next, err := c.newHandler(sess.id, h)
	if err != nil {
		return "", err
	}
	sess.handler = next
	slog.Debug("Session handed off", "sessionID", sess.id, "handler", next.Kind())
	return next.Begin(ctx)
}

func (c *Controller) newHandler(sessionID string, h *flow.Handoff) (flow.Handler, error) {
	switch h.Target {
	case models.HandlerOrchestrator:
		if h.SkipOpening {
			return flow.NewTitleOrchestrator(c.classifier), nil
		}
		return flow.NewOrchestrator(c.classifier), nil
	case models.HandlerGeneric:
		return flow.NewGenericOrderHandler(c.extractor, c.store, sessionID, h.Draft), nil
	case models.HandlerBulk:
		return flow.NewBulkOrderHandler(c.extractor, c.store, sessionID, h.Draft), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidHandoffTarget, h.Target)
	}
}

// Transcript returns a copy of the session's in-memory transcript.
// Unknown sessions yield an empty transcript.
func (c *Controller) Transcript(sessionID string) []models.Turn {
	c.mu.RLock()
	sess, ok := c.sessions[sessionID]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]models.Turn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

func (c *Controller) getOrCreate(sessionID string) *session {
	c.mu.RLock()
	sess, ok := c.sessions[sessionID]
	c.mu.RUnlock()
	if ok {
		return sess
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if sess, ok = c.sessions[sessionID]; ok {
		return sess
	}
	sess = &session{
		id:      sessionID,
		created: time.Now(),
		handler: flow.NewOrchestrator(c.classifier),
	}
	c.sessions[sessionID] = sess
	slog.Info("Session created", "sessionID", sessionID)
	return sess
}

// recordTurn appends the exchange to the in-memory transcript and the
// store. A store failure is retried once and then logged; the reply
// is never withheld over a transcript write.
func (c *Controller) recordTurn(sess *session, userText, botText string, handler models.HandlerKind) {
	turn := models.Turn{
		SessionID: sess.id,
		Timestamp: time.Now(),
		UserText:  userText,
		BotText:   botText,
		Handler:   handler,
	}
	sess.turns = append(sess.turns, turn)

	if err := c.store.AppendTurn(turn); err != nil {
		slog.Warn("Transcript append failed, retrying once", "error", err, "sessionID", sess.id)
		if err := c.store.AppendTurn(turn); err != nil {
			slog.Error("Transcript append failed", "error", err, "sessionID", sess.id)
		}
	}
}
