package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nishant5790/ordering-agent/internal/extract"
	"github.com/nishant5790/ordering-agent/internal/models"
	"github.com/nishant5790/ordering-agent/internal/store"
)

// defaultSaveRetryBackoff is the pause before the single save retry.
const defaultSaveRetryBackoff = 200 * time.Millisecond

// OrderHandler confirms the details of a classified order and saves
// it. The same machine serves both generic and bulk orders; only the
// wording differs.
type OrderHandler struct {
	kind      models.HandlerKind
	extractor *extract.Extractor
	store     store.Store
	sessionID string
	draft     *models.OrderDraft
	state     models.StateType

	retryBackoff time.Duration
}

// NewGenericOrderHandler creates a handler for single and small
// orders. A nil draft starts a blank generic order.
func NewGenericOrderHandler(extractor *extract.Extractor, st store.Store, sessionID string, draft *models.OrderDraft) *OrderHandler {
	return newOrderHandler(models.HandlerGeneric, models.OrderTypeGeneric, extractor, st, sessionID, draft)
}

// NewBulkOrderHandler creates a handler for large quantity and
// wholesale orders. A nil draft starts a blank bulk order.
func NewBulkOrderHandler(extractor *extract.Extractor, st store.Store, sessionID string, draft *models.OrderDraft) *OrderHandler {
	return newOrderHandler(models.HandlerBulk, models.OrderTypeBulk, extractor, st, sessionID, draft)
}

func newOrderHandler(kind models.HandlerKind, orderType models.OrderType, extractor *extract.Extractor, st store.Store, sessionID string, draft *models.OrderDraft) *OrderHandler {
	if draft == nil {
		draft = models.NewOrderDraft()
	}
	if draft.Type == "" {
		_ = draft.SetType(orderType)
	}
	return &OrderHandler{
		kind:         kind,
		extractor:    extractor,
		store:        st,
		sessionID:    sessionID,
		draft:        draft,
		state:        models.StateAwaitingBrand,
		retryBackoff: defaultSaveRetryBackoff,
	}
}

func (h *OrderHandler) Kind() models.HandlerKind { return h.kind }

func (h *OrderHandler) State() models.StateType { return h.state }

// Begin extracts product and quantity from the order description and
// asks for the brand or supplier preference.
func (h *OrderHandler) Begin(ctx context.Context) (string, error) {
	slog.Debug("OrderHandler taking over session", "kind", h.kind, "sessionID", h.sessionID)
	if h.draft.Description != "" {
		h.applyFields(h.extractor.Extract(ctx, h.draft.Description, h.knownFields()))
	}

	subject := h.productPhrase()
	if h.kind == models.HandlerBulk {
		return fmt.Sprintf("Confirming bulk order of %s. Any supplier preference?", subject), nil
	}
	return fmt.Sprintf("Confirming order for %s. Any brand or vendor preference?", subject), nil
}

func (h *OrderHandler) Handle(ctx context.Context, userText string) (Result, error) {
	slog.Debug("OrderHandler handling message", "kind", h.kind, "state", h.state)

	if looksLikeNewOrder(h.draft, userText) {
		slog.Info("User pivoted to a new order, abandoning draft", "sessionID", h.sessionID, "draftID", h.draft.ID)
		return Result{
			Reply:   "No problem, let's start a new order. Please provide a title for this order.",
			Handoff: &Handoff{Target: models.HandlerOrchestrator, SkipOpening: true},
		}, nil
	}

	switch h.state {
	case models.StateAwaitingBrand:
		return h.handleBrand(ctx, userText), nil
	case models.StateConfirming:
		return h.handleConfirm(userText), nil
	default:
		h.state = models.StateAwaitingBrand
		return Result{Reply: "I'm here to help with your order. What would you like to order?"}, nil
	}
}

func (h *OrderHandler) handleBrand(ctx context.Context, userText string) Result {
	fresh := extract.Heuristics(userText)

	// A bare "yes" means the user has a preference but has not named
	// it yet.
	if isAffirmative(userText) && fresh.BrandPreference == "" {
		return Result{Reply: fmt.Sprintf("Please specify the %s preference.", h.prefLabel())}
	}

	// The answer to this question wins over whatever the draft already
	// holds, so the brand slot is cleared before extraction and an
	// explicit "N product" phrase replaces quantity and product. This is
	// what lets the negative-confirmation loop correct earlier answers.
	known := h.knownFields()
	known.BrandPreference = ""
	fields := h.extractor.Extract(ctx, userText, known)

	if fresh.Quantity != nil {
		h.draft.Quantity = fresh.Quantity
		if fresh.ProductName != "" {
			h.draft.ProductName = fresh.ProductName
		}
	}
	h.applyFields(fields)

	brand := fields.BrandPreference
	if brand == "" && fresh.Quantity == nil {
		// The whole message is the preference ("UrbanCraft please").
		brand = strings.Trim(userText, " .,!?")
	}
	if brand != "" {
		h.draft.BrandPreference = brand
	}
	h.state = models.StateConfirming
	return Result{Reply: h.summary()}
}

func (h *OrderHandler) handleConfirm(userText string) Result {
	if !isAffirmative(userText) {
		h.state = models.StateAwaitingBrand
		return Result{Reply: "Let me know if you want to make any changes to the order."}
	}

	rec := h.draft.Record(h.sessionID, time.Now())
	if err := h.saveWithRetry(rec); err != nil {
		slog.Error("Order save failed after retry", "error", err, "sessionID", h.sessionID, "orderID", rec.ID)
		return Result{Reply: "I could not save your order, please try confirming again."}
	}
	h.state = models.StateSaved
	slog.Info("Order saved", "sessionID", h.sessionID, "orderID", rec.ID, "type", rec.Type)

	reply := fmt.Sprintf("%s\n\n%s\n\nIs there anything else you'd like to order?", h.savedLine(), h.finalOutput())
	return Result{
		Reply:   reply,
		Handoff: &Handoff{Target: models.HandlerOrchestrator},
	}
}

// saveWithRetry attempts the upsert twice. The upsert is idempotent on
// (session ID, order ID), so the retry cannot duplicate the order.
func (h *OrderHandler) saveWithRetry(rec models.OrderRecord) error {
	err := h.store.UpsertOrder(rec)
	if err == nil {
		return nil
	}
	slog.Warn("Order save failed, retrying once", "error", err, "sessionID", h.sessionID, "orderID", rec.ID)
	time.Sleep(h.retryBackoff)
	return h.store.UpsertOrder(rec)
}

func (h *OrderHandler) knownFields() extract.Fields {
	return extract.Fields{
		ProductName:     h.draft.ProductName,
		Quantity:        h.draft.Quantity,
		BrandPreference: h.draft.BrandPreference,
	}
}

func (h *OrderHandler) applyFields(fields extract.Fields) {
	if h.draft.ProductName == "" {
		h.draft.ProductName = fields.ProductName
	}
	if h.draft.Quantity == nil {
		h.draft.Quantity = fields.Quantity
	}
	if h.draft.BrandPreference == "" {
		h.draft.BrandPreference = fields.BrandPreference
	}
}

func (h *OrderHandler) productPhrase() string {
	product := h.draft.ProductName
	if product == "" {
		product = "items"
	}
	if h.draft.Quantity != nil {
		return fmt.Sprintf("%d %s", *h.draft.Quantity, product)
	}
	return product
}

func (h *OrderHandler) prefLabel() string {
	if h.kind == models.HandlerBulk {
		return "supplier"
	}
	return "brand or vendor"
}

func (h *OrderHandler) savedLine() string {
	if h.kind == models.HandlerBulk {
		return "Bulk order confirmed and saved!"
	}
	return "Order confirmed and saved!"
}

func (h *OrderHandler) summary() string {
	kindWord := "order"
	prefLine := "Brand Preference"
	if h.kind == models.HandlerBulk {
		kindWord = "bulk order"
		prefLine = "Supplier Preference"
	}
	return fmt.Sprintf(`Here's the summary of your %s:

Title: %s
Description: %s
Order: %s
%s: %s

Please confirm if this is correct (yes/no).`,
		kindWord, h.draft.Title, h.draft.Description, h.productPhrase(), prefLine, h.draft.BrandPreference)
}

// finalOutput renders the saved order in the wire format consumers of
// the chat expect.
func (h *OrderHandler) finalOutput() string {
	quantity := 0
	if h.draft.Quantity != nil {
		quantity = *h.draft.Quantity
	}
	out := struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		ProductName     string `json:"product_name"`
		Quantity        int    `json:"quantity"`
		BrandPreference string `json:"brand_preference"`
	}{
		Title:           h.draft.Title,
		Description:     h.draft.Description,
		ProductName:     h.draft.ProductName,
		Quantity:        quantity,
		BrandPreference: h.draft.BrandPreference,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
