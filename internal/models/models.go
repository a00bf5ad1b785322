// Package models defines the core data types for the ordering agent:
// sessions, transcript turns, order drafts, and persisted order records.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderType classifies an order request.
type OrderType string

// Order type constants.
const (
	OrderTypeGeneric OrderType = "generic"
	OrderTypeBulk    OrderType = "bulk"
)

// HandlerKind identifies one of the closed set of conversation handlers.
type HandlerKind string

// Handler kind constants.
const (
	HandlerOrchestrator HandlerKind = "Orchestrator"
	HandlerGeneric      HandlerKind = "Generic"
	HandlerBulk         HandlerKind = "Bulk"
)

// StateType represents a specific state within a handler's state machine.
type StateType string

// Orchestrator states.
const (
	StateAwaitingTitle       StateType = "AWAITING_TITLE"
	StateAwaitingDescription StateType = "AWAITING_DESCRIPTION"
	StateClassifying         StateType = "CLASSIFYING"
	StateDispatched          StateType = "DISPATCHED"
)

// Order handler states (shared by the generic and bulk variants).
const (
	StateAwaitingBrand StateType = "AWAITING_BRAND_OR_SUPPLIER"
	StateConfirming    StateType = "CONFIRMING"
	StateSaved         StateType = "SAVED"
)

// Turn is one user-message/bot-reply pair in a session transcript.
// Turns are immutable once appended; append order is conversation order.
type Turn struct {
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	UserText  string      `json:"user_text"`
	BotText   string      `json:"bot_text"`
	Handler   HandlerKind `json:"handler"` // handler that produced the reply
}

// OrderDraft is an in-progress, not-yet-confirmed order. A draft is created
// per order and never reused: starting a new order inside the same session
// creates a fresh draft instance.
type OrderDraft struct {
	ID                string            `json:"id"` // draft identity, used for idempotent upserts
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Type              OrderType         `json:"order_type,omitempty"`
	ProductName       string            `json:"product_name"`
	Quantity          *int              `json:"quantity,omitempty"` // nil until extracted
	BrandPreference   string            `json:"brand_preference"`
	AdditionalDetails map[string]string `json:"additional_details,omitempty"`
}

// NewOrderDraft creates an empty draft with a fresh identity.
func NewOrderDraft() *OrderDraft {
	return &OrderDraft{
		ID:                uuid.NewString(),
		AdditionalDetails: make(map[string]string),
	}
}

// SetType records the classification result. The classified type is set at
// most once per draft instance.
func (d *OrderDraft) SetType(t OrderType) error {
	if d.Type != "" {
		return fmt.Errorf("order type already set to %q", d.Type)
	}
	if t != OrderTypeGeneric && t != OrderTypeBulk {
		return fmt.Errorf("unknown order type %q", t)
	}
	d.Type = t
	return nil
}

// SetDetail stores a free-form key/value pair on the draft.
func (d *OrderDraft) SetDetail(key, value string) {
	if d.AdditionalDetails == nil {
		d.AdditionalDetails = make(map[string]string)
	}
	d.AdditionalDetails[key] = value
}

// Record snapshots the draft into an immutable OrderRecord. The record owns
// copies of all draft data; later draft mutations do not leak into it.
func (d *OrderDraft) Record(sessionID string, now time.Time) OrderRecord {
	quantity := 0
	if d.Quantity != nil {
		quantity = *d.Quantity
	}
	details := make(map[string]string, len(d.AdditionalDetails))
	for k, v := range d.AdditionalDetails {
		details[k] = v
	}
	return OrderRecord{
		ID:                d.ID,
		SessionID:         sessionID,
		Title:             d.Title,
		Description:       d.Description,
		Type:              d.Type,
		ProductName:       d.ProductName,
		Quantity:          quantity,
		BrandPreference:   d.BrandPreference,
		AdditionalDetails: details,
		CreatedAt:         now,
	}
}

// OrderRecord is the finalized snapshot of a confirmed order. Immutable once
// persisted; upserts are keyed by (SessionID, ID) so at-least-once retries
// are harmless.
type OrderRecord struct {
	ID                string            `json:"id"`
	SessionID         string            `json:"session_id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Type              OrderType         `json:"order_type"`
	ProductName       string            `json:"product_name"`
	Quantity          int               `json:"quantity"`
	BrandPreference   string            `json:"brand_preference"`
	AdditionalDetails map[string]string `json:"additional_details,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}
