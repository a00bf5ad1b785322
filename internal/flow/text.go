package flow

import (
	"strings"

	"github.com/nishant5790/ordering-agent/internal/extract"
	"github.com/nishant5790/ordering-agent/internal/models"
)

var affirmatives = map[string]bool{
	"yes":     true,
	"yeah":    true,
	"yep":     true,
	"sure":    true,
	"confirm": true,
	"ok":      true,
	"okay":    true,
	"y":       true,
	"correct": true,
}

var continuationCues = []string{"also", "add", "too", "as well", "same", "plus"}

// isAffirmative reports whether the message opens with a confirmation
// word. Only the first word is considered so that "Yes, from
// UrbanCraft." still counts as a yes.
func isAffirmative(text string) bool {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return false
	}
	first := strings.Trim(fields[0], ".,!?;:")
	return affirmatives[first]
}

// looksLikeNewOrder detects a mid-flow pivot to a different order, such
// as "No, actually I need 20 desk lamps instead." while the session is
// confirming an earlier request. It only fires when the current draft
// already has a product and quantity, the message itself reads like a
// fresh request (its own product and quantity, no brand answer), and
// nothing suggests the user is amending the current order.
func looksLikeNewOrder(draft *models.OrderDraft, text string) bool {
	if draft.Quantity == nil || draft.ProductName == "" {
		return false
	}
	fields := extract.Heuristics(text)
	if fields.BrandPreference != "" {
		return false
	}
	if fields.Quantity == nil || fields.ProductName == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, cue := range continuationCues {
		if containsWord(lower, cue) {
			return false
		}
	}
	return true
}

func containsWord(text, word string) bool {
	for _, f := range strings.Fields(text) {
		if strings.Trim(f, ".,!?;:") == word {
			return true
		}
	}
	return false
}
