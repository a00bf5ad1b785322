// Package classify decides whether an order request is a generic or a bulk
// order. It prefers the configured text-completion capability and falls back
// to a deterministic rule path on any failure, so classification never errors
// and never blocks a conversation.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/nishant5790/ordering-agent/internal/genai"
	"github.com/nishant5790/ordering-agent/internal/models"
)

// DefaultBulkThreshold is the smallest quantity classified as bulk when no
// threshold is configured. The boundary is inclusive on the bulk side.
const DefaultBulkThreshold = 100

const classifyMaxTokens = 10

const classifySystemPrompt = `You are an order classification expert. Analyze the order request and classify it as either "generic" or "bulk".

Classification rules:
- "generic": Single items, small quantities (1-50), personal use, specific products
- "bulk": Large quantities (100+), multiple items, reselling, wholesale, events

Respond with only "generic" or "bulk".`

// Keyword hints consulted when the description carries no quantity signal.
var (
	bulkKeywords = []string{
		"bulk", "wholesale", "reselling", "business", "company", "office",
		"event", "onboarding", "employee", "team",
		"hundred", "thousand", "large quantity", "mass order",
	}
	genericKeywords = []string{
		"personal", "home", "individual", "single", "one", "few", "small",
		"personal use",
	}
)

var integerRe = regexp.MustCompile(`\d+`)

// quantityNouns mark an integer as an explicit quantity when adjacent.
var quantityNouns = map[string]bool{
	"unit": true, "units": true,
	"piece": true, "pieces": true, "pcs": true,
	"item": true, "items": true,
	"box": true, "boxes": true,
	"pack": true, "packs": true,
	"copy": true, "copies": true,
}

// Classifier classifies order descriptions. A nil client means the completion
// capability is absent and only the rule path runs.
type Classifier struct {
	client    genai.ClientInterface
	threshold int
}

// New creates a Classifier. threshold <= 0 selects DefaultBulkThreshold.
func New(client genai.ClientInterface, threshold int) *Classifier {
	if threshold <= 0 {
		threshold = DefaultBulkThreshold
	}
	return &Classifier{client: client, threshold: threshold}
}

// Threshold returns the configured bulk threshold.
func (c *Classifier) Threshold() int {
	return c.threshold
}

// Classify returns the order type for a description. explicitQuantity, when
// set, is a quantity hint already extracted from the conversation and takes
// precedence over integers found in the text.
func (c *Classifier) Classify(ctx context.Context, description string, explicitQuantity *int) models.OrderType {
	if c.client != nil {
		orderType, err := c.classifyWithModel(ctx, description, explicitQuantity)
		if err == nil {
			slog.Debug("classify.Classify: model classification", "type", orderType)
			return orderType
		}
		slog.Warn("classify.Classify: model path failed, using rule fallback", "error", err)
	}
	return c.ClassifyByRule(description, explicitQuantity)
}

// classifyWithModel asks the completion capability for a single-token answer
// and validates it strictly. Any parse failure is an error so the caller
// falls back to rules.
func (c *Classifier) classifyWithModel(ctx context.Context, description string, explicitQuantity *int) (models.OrderType, error) {
	quantityLine := "Not specified"
	if explicitQuantity != nil {
		quantityLine = strconv.Itoa(*explicitQuantity)
	}
	userPrompt := fmt.Sprintf("Description: %s\nExplicit quantity: %s\n\nClassify this order:", description, quantityLine)

	reply, err := c.client.Complete(ctx, classifySystemPrompt, userPrompt, classifyMaxTokens)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(strings.Trim(strings.TrimSpace(reply), `."'`)) {
	case "generic":
		return models.OrderTypeGeneric, nil
	case "bulk":
		return models.OrderTypeBulk, nil
	default:
		return "", fmt.Errorf("unparseable classification reply %q", reply)
	}
}

// ClassifyByRule is the deterministic fallback path: identical text and
// threshold always produce an identical answer.
func (c *Classifier) ClassifyByRule(description string, explicitQuantity *int) models.OrderType {
	quantity := explicitQuantity
	if quantity == nil {
		quantity = QuantityFromText(description)
	}
	if quantity != nil {
		if *quantity >= c.threshold {
			return models.OrderTypeBulk
		}
		return models.OrderTypeGeneric
	}

	// No quantity signal at all: keyword hints, then the default policy.
	lower := strings.ToLower(description)
	for _, kw := range bulkKeywords {
		if strings.Contains(lower, kw) {
			return models.OrderTypeBulk
		}
	}
	for _, kw := range genericKeywords {
		if strings.Contains(lower, kw) {
			return models.OrderTypeGeneric
		}
	}
	return models.OrderTypeGeneric
}

// QuantityFromText extracts the quantity an order description implies: the
// largest integer in the text, preferring any integer directly followed by a
// quantity noun ("2 boxes of 500 staples" reads as quantity 2).
func QuantityFromText(text string) *int {
	locs := integerRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	best := -1
	bestAdjacent := false
	for _, loc := range locs {
		n, err := strconv.Atoi(text[loc[0]:loc[1]])
		if err != nil {
			continue // digit run too large for an int
		}
		adjacent := followedByQuantityNoun(text, loc[1])
		switch {
		case adjacent && !bestAdjacent:
			best, bestAdjacent = n, true
		case adjacent == bestAdjacent && n > best:
			best = n
		}
	}
	if best < 0 {
		return nil
	}
	return &best
}

// followedByQuantityNoun reports whether the word right after position pos is
// a quantity noun.
func followedByQuantityNoun(text string, pos int) bool {
	rest := strings.Fields(text[pos:])
	if len(rest) == 0 {
		return false
	}
	word := strings.ToLower(strings.Trim(rest[0], ".,!?;:"))
	return quantityNouns[word]
}
