// Package extract turns free-form user text into structured order fields.
// Extraction never fails hard: fields that cannot be recovered stay unset and
// the conversation handler asks again.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/nishant5790/ordering-agent/internal/genai"
)

// NoPreference is recorded when the user declines to name a brand or supplier.
const NoPreference = "no preference"

const extractMaxTokens = 200

const extractSystemPrompt = `You extract structured order fields from a customer's message. Respond with a single JSON object and nothing else:
{"product_name": string or null, "quantity": integer or null, "brand_preference": string or null}

Rules:
- Only fill fields the message actually states; use null otherwise.
- quantity is the number of items requested, as a non-negative integer.
- brand_preference is the preferred brand, vendor or supplier. If the customer explicitly declines a preference, use "no preference".`

// Fields holds partial order field updates. Zero values mean "not extracted".
type Fields struct {
	ProductName     string `json:"product_name"`
	Quantity        *int   `json:"quantity"`
	BrandPreference string `json:"brand_preference"`
}

var integerRe = regexp.MustCompile(`\d+`)

var brandCueRe = regexp.MustCompile(`(?i)\b(from|prefer|brand)\b`)

// productStopwords end the noun phrase that names the product.
var productStopwords = map[string]bool{
	"for": true, "in": true, "to": true, "from": true, "at": true,
	"by": true, "with": true, "on": true, "of": true,
	"instead": true, "please": true, "asap": true, "and": true,
}

// negativeAcks are whole answers that mean "no preference".
var negativeAcks = map[string]bool{
	"no": true, "none": true, "nope": true, "nah": true, "any": true,
	"nothing": true, "no thanks": true, "no preference": true,
	"any brand": true, "any supplier": true, "anything": true,
}

// Extractor extracts order fields from text. A nil client means the
// completion capability is absent and only the rule heuristics run.
type Extractor struct {
	client genai.ClientInterface
}

// New creates an Extractor.
func New(client genai.ClientInterface) *Extractor {
	return &Extractor{client: client}
}

// Extract returns field updates for text. Fields already set in known are
// kept as-is; only unset fields are filled from the text. The model path is
// tried first when configured, then the rule heuristics cover anything still
// missing.
func (e *Extractor) Extract(ctx context.Context, text string, known Fields) Fields {
	result := known
	if e.client != nil {
		if got, err := e.extractWithModel(ctx, text); err == nil {
			result = merge(result, got)
		} else {
			slog.Warn("extract.Extract: model path failed, using rule heuristics", "error", err)
		}
	}
	return merge(result, Heuristics(text))
}

// extractWithModel asks the completion capability for a JSON object and
// parses it tolerantly.
func (e *Extractor) extractWithModel(ctx context.Context, text string) (Fields, error) {
	reply, err := e.client.Complete(ctx, extractSystemPrompt, text, extractMaxTokens)
	if err != nil {
		return Fields{}, err
	}

	// Models occasionally wrap the object in prose or fences; take the
	// outermost braces.
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Fields{}, fmt.Errorf("no JSON object in extraction reply %q", reply)
	}

	var got Fields
	if err := json.Unmarshal([]byte(reply[start:end+1]), &got); err != nil {
		return Fields{}, fmt.Errorf("failed to parse extraction reply: %w", err)
	}
	if got.Quantity != nil && *got.Quantity < 0 {
		got.Quantity = nil
	}
	return got, nil
}

// merge fills unset fields of base from extra.
func merge(base, extra Fields) Fields {
	if base.ProductName == "" {
		base.ProductName = extra.ProductName
	}
	if base.Quantity == nil {
		base.Quantity = extra.Quantity
	}
	if base.BrandPreference == "" {
		base.BrandPreference = extra.BrandPreference
	}
	return base
}

// Heuristics is the deterministic rule path. It is exported so handler-side
// intent detection and tests can probe a text without touching the model.
func Heuristics(text string) Fields {
	return Fields{
		ProductName:     productName(text),
		Quantity:        firstInteger(text),
		BrandPreference: brandPreference(text),
	}
}

// firstInteger returns the first integer appearing in text.
func firstInteger(text string) *int {
	loc := integerRe.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	n, err := strconv.Atoi(text[loc[0]:loc[1]])
	if err != nil {
		return nil
	}
	return &n
}

// productName returns the noun phrase following the first integer, or the
// whole text minus numeric tokens when no integer is present.
func productName(text string) string {
	loc := integerRe.FindStringIndex(text)
	if loc == nil {
		var words []string
		for _, w := range strings.Fields(text) {
			if integerRe.MatchString(w) {
				continue
			}
			words = append(words, w)
		}
		return strings.Trim(strings.Join(words, " "), " .,!?")
	}

	const maxWords = 4
	var words []string
	for _, w := range strings.Fields(text[loc[1]:]) {
		clean := strings.Trim(w, ".,!?;:")
		if clean == "" || productStopwords[strings.ToLower(clean)] || len(words) >= maxWords {
			break
		}
		words = append(words, clean)
	}
	return strings.Join(words, " ")
}

// brandPreference returns the brand or supplier the text names: the text
// following a cue word ("from", "prefer", "brand"), or NoPreference when the
// whole answer is a negative acknowledgement.
func brandPreference(text string) string {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(text), ".,!?"))
	if negativeAcks[normalized] {
		return NoPreference
	}

	loc := brandCueRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := strings.TrimSpace(text[loc[1]:])
	rest = strings.TrimPrefix(rest, ":")
	rest = strings.Trim(strings.TrimSpace(rest), ".,!?")
	return rest
}
