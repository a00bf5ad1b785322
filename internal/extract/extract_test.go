package extract

import (
	"context"
	"errors"
	"testing"
)

type mockCompleter struct {
	reply string
	err   error
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (string, error) {
	return m.reply, m.err
}

func intPtr(n int) *int { return &n }

func TestHeuristicsQuantityAndProduct(t *testing.T) {
	cases := []struct {
		name        string
		text        string
		wantQty     *int
		wantProduct string
	}{
		{"quantity then product", "I need 10 wooden desks for the new conference room.", intPtr(10), "wooden desks"},
		{"bulk request", "I need 500 water bottles", intPtr(500), "water bottles"},
		{"trailing stopword", "No, actually I need 20 desk lamps instead.", intPtr(20), "desk lamps"},
		{"no integer", "a standing desk", nil, "a standing desk"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Heuristics(tc.text)
			switch {
			case tc.wantQty == nil && got.Quantity != nil:
				t.Errorf("quantity = %d, want nil", *got.Quantity)
			case tc.wantQty != nil && got.Quantity == nil:
				t.Errorf("quantity = nil, want %d", *tc.wantQty)
			case tc.wantQty != nil && *got.Quantity != *tc.wantQty:
				t.Errorf("quantity = %d, want %d", *got.Quantity, *tc.wantQty)
			}
			if got.ProductName != tc.wantProduct {
				t.Errorf("product = %q, want %q", got.ProductName, tc.wantProduct)
			}
		})
	}
}

func TestHeuristicsBrandPreference(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Yes, from UrbanCraft.", "UrbanCraft"},
		{"Yes, prefer BottlePro or any eco-friendly vendor.", "BottlePro or any eco-friendly vendor"},
		{"I want the IKEA brand", ""},
		{"no", NoPreference},
		{"None", NoPreference},
		{"no thanks", NoPreference},
		{"Sure", ""},
	}
	for _, tc := range cases {
		if got := Heuristics(tc.text).BrandPreference; got != tc.want {
			t.Errorf("brand for %q = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestExtractKeepsKnownFields(t *testing.T) {
	e := New(nil)
	known := Fields{ProductName: "wooden desks", Quantity: intPtr(10)}

	got := e.Extract(context.Background(), "Yes, from UrbanCraft.", known)
	if got.ProductName != "wooden desks" {
		t.Errorf("known product overwritten: %q", got.ProductName)
	}
	if got.Quantity == nil || *got.Quantity != 10 {
		t.Errorf("known quantity lost: %v", got.Quantity)
	}
	if got.BrandPreference != "UrbanCraft" {
		t.Errorf("brand = %q, want UrbanCraft", got.BrandPreference)
	}
}

func TestExtractModelPath(t *testing.T) {
	e := New(&mockCompleter{reply: `{"product_name": "water bottles", "quantity": 500, "brand_preference": null}`})

	got := e.Extract(context.Background(), "I need 500 water bottles", Fields{})
	if got.ProductName != "water bottles" {
		t.Errorf("product = %q", got.ProductName)
	}
	if got.Quantity == nil || *got.Quantity != 500 {
		t.Errorf("quantity = %v, want 500", got.Quantity)
	}
}

func TestExtractModelPathFencedJSON(t *testing.T) {
	e := New(&mockCompleter{reply: "```json\n{\"product_name\": \"desk lamps\", \"quantity\": 20, \"brand_preference\": null}\n```"})

	got := e.Extract(context.Background(), "20 desk lamps", Fields{})
	if got.ProductName != "desk lamps" {
		t.Errorf("product = %q, want desk lamps", got.ProductName)
	}
}

func TestExtractFallsBackOnModelError(t *testing.T) {
	e := New(&mockCompleter{err: errors.New("timeout")})

	got := e.Extract(context.Background(), "I need 10 wooden desks", Fields{})
	if got.Quantity == nil || *got.Quantity != 10 {
		t.Errorf("rule fallback quantity = %v, want 10", got.Quantity)
	}
	if got.ProductName != "wooden desks" {
		t.Errorf("rule fallback product = %q, want wooden desks", got.ProductName)
	}
}

func TestExtractNeverFailsHard(t *testing.T) {
	e := New(&mockCompleter{reply: "I cannot help with that"})

	got := e.Extract(context.Background(), "hmm", Fields{})
	if got.Quantity != nil {
		t.Errorf("expected unset quantity, got %d", *got.Quantity)
	}
	if got.BrandPreference != "" {
		t.Errorf("expected unset brand, got %q", got.BrandPreference)
	}
}
