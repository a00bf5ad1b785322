package models

import (
	"testing"
	"time"
)

func TestNewOrderDraftHasIdentity(t *testing.T) {
	a, b := NewOrderDraft(), NewOrderDraft()
	if a.ID == "" || b.ID == "" {
		t.Fatal("draft ID is empty")
	}
	if a.ID == b.ID {
		t.Errorf("draft IDs collide: %q", a.ID)
	}
}

func TestSetTypeAtMostOnce(t *testing.T) {
	d := NewOrderDraft()
	if err := d.SetType(OrderTypeGeneric); err != nil {
		t.Fatalf("first SetType failed: %v", err)
	}
	if err := d.SetType(OrderTypeBulk); err == nil {
		t.Error("expected error on second SetType")
	}
	if d.Type != OrderTypeGeneric {
		t.Errorf("type = %q, want %q", d.Type, OrderTypeGeneric)
	}

	if err := NewOrderDraft().SetType(OrderType("mystery")); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestRecordSnapshotsDraft(t *testing.T) {
	d := NewOrderDraft()
	d.Title = "Office desks"
	d.ProductName = "wooden desks"
	qty := 10
	d.Quantity = &qty
	d.SetDetail("initial_request", "I need 10 wooden desks")
	if err := d.SetType(OrderTypeGeneric); err != nil {
		t.Fatalf("SetType failed: %v", err)
	}

	now := time.Now()
	rec := d.Record("s1", now)
	if rec.ID != d.ID || rec.SessionID != "s1" || rec.Quantity != 10 || !rec.CreatedAt.Equal(now) {
		t.Errorf("record = %+v", rec)
	}

	// Later draft mutations must not leak into the record.
	qty = 99
	d.SetDetail("initial_request", "changed")
	if rec.Quantity != 10 {
		t.Errorf("record quantity mutated to %d", rec.Quantity)
	}
	if rec.AdditionalDetails["initial_request"] != "I need 10 wooden desks" {
		t.Errorf("record details mutated: %+v", rec.AdditionalDetails)
	}
}

func TestRecordWithoutQuantity(t *testing.T) {
	d := NewOrderDraft()
	if got := d.Record("s1", time.Now()).Quantity; got != 0 {
		t.Errorf("quantity = %d, want 0", got)
	}
}

func TestSubmitRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     SubmitRequest
		wantErr bool
	}{
		{"valid", SubmitRequest{SessionID: "s1", Message: "hello"}, false},
		{"missing session", SubmitRequest{Message: "hello"}, true},
		{"missing message", SubmitRequest{SessionID: "s1"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.req.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestAPIResponseBuilder(t *testing.T) {
	resp := NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage("boom").
		Build()
	if resp.Status != APIStatusError || resp.Message != "boom" {
		t.Errorf("built response = %+v", resp)
	}

	ok := Success(map[string]string{"k": "v"})
	if ok.Status != APIStatusOK || ok.Result == nil {
		t.Errorf("Success() = %+v", ok)
	}
	bad := Error("nope")
	if bad.Status != APIStatusError || bad.Message != "nope" {
		t.Errorf("Error() = %+v", bad)
	}
}
