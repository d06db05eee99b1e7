package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billtrack/billtrack/internal/model"
)

func TestBillEvent_JSON(t *testing.T) {
	t.Parallel()

	bill := &model.Bill{
		ID:       "01J0000000000000000000000",
		Category: "Internet",
		Amount:   decimal.RequireFromString("59.99"),
		DueDate:  model.NewDate(2026, time.July, 4),
		Receiver: "ISP",
		Biller:   "alice@example.com",
		Paid:     true,
	}

	data, err := NewBillEvent(TypeBillUpdated, bill, "paid").ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	var decoded struct {
		Type    string         `json:"type"`
		Changed []string       `json:"changed"`
		Bill    map[string]any `json:"bill"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Type != TypeBillUpdated {
		t.Errorf("type = %q, want %q", decoded.Type, TypeBillUpdated)
	}
	if len(decoded.Changed) != 1 || decoded.Changed[0] != "paid" {
		t.Errorf("changed = %v, want [paid]", decoded.Changed)
	}
	if decoded.Bill["dueDate"] != "2026-07-04" {
		t.Errorf("bill.dueDate = %v, want 2026-07-04", decoded.Bill["dueDate"])
	}
	if decoded.Bill["amount"] != 59.99 {
		t.Errorf("bill.amount = %v, want 59.99", decoded.Bill["amount"])
	}
}

func TestMemoryPublisher(t *testing.T) {
	t.Parallel()

	pub := &MemoryPublisher{}
	ctx := context.Background()

	if err := pub.Publish(ctx, BillEvent{Type: TypeBillCreated}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	pub.Err = errors.New("broker down")
	if err := pub.Publish(ctx, BillEvent{Type: TypeBillUpdated}); err == nil {
		t.Error("Publish should return the configured error")
	}

	got := pub.Events()
	if len(got) != 1 || got[0].Type != TypeBillCreated {
		t.Errorf("Events() = %+v, want one bill.created", got)
	}
}
