package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	t.Parallel()

	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusNew:        {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipping, OrderStatusCancelled},
		OrderStatusShipping:   {OrderStatusDelivered},
		OrderStatusDelivered:  nil,
		OrderStatusCancelled:  nil,
	}

	for from, targets := range allowed {
		for _, to := range OrderStatuses() {
			want := false
			for _, target := range targets {
				if target == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	t.Parallel()

	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Fatal("delivered and cancelled should be terminal")
	}
	if OrderStatusNew.IsTerminal() || OrderStatus("bogus").IsTerminal() {
		t.Fatal("new and unknown statuses should not be terminal")
	}
	if len(OrderStatusDelivered.NextStatuses()) != 0 {
		t.Fatal("terminal status should have no successors")
	}
}

func TestParseEnums(t *testing.T) {
	t.Parallel()

	if s, err := ParseOrderStatus("shipping"); err != nil || s != OrderStatusShipping {
		t.Fatalf("unexpected parse result %q err=%v", s, err)
	}
	if _, err := ParseOrderStatus("lost"); err == nil {
		t.Fatal("expected error for unknown order status")
	}
	if r, err := ParseUserRole("admin"); err != nil || r != UserRoleAdmin {
		t.Fatalf("unexpected role %q err=%v", r, err)
	}
	if _, err := ParseOwnerKind("guest"); err == nil {
		t.Fatal("expected error for unknown owner kind")
	}
	if e, err := ParseOutboxEventType("order_created"); err != nil || e != EventOrderCreated {
		t.Fatalf("unexpected event type %q err=%v", e, err)
	}
	if _, err := ParseOutboxAggregateType("store"); err == nil {
		t.Fatal("expected error for unknown aggregate type")
	}
}
