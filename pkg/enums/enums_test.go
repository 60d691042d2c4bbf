package enums

import "testing"

func TestParseRequestStatus(t *testing.T) {
	got, err := ParseRequestStatus(" quoted ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != RequestStatusQuoted {
		t.Fatalf("expected QUOTED, got %s", got)
	}
	if _, err := ParseRequestStatus("shipped"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
	if RequestStatus("DONE").IsValid() {
		t.Fatalf("DONE should not be valid")
	}
}

func TestParseServiceType(t *testing.T) {
	if _, err := ParseServiceType("moving"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseServiceType("MOVING"); err == nil {
		t.Fatalf("service type matching is exact")
	}
}

func TestParseDiscountType(t *testing.T) {
	if got, err := ParseDiscountType("fixed"); err != nil || got != DiscountTypeFixed {
		t.Fatalf("unexpected result %v %v", got, err)
	}
	if DiscountType("bogo").IsValid() {
		t.Fatalf("bogo should not be valid")
	}
}

func TestNotificationEventValues(t *testing.T) {
	for _, ev := range validNotificationEvents {
		parsed, err := ParseNotificationEvent(ev.String())
		if err != nil || parsed != ev {
			t.Fatalf("round trip failed for %s", ev)
		}
	}
}
