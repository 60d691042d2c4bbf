package enums

import (
	"fmt"
	"strings"
)

// RequestStatus tracks where a booking request sits in its lifecycle.
type RequestStatus string

const (
	RequestStatusReceived  RequestStatus = "RECEIVED"
	RequestStatusQuoted    RequestStatus = "QUOTED"
	RequestStatusConfirmed RequestStatus = "CONFIRMED"
	RequestStatusInvoiced  RequestStatus = "INVOICED"
	RequestStatusPaid      RequestStatus = "PAID"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusReceived,
	RequestStatusQuoted,
	RequestStatusConfirmed,
	RequestStatusInvoiced,
	RequestStatusPaid,
	RequestStatusCancelled,
}

// String implements fmt.Stringer.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RequestStatus.
func (s RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRequestStatus converts raw input into a RequestStatus. Matching is case-insensitive.
func ParseRequestStatus(value string) (RequestStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validRequestStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
