package requests

import (
	"fmt"

	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
)

// transitions lists the permitted successors of every status. Terminal states map to nothing.
var transitions = map[enums.RequestStatus][]enums.RequestStatus{
	enums.RequestStatusReceived:  {enums.RequestStatusQuoted, enums.RequestStatusCancelled},
	enums.RequestStatusQuoted:    {enums.RequestStatusConfirmed, enums.RequestStatusCancelled},
	enums.RequestStatusConfirmed: {enums.RequestStatusInvoiced, enums.RequestStatusCancelled},
	enums.RequestStatusInvoiced:  {enums.RequestStatusPaid},
	enums.RequestStatusPaid:      nil,
	enums.RequestStatusCancelled: nil,
}

// notificationFor is the single message category dispatched when a status is entered.
var notificationFor = map[enums.RequestStatus]enums.NotificationEvent{
	enums.RequestStatusReceived:  enums.NotificationEventBookingReceived,
	enums.RequestStatusQuoted:    enums.NotificationEventQuotationSent,
	enums.RequestStatusConfirmed: enums.NotificationEventBookingConfirmed,
	enums.RequestStatusInvoiced:  enums.NotificationEventInvoiceSent,
	enums.RequestStatusPaid:      enums.NotificationEventPaymentReceived,
	enums.RequestStatusCancelled: enums.NotificationEventBookingCancelled,
}

// timestampColumns names the column stamped when a status is entered.
var timestampColumns = map[enums.RequestStatus]string{
	enums.RequestStatusQuoted:    "quoted_at",
	enums.RequestStatusConfirmed: "confirmed_at",
	enums.RequestStatusInvoiced:  "invoiced_at",
	enums.RequestStatusPaid:      "paid_at",
	enums.RequestStatusCancelled: "cancelled_at",
}

// CanTransition reports whether to is a permitted successor of from.
func CanTransition(from, to enums.RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Successors returns a copy of the permitted next states.
func Successors(from enums.RequestStatus) []enums.RequestStatus {
	next := transitions[from]
	out := make([]enums.RequestStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(status enums.RequestStatus) bool {
	next, known := transitions[status]
	return known && len(next) == 0
}

func ensureTransition(from, to enums.RequestStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move booking from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to, "allowed": Successors(from)})
}
