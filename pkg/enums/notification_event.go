package enums

import "fmt"

// NotificationEvent names the message sent for a lifecycle transition.
type NotificationEvent string

const (
	NotificationEventBookingReceived  NotificationEvent = "booking-received"
	NotificationEventQuotationSent    NotificationEvent = "quotation-sent"
	NotificationEventBookingConfirmed NotificationEvent = "booking-confirmed"
	NotificationEventInvoiceSent      NotificationEvent = "invoice-sent"
	NotificationEventPaymentReceived  NotificationEvent = "payment-received"
	NotificationEventBookingCancelled NotificationEvent = "booking-cancelled"
)

var validNotificationEvents = []NotificationEvent{
	NotificationEventBookingReceived,
	NotificationEventQuotationSent,
	NotificationEventBookingConfirmed,
	NotificationEventInvoiceSent,
	NotificationEventPaymentReceived,
	NotificationEventBookingCancelled,
}

// String implements fmt.Stringer.
func (n NotificationEvent) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationEvent.
func (n NotificationEvent) IsValid() bool {
	for _, candidate := range validNotificationEvents {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationEvent converts raw input into a NotificationEvent.
func ParseNotificationEvent(value string) (NotificationEvent, error) {
	for _, candidate := range validNotificationEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification event %q", value)
}
