package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	"github.com/angelmondragon/haulbook-backend/pkg/sendgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type recordingSender struct {
	sent    []sendgrid.Message
	failFor map[string]error
}

func (r *recordingSender) Send(_ context.Context, msg sendgrid.Message) error {
	if err := r.failFor[msg.ToEmail]; err != nil {
		return err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func sampleMessage() Message {
	return Message{
		BookingID:            12,
		CustomerName:         "Dana",
		CustomerEmail:        "dana@example.com",
		ServiceType:          enums.ServiceTypeJunkRemoval,
		ScheduledAt:          time.Date(2026, 6, 3, 17, 0, 0, 0, time.UTC),
		TimeWindow:           "10am-12pm",
		PickupAddress:        "123 Main St, Vancouver BC V6B1A1",
		QuoteTotal:           "224.00",
		Currency:             "CAD",
		BookingURL:           "https://haul.example.com/booking/tok",
		CancellationDeadline: time.Date(2026, 6, 2, 17, 0, 0, 0, time.UTC),
	}
}

func TestEveryEventHasATemplate(t *testing.T) {
	templates, err := compileTemplates()
	require.NoError(t, err)
	for _, event := range []enums.NotificationEvent{
		enums.NotificationEventBookingReceived,
		enums.NotificationEventQuotationSent,
		enums.NotificationEventBookingConfirmed,
		enums.NotificationEventInvoiceSent,
		enums.NotificationEventPaymentReceived,
		enums.NotificationEventBookingCancelled,
	} {
		_, ok := templates[event]
		assert.True(t, ok, "missing template for %s", event)
	}
}

func TestNotifyCustomerAndAdmin(t *testing.T) {
	sender := &recordingSender{}
	svc, err := NewService(sender, "ops@example.com", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Notify(context.Background(), enums.NotificationEventBookingReceived, sampleMessage()))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "dana@example.com", sender.sent[0].ToEmail)
	assert.Equal(t, "We received your booking request #12", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].PlainText, "junk removal")
	assert.Contains(t, sender.sent[0].HTML, "<p>Hi Dana,</p>")
	assert.Equal(t, "ops@example.com", sender.sent[1].ToEmail)
	assert.True(t, strings.HasPrefix(sender.sent[1].Subject, "[admin] "))
}

func TestNotifyQuotationIsCustomerOnly(t *testing.T) {
	sender := &recordingSender{}
	svc, err := NewService(sender, "ops@example.com", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Notify(context.Background(), enums.NotificationEventQuotationSent, sampleMessage()))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].PlainText, "https://haul.example.com/booking/tok")
	assert.Contains(t, sender.sent[0].PlainText, "224.00 CAD")
}

func TestNotifyCombinesFailures(t *testing.T) {
	sender := &recordingSender{failFor: map[string]error{
		"dana@example.com": errors.New("mailbox full"),
		"ops@example.com":  errors.New("rate limited"),
	}}
	svc, err := NewService(sender, "ops@example.com", nil)
	require.NoError(t, err)

	err = svc.Notify(context.Background(), enums.NotificationEventBookingCancelled, sampleMessage())
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "booking-cancelled to customer")
	assert.Contains(t, errs[1].Error(), "booking-cancelled to admin")
}

func TestNotifySkipsAdminWithoutAddress(t *testing.T) {
	sender := &recordingSender{}
	svc, err := NewService(sender, "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Notify(context.Background(), enums.NotificationEventBookingConfirmed, sampleMessage()))
	assert.Len(t, sender.sent, 1)
}

func TestNotifyUnknownEvent(t *testing.T) {
	svc, err := NewService(&recordingSender{}, "", nil)
	require.NoError(t, err)
	assert.Error(t, svc.Notify(context.Background(), enums.NotificationEvent("bogus"), sampleMessage()))
}
