package payments

import "github.com/angelmondragon/haulbook-backend/internal/requests"

// IntentResult hands the client secret to the browser so it can collect card details.
type IntentResult struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Status       string `json:"status"`
}

// ConfirmResult reports the mirrored payment status and, once paid, the booking.
type ConfirmResult struct {
	IntentID string               `json:"intent_id"`
	Status   string               `json:"status"`
	Request  *requests.RequestDTO `json:"request,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}
