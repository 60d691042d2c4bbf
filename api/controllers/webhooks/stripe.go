package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/haulbook-backend/api/responses"
	stripewebhook "github.com/angelmondragon/haulbook-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

const maxStripePayload = 65536

type EventHandler interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type EventLedger interface {
	Claim(ctx context.Context, eventID string) (stripewebhook.Claim, error)
	Finish(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

type SigningSecretProvider interface {
	SigningSecret() string
}

// StripeWebhook verifies Stripe-Signature and hands each event id to the
// handler at most once. A delivery that races an in-flight attempt gets a 409
// so Stripe retries it later; a failed attempt releases the id.
func StripeWebhook(svc EventHandler, client SigningSecretProvider, ledger EventLedger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || client == nil || ledger == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "stripe webhooks are not configured"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStripePayload))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, client.SigningSecret(), webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature"))
			return
		}

		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "stripe_event_type": string(event.Type)})
		}

		claim, err := ledger.Claim(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim stripe event"))
			return
		}
		switch claim {
		case stripewebhook.ClaimProcessed:
			if logg != nil {
				logg.Info(ctx, "stripe event already processed")
			}
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		case stripewebhook.ClaimInFlight:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "stripe event is being processed"))
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if relErr := ledger.Release(ctx, event.ID); relErr != nil && logg != nil {
				logg.Warn(logg.WithField(ctx, "error", relErr.Error()), "release stripe event failed")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := ledger.Finish(ctx, event.ID); err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "mark stripe event done failed")
		}

		if logg != nil {
			logg.Info(ctx, "stripe event processed")
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
