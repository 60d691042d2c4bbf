package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	"github.com/stripe/stripe-go/v84"
)

type intentSyncer interface {
	SyncIntent(ctx context.Context, intent *stripe.PaymentIntent) error
}

type ServiceParams struct {
	Payments intentSyncer
	Logger   *logger.Logger
}

// Service routes verified Stripe events to the payments mirror.
type Service struct {
	payments intentSyncer
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled,
		stripe.EventTypePaymentIntentProcessing:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		return s.payments.SyncIntent(ctx, &intent)
	default:
		if s.logg != nil {
			s.logg.Debug(ctx, fmt.Sprintf("stripe event %s ignored", event.Type))
		}
		return nil
	}
}
