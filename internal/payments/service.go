package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/haulbook-backend/internal/requests"
	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/haulbook-backend/pkg/stripe"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"
)

// ActorProcessor is recorded on status events driven by the payment processor.
const ActorProcessor = "stripe"

// Gateway is the subset of the processor used for bookings.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string, requestID uint) (string, error)
	CreatePaymentIntent(ctx context.Context, in pkgstripe.PaymentIntentInput) (*stripe.PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethodID string) (*stripe.PaymentIntent, error)
	CreateSetupIntent(ctx context.Context, customerID string, requestID uint) (*stripe.SetupIntent, error)
}

type bookings interface {
	GetByToken(ctx context.Context, token string) (*requests.RequestDTO, error)
	MarkPaid(ctx context.Context, id uint, actor string) (*requests.TransitionResult, error)
}

// Service collects card payments for invoiced bookings.
type Service interface {
	CreateSetupIntent(ctx context.Context, token string) (*IntentResult, error)
	CreatePaymentIntent(ctx context.Context, token string) (*IntentResult, error)
	ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethodID string) (*ConfirmResult, error)
	SyncIntent(ctx context.Context, intent *stripe.PaymentIntent) error
}

type ServiceParams struct {
	Repo     Repository
	Gateway  Gateway
	Bookings bookings
	Currency string
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	gateway  Gateway
	bookings bookings
	currency string
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("bookings service required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "cad"
	}
	return &service{
		repo:     params.Repo,
		gateway:  params.Gateway,
		bookings: params.Bookings,
		currency: currency,
		logg:     params.Logger,
	}, nil
}

// CreateSetupIntent saves a card against the booking before it is invoiced.
func (s *service) CreateSetupIntent(ctx context.Context, token string) (*IntentResult, error) {
	booking, err := s.bookings.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	switch booking.Status {
	case enums.RequestStatusQuoted, enums.RequestStatusConfirmed, enums.RequestStatusInvoiced:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "card cannot be saved for this booking").
			WithDetails(map[string]any{"status": booking.Status})
	}

	payment, err := s.ensurePayment(ctx, booking)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateSetupIntent(ctx, payment.ProcessorCustomerID, booking.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create setup intent")
	}
	payment.SetupIntentID = &intent.ID
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
	}

	return &IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       mirrorStatus(string(intent.Status)),
	}, nil
}

// CreatePaymentIntent opens a charge for the invoiced total. Repeated calls for
// the same total reuse the processor's intent through its idempotency key.
func (s *service) CreatePaymentIntent(ctx context.Context, token string) (*IntentResult, error) {
	booking, err := s.bookings.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if booking.Status != enums.RequestStatusInvoiced {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not awaiting payment").
			WithDetails(map[string]any{"status": booking.Status})
	}
	if booking.Quotation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking has no quotation")
	}

	amount := ToCents(booking.Quotation.Total)
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to charge")
	}
	currency := strings.ToLower(booking.Quotation.Currency)
	if currency == "" {
		currency = s.currency
	}

	payment, err := s.ensurePayment(ctx, booking)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, pkgstripe.PaymentIntentInput{
		RequestID:      booking.ID,
		CustomerID:     payment.ProcessorCustomerID,
		AmountCents:    amount,
		Currency:       currency,
		Description:    fmt.Sprintf("Booking #%d", booking.ID),
		IdempotencyKey: fmt.Sprintf("booking-%d-payment-%d", booking.ID, amount),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	payment.IntentID = &intent.ID
	payment.AmountCents = amount
	payment.Currency = currency
	payment.Status = mirrorStatus(string(intent.Status))
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
	}

	return &IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountCents:  amount,
		Currency:     currency,
		Status:       payment.Status,
	}, nil
}

func (s *service) ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethodID string) (*ConfirmResult, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	payment, err := s.repo.FindByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	intent, err := s.gateway.ConfirmPaymentIntent(ctx, intentID, strings.TrimSpace(paymentMethodID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment intent")
	}
	return s.apply(ctx, payment, intent)
}

// SyncIntent mirrors a webhook-delivered intent. Unknown intents and bookings
// that can no longer be paid are logged and acknowledged.
func (s *service) SyncIntent(ctx context.Context, intent *stripe.PaymentIntent) error {
	if intent == nil || intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent missing")
	}

	payment, err := s.repo.FindByIntentID(ctx, intent.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		payment, err = s.findByMetadata(ctx, intent)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.warn(ctx, fmt.Sprintf("payment intent %s has no matching booking", intent.ID))
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	if _, err := s.apply(ctx, payment, intent); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.warn(ctx, fmt.Sprintf("payment intent %s succeeded for booking %d that cannot be paid", intent.ID, payment.RequestID))
			return nil
		}
		return err
	}
	return nil
}

func (s *service) apply(ctx context.Context, payment *models.Payment, intent *stripe.PaymentIntent) (*ConfirmResult, error) {
	status := mirrorStatus(string(intent.Status))
	if payment.Status != status {
		if err := s.repo.UpdateStatus(ctx, payment.ID, status); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		payment.Status = status
	}

	result := &ConfirmResult{IntentID: intent.ID, Status: status}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return result, nil
	}

	paid, err := s.bookings.MarkPaid(ctx, payment.RequestID, ActorProcessor)
	if err != nil {
		return nil, err
	}
	result.Request = &paid.Request
	result.Warnings = paid.Warnings
	return result, nil
}

// ensurePayment loads the booking's payment row, creating the processor
// customer and persisting the placeholder on first use.
func (s *service) ensurePayment(ctx context.Context, booking *requests.RequestDTO) (*models.Payment, error) {
	payment, err := s.repo.FindByRequestID(ctx, booking.ID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		payment = &models.Payment{RequestID: booking.ID, Currency: s.currency, Status: StatusPending}
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	if payment.ProcessorCustomerID != "" {
		return payment, nil
	}
	if booking.Customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "booking has no customer")
	}
	customerID, err := s.gateway.CreateCustomer(ctx, booking.Customer.Email, booking.Customer.Name, booking.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create processor customer")
	}
	payment.ProcessorCustomerID = customerID
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
	}
	return payment, nil
}

func (s *service) findByMetadata(ctx context.Context, intent *stripe.PaymentIntent) (*models.Payment, error) {
	raw := intent.Metadata[pkgstripe.MetadataRequestID]
	requestID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || requestID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	payment, err := s.repo.FindByRequestID(ctx, uint(requestID))
	if err != nil {
		return nil, err
	}
	payment.IntentID = &intent.ID
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

// StatusPending marks a payment row created before any intent exists.
const StatusPending = "PENDING"

func mirrorStatus(status string) string {
	if status == "" {
		return StatusPending
	}
	return strings.ToUpper(status)
}

// ToCents converts a decimal amount to the smallest currency unit.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
