package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/haulbook-backend/internal/customers"
	"github.com/angelmondragon/haulbook-backend/internal/discounts"
	"github.com/angelmondragon/haulbook-backend/internal/notifications"
	"github.com/angelmondragon/haulbook-backend/pkg/db"
	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	"github.com/angelmondragon/haulbook-backend/pkg/pagination"
	"github.com/angelmondragon/haulbook-backend/pkg/security"
	"github.com/angelmondragon/haulbook-backend/pkg/servicearea"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	ActorCustomer = "customer"
	ActorSystem   = "system"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type postalChecker interface {
	Check(raw string) servicearea.Result
}

type discountApplier interface {
	Apply(ctx context.Context, code string, subtotal decimal.Decimal, at time.Time) (*discounts.Application, error)
}

type lifecycleMetrics interface {
	ObserveTransition(from, to enums.RequestStatus)
	ObserveNotification(event enums.NotificationEvent, err error)
}

// Service runs the booking lifecycle.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*TransitionResult, error)
	Get(ctx context.Context, id uint) (*RequestDTO, error)
	GetByToken(ctx context.Context, token string) (*RequestDTO, error)
	History(ctx context.Context, id uint) ([]models.RequestStatusEvent, error)
	List(ctx context.Context, params ListParams) (*RequestList, error)
	SendQuote(ctx context.Context, input QuoteInput) (*TransitionResult, error)
	Confirm(ctx context.Context, token string) (*TransitionResult, error)
	Invoice(ctx context.Context, id uint, actor string) (*TransitionResult, error)
	MarkPaid(ctx context.Context, id uint, actor string) (*TransitionResult, error)
	Cancel(ctx context.Context, input CancelInput) (*TransitionResult, error)
	CancellationPreview(ctx context.Context, token string) (*CancellationQuote, error)
}

// Settings holds the business rules applied by the service.
type Settings struct {
	Policy          CancellationPolicy
	CancellationFee decimal.Decimal
	TaxRate         decimal.Decimal
	Currency        string
	BookingURL      func(token string) string
}

// ServiceParams bundles the collaborators of the request service.
type ServiceParams struct {
	Repo        Repository
	Customers   customers.Repository
	Tx          txRunner
	Discounts   discountApplier
	Notifier    notifications.Service
	ServiceArea postalChecker
	Metrics     lifecycleMetrics
	Logger      *logger.Logger
	Settings    Settings
}

type service struct {
	repo      Repository
	customers customers.Repository
	tx        txRunner
	discounts discountApplier
	notifier  notifications.Service
	area      postalChecker
	metrics   lifecycleMetrics
	logg      *logger.Logger
	settings  Settings
	now       func() time.Time
}

// NewService validates collaborators and builds the request service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Discounts == nil {
		return nil, fmt.Errorf("discount applier required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.ServiceArea == nil {
		return nil, fmt.Errorf("service area checker required")
	}
	settings := params.Settings
	if settings.Policy.Threshold <= 0 {
		settings.Policy = NewCancellationPolicy(0)
	}
	if settings.Currency == "" {
		settings.Currency = "cad"
	}
	if settings.BookingURL == nil {
		settings.BookingURL = func(token string) string { return "/booking/" + token }
	}
	return &service{
		repo:      params.Repo,
		customers: params.Customers,
		tx:        params.Tx,
		discounts: params.Discounts,
		notifier:  params.Notifier,
		area:      params.ServiceArea,
		metrics:   params.Metrics,
		logg:      params.Logger,
		settings:  settings,
		now:       time.Now,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*TransitionResult, error) {
	if customers.NormalizeEmail(input.CustomerEmail) == "" || strings.TrimSpace(input.CustomerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name and email are required")
	}
	if !input.ServiceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service_type must be junk_removal or moving")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if input.ServiceType == enums.ServiceTypeMoving && (input.Delivery == nil || input.Delivery.IsZero()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required for moving").
			WithDetails(map[string]any{"field": "delivery"})
	}

	eligibility := s.area.Check(input.Pickup.PostalCode)
	if !eligibility.Eligible {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, eligibility.Reason).
			WithDetails(map[string]any{"field": "pickup.postal_code", "reason": eligibility.Reason, "normalized": eligibility.Normalized})
	}
	input.Pickup.PostalCode = eligibility.Normalized

	now := s.now().UTC()
	scheduled := input.ScheduledAt.UTC()
	if !scheduled.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled_at must be in the future").
			WithDetails(map[string]any{"field": "scheduled_at"})
	}

	req := &models.Request{
		ServiceType:              input.ServiceType,
		Pickup:                   input.Pickup,
		ScheduledAt:              scheduled,
		TimeWindow:               strings.TrimSpace(input.TimeWindow),
		Notes:                    strings.TrimSpace(input.Notes),
		Status:                   enums.RequestStatusReceived,
		FreeCancellationDeadline: s.settings.Policy.Deadline(scheduled),
	}
	if input.Delivery != nil {
		delivery := *input.Delivery
		delivery.PostalCode = servicearea.Normalize(delivery.PostalCode)
		req.Delivery = delivery
	}
	for _, item := range input.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		req.Items = append(req.Items, models.Item{
			Description: strings.TrimSpace(item.Description),
			Quantity:    qty,
			PhotoURL:    item.PhotoURL,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customer, err := s.customers.WithTx(tx).UpsertByEmail(ctx, &models.Customer{
			Name:  strings.TrimSpace(input.CustomerName),
			Email: input.CustomerEmail,
			Phone: strings.TrimSpace(input.CustomerPhone),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert customer")
		}
		req.CustomerID = customer.ID

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
		}
		return repo.CreateStatusEvent(ctx, &models.RequestStatusEvent{
			RequestID: req.ID,
			ToStatus:  enums.RequestStatusReceived,
			Actor:     ActorCustomer,
		})
	})
	if err != nil {
		return nil, err
	}

	result, _, err := s.complete(ctx, req.ID, "", enums.RequestStatusReceived)
	return result, err
}

func (s *service) Get(ctx context.Context, id uint) (*RequestDTO, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*req)
	return &dto, nil
}

func (s *service) GetByToken(ctx context.Context, token string) (*RequestDTO, error) {
	req, err := s.loadByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*req)
	return &dto, nil
}

func (s *service) History(ctx context.Context, id uint) ([]models.RequestStatusEvent, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.repo.ListStatusEvents(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list status events")
	}
	return events, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*RequestList, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter")
	}
	filter := ""
	if params.Status != nil {
		filter = string(*params.Status)
	}
	cursor, err := pagination.Decode(params.Cursor, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, params.Status, cursor, pagination.Probe(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	rows, next := pagination.Cut(rows, params.Limit, filter, func(r models.Request) uint { return r.ID })

	items := make([]RequestDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToDTO(row))
	}
	return &RequestList{Items: items, Cursor: next}, nil
}

func (s *service) SendQuote(ctx context.Context, input QuoteInput) (*TransitionResult, error) {
	req, err := s.load(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(req.Status, enums.RequestStatusQuoted); err != nil {
		return nil, err
	}
	if !input.Subtotal.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must be greater than zero")
	}

	now := s.now().UTC()
	subtotal := input.Subtotal.Round(2)
	discountAmount := decimal.Zero
	var discountCode *string
	if code := strings.TrimSpace(input.DiscountCode); code != "" {
		applied, err := s.discounts.Apply(ctx, code, subtotal, now)
		if err != nil {
			return nil, err
		}
		discountAmount = applied.Amount
		discountCode = &applied.Code
	}
	taxable := subtotal.Sub(discountAmount)
	tax := taxable.Mul(s.settings.TaxRate).Round(2)

	token, err := security.GenerateBookingToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate booking token")
	}

	quotation := &models.Quotation{
		RequestID:      req.ID,
		Subtotal:       subtotal,
		DiscountCode:   discountCode,
		DiscountAmount: discountAmount,
		Tax:            tax,
		Total:          taxable.Add(tax),
		Currency:       strings.ToLower(s.settings.Currency),
		BookingToken:   token,
		Note:           strings.TrimSpace(input.Note),
	}

	err = s.transition(ctx, req, enums.RequestStatusQuoted, actorOr(input.Actor, ActorSystem), nil, func(repo Repository) error {
		if err := repo.CreateQuotation(ctx, quotation); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "request already has a quotation")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quotation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, delivered, err := s.complete(ctx, req.ID, req.Status, enums.RequestStatusQuoted)
	if err != nil {
		return nil, err
	}
	if delivered {
		if err := s.repo.MarkQuotationSent(ctx, quotation.ID, s.now().UTC()); err != nil {
			result.Warnings = append(result.Warnings, "quotation sent but sent_at not recorded")
		}
	}
	return result, nil
}

func (s *service) Confirm(ctx context.Context, token string) (*TransitionResult, error) {
	req, err := s.loadByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.move(ctx, req, enums.RequestStatusConfirmed, ActorCustomer, nil)
}

func (s *service) Invoice(ctx context.Context, id uint, actor string) (*TransitionResult, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.move(ctx, req, enums.RequestStatusInvoiced, actorOr(actor, ActorSystem), nil)
	if err != nil {
		return nil, err
	}
	if req.Quotation == nil || req.Quotation.Total.IsPositive() {
		return result, nil
	}

	// A fully discounted booking has nothing to collect, so it settles here.
	invoiced, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	paid, err := s.move(ctx, invoiced, enums.RequestStatusPaid, ActorSystem, nil)
	if err != nil {
		return nil, err
	}
	paid.Warnings = append(result.Warnings, paid.Warnings...)
	return paid, nil
}

// MarkPaid is idempotent: a request that is already PAID is returned unchanged.
func (s *service) MarkPaid(ctx context.Context, id uint, actor string) (*TransitionResult, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == enums.RequestStatusPaid {
		return &TransitionResult{Request: ToDTO(*req)}, nil
	}
	return s.move(ctx, req, enums.RequestStatusPaid, actorOr(actor, ActorSystem), nil)
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*TransitionResult, error) {
	var (
		req *models.Request
		err error
	)
	switch {
	case input.Token != "":
		req, err = s.loadByToken(ctx, input.Token)
	case input.RequestID != 0:
		req, err = s.load(ctx, input.RequestID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id or booking token required")
	}
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(req.Status, enums.RequestStatusCancelled); err != nil {
		return nil, err
	}

	fee := s.settings.Policy.CalculateFee(req.ScheduledAt, s.now().UTC(), s.settings.CancellationFee)
	if input.WaiveFee {
		fee = decimal.Zero
	}
	return s.move(ctx, req, enums.RequestStatusCancelled, actorOr(input.Actor, ActorCustomer), map[string]any{"cancellation_fee": fee})
}

func (s *service) CancellationPreview(ctx context.Context, token string) (*CancellationQuote, error) {
	req, err := s.loadByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &CancellationQuote{
		Allowed:  CanTransition(req.Status, enums.RequestStatusCancelled),
		Free:     s.settings.Policy.CanCancelFree(req.ScheduledAt, now),
		Fee:      s.settings.Policy.CalculateFee(req.ScheduledAt, now, s.settings.CancellationFee),
		Deadline: s.settings.Policy.Deadline(req.ScheduledAt),
	}, nil
}

func (s *service) move(ctx context.Context, req *models.Request, to enums.RequestStatus, actor string, fields map[string]any) (*TransitionResult, error) {
	if err := s.transition(ctx, req, to, actor, fields, nil); err != nil {
		return nil, err
	}
	result, _, err := s.complete(ctx, req.ID, req.Status, to)
	return result, err
}

// transition atomically moves req to the target status, stamps the matching
// timestamp column and appends a status event. within runs in the same transaction.
func (s *service) transition(ctx context.Context, req *models.Request, to enums.RequestStatus, actor string, fields map[string]any, within func(repo Repository) error) error {
	if err := ensureTransition(req.Status, to); err != nil {
		return err
	}
	updates := map[string]any{}
	for k, v := range fields {
		updates[k] = v
	}
	if column, ok := timestampColumns[to]; ok {
		updates[column] = s.now().UTC()
	}

	from := req.Status
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdateStatus(ctx, req.ID, from, to, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking status changed, reload and retry")
		}
		if err := repo.CreateStatusEvent(ctx, &models.RequestStatusEvent{
			RequestID:  req.ID,
			FromStatus: &from,
			ToStatus:   to,
			Actor:      actor,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status event")
		}
		if within != nil {
			return within(repo)
		}
		return nil
	})
}

// complete reloads the committed request, records metrics and dispatches the
// notification tied to the new status. delivered is true when every recipient
// accepted the message.
func (s *service) complete(ctx context.Context, id uint, from, to enums.RequestStatus) (*TransitionResult, bool, error) {
	if s.logg != nil {
		ctx = s.logg.WithBookingID(ctx, id)
		ctx = s.logg.WithFields(ctx, map[string]any{"from_status": string(from), "to_status": string(to)})
		s.logg.Info(ctx, "booking.transition")
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(from, to)
	}

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	result := &TransitionResult{Request: ToDTO(*req)}

	event, ok := notificationFor[to]
	if !ok {
		return result, true, nil
	}
	notifyErr := s.notifier.Notify(ctx, event, s.message(req))
	if s.metrics != nil {
		s.metrics.ObserveNotification(event, notifyErr)
	}
	if notifyErr == nil {
		return result, true, nil
	}

	for _, e := range multierr.Errors(notifyErr) {
		result.Warnings = append(result.Warnings, e.Error())
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "warnings", result.Warnings), "booking.notification_failed")
	}
	return result, false, nil
}

func (s *service) message(req *models.Request) notifications.Message {
	msg := notifications.Message{
		BookingID:            req.ID,
		ServiceType:          req.ServiceType,
		ScheduledAt:          req.ScheduledAt,
		TimeWindow:           req.TimeWindow,
		PickupAddress:        formatAddress(req.Pickup),
		Currency:             strings.ToUpper(s.settings.Currency),
		CancellationDeadline: req.FreeCancellationDeadline,
	}
	if req.Customer != nil {
		msg.CustomerName = req.Customer.Name
		msg.CustomerEmail = req.Customer.Email
	}
	if q := req.Quotation; q != nil {
		msg.QuoteTotal = q.Total.StringFixed(2)
		msg.QuoteNote = q.Note
		msg.Currency = strings.ToUpper(q.Currency)
		msg.BookingURL = s.settings.BookingURL(q.BookingToken)
	}
	if req.CancellationFee != nil && req.CancellationFee.IsPositive() {
		msg.CancellationFee = req.CancellationFee.StringFixed(2)
	}
	return msg
}

func (s *service) load(ctx context.Context, id uint) (*models.Request, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return req, nil
}

func (s *service) loadByToken(ctx context.Context, token string) (*models.Request, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	req, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return req, nil
}

func formatAddress(a models.Address) string {
	parts := []string{}
	for _, p := range []string{a.Line1, a.Line2, a.City, strings.TrimSpace(a.Province + " " + a.PostalCode)} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

func actorOr(actor, fallback string) string {
	if strings.TrimSpace(actor) == "" {
		return fallback
	}
	return actor
}
