package discounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/db"
	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	jnow "github.com/jinzhu/now"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	codePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)
	hundred     = decimal.NewFromInt(100)
)

// Service manages discount codes and applies them to quotes.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.DiscountCode, error)
	Get(ctx context.Context, id uint) (*models.DiscountCode, error)
	List(ctx context.Context, activeOnly bool) ([]models.DiscountCode, error)
	Update(ctx context.Context, id uint, input UpdateInput) (*models.DiscountCode, error)
	Deactivate(ctx context.Context, id uint) error
	Apply(ctx context.Context, code string, subtotal decimal.Decimal, at time.Time) (*Application, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the discount code service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// NormalizeCode trims and uppercases a code as typed by a customer or admin.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.DiscountCode, error) {
	code := NormalizeCode(input.Code)
	if !codePattern.MatchString(code) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code must be 3-32 letters, digits, dashes or underscores")
	}
	if err := validateValue(input.Type, input.Value); err != nil {
		return nil, err
	}

	validFrom := s.now().UTC()
	if input.ValidFrom != nil {
		validFrom = input.ValidFrom.UTC()
	}
	validUntil := endOfDay(input.ValidUntil)
	if validUntil != nil && validUntil.Before(validFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid_until must not be before valid_from")
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}

	record := &models.DiscountCode{
		Code:       code,
		Type:       input.Type,
		Value:      input.Value.Round(2),
		ValidFrom:  validFrom,
		ValidUntil: validUntil,
		Active:     active,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("discount code %s already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount code")
	}
	return record, nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.DiscountCode, error) {
	code, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return code, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]models.DiscountCode, error) {
	codes, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discount codes")
	}
	return codes, nil
}

func (s *service) Update(ctx context.Context, id uint, input UpdateInput) (*models.DiscountCode, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}

	updates := map[string]any{}
	if input.Value != nil {
		if err := validateValue(current.Type, *input.Value); err != nil {
			return nil, err
		}
		updates["value"] = input.Value.Round(2)
	}
	validFrom := current.ValidFrom
	if input.ValidFrom != nil {
		validFrom = input.ValidFrom.UTC()
		updates["valid_from"] = validFrom
	}
	validUntil := current.ValidUntil
	switch {
	case input.ClearValidUntil:
		validUntil = nil
		updates["valid_until"] = nil
	case input.ValidUntil != nil:
		validUntil = endOfDay(input.ValidUntil)
		updates["valid_until"] = *validUntil
	}
	if validUntil != nil && validUntil.Before(validFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid_until must not be before valid_from")
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, mapLookupError(err)
	}
	return s.Get(ctx, id)
}

func (s *service) Deactivate(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return mapLookupError(err)
	}
	if err := s.repo.Update(ctx, id, map[string]any{"active": false}); err != nil {
		return mapLookupError(err)
	}
	return nil
}

// Apply validates the code at the given instant and computes the amount taken
// off subtotal. The amount never exceeds the subtotal.
func (s *service) Apply(ctx context.Context, code string, subtotal decimal.Decimal, at time.Time) (*Application, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	if subtotal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must not be negative")
	}

	record, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is not valid").WithDetails(map[string]any{"code": normalized})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount code")
	}
	if reason := unusableReason(record, at); reason != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, reason).WithDetails(map[string]any{"code": normalized})
	}

	return &Application{
		Code:   record.Code,
		Type:   record.Type,
		Amount: DiscountAmount(record.Type, record.Value, subtotal),
	}, nil
}

// DiscountAmount computes the discount for subtotal, rounded to cents and capped at subtotal.
func DiscountAmount(kind enums.DiscountType, value, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch kind {
	case enums.DiscountTypePercentage:
		amount = subtotal.Mul(value).Div(hundred)
	case enums.DiscountTypeFixed:
		amount = value
	default:
		return decimal.Zero
	}
	amount = amount.Round(2)
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

func unusableReason(record *models.DiscountCode, at time.Time) string {
	switch {
	case !record.Active:
		return "discount code is inactive"
	case at.Before(record.ValidFrom):
		return "discount code is not yet valid"
	case record.ValidUntil != nil && at.After(*record.ValidUntil):
		return "discount code has expired"
	}
	return ""
}

func validateValue(kind enums.DiscountType, value decimal.Decimal) error {
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "type must be percentage or fixed")
	}
	if !value.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "value must be greater than zero")
	}
	if kind == enums.DiscountTypePercentage && value.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage must be at most 100")
	}
	return nil
}

// endOfDay makes the last day of a validity window inclusive.
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := jnow.With(t.UTC()).EndOfDay()
	return &end
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount code")
}
