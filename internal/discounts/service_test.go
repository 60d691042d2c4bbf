package discounts

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDiscountsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.DiscountCode{}))
	return db
}

func newTestService(t *testing.T, clock time.Time) (*service, *gorm.DB) {
	t.Helper()
	db := setupDiscountsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return clock }
	return impl, db
}

func TestCreateDuplicateCodeConflicts(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, db := newTestService(t, clock)

	first, err := svc.Create(ctx, CreateInput{Code: "spring10", Type: enums.DiscountTypePercentage, Value: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, "SPRING10", first.Code)
	assert.True(t, first.Active)

	_, err = svc.Create(ctx, CreateInput{Code: " SPRING10 ", Type: enums.DiscountTypeFixed, Value: decimal.NewFromInt(99)})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "expected conflict, got %v", err)

	var stored []models.DiscountCode
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, enums.DiscountTypePercentage, stored[0].Type)
	assert.True(t, stored[0].Value.Equal(decimal.NewFromInt(10)))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, time.Now())
	ctx := context.Background()

	cases := []CreateInput{
		{Code: "x", Type: enums.DiscountTypeFixed, Value: decimal.NewFromInt(5)},
		{Code: "TOOMUCH", Type: enums.DiscountTypePercentage, Value: decimal.NewFromInt(101)},
		{Code: "ZERO", Type: enums.DiscountTypeFixed, Value: decimal.Zero},
		{Code: "BOGO", Type: enums.DiscountType("bogo"), Value: decimal.NewFromInt(1)},
	}
	for _, input := range cases {
		_, err := svc.Create(ctx, input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v: got %v", input, err)
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, clock)

	until := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(ctx, CreateInput{Code: "MAY15", Type: enums.DiscountTypePercentage, Value: decimal.NewFromInt(15), ValidUntil: &until})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Code: "FLAT500", Type: enums.DiscountTypeFixed, Value: decimal.NewFromInt(500)})
	require.NoError(t, err)
	inactive := false
	_, err = svc.Create(ctx, CreateInput{Code: "OFF", Type: enums.DiscountTypeFixed, Value: decimal.NewFromInt(5), Active: &inactive})
	require.NoError(t, err)

	app, err := svc.Apply(ctx, "may15", decimal.RequireFromString("200.00"), clock)
	require.NoError(t, err)
	assert.Equal(t, "30.00", app.Amount.StringFixed(2))

	// last day of the window is inclusive
	app, err = svc.Apply(ctx, "MAY15", decimal.NewFromInt(100), time.Date(2026, 5, 31, 22, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "15.00", app.Amount.StringFixed(2))

	_, err = svc.Apply(ctx, "MAY15", decimal.NewFromInt(100), time.Date(2026, 6, 1, 0, 0, 1, 0, time.UTC))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	app, err = svc.Apply(ctx, "FLAT500", decimal.NewFromInt(120), clock)
	require.NoError(t, err)
	assert.Equal(t, "120.00", app.Amount.StringFixed(2), "fixed discount capped at subtotal")

	_, err = svc.Apply(ctx, "OFF", decimal.NewFromInt(100), clock)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Apply(ctx, "NOPE", decimal.NewFromInt(100), clock)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateInactiveCodeStaysInactive(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, db := newTestService(t, clock)

	inactive := false
	created, err := svc.Create(ctx, CreateInput{Code: "PAUSED", Type: enums.DiscountTypeFixed, Value: decimal.NewFromInt(5), Active: &inactive})
	require.NoError(t, err)
	assert.False(t, created.Active)

	var stored models.DiscountCode
	require.NoError(t, db.Where("code = ?", "PAUSED").First(&stored).Error)
	assert.False(t, stored.Active)

	_, err = svc.Apply(ctx, "PAUSED", decimal.NewFromInt(100), clock)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "expected validation error, got %v", err)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateAndDeactivate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	created, err := svc.Create(ctx, CreateInput{Code: "SUMMER", Type: enums.DiscountTypeFixed, Value: decimal.NewFromInt(20)})
	require.NoError(t, err)

	newValue := decimal.NewFromInt(25)
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Value: &newValue})
	require.NoError(t, err)
	assert.Equal(t, "25.00", updated.Value.StringFixed(2))

	require.NoError(t, svc.Deactivate(ctx, created.ID))
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	err = svc.Deactivate(ctx, 9999)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDiscountAmount(t *testing.T) {
	subtotal := decimal.RequireFromString("99.99")
	assert.Equal(t, "10.00", DiscountAmount(enums.DiscountTypePercentage, decimal.NewFromInt(10), subtotal).StringFixed(2))
	assert.Equal(t, "99.99", DiscountAmount(enums.DiscountTypePercentage, decimal.NewFromInt(100), subtotal).StringFixed(2))
	assert.True(t, DiscountAmount(enums.DiscountType("other"), decimal.NewFromInt(10), subtotal).IsZero())
}
