package customers

import (
	"context"
	"testing"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Customer{}))
	return db
}

func TestUpsertByEmailCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupCustomersTestDB(t))

	created, err := repo.UpsertByEmail(ctx, &models.Customer{Name: "Dana", Email: " Dana@Example.com ", Phone: "604-555-0100"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, "dana@example.com", created.Email)

	again, err := repo.UpsertByEmail(ctx, &models.Customer{Name: "Dana Lee", Email: "dana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Dana Lee", again.Name)
	assert.Equal(t, "604-555-0100", again.Phone, "blank phone keeps stored value")

	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana Lee", reloaded.Name)
}

func TestUpsertByEmailInsideTransactionOnExistingEmail(t *testing.T) {
	ctx := context.Background()
	conn := setupCustomersTestDB(t)
	require.NoError(t, conn.Create(&models.Customer{Name: "Dana", Email: "dana@example.com", Phone: "604-555-0100"}).Error)

	var upserted *models.Customer
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		upserted, err = NewRepository(conn).WithTx(tx).UpsertByEmail(ctx, &models.Customer{Name: "Dana Lee", Email: "DANA@example.com"})
		if err != nil {
			return err
		}
		// the transaction must still be usable after the conflicting insert
		return tx.Model(&models.Customer{}).Where("id = ?", upserted.ID).Update("name", "Dana L.").Error
	})
	require.NoError(t, err)
	require.NotNil(t, upserted)
	assert.Equal(t, "Dana Lee", upserted.Name)
	assert.Equal(t, "604-555-0100", upserted.Phone)

	var rows []models.Customer
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, upserted.ID, rows[0].ID)
	assert.Equal(t, "Dana L.", rows[0].Name)
}

func TestFindByEmailNotFound(t *testing.T) {
	repo := NewRepository(setupCustomersTestDB(t))
	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
