package admins

import (
	"context"
	"testing"

	"github.com/angelmondragon/haulbook-backend/pkg/config"
	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testArgon = config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.Admin{}))

	svc, err := NewService(NewRepository(conn), testArgon, nil)
	require.NoError(t, err)
	return svc.(*service), conn
}

func TestCreateHashesAndRejectsDuplicates(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Username: "owner", Email: "Owner@Example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", created.Email)

	var stored models.Admin
	require.NoError(t, conn.First(&stored, created.ID).Error)
	assert.NotEqual(t, "correct-horse", stored.PasswordHash)
	ok, err := security.VerifyPassword("correct-horse", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Create(ctx, CreateInput{Username: "owner", Email: "other@example.com", Password: "correct-horse"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Username: "", Email: "a@example.com", Password: "long-enough-pw"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Create(ctx, CreateInput{Username: "a", Email: "not-an-email", Password: "long-enough-pw"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Create(ctx, CreateInput{Username: "a", Email: "a@example.com", Password: "short"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteGuards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{Username: "one", Email: "one@example.com", Password: "password-one"})
	require.NoError(t, err)

	err = svc.Delete(ctx, first.ID, first.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "self delete")

	err = svc.Delete(ctx, 999, first.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "last admin")

	second, err := svc.Create(ctx, CreateInput{Username: "two", Email: "two@example.com", Password: "password-two"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, first.ID, second.ID))

	err = svc.Delete(ctx, first.ID, second.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "one", list[0].Username)
}

func TestChangePassword(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	admin, err := svc.Create(ctx, CreateInput{Username: "owner", Email: "owner@example.com", Password: "old-password"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, ChangePasswordInput{AdminID: admin.ID, CurrentPassword: "wrong-password", NewPassword: "new-password"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.ChangePassword(ctx, ChangePasswordInput{AdminID: admin.ID, CurrentPassword: "old-password", NewPassword: "new-password"}))

	var stored models.Admin
	require.NoError(t, conn.First(&stored, admin.ID).Error)
	ok, err := security.VerifyPassword("new-password", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnsureBootstrapOnlyWhenEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cfg := config.BootstrapAdminConfig{Username: "root", Email: "root@example.com", Password: "bootstrap-pass"}

	created, err := svc.EnsureBootstrap(ctx, config.BootstrapAdminConfig{})
	require.NoError(t, err)
	assert.False(t, created, "disabled without credentials")

	created, err = svc.EnsureBootstrap(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureBootstrap(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, created)
}
