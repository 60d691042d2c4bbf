package admins

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/angelmondragon/haulbook-backend/pkg/config"
	"github.com/angelmondragon/haulbook-backend/pkg/db"
	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	"github.com/angelmondragon/haulbook-backend/pkg/security"
	"gorm.io/gorm"
)

// MinPasswordLength applies to created accounts and password changes.
const MinPasswordLength = 10

// Service manages operator accounts.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*AdminDTO, error)
	Get(ctx context.Context, id uint) (*AdminDTO, error)
	List(ctx context.Context) ([]AdminDTO, error)
	Delete(ctx context.Context, actorID, id uint) error
	ChangePassword(ctx context.Context, input ChangePasswordInput) error
	EnsureBootstrap(ctx context.Context, cfg config.BootstrapAdminConfig) (bool, error)
}

type service struct {
	repo     Repository
	password config.PasswordConfig
	logg     *logger.Logger
}

func NewService(repo Repository, password config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admins repository required")
	}
	return &service{repo: repo, password: password, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*AdminDTO, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}
	if err := checkPassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	admin := &models.Admin{Username: username, Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, admin); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create admin")
	}
	dto := ToDTO(*admin)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uint) (*AdminDTO, error) {
	admin, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*admin)
	return &dto, nil
}

func (s *service) List(ctx context.Context) ([]AdminDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admins")
	}
	out := make([]AdminDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out, nil
}

// Delete refuses to remove the caller's own account or the last remaining admin.
func (s *service) Delete(ctx context.Context, actorID, id uint) error {
	if id == actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete your own account")
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count admins")
	}
	if count <= 1 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot delete the last admin")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "admin not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete admin")
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	admin, err := s.load(ctx, input.AdminID)
	if err != nil {
		return err
	}
	ok, err := security.VerifyPassword(input.CurrentPassword, admin.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect")
	}
	if err := checkPassword(input.NewPassword); err != nil {
		return err
	}
	if input.NewPassword == input.CurrentPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password must differ from the current one")
	}

	hash, err := security.HashPassword(input.NewPassword, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePassword(ctx, admin.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

// EnsureBootstrap creates the configured admin when the table is empty.
func (s *service) EnsureBootstrap(ctx context.Context, cfg config.BootstrapAdminConfig) (bool, error) {
	if !cfg.Enabled() {
		return false, nil
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count admins")
	}
	if count > 0 {
		return false, nil
	}
	created, err := s.Create(ctx, CreateInput{Username: cfg.Username, Email: cfg.Email, Password: cfg.Password})
	if err != nil {
		return false, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithAdminID(ctx, fmt.Sprint(created.ID)), "bootstrap admin created")
	}
	return true, nil
}

func (s *service) load(ctx context.Context, id uint) (*models.Admin, error) {
	admin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "admin not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin")
	}
	return admin, nil
}

func checkPassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}
