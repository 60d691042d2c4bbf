package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/haulbook-backend/internal/admins"
	pkgAuth "github.com/angelmondragon/haulbook-backend/pkg/auth"
	"github.com/angelmondragon/haulbook-backend/pkg/config"
	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/security"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type adminRepository interface {
	FindByLogin(ctx context.Context, login string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

type service struct {
	admins   adminRepository
	jwtCfg   config.JWTConfig
	password config.PasswordConfig
	now      func() time.Time
}

// NewService constructs a login service. Hashes made with outdated Argon2
// parameters are upgraded on the next successful login.
func NewService(repo adminRepository, jwtCfg config.JWTConfig, password config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	return &service{admins: repo, jwtCfg: jwtCfg, password: password, now: time.Now}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	admin, err := s.authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.admins.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	admin.LastLoginAt = &now

	token, err := pkgAuth.MintSessionToken(s.jwtCfg, now, pkgAuth.SessionPayload{
		AdminID:  admin.ID,
		Username: admin.Username,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		Token:     token,
		ExpiresAt: now.Add(s.jwtCfg.SessionTTL()),
		Admin:     admins.ToDTO(*admin),
	}, nil
}

func (s *service) authenticate(ctx context.Context, login, password string) (*models.Admin, error) {
	input := strings.TrimSpace(login)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	admin, err := s.admins.FindByLogin(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	}

	valid, err := security.VerifyPassword(password, admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	if security.NeedsRehash(admin.PasswordHash, s.password) {
		hash, err := security.HashPassword(password, s.password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rehash password")
		}
		if err := s.admins.UpdatePassword(ctx, admin.ID, hash); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store rehashed password")
		}
		admin.PasswordHash = hash
	}
	return admin, nil
}
