// Package services contains server-side business logic. This file implements
// IdentityService: registration, login, credential verification, and the
// user lookups every other operation resolves participants through.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzhurin/convo/internal/common"
	"github.com/mzhurin/convo/internal/server/auth"
	"github.com/mzhurin/convo/internal/server/config"
	"github.com/mzhurin/convo/internal/server/models"
	"github.com/mzhurin/convo/internal/server/repositories/repomanager"
)

// IdentityService owns User entities. All lookups are read-only; the only
// mutation is account creation at registration.
type IdentityService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	jwtSecret             []byte
	tokenValidityDuration time.Duration
	bcryptCost            int
}

// NewIdentityService constructs an IdentityService using repositories and
// server config.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:                    db,
		repomanager:           m,
		jwtSecret:             []byte(cfg.SecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
		bcryptCost:            cfg.BcryptCost,
	}
}

// Register creates a user with a freshly assigned unique and returns it
// together with an auth token. Duplicate usernames yield ErrorConflict.
func (s *IdentityService) Register(ctx context.Context, username, email, password string) (*models.User, string, error) {
	if username == "" {
		return nil, "", fmt.Errorf("%w: username is required", common.ErrorValidation)
	}
	if email == "" {
		return nil, "", fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	if password == "" {
		return nil, "", fmt.Errorf("%w: password is required", common.ErrorValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	user := &models.User{
		Unique:       uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}

	repo := s.repomanager.Users(s.db)
	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, "", fmt.Errorf("%w: username is taken", common.ErrorConflict)
		}
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	return user, token, nil
}

// Login surfaces three distinct outcomes: ErrorNotFound for an unknown
// username, ErrorUnauthorized for a wrong password, and ErrorForbidden for
// a disabled account with correct credentials.
func (s *IdentityService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorNotFound
		}
		return nil, "", common.ErrorInternal
	}

	if !s.VerifyPassword(user, password) {
		return nil, "", common.ErrorUnauthorized
	}

	if !user.IsActive {
		return nil, "", common.ErrorForbidden
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	return user, token, nil
}

// VerifyPassword checks a plaintext candidate against the stored hash.
func (s *IdentityService) VerifyPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// FindByUsername looks a user up by username.
func (s *IdentityService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByUsername(ctx, username)
}

// FindByCredentials looks a user up by the username+email pair, the way the
// contact lookup endpoint addresses users.
func (s *IdentityService) FindByCredentials(ctx context.Context, username, email string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByUsernameAndEmail(ctx, username, email)
}

// FindByUnique looks a user up by its stable opaque identifier.
func (s *IdentityService) FindByUnique(ctx context.Context, unique string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByUnique(ctx, unique)
}

func (s *IdentityService) issueToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.Unique, s.jwtSecret, s.tokenValidityDuration)
}
