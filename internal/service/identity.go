package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/identity"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/repository"
)

const defaultDisplayName = "User"

// IdentityResolver maps verified principals to durable users
type IdentityResolver struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// NewIdentityResolver creates a new IdentityResolver
func NewIdentityResolver(userRepo repository.UserRepository, logger *slog.Logger) *IdentityResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityResolver{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Resolve returns the user for the verified subject, creating it on first sight.
// An existing record wins over whatever name or email the claims carry now.
func (s *IdentityResolver) Resolve(ctx context.Context, claims *identity.Claims) (*domain.User, error) {
	if claims == nil || claims.Subject == "" {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.userRepo.GetBySubject(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = defaultDisplayName
	}

	user = &domain.User{
		Subject: claims.Subject,
		Name:    name,
		Email:   strings.TrimSpace(claims.Email),
		Role:    domain.RoleStandard,
	}

	err = s.userRepo.Create(ctx, user)
	switch {
	case err == nil:
		s.logger.Info("User created", "user_id", user.ID, "subject", user.Subject)
		return user, nil
	case !errors.Is(err, domain.ErrUserExists):
		return nil, err
	}

	// Lost a first-sight race: the winner's row is authoritative
	user, err = s.userRepo.GetBySubject(ctx, claims.Subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		// The unique violation came from the email, owned by another subject
		return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	}
	return user, err
}
