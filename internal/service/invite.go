package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/repository"
)

const (
	inviteCodeBytes           = 4
	defaultInviteCodeAttempts = 5
)

// CodeGenerator produces candidate invite codes
type CodeGenerator func() (string, error)

// GenerateInviteCode returns 8 upper-case hex characters from 4 random bytes
func GenerateInviteCode() (string, error) {
	b := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// NormalizeInviteCode canonicalises user-typed codes
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RedeemOutcome reports what a successful redemption did
type RedeemOutcome string

// Redeem outcomes
const (
	RedeemJoined        RedeemOutcome = "joined"
	RedeemAlreadyMember RedeemOutcome = "already_member"
)

// InviteRegistry issues invite codes at project creation and redeems them
type InviteRegistry struct {
	projectRepo repository.ProjectRepository
	generate    CodeGenerator
	maxAttempts int
}

// NewInviteRegistry creates a new InviteRegistry
func NewInviteRegistry(projectRepo repository.ProjectRepository, maxAttempts int) *InviteRegistry {
	if maxAttempts <= 0 {
		maxAttempts = defaultInviteCodeAttempts
	}
	return &InviteRegistry{
		projectRepo: projectRepo,
		generate:    GenerateInviteCode,
		maxAttempts: maxAttempts,
	}
}

// Issue assigns a fresh invite code to the draft and persists it. Collisions
// reported by the store's unique constraint are retried with a new code.
func (r *InviteRegistry) Issue(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	if err := project.Validate(); err != nil {
		return nil, err
	}

	operation := func() error {
		code, err := r.generate()
		if err != nil {
			return backoff.Permanent(err)
		}
		project.InviteCode = code

		err = r.projectRepo.Create(ctx, project)
		if err != nil && !errors.Is(err, domain.ErrInviteCodeTaken) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(r.maxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, domain.ErrInviteCodeTaken) {
			return nil, fmt.Errorf("%w: no free invite code after %d attempts", domain.ErrConflict, r.maxAttempts)
		}
		return nil, err
	}

	return project, nil
}

// Redeem adds principalID to the project owning code. A principal that is
// already the admin or a member gets RedeemAlreadyMember and nothing is written.
func (r *InviteRegistry) Redeem(ctx context.Context, code, principalID string) (*domain.Project, RedeemOutcome, error) {
	code = NormalizeInviteCode(code)
	if code == "" {
		return nil, "", fmt.Errorf("%w: invite_code is required", domain.ErrValidation)
	}

	project, err := r.projectRepo.GetByInviteCode(ctx, code)
	if err != nil {
		return nil, "", err
	}

	decision := Authorize(project, principalID, ActionJoinProject, nil)
	if !decision.Allowed {
		if decision.Reason == DenyAlreadyMember {
			return project, RedeemAlreadyMember, nil
		}
		return nil, "", decision.Err()
	}

	outcome := RedeemJoined
	if err := r.projectRepo.AddMember(ctx, project.ID, principalID); err != nil {
		if !errors.Is(err, domain.ErrAlreadyMember) {
			return nil, "", err
		}
		// A concurrent redemption by the same principal got there first
		outcome = RedeemAlreadyMember
	}

	project, err = r.projectRepo.GetByID(ctx, project.ID)
	if err != nil {
		return nil, "", err
	}

	return project, outcome, nil
}
