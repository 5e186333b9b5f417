package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
)

// sequence returns the given codes in order, then repeats the last one
func sequence(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

func draft(adminID string) *domain.Project {
	return &domain.Project{
		Title:       "Board",
		Description: "Team board",
		Status:      domain.ProjectTodo,
		AdminID:     adminID,
		TeamMembers: []string{},
	}
}

func TestGenerateInviteCode(t *testing.T) {
	code, err := GenerateInviteCode()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9A-F]{8}$`, code)
}

func TestNormalizeInviteCode(t *testing.T) {
	assert.Equal(t, "AB12CD34", NormalizeInviteCode("  ab12cd34 \n"))
}

func TestInviteRegistry_IssueRetriesOnCollision(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin")
	ctx := context.Background()

	f.invites.generate = sequence("AAAAAAAA")
	first, err := f.invites.Issue(ctx, draft(admin.ID))
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAA", first.InviteCode)

	f.invites.generate = sequence("AAAAAAAA", "AAAAAAAA", "BBBBBBBB")
	second, err := f.invites.Issue(ctx, draft(admin.ID))
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", second.InviteCode)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestInviteRegistry_IssueGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin")
	ctx := context.Background()

	f.invites.generate = sequence("AAAAAAAA")
	_, err := f.invites.Issue(ctx, draft(admin.ID))
	require.NoError(t, err)

	_, err = f.invites.Issue(ctx, draft(admin.ID))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestInviteRegistry_IssueStopsOnOtherErrors(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.invites.generate = func() (string, error) {
		calls++
		return "", errors.New("entropy exhausted")
	}

	_, err := f.invites.Issue(context.Background(), draft(f.user(t, "admin").ID))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestInviteRegistry_IssueRejectsMissingAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.invites.Issue(context.Background(), draft(""))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInviteRegistry_ConcurrentIssueGivesDistinctCodes(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin")

	const n = 32
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			project, err := f.invites.Issue(context.Background(), draft(admin.ID))
			if assert.NoError(t, err) {
				codes[i] = project.InviteCode
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, code := range codes {
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestInviteRegistry_Redeem(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin")
	member := f.user(t, "member")
	project := f.project(t, admin, "Sprint 1")
	ctx := context.Background()

	joined, outcome, err := f.invites.Redeem(ctx, " "+project.InviteCode+" ", member.ID)
	require.NoError(t, err)
	assert.Equal(t, RedeemJoined, outcome)
	assert.Equal(t, []string{member.ID}, joined.TeamMembers)

	again, outcome, err := f.invites.Redeem(ctx, project.InviteCode, member.ID)
	require.NoError(t, err)
	assert.Equal(t, RedeemAlreadyMember, outcome)
	assert.Equal(t, []string{member.ID}, again.TeamMembers)

	own, outcome, err := f.invites.Redeem(ctx, project.InviteCode, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, RedeemAlreadyMember, outcome)
	assert.NotContains(t, own.TeamMembers, admin.ID)
}

func TestInviteRegistry_RedeemUnknownCode(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "member")

	_, _, err := f.invites.Redeem(context.Background(), "FFFFFFFF", member.ID)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, _, err = f.invites.Redeem(context.Background(), "   ", member.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInviteRegistry_ConcurrentRedeemAddsOnce(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin")
	member := f.user(t, "member")
	project := f.project(t, admin, "Sprint 1")

	const n = 16
	outcomes := make([]RedeemOutcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, outcome, err := f.invites.Redeem(context.Background(), project.InviteCode, member.ID)
			if assert.NoError(t, err) {
				outcomes[i] = outcome
			}
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, outcome := range outcomes {
		if outcome == RedeemJoined {
			joined++
		}
	}
	assert.Equal(t, 1, joined)

	stored, err := f.store.Projects().GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{member.ID}, stored.TeamMembers)
}
