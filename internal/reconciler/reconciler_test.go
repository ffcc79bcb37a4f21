package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/chatseed/internal/models"
	"github.com/xaenox/chatseed/internal/storage"
	"go.uber.org/zap"
)

type fixture struct {
	store       *storage.MemoryStorage
	managerRole *models.RoleType
	partTime    *models.EmployeeType
}

// newFixture builds the canonical demotion scenario: one internal user
// ("u1", Manager at A1234) with two shown conversations, and one
// external user with a hidden conversation.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	managerRole := &models.RoleType{Name: "Manager", DisplayFlag: true}
	require.NoError(t, store.InsertRoleType(ctx, managerRole))
	partTime := &models.EmployeeType{Name: "Part-time", DisplayFlag: true}
	require.NoError(t, store.InsertEmployeeType(ctx, partTime))

	require.NoError(t, store.InsertOrganizations(ctx, []*models.Organization{{
		ExternalDepartmentCode: "A1234",
		ExternalDivisionCode:   "001",
		ExternalSectionCode:    "01",
		CreatedAt:              time.Now(),
	}}))
	require.NoError(t, store.InsertPersonnel(ctx, []*models.Personnel{{
		ExternalUsername: "u1",
		DepartmentCode:   "A1234",
		BranchName:       "HQ",
		OrganizationType: "Corp",
		EmployeeType:     "Part-time",
		RoleType:         "Manager",
	}}))
	require.NoError(t, store.InsertUsers(ctx, []*models.User{
		{ExternalID: 1000, Username: "u1", InternalUserFlag: true, CreatedAt: time.Now()},
		{ExternalID: 1001, Username: "guest_42", InternalUserFlag: false, CreatedAt: time.Now()},
	}))
	require.NoError(t, store.InsertConversations(ctx, []*models.Conversation{
		{ExternalID: 2000, UserID: 1000, Topic: "renewal", CreatedAt: time.Now(), ModelID: 3, DisplayFlag: true},
		{ExternalID: 2001, UserID: 1000, Topic: "claim", CreatedAt: time.Now(), ModelID: 4, DisplayFlag: true},
		{ExternalID: 2002, UserID: 1001, Topic: "quote", CreatedAt: time.Now(), ModelID: 3, DisplayFlag: false},
	}))

	return &fixture{store: store, managerRole: managerRole, partTime: partTime}
}

func run(t *testing.T, store storage.Storage) *Result {
	t.Helper()
	result, err := New(store, 10, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	return result
}

func TestRunNoChangesWhenConsistent(t *testing.T) {
	fx := newFixture(t)

	result := run(t, fx.store)
	assert.Equal(t, 2, result.UsersScanned)
	assert.Zero(t, result.UsersDemoted)
	assert.Zero(t, result.ConversationsHidden)
}

func TestRunDemotesOnExcludedRoleType(t *testing.T) {
	fx := newFixture(t)
	fx.managerRole.DisplayFlag = false

	result := run(t, fx.store)
	assert.Equal(t, 1, result.UsersDemoted)
	assert.Equal(t, int64(2), result.ConversationsHidden)

	for _, u := range fx.store.AllUsers() {
		assert.False(t, u.InternalUserFlag)
	}
	for _, c := range fx.store.AllConversations() {
		assert.False(t, c.DisplayFlag)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	fx.managerRole.DisplayFlag = false

	first := run(t, fx.store)
	require.Equal(t, 1, first.UsersDemoted)

	second := run(t, fx.store)
	assert.Zero(t, second.UsersDemoted)
	assert.Zero(t, second.ConversationsHidden)
}

func TestRunDemotesOnExcludedEmployeeType(t *testing.T) {
	fx := newFixture(t)
	fx.partTime.DisplayFlag = false

	result := run(t, fx.store)
	assert.Equal(t, 1, result.UsersDemoted)
	assert.Equal(t, int64(2), result.ConversationsHidden)
}

func TestRunDemotesWhenPersonnelMissing(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	// Internal flag set but no personnel row behind the username.
	require.NoError(t, store.InsertUsers(ctx, []*models.User{
		{ExternalID: 1000, Username: "orphan", InternalUserFlag: true, CreatedAt: time.Now()},
	}))
	require.NoError(t, store.InsertConversations(ctx, []*models.Conversation{
		{ExternalID: 2000, UserID: 1000, Topic: "t", CreatedAt: time.Now(), ModelID: 3, DisplayFlag: true},
	}))

	result := run(t, store)
	assert.Equal(t, 1, result.UsersDemoted)
	assert.Equal(t, int64(1), result.ConversationsHidden)
}

func TestRunDemotesWhenOrganizationTypeUnset(t *testing.T) {
	fx := newFixture(t)

	ctx := context.Background()
	p, err := fx.store.PersonnelByUsername(ctx, "u1")
	require.NoError(t, err)
	p.OrganizationType = ""

	result := run(t, fx.store)
	assert.Equal(t, 1, result.UsersDemoted)
}

func TestRunNeverPromotes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	// The predicate would say internal, but the stored flag is false:
	// promotion is out of scope and must not happen.
	require.NoError(t, store.InsertOrganizations(ctx, []*models.Organization{{
		ExternalDepartmentCode: "B5678",
		ExternalDivisionCode:   "002",
		ExternalSectionCode:    "02",
		CreatedAt:              time.Now(),
	}}))
	require.NoError(t, store.InsertPersonnel(ctx, []*models.Personnel{{
		ExternalUsername: "late_hire",
		DepartmentCode:   "B5678",
		BranchName:       "HQ",
		OrganizationType: "Corp",
		RoleType:         "Manager",
		EmployeeType:     "Full-time",
	}}))
	require.NoError(t, store.InsertUsers(ctx, []*models.User{
		{ExternalID: 1000, Username: "late_hire", InternalUserFlag: false, CreatedAt: time.Now()},
	}))
	require.NoError(t, store.InsertConversations(ctx, []*models.Conversation{
		{ExternalID: 2000, UserID: 1000, Topic: "t", CreatedAt: time.Now(), ModelID: 3, DisplayFlag: false},
	}))

	result := run(t, store)
	assert.Zero(t, result.UsersDemoted)

	users := store.AllUsers()
	require.Len(t, users, 1)
	assert.False(t, users[0].InternalUserFlag)
	assert.False(t, store.AllConversations()[0].DisplayFlag)
}

// hideFailStore makes HideConversations fail a fixed number of times
// before delegating, standing in for a transient write error.
type hideFailStore struct {
	*storage.MemoryStorage
	failures int
}

func (s *hideFailStore) HideConversations(ctx context.Context, userExternalID int64) (int64, error) {
	if s.failures > 0 {
		s.failures--
		return 0, errors.New("connection reset")
	}
	return s.MemoryStorage.HideConversations(ctx, userExternalID)
}

func TestRunRetriesDemotionAfterHideFailure(t *testing.T) {
	fx := newFixture(t)
	fx.managerRole.DisplayFlag = false
	flaky := &hideFailStore{MemoryStorage: fx.store, failures: 1}

	// The hide write fails, so the user must keep the stored-true flag
	// and stay eligible for the next pass.
	first := run(t, flaky)
	assert.Zero(t, first.UsersDemoted)
	users := fx.store.AllUsers()
	require.Len(t, users, 2)
	for _, u := range users {
		if u.Username == "u1" {
			assert.True(t, u.InternalUserFlag)
		}
	}

	// Next pass succeeds end to end and restores the invariant.
	second := run(t, flaky)
	assert.Equal(t, 1, second.UsersDemoted)
	assert.Equal(t, int64(2), second.ConversationsHidden)
	for _, u := range fx.store.AllUsers() {
		assert.False(t, u.InternalUserFlag)
	}
	for _, c := range fx.store.AllConversations() {
		assert.False(t, c.DisplayFlag)
	}
}

func TestRunReadsExclusionSetsAtRunTime(t *testing.T) {
	fx := newFixture(t)

	// Consistent at first pass.
	require.Zero(t, run(t, fx.store).UsersDemoted)

	// The exclusion set changes between passes; the next run must see
	// the new state, not anything cached.
	fx.managerRole.DisplayFlag = false
	assert.Equal(t, 1, run(t, fx.store).UsersDemoted)
}
