package generator

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/chatseed/internal/models"
	"github.com/xaenox/chatseed/internal/storage"
	"github.com/xaenox/chatseed/internal/taxonomy"
	"go.uber.org/zap"
)

func loadedStore(t *testing.T) *storage.MemoryStorage {
	t.Helper()
	store := storage.NewMemoryStorage()
	loader := taxonomy.NewLoader(store, taxonomy.LocaleEN, zap.NewNop())
	require.NoError(t, loader.LoadAll(context.Background()))
	return store
}

func smallConfig() Config {
	return Config{
		Locale:          taxonomy.LocaleEN,
		Organizations:   20,
		Personnel:       30,
		Users:           60,
		Conversations:   40,
		Tags:            15,
		MessageTags:     30,
		MinMessagePairs: 1,
		MaxMessagePairs: 3,
		BatchSize:       16,
		Seed:            42,
	}
}

func TestGenerateAllCounts(t *testing.T) {
	store := loadedStore(t)
	sum, err := New(store, smallConfig(), zap.NewNop()).GenerateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 20, sum.Organizations)
	assert.Equal(t, 30, sum.Personnel)
	assert.Equal(t, 60, sum.Users)
	assert.Equal(t, 40, sum.Conversations)
	assert.Equal(t, 15, sum.Tags)
	assert.Equal(t, 30, sum.MessageTags)
	assert.GreaterOrEqual(t, sum.Messages, 40*2)
	assert.LessOrEqual(t, sum.Messages, 40*6)
}

func TestGenerateAllReferentialIntegrity(t *testing.T) {
	store := loadedStore(t)
	_, err := New(store, smallConfig(), zap.NewNop()).GenerateAll(context.Background())
	require.NoError(t, err)

	deptCodes := make(map[string]bool)
	for _, org := range store.AllOrganizations() {
		assert.Len(t, org.ExternalDepartmentCode, 5)
		assert.False(t, deptCodes[org.ExternalDepartmentCode], "department code reused")
		deptCodes[org.ExternalDepartmentCode] = true
	}
	for _, p := range store.AllPersonnel() {
		assert.True(t, deptCodes[p.DepartmentCode],
			"personnel %q references unknown department %q", p.ExternalUsername, p.DepartmentCode)
		assert.GreaterOrEqual(t, p.EntryYear, 1980)
		assert.LessOrEqual(t, p.EntryYear, 2025)
	}

	userIDs := make(map[int64]bool)
	usernames := make(map[string]bool)
	for _, u := range store.AllUsers() {
		assert.False(t, userIDs[u.ExternalID], "user external id reused")
		assert.False(t, usernames[u.Username], "username reused")
		userIDs[u.ExternalID] = true
		usernames[u.Username] = true
	}

	convIDs := make(map[int64]bool)
	for _, c := range store.AllConversations() {
		assert.True(t, userIDs[c.UserID], "conversation owner missing")
		convIDs[c.ExternalID] = true
	}

	msgIDs := make(map[int64]bool)
	for _, m := range store.AllMessages() {
		assert.True(t, convIDs[m.ConversationID], "message conversation missing")
		assert.False(t, msgIDs[m.ExternalID], "message external id reused")
		msgIDs[m.ExternalID] = true
	}
}

func TestGenerateAllPairedFieldIntegrity(t *testing.T) {
	store := loadedStore(t)
	_, err := New(store, smallConfig(), zap.NewNop()).GenerateAll(context.Background())
	require.NoError(t, err)

	declared, err := store.FieldMappings(context.Background())
	require.NoError(t, err)
	fieldByDetail := make(map[string]string)
	for _, fm := range declared {
		fieldByDetail[fm.FieldDetail] = fm.Field
	}

	for _, org := range store.AllOrganizations() {
		field, ok := fieldByDetail[org.FieldDetail]
		require.True(t, ok, "field detail %q not declared", org.FieldDetail)
		assert.Equal(t, field, org.Field,
			"organization %q mixes field %q with detail %q",
			org.ExternalDepartmentCode, org.Field, org.FieldDetail)
	}
}

func TestGenerateAllDisplayFlagMirrorsOwner(t *testing.T) {
	store := loadedStore(t)
	_, err := New(store, smallConfig(), zap.NewNop()).GenerateAll(context.Background())
	require.NoError(t, err)

	flagByID := make(map[int64]bool)
	for _, u := range store.AllUsers() {
		flagByID[u.ExternalID] = u.InternalUserFlag
	}
	for _, c := range store.AllConversations() {
		assert.Equal(t, flagByID[c.UserID], c.DisplayFlag)
	}
}

func TestGenerateAllMessageOrdering(t *testing.T) {
	store := loadedStore(t)
	_, err := New(store, smallConfig(), zap.NewNop()).GenerateAll(context.Background())
	require.NoError(t, err)

	byConv := make(map[int64][]*models.Message)
	for _, m := range store.AllMessages() {
		byConv[m.ConversationID] = append(byConv[m.ConversationID], m)
	}
	require.NotEmpty(t, byConv)

	for convID, msgs := range byConv {
		sort.Slice(msgs, func(i, j int) bool { return msgs[i].ExternalID < msgs[j].ExternalID })

		require.Zero(t, len(msgs)%2, "conversation %d has an unpaired message", convID)
		assert.GreaterOrEqual(t, len(msgs), 2)
		assert.LessOrEqual(t, len(msgs), 6)

		first := msgs[0]
		for i, m := range msgs {
			// Strict user/bot alternation, user first.
			assert.Equal(t, i%2 == 1, m.IsBot)

			// One category triple and one parameter set per conversation.
			assert.Equal(t, first.CategoryGroup, m.CategoryGroup)
			assert.Equal(t, first.MainCategory, m.MainCategory)
			assert.Equal(t, first.ChatParameterCategory, m.ChatParameterCategory)
			assert.Equal(t, first.ChatParameter, m.ChatParameter)

			if i == 0 {
				continue
			}
			prev := msgs[i-1]
			assert.False(t, m.CreatedAt.Before(prev.CreatedAt), "timestamps regressed")
			if m.IsBot {
				delta := m.CreatedAt.Sub(prev.CreatedAt)
				assert.GreaterOrEqual(t, delta, 5*time.Second)
				assert.LessOrEqual(t, delta, 50*time.Second)
			} else {
				gap := m.CreatedAt.Sub(prev.CreatedAt)
				assert.GreaterOrEqual(t, gap, time.Minute)
				assert.LessOrEqual(t, gap, 10*time.Minute)
			}
		}
	}
}

func TestGenerateAllMessageTagTimestamps(t *testing.T) {
	store := loadedStore(t)
	_, err := New(store, smallConfig(), zap.NewNop()).GenerateAll(context.Background())
	require.NoError(t, err)

	msgByID := make(map[int64]*models.Message)
	for _, m := range store.AllMessages() {
		msgByID[m.ExternalID] = m
	}
	links := store.AllMessageTags()
	require.NotEmpty(t, links)
	for _, l := range links {
		msg, ok := msgByID[l.MessageID]
		require.True(t, ok)
		assert.False(t, l.CreatedAt.Before(msg.CreatedAt),
			"message tag predates its message")
	}
}

func TestGenerateResumedRunKeepsUniqueness(t *testing.T) {
	store := loadedStore(t)
	ctx := context.Background()

	cfg := smallConfig()
	_, err := New(store, cfg, zap.NewNop()).GenerateAll(ctx)
	require.NoError(t, err)

	// Second run on the same store with a different seed: uniqueness
	// state must be rebuilt from the store, not assumed empty.
	cfg.Seed = 99
	sum, err := New(store, cfg, zap.NewNop()).GenerateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, sum.Organizations)
	assert.Equal(t, 60, sum.Users)

	seenUsers := make(map[string]bool)
	for _, u := range store.AllUsers() {
		assert.False(t, seenUsers[u.Username])
		seenUsers[u.Username] = true
	}
	seenMsgs := make(map[int64]bool)
	for _, m := range store.AllMessages() {
		assert.False(t, seenMsgs[m.ExternalID], "message id collided across runs")
		seenMsgs[m.ExternalID] = true
	}
}

func TestFlushUsersSkipsDuplicatesRowByRow(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.InsertUsers(ctx, []*models.User{
		{ExternalID: 1000, Username: "taken", CreatedAt: time.Now()},
	}))

	g := New(store, Config{Locale: taxonomy.LocaleEN, Seed: 1}, zap.NewNop())

	// The batch insert fails on the duplicate; the row-by-row fallback
	// must keep the clean rows and drop only the collision.
	batch := []*models.User{
		{ExternalID: 1001, Username: "fresh_one", CreatedAt: time.Now()},
		{ExternalID: 1002, Username: "taken", CreatedAt: time.Now()},
		{ExternalID: 1003, Username: "fresh_two", CreatedAt: time.Now()},
	}
	kept := g.flushUsers(ctx, batch)

	require.Len(t, kept, 2)
	assert.Equal(t, "fresh_one", kept[0].Username)
	assert.Equal(t, "fresh_two", kept[1].Username)

	usernames := make(map[string]bool)
	for _, u := range store.AllUsers() {
		usernames[u.Username] = true
	}
	assert.Len(t, usernames, 3)
	assert.True(t, usernames["fresh_one"])
	assert.True(t, usernames["fresh_two"])
}

func TestPersonnelWithoutOrganizationsIsFatal(t *testing.T) {
	store := loadedStore(t)
	cfg := smallConfig()
	cfg.Organizations = 0

	_, err := New(store, cfg, zap.NewNop()).GenerateAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no organizations")
}

func TestOrganizationsWithoutTaxonomyIsFatal(t *testing.T) {
	store := storage.NewMemoryStorage()
	_, err := New(store, smallConfig(), zap.NewNop()).GenerateAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "taxonomy loader")
}

func TestAbbreviationCoverage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	// Exactly five abbreviations and five personnel: every value must
	// appear exactly once in branch_name.
	abbrs := []string{"HQ", "TKO", "OSK", "NGY", "FKO"}
	for _, a := range abbrs {
		require.NoError(t, store.InsertAbbreviation(ctx, &models.Abbreviation{Value: a}))
	}
	require.NoError(t, store.InsertRoleType(ctx, &models.RoleType{Name: "Manager", DisplayFlag: true}))
	require.NoError(t, store.InsertEmployeeType(ctx, &models.EmployeeType{Name: "Full-time", DisplayFlag: true}))
	require.NoError(t, store.InsertOrganizationType(ctx, &models.OrganizationType{Name: "Corporate"}))
	require.NoError(t, store.InsertFieldMapping(ctx, &models.FieldMapping{Field: "Life", FieldDetail: "Term Life Insurance"}))

	cfg := Config{
		Locale:        taxonomy.LocaleEN,
		Organizations: 3,
		Personnel:     5,
		BatchSize:     10,
		Seed:          7,
	}
	sum, err := New(store, cfg, zap.NewNop()).GenerateAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, sum.Personnel)

	counts := make(map[string]int)
	for _, p := range store.AllPersonnel() {
		counts[p.BranchName]++
	}
	require.Len(t, counts, 5)
	for _, a := range abbrs {
		assert.Equal(t, 1, counts[a], "abbreviation %q not used exactly once", a)
	}
}

func TestInternalUserFlagMatchesPredicateAtCreation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	require.NoError(t, store.InsertAbbreviation(ctx, &models.Abbreviation{Value: "HQ"}))
	require.NoError(t, store.InsertOrganizationType(ctx, &models.OrganizationType{Name: "Corporate"}))
	require.NoError(t, store.InsertFieldMapping(ctx, &models.FieldMapping{Field: "Life", FieldDetail: "Term Life Insurance"}))
	require.NoError(t, store.InsertRoleType(ctx, &models.RoleType{Name: "Manager", DisplayFlag: true}))
	require.NoError(t, store.InsertRoleType(ctx, &models.RoleType{Name: "Contractor", DisplayFlag: false}))
	require.NoError(t, store.InsertEmployeeType(ctx, &models.EmployeeType{Name: "Full-time", DisplayFlag: true}))

	cfg := Config{
		Locale:        taxonomy.LocaleEN,
		Organizations: 2,
		Personnel:     20,
		Users:         20,
		BatchSize:     8,
		Seed:          11,
	}
	_, err := New(store, cfg, zap.NewNop()).GenerateAll(ctx)
	require.NoError(t, err)

	roleByUser := make(map[string]string)
	for _, p := range store.AllPersonnel() {
		roleByUser[p.ExternalUsername] = p.RoleType
	}
	excludedSeen := false
	for _, u := range store.AllUsers() {
		role := roleByUser[u.Username]
		if role == "Contractor" {
			assert.False(t, u.InternalUserFlag, "excluded role generated as internal")
			excludedSeen = true
		} else {
			assert.True(t, u.InternalUserFlag)
		}
	}
	assert.True(t, excludedSeen, "seed produced no excluded-role personnel; adjust the seed")
}
