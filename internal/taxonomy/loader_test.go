package taxonomy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/chatseed/internal/storage"
	"go.uber.org/zap"
)

func TestLoadAllPopulatesReferenceTables(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	values := ValuesFor(LocaleEN)

	require.NoError(t, NewLoader(store, LocaleEN, zap.NewNop()).LoadAll(ctx))

	roles, err := store.RoleTypeNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, values.RoleTypes, roles)

	employees, err := store.EmployeeTypeNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, values.EmployeeTypes, employees)

	orgTypes, err := store.OrganizationTypeNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, values.OrganizationTypes, orgTypes)

	abbrs, err := store.Abbreviations(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, values.Abbreviations, abbrs)

	categories, err := store.CategoryMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(values.Categories))
}

func TestLoadAllStoresFieldPairsMatched(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	values := ValuesFor(LocaleEN)

	require.NoError(t, NewLoader(store, LocaleEN, zap.NewNop()).LoadAll(ctx))

	mappings, err := store.FieldMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, len(values.FieldPairs))

	// A field detail must keep the field it was paired with, never get
	// recombined with another row's field.
	want := make(map[string]string, len(values.FieldPairs))
	for _, pair := range values.FieldPairs {
		want[pair.FieldDetail] = pair.Field
	}
	for _, fm := range mappings {
		assert.Equal(t, want[fm.FieldDetail], fm.Field, "field detail %q", fm.FieldDetail)
	}
}

func TestLoadAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	loader := NewLoader(store, LocaleJA, zap.NewNop())

	require.NoError(t, loader.LoadAll(ctx))

	roles, err := store.RoleTypeNames(ctx)
	require.NoError(t, err)

	// Second load hits duplicates for every row and must not fail or
	// double anything up.
	require.NoError(t, loader.LoadAll(ctx))

	rolesAgain, err := store.RoleTypeNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, roles, rolesAgain)

	mappings, err := store.FieldMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, mappings, len(ValuesFor(LocaleJA).FieldPairs))
}
