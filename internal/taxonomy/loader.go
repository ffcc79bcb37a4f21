package taxonomy

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/chatseed/internal/models"
	"github.com/xaenox/chatseed/internal/storage"
	"go.uber.org/zap"
)

// Loader seeds the fixed reference tables. Loading is idempotent: rows
// that already exist are skipped, so it is always safe to rerun before
// a generation pass.
type Loader struct {
	store  storage.Storage
	logger *zap.Logger
	values Values
}

func NewLoader(store storage.Storage, locale Locale, logger *zap.Logger) *Loader {
	return &Loader{
		store:  store,
		logger: logger,
		values: ValuesFor(locale),
	}
}

// LoadAll inserts every reference set. Field mappings go in as matched
// (field, field_detail) tuples. Duplicate rows are treated as already
// present; any other failure aborts the load.
func (l *Loader) LoadAll(ctx context.Context) error {
	l.logger.Info("Loading role types", zap.Int("count", len(l.values.RoleTypes)))
	for _, name := range l.values.RoleTypes {
		err := l.store.InsertRoleType(ctx, &models.RoleType{Name: name, DisplayFlag: true})
		if err := l.skipDuplicate("role type", name, err); err != nil {
			return err
		}
	}

	l.logger.Info("Loading employee types", zap.Int("count", len(l.values.EmployeeTypes)))
	for _, name := range l.values.EmployeeTypes {
		err := l.store.InsertEmployeeType(ctx, &models.EmployeeType{Name: name, DisplayFlag: true})
		if err := l.skipDuplicate("employee type", name, err); err != nil {
			return err
		}
	}

	l.logger.Info("Loading organization types", zap.Int("count", len(l.values.OrganizationTypes)))
	for _, name := range l.values.OrganizationTypes {
		err := l.store.InsertOrganizationType(ctx, &models.OrganizationType{Name: name})
		if err := l.skipDuplicate("organization type", name, err); err != nil {
			return err
		}
	}

	l.logger.Info("Loading field mappings", zap.Int("count", len(l.values.FieldPairs)))
	for _, pair := range l.values.FieldPairs {
		err := l.store.InsertFieldMapping(ctx, &models.FieldMapping{
			Field:       pair.Field,
			FieldDetail: pair.FieldDetail,
		})
		if err := l.skipDuplicate("field mapping", pair.FieldDetail, err); err != nil {
			return err
		}
	}

	l.logger.Info("Loading abbreviations", zap.Int("count", len(l.values.Abbreviations)))
	for _, value := range l.values.Abbreviations {
		err := l.store.InsertAbbreviation(ctx, &models.Abbreviation{Value: value})
		if err := l.skipDuplicate("abbreviation", value, err); err != nil {
			return err
		}
	}

	l.logger.Info("Loading category mappings", zap.Int("count", len(l.values.Categories)))
	for _, cat := range l.values.Categories {
		err := l.store.InsertCategoryMapping(ctx, &models.CategoryMapping{
			CategoryGroup:              cat.Group,
			CategoryGroupLabel:         cat.GroupLabel,
			MainCategory:               cat.Main,
			MainCategoryLabel:          cat.MainLabel,
			ChatParameterCategory:      cat.Parameter,
			ChatParameterCategoryLabel: cat.ParameterLabel,
		})
		if err := l.skipDuplicate("category mapping", cat.Parameter, err); err != nil {
			return err
		}
	}

	return nil
}

func (l *Loader) skipDuplicate(kind, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrDuplicate) {
		l.logger.Debug("Already present, skipping",
			zap.String("kind", kind), zap.String("key", key))
		return nil
	}
	return fmt.Errorf("error loading %s %q: %v", kind, key, err)
}
