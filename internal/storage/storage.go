package storage

import (
	"context"
	"errors"

	"github.com/xaenox/chatseed/internal/models"
)

// ErrDuplicate marks a unique-constraint violation. Callers that seed
// reference data or retry batches branch on it with errors.Is.
var ErrDuplicate = errors.New("duplicate key")

// ErrNotFound marks an absent row where one row was asked for.
var ErrNotFound = errors.New("not found")

type Storage interface {
	// EnsureSchema creates missing tables. Reset drops and recreates
	// everything; it is destructive and only invoked explicitly.
	EnsureSchema(ctx context.Context) error
	Reset(ctx context.Context) error

	TaxonomyStorage

	// Batch inserts. Each call is one transaction: on error nothing from
	// the batch is kept and previously committed batches are untouched.
	InsertOrganizations(ctx context.Context, orgs []*models.Organization) error
	InsertPersonnel(ctx context.Context, people []*models.Personnel) error
	InsertUsers(ctx context.Context, users []*models.User) error
	InsertConversations(ctx context.Context, convs []*models.Conversation) error
	InsertMessages(ctx context.Context, msgs []*models.Message) error
	InsertTags(ctx context.Context, tags []*models.Tag) error
	InsertMessageTags(ctx context.Context, links []*models.MessageTag) error

	// Key pools, used to seed process-local uniqueness state before a
	// run touches a non-empty schema.
	DepartmentCodes(ctx context.Context) ([]string, error)
	Usernames(ctx context.Context) ([]string, error)
	PersonnelUsernames(ctx context.Context) ([]string, error)
	TagNames(ctx context.Context) ([]string, error)
	UserRefs(ctx context.Context) ([]models.UserRef, error)
	ConversationRefs(ctx context.Context) ([]models.ConversationRef, error)
	MessageRefs(ctx context.Context) ([]models.MessageRef, error)
	TagIDs(ctx context.Context) ([]int64, error)
	MaxUserExternalID(ctx context.Context) (int64, error)
	MaxConversationExternalID(ctx context.Context) (int64, error)
	MaxMessageExternalID(ctx context.Context) (int64, error)

	ReconcilerStorage

	Close() error
}

// TaxonomyStorage covers the fixed reference tables. Inserts report
// conflicts as ErrDuplicate so the loader can skip rows that already
// exist.
type TaxonomyStorage interface {
	InsertRoleType(ctx context.Context, rt *models.RoleType) error
	InsertEmployeeType(ctx context.Context, et *models.EmployeeType) error
	InsertOrganizationType(ctx context.Context, ot *models.OrganizationType) error
	InsertFieldMapping(ctx context.Context, fm *models.FieldMapping) error
	InsertAbbreviation(ctx context.Context, ab *models.Abbreviation) error
	InsertCategoryMapping(ctx context.Context, cm *models.CategoryMapping) error

	RoleTypeNames(ctx context.Context) ([]string, error)
	EmployeeTypeNames(ctx context.Context) ([]string, error)
	OrganizationTypeNames(ctx context.Context) ([]string, error)
	FieldMappings(ctx context.Context) ([]models.FieldMapping, error)
	Abbreviations(ctx context.Context) ([]string, error)
	CategoryMappings(ctx context.Context) ([]models.CategoryMapping, error)
}

// ReconcilerStorage is what the flag reconciler needs: paged user reads,
// the personnel lookup behind the internal-user predicate, the current
// exclusion sets, and the two demotion writes.
type ReconcilerStorage interface {
	UsersPage(ctx context.Context, afterExternalID int64, limit int) ([]*models.User, error)
	PersonnelByUsername(ctx context.Context, username string) (*models.Personnel, error)
	ExcludedRoleTypes(ctx context.Context) ([]string, error)
	ExcludedEmployeeTypes(ctx context.Context) ([]string, error)
	SetUserInternalFlag(ctx context.Context, externalID int64, flag bool) error
	// HideConversations flips display_flag to false for the user's
	// conversations that are currently shown and reports how many
	// changed.
	HideConversations(ctx context.Context, userExternalID int64) (int64, error)
}
