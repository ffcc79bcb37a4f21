package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/chatseed/internal/models"
	"github.com/xaenox/chatseed/internal/storage"
	"go.uber.org/zap"
)

// Reconciler repairs the derived flags after personnel or taxonomy data
// has drifted from what the generator saw. It only ever demotes: a user
// whose internal flag no longer holds loses it, together with the
// visibility of their conversations. Promotion back to internal is out
// of scope. Running it twice in a row is a no-op the second time.
type Reconciler struct {
	store    storage.Storage
	logger   *zap.Logger
	pageSize int
}

// Result reports what one reconciliation pass changed.
type Result struct {
	UsersScanned        int
	UsersDemoted        int
	ConversationsHidden int64
}

func New(store storage.Storage, pageSize int, logger *zap.Logger) *Reconciler {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &Reconciler{store: store, logger: logger, pageSize: pageSize}
}

// Run recomputes the internal-user predicate for every user against the
// exclusion sets as they stand now, demoting where the stored flag says
// internal but the predicate says otherwise. Writes are committed per
// user, so a failure partway leaves earlier corrections in place.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	excludedRoles, err := r.store.ExcludedRoleTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading excluded role types: %v", err)
	}
	excludedEmployees, err := r.store.ExcludedEmployeeTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading excluded employee types: %v", err)
	}
	exRoles := toSet(excludedRoles)
	exEmps := toSet(excludedEmployees)

	r.logger.Info("Reconciling derived flags",
		zap.Int("excluded_role_types", len(exRoles)),
		zap.Int("excluded_employee_types", len(exEmps)))

	result := &Result{}
	after := int64(0)
	for {
		users, err := r.store.UsersPage(ctx, after, r.pageSize)
		if err != nil {
			return result, fmt.Errorf("error reading users page: %v", err)
		}
		if len(users) == 0 {
			break
		}
		for _, user := range users {
			after = user.ExternalID
			result.UsersScanned++

			// Only stored-internal users can be demoted; external users
			// stay external regardless of what personnel says.
			if !user.InternalUserFlag {
				continue
			}

			internal, err := r.isInternal(ctx, user, exRoles, exEmps)
			if err != nil {
				r.logger.Warn("Skipping user",
					zap.String("username", user.Username), zap.Error(err))
				continue
			}
			if internal {
				continue
			}

			// Hide before demoting. The stored-true flag is what makes a
			// user eligible for another pass, so it must be the last thing
			// to change: a failure here leaves the user stored-true and the
			// next run retries both writes.
			hidden, err := r.store.HideConversations(ctx, user.ExternalID)
			if err != nil {
				r.logger.Warn("Failed to hide conversations",
					zap.String("username", user.Username), zap.Error(err))
				continue
			}
			if err := r.store.SetUserInternalFlag(ctx, user.ExternalID, false); err != nil {
				r.logger.Warn("Failed to demote user",
					zap.String("username", user.Username), zap.Error(err))
				continue
			}
			result.UsersDemoted++
			result.ConversationsHidden += hidden
		}
	}

	r.logger.Info("Reconciliation completed",
		zap.Int("users_scanned", result.UsersScanned),
		zap.Int("users_demoted", result.UsersDemoted),
		zap.Int64("conversations_hidden", result.ConversationsHidden))
	return result, nil
}

// isInternal is the internal-user predicate: a personnel record exists
// for the username, its organization type is set, and neither its role
// type nor its employee type is currently excluded.
func (r *Reconciler) isInternal(ctx context.Context, user *models.User, exRoles, exEmps map[string]bool) (bool, error) {
	personnel, err := r.store.PersonnelByUsername(ctx, user.Username)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if personnel.OrganizationType == "" {
		return false, nil
	}
	if exRoles[personnel.RoleType] {
		return false, nil
	}
	if exEmps[personnel.EmployeeType] {
		return false, nil
	}
	return true, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
