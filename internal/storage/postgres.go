package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/xaenox/chatseed/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	return &PostgresStorage{db: db, logger: logger}, nil
}

// EnsureSchema creates any missing tables. It never drops anything; use
// Reset for that.
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

// Reset drops every table and recreates the schema. Destructive; callers
// must ask for it explicitly.
func (s *PostgresStorage) Reset(ctx context.Context) error {
	drop := `
		DROP TABLE IF EXISTS message_tags, messages, conversations, users,
			personnels, organizations, tags, category_mappings, abbreviations,
			field_mappings, organization_types, employee_types, role_types CASCADE`

	if _, err := s.db.ExecContext(ctx, drop); err != nil {
		return fmt.Errorf("error dropping tables: %v", err)
	}
	s.logger.Warn("All tables dropped")

	return s.EnsureSchema(ctx)
}

// wrapInsertErr maps unique-constraint violations onto ErrDuplicate so
// callers can tell "already there" apart from real failures.
func wrapInsertErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("error %s: %v", op, err)
}

func (s *PostgresStorage) InsertRoleType(ctx context.Context, rt *models.RoleType) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO role_types (role_type, display_flag) VALUES ($1, $2) RETURNING id`,
		rt.Name, rt.DisplayFlag,
	).Scan(&rt.ID)
	return wrapInsertErr("inserting role type", err)
}

func (s *PostgresStorage) InsertEmployeeType(ctx context.Context, et *models.EmployeeType) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO employee_types (employee_type, display_flag) VALUES ($1, $2) RETURNING id`,
		et.Name, et.DisplayFlag,
	).Scan(&et.ID)
	return wrapInsertErr("inserting employee type", err)
}

func (s *PostgresStorage) InsertOrganizationType(ctx context.Context, ot *models.OrganizationType) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO organization_types (organization_type) VALUES ($1) RETURNING id`,
		ot.Name,
	).Scan(&ot.ID)
	return wrapInsertErr("inserting organization type", err)
}

func (s *PostgresStorage) InsertFieldMapping(ctx context.Context, fm *models.FieldMapping) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO field_mappings (field, field_detail) VALUES ($1, $2) RETURNING id`,
		fm.Field, fm.FieldDetail,
	).Scan(&fm.ID)
	return wrapInsertErr("inserting field mapping", err)
}

func (s *PostgresStorage) InsertAbbreviation(ctx context.Context, ab *models.Abbreviation) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO abbreviations (abbreviation) VALUES ($1) RETURNING id`,
		ab.Value,
	).Scan(&ab.ID)
	return wrapInsertErr("inserting abbreviation", err)
}

func (s *PostgresStorage) InsertCategoryMapping(ctx context.Context, cm *models.CategoryMapping) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO category_mappings
			(category_group, category_group_label, main_category, main_category_label,
			 chat_parameter_category, chat_parameter_category_label)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		cm.CategoryGroup, cm.CategoryGroupLabel, cm.MainCategory, cm.MainCategoryLabel,
		cm.ChatParameterCategory, cm.ChatParameterCategoryLabel,
	).Scan(&cm.ID)
	return wrapInsertErr("inserting category mapping", err)
}

func (s *PostgresStorage) stringColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying %q: %v", query, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("error scanning value: %v", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *PostgresStorage) RoleTypeNames(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT role_type FROM role_types ORDER BY id`)
}

func (s *PostgresStorage) EmployeeTypeNames(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT employee_type FROM employee_types ORDER BY id`)
}

func (s *PostgresStorage) OrganizationTypeNames(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT organization_type FROM organization_types ORDER BY id`)
}

func (s *PostgresStorage) Abbreviations(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT abbreviation FROM abbreviations ORDER BY id`)
}

func (s *PostgresStorage) FieldMappings(ctx context.Context) ([]models.FieldMapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, field, field_detail FROM field_mappings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying field mappings: %v", err)
	}
	defer rows.Close()

	var mappings []models.FieldMapping
	for rows.Next() {
		var fm models.FieldMapping
		if err := rows.Scan(&fm.ID, &fm.Field, &fm.FieldDetail); err != nil {
			return nil, fmt.Errorf("error scanning field mapping: %v", err)
		}
		mappings = append(mappings, fm)
	}
	return mappings, rows.Err()
}

func (s *PostgresStorage) CategoryMappings(ctx context.Context) ([]models.CategoryMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_group, category_group_label, main_category,
		       main_category_label, chat_parameter_category, chat_parameter_category_label
		FROM category_mappings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying category mappings: %v", err)
	}
	defer rows.Close()

	var mappings []models.CategoryMapping
	for rows.Next() {
		var cm models.CategoryMapping
		if err := rows.Scan(&cm.ID, &cm.CategoryGroup, &cm.CategoryGroupLabel,
			&cm.MainCategory, &cm.MainCategoryLabel,
			&cm.ChatParameterCategory, &cm.ChatParameterCategoryLabel); err != nil {
			return nil, fmt.Errorf("error scanning category mapping: %v", err)
		}
		mappings = append(mappings, cm)
	}
	return mappings, rows.Err()
}

// withTx runs fn in a transaction. Rollback on any error leaves prior
// committed batches intact.
func (s *PostgresStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %v", err)
	}
	return nil
}

func (s *PostgresStorage) InsertOrganizations(ctx context.Context, orgs []*models.Organization) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO organizations
				(external_department_code, external_division_code, external_section_code,
				 field, field_detail, region, branch, abbreviation, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`)
		if err != nil {
			return fmt.Errorf("error preparing organization insert: %v", err)
		}
		defer stmt.Close()

		for _, org := range orgs {
			err := stmt.QueryRowContext(ctx,
				org.ExternalDepartmentCode, org.ExternalDivisionCode, org.ExternalSectionCode,
				org.Field, org.FieldDetail, org.Region, org.Branch, org.Abbreviation, org.CreatedAt,
			).Scan(&org.ID)
			if err != nil {
				return wrapInsertErr("inserting organization", err)
			}
		}
		return nil
	})
}

func (s *PostgresStorage) InsertPersonnel(ctx context.Context, people []*models.Personnel) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO personnels
				(external_username, entry_year, department_code, branch_code,
				 head_office_name, branch_name, section_name, sales_office_name,
				 organization_type, employee_type, role_type,
				 is_organization_head, is_department_head)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`)
		if err != nil {
			return fmt.Errorf("error preparing personnel insert: %v", err)
		}
		defer stmt.Close()

		for _, p := range people {
			err := stmt.QueryRowContext(ctx,
				p.ExternalUsername, p.EntryYear, p.DepartmentCode, p.BranchCode,
				p.HeadOfficeName, p.BranchName, p.SectionName, p.SalesOfficeName,
				p.OrganizationType, p.EmployeeType, p.RoleType,
				p.IsOrganizationHead, p.IsDepartmentHead,
			).Scan(&p.ID)
			if err != nil {
				return wrapInsertErr("inserting personnel", err)
			}
		}
		return nil
	})
}

func (s *PostgresStorage) InsertUsers(ctx context.Context, users []*models.User) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO users
				(external_id, external_id_delete_flag, username, internal_user_flag, created_at)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`)
		if err != nil {
			return fmt.Errorf("error preparing user insert: %v", err)
		}
		defer stmt.Close()

		for _, u := range users {
			err := stmt.QueryRowContext(ctx,
				u.ExternalID, u.ExternalIDDeleteFlag, u.Username, u.InternalUserFlag, u.CreatedAt,
			).Scan(&u.ID)
			if err != nil {
				return wrapInsertErr("inserting user", err)
			}
		}
		return nil
	})
}

func (s *PostgresStorage) InsertConversations(ctx context.Context, convs []*models.Conversation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO conversations
				(external_id, user_id, topic, created_at, model_id, display_flag)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`)
		if err != nil {
			return fmt.Errorf("error preparing conversation insert: %v", err)
		}
		defer stmt.Close()

		for _, c := range convs {
			err := stmt.QueryRowContext(ctx,
				c.ExternalID, c.UserID, c.Topic, c.CreatedAt, c.ModelID, c.DisplayFlag,
			).Scan(&c.ID)
			if err != nil {
				return wrapInsertErr("inserting conversation", err)
			}
		}
		return nil
	})
}

func (s *PostgresStorage) InsertMessages(ctx context.Context, msgs []*models.Message) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO messages
				(external_id, conversation_id, message, is_bot, chat_parameter,
				 category_group, main_category, chat_parameter_category, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`)
		if err != nil {
			return fmt.Errorf("error preparing message insert: %v", err)
		}
		defer stmt.Close()

		for _, m := range msgs {
			params, err := json.Marshal(m.ChatParameter)
			if err != nil {
				return fmt.Errorf("error encoding chat parameter: %v", err)
			}
			err = stmt.QueryRowContext(ctx,
				m.ExternalID, m.ConversationID, m.Body, m.IsBot, params,
				m.CategoryGroup, m.MainCategory, m.ChatParameterCategory, m.CreatedAt,
			).Scan(&m.ID)
			if err != nil {
				return wrapInsertErr("inserting message", err)
			}
		}
		return nil
	})
}

func (s *PostgresStorage) InsertTags(ctx context.Context, tags []*models.Tag) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO tags (name, created_at) VALUES ($1, $2) RETURNING id`)
		if err != nil {
			return fmt.Errorf("error preparing tag insert: %v", err)
		}
		defer stmt.Close()

		for _, t := range tags {
			if err := stmt.QueryRowContext(ctx, t.Name, t.CreatedAt).Scan(&t.ID); err != nil {
				return wrapInsertErr("inserting tag", err)
			}
		}
		return nil
	})
}

func (s *PostgresStorage) InsertMessageTags(ctx context.Context, links []*models.MessageTag) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO message_tags (message_id, tag_id, created_at) VALUES ($1, $2, $3) RETURNING id`)
		if err != nil {
			return fmt.Errorf("error preparing message tag insert: %v", err)
		}
		defer stmt.Close()

		for _, l := range links {
			if err := stmt.QueryRowContext(ctx, l.MessageID, l.TagID, l.CreatedAt).Scan(&l.ID); err != nil {
				return wrapInsertErr("inserting message tag", err)
			}
		}
		return nil
	})
}

func (s *PostgresStorage) DepartmentCodes(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT external_department_code FROM organizations ORDER BY id`)
}

func (s *PostgresStorage) Usernames(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT username FROM users`)
}

func (s *PostgresStorage) PersonnelUsernames(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT external_username FROM personnels`)
}

func (s *PostgresStorage) TagNames(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT name FROM tags`)
}

func (s *PostgresStorage) UserRefs(ctx context.Context) ([]models.UserRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT external_id, internal_user_flag FROM users ORDER BY external_id`)
	if err != nil {
		return nil, fmt.Errorf("error querying user refs: %v", err)
	}
	defer rows.Close()

	var refs []models.UserRef
	for rows.Next() {
		var r models.UserRef
		if err := rows.Scan(&r.ExternalID, &r.InternalUserFlag); err != nil {
			return nil, fmt.Errorf("error scanning user ref: %v", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *PostgresStorage) ConversationRefs(ctx context.Context) ([]models.ConversationRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT external_id, created_at FROM conversations ORDER BY external_id`)
	if err != nil {
		return nil, fmt.Errorf("error querying conversation refs: %v", err)
	}
	defer rows.Close()

	var refs []models.ConversationRef
	for rows.Next() {
		var r models.ConversationRef
		if err := rows.Scan(&r.ExternalID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning conversation ref: %v", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *PostgresStorage) MessageRefs(ctx context.Context) ([]models.MessageRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT external_id, created_at FROM messages ORDER BY external_id`)
	if err != nil {
		return nil, fmt.Errorf("error querying message refs: %v", err)
	}
	defer rows.Close()

	var refs []models.MessageRef
	for rows.Next() {
		var r models.MessageRef
		if err := rows.Scan(&r.ExternalID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning message ref: %v", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *PostgresStorage) TagIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying tag ids: %v", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning tag id: %v", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStorage) maxColumn(ctx context.Context, query string) (int64, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("error querying %q: %v", query, err)
	}
	return max.Int64, nil
}

func (s *PostgresStorage) MaxUserExternalID(ctx context.Context) (int64, error) {
	return s.maxColumn(ctx, `SELECT MAX(external_id) FROM users`)
}

func (s *PostgresStorage) MaxConversationExternalID(ctx context.Context) (int64, error) {
	return s.maxColumn(ctx, `SELECT MAX(external_id) FROM conversations`)
}

func (s *PostgresStorage) MaxMessageExternalID(ctx context.Context) (int64, error) {
	return s.maxColumn(ctx, `SELECT MAX(external_id) FROM messages`)
}

func (s *PostgresStorage) UsersPage(ctx context.Context, afterExternalID int64, limit int) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, external_id_delete_flag, username, internal_user_flag, created_at
		FROM users
		WHERE external_id > $1
		ORDER BY external_id
		LIMIT $2`, afterExternalID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying users page: %v", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.ExternalID, &u.ExternalIDDeleteFlag,
			&u.Username, &u.InternalUserFlag, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning user: %v", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStorage) PersonnelByUsername(ctx context.Context, username string) (*models.Personnel, error) {
	p := &models.Personnel{}
	var entryYear sql.NullInt64
	var branchCode, headOffice, sectionName, salesOffice sql.NullString
	var orgType, empType, roleType, orgHead, deptHead sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, external_username, entry_year, department_code, branch_code,
		       head_office_name, branch_name, section_name, sales_office_name,
		       organization_type, employee_type, role_type,
		       is_organization_head, is_department_head
		FROM personnels
		WHERE external_username = $1`, username,
	).Scan(&p.ID, &p.ExternalUsername, &entryYear, &p.DepartmentCode, &branchCode,
		&headOffice, &p.BranchName, &sectionName, &salesOffice,
		&orgType, &empType, &roleType, &orgHead, &deptHead)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("personnel %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying personnel: %v", err)
	}

	p.EntryYear = int(entryYear.Int64)
	p.BranchCode = branchCode.String
	p.HeadOfficeName = headOffice.String
	p.SectionName = sectionName.String
	p.SalesOfficeName = salesOffice.String
	p.OrganizationType = orgType.String
	p.EmployeeType = empType.String
	p.RoleType = roleType.String
	p.IsOrganizationHead = orgHead.String
	p.IsDepartmentHead = deptHead.String
	return p, nil
}

func (s *PostgresStorage) ExcludedRoleTypes(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT role_type FROM role_types WHERE display_flag = FALSE`)
}

func (s *PostgresStorage) ExcludedEmployeeTypes(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT employee_type FROM employee_types WHERE display_flag = FALSE`)
}

func (s *PostgresStorage) SetUserInternalFlag(ctx context.Context, externalID int64, flag bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET internal_user_flag = $1 WHERE external_id = $2`, flag, externalID)
	if err != nil {
		return fmt.Errorf("error updating user flag: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", externalID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) HideConversations(ctx context.Context, userExternalID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET display_flag = FALSE
		WHERE user_id = $1 AND display_flag = TRUE`, userExternalID)
	if err != nil {
		return 0, fmt.Errorf("error hiding conversations: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %v", err)
	}
	return affected, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
