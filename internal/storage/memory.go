package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xaenox/chatseed/internal/models"
)

// MemoryStorage implements Storage entirely in memory. It enforces the
// same uniqueness and foreign-key rules as the postgres schema, and a
// failed batch leaves nothing behind, so it stands in for the real
// store in tests and with database.use_in_memory.
type MemoryStorage struct {
	mu sync.RWMutex

	roleTypes     []*models.RoleType
	employeeTypes []*models.EmployeeType
	orgTypes      []*models.OrganizationType
	fieldMappings []*models.FieldMapping
	abbreviations []*models.Abbreviation
	categories    []*models.CategoryMapping

	organizations []*models.Organization
	personnel     []*models.Personnel
	users         []*models.User
	conversations []*models.Conversation
	messages      []*models.Message
	tags          []*models.Tag
	messageTags   []*models.MessageTag

	deptCodes       map[string]struct{}
	usernames       map[string]struct{}
	personnelNames  map[string]*models.Personnel
	userExternalIDs map[int64]*models.User
	convExternalIDs map[int64]struct{}
	msgExternalIDs  map[int64]struct{}
	tagNames        map[string]struct{}
	tagIDs          map[int64]struct{}

	nextID int64
}

func NewMemoryStorage() *MemoryStorage {
	s := &MemoryStorage{}
	s.reset()
	return s
}

func (s *MemoryStorage) reset() {
	s.roleTypes = nil
	s.employeeTypes = nil
	s.orgTypes = nil
	s.fieldMappings = nil
	s.abbreviations = nil
	s.categories = nil
	s.organizations = nil
	s.personnel = nil
	s.users = nil
	s.conversations = nil
	s.messages = nil
	s.tags = nil
	s.messageTags = nil
	s.deptCodes = make(map[string]struct{})
	s.usernames = make(map[string]struct{})
	s.personnelNames = make(map[string]*models.Personnel)
	s.userExternalIDs = make(map[int64]*models.User)
	s.convExternalIDs = make(map[int64]struct{})
	s.msgExternalIDs = make(map[int64]struct{})
	s.tagNames = make(map[string]struct{})
	s.tagIDs = make(map[int64]struct{})
	s.nextID = 0
}

func (s *MemoryStorage) EnsureSchema(ctx context.Context) error { return nil }

func (s *MemoryStorage) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func (s *MemoryStorage) nextRowID() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStorage) InsertRoleType(ctx context.Context, rt *models.RoleType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roleTypes {
		if existing.Name == rt.Name {
			return fmt.Errorf("role type %q: %w", rt.Name, ErrDuplicate)
		}
	}
	rt.ID = s.nextRowID()
	s.roleTypes = append(s.roleTypes, rt)
	return nil
}

func (s *MemoryStorage) InsertEmployeeType(ctx context.Context, et *models.EmployeeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.employeeTypes {
		if existing.Name == et.Name {
			return fmt.Errorf("employee type %q: %w", et.Name, ErrDuplicate)
		}
	}
	et.ID = s.nextRowID()
	s.employeeTypes = append(s.employeeTypes, et)
	return nil
}

func (s *MemoryStorage) InsertOrganizationType(ctx context.Context, ot *models.OrganizationType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orgTypes {
		if existing.Name == ot.Name {
			return fmt.Errorf("organization type %q: %w", ot.Name, ErrDuplicate)
		}
	}
	ot.ID = s.nextRowID()
	s.orgTypes = append(s.orgTypes, ot)
	return nil
}

func (s *MemoryStorage) InsertFieldMapping(ctx context.Context, fm *models.FieldMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.fieldMappings {
		if existing.FieldDetail == fm.FieldDetail {
			return fmt.Errorf("field mapping %q: %w", fm.FieldDetail, ErrDuplicate)
		}
	}
	fm.ID = s.nextRowID()
	s.fieldMappings = append(s.fieldMappings, fm)
	return nil
}

func (s *MemoryStorage) InsertAbbreviation(ctx context.Context, ab *models.Abbreviation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.abbreviations {
		if existing.Value == ab.Value {
			return fmt.Errorf("abbreviation %q: %w", ab.Value, ErrDuplicate)
		}
	}
	ab.ID = s.nextRowID()
	s.abbreviations = append(s.abbreviations, ab)
	return nil
}

func (s *MemoryStorage) InsertCategoryMapping(ctx context.Context, cm *models.CategoryMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.ChatParameterCategory == cm.ChatParameterCategory {
			return fmt.Errorf("category mapping %q: %w", cm.ChatParameterCategory, ErrDuplicate)
		}
	}
	cm.ID = s.nextRowID()
	s.categories = append(s.categories, cm)
	return nil
}

func (s *MemoryStorage) RoleTypeNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.roleTypes))
	for _, rt := range s.roleTypes {
		names = append(names, rt.Name)
	}
	return names, nil
}

func (s *MemoryStorage) EmployeeTypeNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.employeeTypes))
	for _, et := range s.employeeTypes {
		names = append(names, et.Name)
	}
	return names, nil
}

func (s *MemoryStorage) OrganizationTypeNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.orgTypes))
	for _, ot := range s.orgTypes {
		names = append(names, ot.Name)
	}
	return names, nil
}

func (s *MemoryStorage) FieldMappings(ctx context.Context) ([]models.FieldMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mappings := make([]models.FieldMapping, 0, len(s.fieldMappings))
	for _, fm := range s.fieldMappings {
		mappings = append(mappings, *fm)
	}
	return mappings, nil
}

func (s *MemoryStorage) Abbreviations(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := make([]string, 0, len(s.abbreviations))
	for _, ab := range s.abbreviations {
		values = append(values, ab.Value)
	}
	return values, nil
}

func (s *MemoryStorage) CategoryMappings(ctx context.Context) ([]models.CategoryMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mappings := make([]models.CategoryMapping, 0, len(s.categories))
	for _, cm := range s.categories {
		mappings = append(mappings, *cm)
	}
	return mappings, nil
}

func (s *MemoryStorage) InsertOrganizations(ctx context.Context, orgs []*models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the full batch before applying any of it.
	seen := make(map[string]struct{}, len(orgs))
	for _, org := range orgs {
		if _, ok := s.deptCodes[org.ExternalDepartmentCode]; ok {
			return fmt.Errorf("organization %q: %w", org.ExternalDepartmentCode, ErrDuplicate)
		}
		if _, ok := seen[org.ExternalDepartmentCode]; ok {
			return fmt.Errorf("organization %q: %w", org.ExternalDepartmentCode, ErrDuplicate)
		}
		seen[org.ExternalDepartmentCode] = struct{}{}
	}
	for _, org := range orgs {
		org.ID = s.nextRowID()
		s.organizations = append(s.organizations, org)
		s.deptCodes[org.ExternalDepartmentCode] = struct{}{}
	}
	return nil
}

func (s *MemoryStorage) InsertPersonnel(ctx context.Context, people []*models.Personnel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(people))
	for _, p := range people {
		if _, ok := s.deptCodes[p.DepartmentCode]; !ok {
			return fmt.Errorf("personnel %q references unknown department %q",
				p.ExternalUsername, p.DepartmentCode)
		}
		if _, ok := s.personnelNames[p.ExternalUsername]; ok {
			return fmt.Errorf("personnel %q: %w", p.ExternalUsername, ErrDuplicate)
		}
		if _, ok := seen[p.ExternalUsername]; ok {
			return fmt.Errorf("personnel %q: %w", p.ExternalUsername, ErrDuplicate)
		}
		seen[p.ExternalUsername] = struct{}{}
	}
	for _, p := range people {
		p.ID = s.nextRowID()
		s.personnel = append(s.personnel, p)
		s.personnelNames[p.ExternalUsername] = p
	}
	return nil
}

func (s *MemoryStorage) InsertUsers(ctx context.Context, users []*models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seenNames := make(map[string]struct{}, len(users))
	seenIDs := make(map[int64]struct{}, len(users))
	for _, u := range users {
		if _, ok := s.usernames[u.Username]; ok {
			return fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
		}
		if _, ok := s.userExternalIDs[u.ExternalID]; ok {
			return fmt.Errorf("user %d: %w", u.ExternalID, ErrDuplicate)
		}
		if _, ok := seenNames[u.Username]; ok {
			return fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
		}
		if _, ok := seenIDs[u.ExternalID]; ok {
			return fmt.Errorf("user %d: %w", u.ExternalID, ErrDuplicate)
		}
		seenNames[u.Username] = struct{}{}
		seenIDs[u.ExternalID] = struct{}{}
	}
	for _, u := range users {
		u.ID = s.nextRowID()
		s.users = append(s.users, u)
		s.usernames[u.Username] = struct{}{}
		s.userExternalIDs[u.ExternalID] = u
	}
	return nil
}

func (s *MemoryStorage) InsertConversations(ctx context.Context, convs []*models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]struct{}, len(convs))
	for _, c := range convs {
		if _, ok := s.userExternalIDs[c.UserID]; !ok {
			return fmt.Errorf("conversation %d references unknown user %d", c.ExternalID, c.UserID)
		}
		if _, ok := s.convExternalIDs[c.ExternalID]; ok {
			return fmt.Errorf("conversation %d: %w", c.ExternalID, ErrDuplicate)
		}
		if _, ok := seen[c.ExternalID]; ok {
			return fmt.Errorf("conversation %d: %w", c.ExternalID, ErrDuplicate)
		}
		seen[c.ExternalID] = struct{}{}
	}
	for _, c := range convs {
		c.ID = s.nextRowID()
		s.conversations = append(s.conversations, c)
		s.convExternalIDs[c.ExternalID] = struct{}{}
	}
	return nil
}

func (s *MemoryStorage) InsertMessages(ctx context.Context, msgs []*models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]struct{}, len(msgs))
	for _, m := range msgs {
		if _, ok := s.convExternalIDs[m.ConversationID]; !ok {
			return fmt.Errorf("message %d references unknown conversation %d", m.ExternalID, m.ConversationID)
		}
		if _, ok := s.msgExternalIDs[m.ExternalID]; ok {
			return fmt.Errorf("message %d: %w", m.ExternalID, ErrDuplicate)
		}
		if _, ok := seen[m.ExternalID]; ok {
			return fmt.Errorf("message %d: %w", m.ExternalID, ErrDuplicate)
		}
		seen[m.ExternalID] = struct{}{}
	}
	for _, m := range msgs {
		m.ID = s.nextRowID()
		s.messages = append(s.messages, m)
		s.msgExternalIDs[m.ExternalID] = struct{}{}
	}
	return nil
}

func (s *MemoryStorage) InsertTags(ctx context.Context, tags []*models.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := s.tagNames[t.Name]; ok {
			return fmt.Errorf("tag %q: %w", t.Name, ErrDuplicate)
		}
		if _, ok := seen[t.Name]; ok {
			return fmt.Errorf("tag %q: %w", t.Name, ErrDuplicate)
		}
		seen[t.Name] = struct{}{}
	}
	for _, t := range tags {
		t.ID = s.nextRowID()
		s.tags = append(s.tags, t)
		s.tagNames[t.Name] = struct{}{}
		s.tagIDs[t.ID] = struct{}{}
	}
	return nil
}

func (s *MemoryStorage) InsertMessageTags(ctx context.Context, links []*models.MessageTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range links {
		if _, ok := s.msgExternalIDs[l.MessageID]; !ok {
			return fmt.Errorf("message tag references unknown message %d", l.MessageID)
		}
		if _, ok := s.tagIDs[l.TagID]; !ok {
			return fmt.Errorf("message tag references unknown tag %d", l.TagID)
		}
	}
	for _, l := range links {
		l.ID = s.nextRowID()
		s.messageTags = append(s.messageTags, l)
	}
	return nil
}

func (s *MemoryStorage) DepartmentCodes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.organizations))
	for _, org := range s.organizations {
		codes = append(codes, org.ExternalDepartmentCode)
	}
	return codes, nil
}

func (s *MemoryStorage) Usernames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.users))
	for _, u := range s.users {
		names = append(names, u.Username)
	}
	return names, nil
}

func (s *MemoryStorage) PersonnelUsernames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.personnel))
	for _, p := range s.personnel {
		names = append(names, p.ExternalUsername)
	}
	return names, nil
}

func (s *MemoryStorage) TagNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tags))
	for _, t := range s.tags {
		names = append(names, t.Name)
	}
	return names, nil
}

func (s *MemoryStorage) UserRefs(ctx context.Context) ([]models.UserRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]models.UserRef, 0, len(s.users))
	for _, u := range s.users {
		refs = append(refs, models.UserRef{ExternalID: u.ExternalID, InternalUserFlag: u.InternalUserFlag})
	}
	return refs, nil
}

func (s *MemoryStorage) ConversationRefs(ctx context.Context) ([]models.ConversationRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]models.ConversationRef, 0, len(s.conversations))
	for _, c := range s.conversations {
		refs = append(refs, models.ConversationRef{ExternalID: c.ExternalID, CreatedAt: c.CreatedAt})
	}
	return refs, nil
}

func (s *MemoryStorage) MessageRefs(ctx context.Context) ([]models.MessageRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]models.MessageRef, 0, len(s.messages))
	for _, m := range s.messages {
		refs = append(refs, models.MessageRef{ExternalID: m.ExternalID, CreatedAt: m.CreatedAt})
	}
	return refs, nil
}

func (s *MemoryStorage) TagIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.tags))
	for _, t := range s.tags {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (s *MemoryStorage) MaxUserExternalID(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for _, u := range s.users {
		if u.ExternalID > max {
			max = u.ExternalID
		}
	}
	return max, nil
}

func (s *MemoryStorage) MaxConversationExternalID(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for _, c := range s.conversations {
		if c.ExternalID > max {
			max = c.ExternalID
		}
	}
	return max, nil
}

func (s *MemoryStorage) MaxMessageExternalID(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for _, m := range s.messages {
		if m.ExternalID > max {
			max = m.ExternalID
		}
	}
	return max, nil
}

func (s *MemoryStorage) UsersPage(ctx context.Context, afterExternalID int64, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var page []*models.User
	for _, u := range s.users {
		if u.ExternalID > afterExternalID {
			page = append(page, u)
		}
	}
	// users are appended in external-id order by the generator, but a
	// reseeded store gives no such guarantee
	sort.Slice(page, func(i, j int) bool { return page[i].ExternalID < page[j].ExternalID })
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

func (s *MemoryStorage) PersonnelByUsername(ctx context.Context, username string) (*models.Personnel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.personnelNames[username]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("personnel %q: %w", username, ErrNotFound)
}

func (s *MemoryStorage) ExcludedRoleTypes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var excluded []string
	for _, rt := range s.roleTypes {
		if !rt.DisplayFlag {
			excluded = append(excluded, rt.Name)
		}
	}
	return excluded, nil
}

func (s *MemoryStorage) ExcludedEmployeeTypes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var excluded []string
	for _, et := range s.employeeTypes {
		if !et.DisplayFlag {
			excluded = append(excluded, et.Name)
		}
	}
	return excluded, nil
}

func (s *MemoryStorage) SetUserInternalFlag(ctx context.Context, externalID int64, flag bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.userExternalIDs[externalID]
	if !ok {
		return fmt.Errorf("user %d: %w", externalID, ErrNotFound)
	}
	u.InternalUserFlag = flag
	return nil
}

func (s *MemoryStorage) HideConversations(ctx context.Context, userExternalID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hidden int64
	for _, c := range s.conversations {
		if c.UserID == userExternalID && c.DisplayFlag {
			c.DisplayFlag = false
			hidden++
		}
	}
	return hidden, nil
}

// Test helpers. Callers get copies of the row slices and mutate nothing.

func (s *MemoryStorage) AllOrganizations() []*models.Organization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Organization(nil), s.organizations...)
}

func (s *MemoryStorage) AllPersonnel() []*models.Personnel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Personnel(nil), s.personnel...)
}

func (s *MemoryStorage) AllUsers() []*models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.User(nil), s.users...)
}

func (s *MemoryStorage) AllConversations() []*models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Conversation(nil), s.conversations...)
}

func (s *MemoryStorage) AllMessages() []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Message(nil), s.messages...)
}

func (s *MemoryStorage) AllTags() []*models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Tag(nil), s.tags...)
}

func (s *MemoryStorage) AllMessageTags() []*models.MessageTag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.MessageTag(nil), s.messageTags...)
}

func (s *MemoryStorage) Close() error { return nil }
