package generator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/xaenox/chatseed/internal/models"
	"github.com/xaenox/chatseed/internal/storage"
	"github.com/xaenox/chatseed/internal/taxonomy"
	"go.uber.org/zap"
)

type Config struct {
	Locale          taxonomy.Locale
	Organizations   int
	Personnel       int
	Users           int
	Conversations   int
	Tags            int
	MessageTags     int
	MinMessagePairs int
	MaxMessagePairs int
	BatchSize       int
	RetryCeiling    int
	// Seed pins the random source for tests; 0 means time-based.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.RetryCeiling <= 0 {
		c.RetryCeiling = 50
	}
	if c.MinMessagePairs <= 0 {
		c.MinMessagePairs = 1
	}
	if c.MaxMessagePairs < c.MinMessagePairs {
		c.MaxMessagePairs = c.MinMessagePairs + 6
	}
	return c
}

// Summary is the per-entity insert count report of one generation run.
type Summary struct {
	Organizations int
	Personnel     int
	Users         int
	Conversations int
	Messages      int
	Tags          int
	MessageTags   int
}

// Generator synthesizes the whole dataset in strict dependency order:
// organizations, personnel, users, conversations, messages, then tags.
// Children only ever reference parents that are already committed, and
// each commit is a bounded batch, so an interrupted run leaves a
// referentially valid prefix behind.
type Generator struct {
	store  storage.Storage
	logger *zap.Logger
	cfg    Config
	rng    *rand.Rand
	fake   *faker
	vals   taxonomy.Values

	usernames *uniqueSet
	deptCodes *uniqueSet
	tagNames  *uniqueSet

	people []personnelRef
}

// personnelRef carries the attributes of an inserted personnel row that
// the user phase derives the internal flag from.
type personnelRef struct {
	username     string
	orgType      string
	roleType     string
	employeeType string
}

func New(store storage.Storage, cfg Config, logger *zap.Logger) *Generator {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Generator{
		store:     store,
		logger:    logger,
		cfg:       cfg,
		rng:       rng,
		fake:      newFaker(cfg.Locale, rng),
		vals:      taxonomy.ValuesFor(cfg.Locale),
		usernames: newUniqueSet(),
		deptCodes: newUniqueSet(),
		tagNames:  newUniqueSet(),
	}
}

// GenerateAll runs every phase. Per-record and per-batch failures are
// logged and skipped; an error return means foundational data was
// missing and the run halted.
func (g *Generator) GenerateAll(ctx context.Context) (*Summary, error) {
	if err := g.seedState(ctx); err != nil {
		return nil, err
	}

	sum := &Summary{}

	if g.cfg.Organizations > 0 {
		n, err := g.generateOrganizations(ctx)
		if err != nil {
			return nil, err
		}
		sum.Organizations = n
	}
	if g.cfg.Personnel > 0 {
		n, err := g.generatePersonnel(ctx)
		if err != nil {
			return nil, err
		}
		sum.Personnel = n
	}
	if g.cfg.Users > 0 {
		n, err := g.generateUsers(ctx)
		if err != nil {
			return nil, err
		}
		sum.Users = n
	}
	if g.cfg.Conversations > 0 {
		n, err := g.generateConversations(ctx)
		if err != nil {
			return nil, err
		}
		sum.Conversations = n

		m, err := g.generateMessages(ctx)
		if err != nil {
			return nil, err
		}
		sum.Messages = m
	}
	if g.cfg.Tags > 0 {
		n, err := g.generateTags(ctx)
		if err != nil {
			return nil, err
		}
		sum.Tags = n
	}
	if g.cfg.MessageTags > 0 {
		sum.MessageTags = g.generateMessageTags(ctx)
	}

	g.logger.Info("Generation completed",
		zap.Int("organizations", sum.Organizations),
		zap.Int("personnel", sum.Personnel),
		zap.Int("users", sum.Users),
		zap.Int("conversations", sum.Conversations),
		zap.Int("messages", sum.Messages),
		zap.Int("tags", sum.Tags),
		zap.Int("message_tags", sum.MessageTags))
	return sum, nil
}

// seedState loads the natural keys already present in the store so a
// resumed run on a non-empty schema cannot collide with prior rows.
func (g *Generator) seedState(ctx context.Context) error {
	codes, err := g.store.DepartmentCodes(ctx)
	if err != nil {
		return fmt.Errorf("error seeding department codes: %v", err)
	}
	g.deptCodes.seed(codes)

	usernames, err := g.store.Usernames(ctx)
	if err != nil {
		return fmt.Errorf("error seeding usernames: %v", err)
	}
	g.usernames.seed(usernames)

	personnelNames, err := g.store.PersonnelUsernames(ctx)
	if err != nil {
		return fmt.Errorf("error seeding personnel usernames: %v", err)
	}
	g.usernames.seed(personnelNames)

	tagNames, err := g.store.TagNames(ctx)
	if err != nil {
		return fmt.Errorf("error seeding tag names: %v", err)
	}
	g.tagNames.seed(tagNames)

	g.logger.Info("Seeded uniqueness state from store",
		zap.Int("department_codes", g.deptCodes.len()),
		zap.Int("usernames", g.usernames.len()),
		zap.Int("tag_names", g.tagNames.len()))
	return nil
}

const suffixAttempts = 5

// uniqueValue claims a fresh value from gen. On collision it first tries
// small counter suffixes, then random 4-digit suffixes, up to the retry
// ceiling.
func (g *Generator) uniqueValue(set *uniqueSet, gen func() string) (string, error) {
	base := gen()
	if set.claim(base) {
		return base, nil
	}
	for i := 1; i <= suffixAttempts; i++ {
		if v := fmt.Sprintf("%s_%d", base, i); set.claim(v) {
			return v, nil
		}
	}
	for i := 0; i < g.cfg.RetryCeiling; i++ {
		if v := fmt.Sprintf("%s_%d", base, 1000+g.rng.Intn(9000)); set.claim(v) {
			return v, nil
		}
	}
	return "", fmt.Errorf("no unique value found for %q after %d attempts", base, g.cfg.RetryCeiling)
}

// uniquePattern regenerates a fixed-width pattern until it is unused.
// Suffixing would break the width, so collisions just reroll.
func (g *Generator) uniquePattern(set *uniqueSet, pattern string) (string, error) {
	for i := 0; i < g.cfg.RetryCeiling; i++ {
		if v := g.fake.bothify(pattern); set.claim(v) {
			return v, nil
		}
	}
	return "", fmt.Errorf("no unique value found for pattern %q after %d attempts", pattern, g.cfg.RetryCeiling)
}

func (g *Generator) generateOrganizations(ctx context.Context) (int, error) {
	pairs, err := g.store.FieldMappings(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading field mappings: %v", err)
	}
	if len(pairs) == 0 {
		return 0, errors.New("no field mappings loaded; run the taxonomy loader first")
	}
	abbrs, err := g.store.Abbreviations(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading abbreviations: %v", err)
	}
	if len(abbrs) == 0 {
		return 0, errors.New("no abbreviations loaded; run the taxonomy loader first")
	}

	g.logger.Info("Generating organizations", zap.Int("target", g.cfg.Organizations))
	pairSampler := newCoverageSampler(len(pairs), g.rng)
	abbrSampler := newCoverageSampler(len(abbrs), g.rng)

	now := time.Now()
	inserted := 0
	batch := make([]*models.Organization, 0, g.cfg.BatchSize)
	for i := 0; i < g.cfg.Organizations; i++ {
		code, err := g.uniquePattern(g.deptCodes, "?####")
		if err != nil {
			g.logger.Warn("Skipping organization", zap.Error(err))
			continue
		}
		pair := pairs[pairSampler.next()]
		batch = append(batch, &models.Organization{
			ExternalDepartmentCode: code,
			ExternalDivisionCode:   g.fake.bothify("###"),
			ExternalSectionCode:    g.fake.bothify("##"),
			Field:                  pair.Field,
			FieldDetail:            pair.FieldDetail,
			Region:                 g.vals.Regions[g.rng.Intn(len(g.vals.Regions))],
			Branch:                 g.fake.city(),
			Abbreviation:           abbrs[abbrSampler.next()],
			CreatedAt:              g.fake.dateTimeBetween(now.AddDate(-2, 0, 0), now),
		})
		if len(batch) >= g.cfg.BatchSize {
			inserted += len(g.flushOrganizations(ctx, batch))
			batch = batch[:0]
		}
	}
	inserted += len(g.flushOrganizations(ctx, batch))

	g.logger.Info("Organizations generated", zap.Int("inserted", inserted))
	return inserted, nil
}

func (g *Generator) flushOrganizations(ctx context.Context, batch []*models.Organization) []*models.Organization {
	if len(batch) == 0 {
		return nil
	}
	err := g.store.InsertOrganizations(ctx, batch)
	if err == nil {
		return batch
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		g.logger.Warn("Organization batch failed, skipping",
			zap.Int("size", len(batch)), zap.Error(err))
		return nil
	}
	// A duplicate poisoned the batch; keep the rest row by row.
	kept := make([]*models.Organization, 0, len(batch))
	for _, org := range batch {
		if err := g.store.InsertOrganizations(ctx, []*models.Organization{org}); err != nil {
			g.logger.Warn("Skipping organization",
				zap.String("department_code", org.ExternalDepartmentCode), zap.Error(err))
			continue
		}
		kept = append(kept, org)
	}
	return kept
}

func (g *Generator) generatePersonnel(ctx context.Context) (int, error) {
	deptCodes, err := g.store.DepartmentCodes(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading department codes: %v", err)
	}
	if len(deptCodes) == 0 {
		return 0, errors.New("no organizations exist; generate organizations first")
	}
	orgTypes, err := g.store.OrganizationTypeNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading organization types: %v", err)
	}
	roleTypes, err := g.store.RoleTypeNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading role types: %v", err)
	}
	employeeTypes, err := g.store.EmployeeTypeNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading employee types: %v", err)
	}
	if len(orgTypes) == 0 || len(roleTypes) == 0 || len(employeeTypes) == 0 {
		return 0, errors.New("taxonomy tables are empty; run the taxonomy loader first")
	}
	abbrs, err := g.store.Abbreviations(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading abbreviations: %v", err)
	}
	if len(abbrs) == 0 {
		return 0, errors.New("no abbreviations loaded; run the taxonomy loader first")
	}

	g.logger.Info("Generating personnel", zap.Int("target", g.cfg.Personnel))
	abbrSampler := newCoverageSampler(len(abbrs), g.rng)
	headChoices := []string{"yes", "no", ""}
	if g.cfg.Locale == taxonomy.LocaleJA {
		headChoices = []string{"はい", "いいえ", ""}
	}

	inserted := 0
	batch := make([]*models.Personnel, 0, g.cfg.BatchSize)
	for i := 0; i < g.cfg.Personnel; i++ {
		username, err := g.uniqueValue(g.usernames, g.fake.userName)
		if err != nil {
			g.logger.Warn("Skipping personnel", zap.Error(err))
			continue
		}
		batch = append(batch, &models.Personnel{
			ExternalUsername:   username,
			EntryYear:          1980 + g.rng.Intn(46),
			DepartmentCode:     deptCodes[g.rng.Intn(len(deptCodes))],
			BranchCode:         g.fake.bothify("###"),
			HeadOfficeName:     g.fake.company(),
			BranchName:         abbrs[abbrSampler.next()],
			SectionName:        g.fake.companySuffix(),
			SalesOfficeName:    g.fake.companySuffix(),
			OrganizationType:   orgTypes[g.rng.Intn(len(orgTypes))],
			EmployeeType:       employeeTypes[g.rng.Intn(len(employeeTypes))],
			RoleType:           roleTypes[g.rng.Intn(len(roleTypes))],
			IsOrganizationHead: headChoices[g.rng.Intn(len(headChoices))],
			IsDepartmentHead:   headChoices[g.rng.Intn(len(headChoices))],
		})
		if len(batch) >= g.cfg.BatchSize {
			inserted += g.keepPersonnel(g.flushPersonnel(ctx, batch))
			batch = batch[:0]
		}
	}
	inserted += g.keepPersonnel(g.flushPersonnel(ctx, batch))

	g.logger.Info("Personnel generated", zap.Int("inserted", inserted))
	return inserted, nil
}

func (g *Generator) flushPersonnel(ctx context.Context, batch []*models.Personnel) []*models.Personnel {
	if len(batch) == 0 {
		return nil
	}
	err := g.store.InsertPersonnel(ctx, batch)
	if err == nil {
		return batch
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		g.logger.Warn("Personnel batch failed, skipping",
			zap.Int("size", len(batch)), zap.Error(err))
		return nil
	}
	kept := make([]*models.Personnel, 0, len(batch))
	for _, p := range batch {
		if err := g.store.InsertPersonnel(ctx, []*models.Personnel{p}); err != nil {
			g.logger.Warn("Skipping personnel",
				zap.String("external_username", p.ExternalUsername), zap.Error(err))
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// keepPersonnel records the inserted rows for the user phase and
// returns how many there were.
func (g *Generator) keepPersonnel(inserted []*models.Personnel) int {
	for _, p := range inserted {
		g.people = append(g.people, personnelRef{
			username:     p.ExternalUsername,
			orgType:      p.OrganizationType,
			roleType:     p.RoleType,
			employeeType: p.EmployeeType,
		})
	}
	return len(inserted)
}

func (g *Generator) generateUsers(ctx context.Context) (int, error) {
	excludedRoles, err := g.store.ExcludedRoleTypes(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading excluded role types: %v", err)
	}
	excludedEmployees, err := g.store.ExcludedEmployeeTypes(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading excluded employee types: %v", err)
	}
	exRoles := toSet(excludedRoles)
	exEmps := toSet(excludedEmployees)

	maxID, err := g.store.MaxUserExternalID(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading max user external id: %v", err)
	}
	nextID := maxID + 1
	if nextID < 1000 {
		nextID = 1000
	}

	internal := len(g.people)
	if internal > g.cfg.Users {
		internal = g.cfg.Users
	}
	g.logger.Info("Generating users",
		zap.Int("target", g.cfg.Users),
		zap.Int("internal", internal),
		zap.Int("external", g.cfg.Users-internal))

	now := time.Now()
	inserted := 0
	batch := make([]*models.User, 0, g.cfg.BatchSize)

	// Internal users mirror this run's personnel; the flag is computed
	// against the exclusion sets as they stand right now.
	for _, p := range g.people[:internal] {
		flag := p.orgType != "" && !exRoles[p.roleType] && !exEmps[p.employeeType]
		batch = append(batch, &models.User{
			ExternalID:           nextID,
			ExternalIDDeleteFlag: g.rng.Intn(2) == 0,
			Username:             p.username,
			InternalUserFlag:     flag,
			CreatedAt:            g.fake.dateTimeBetween(now.AddDate(-2, 0, 0), now),
		})
		nextID++
		if len(batch) >= g.cfg.BatchSize {
			inserted += len(g.flushUsers(ctx, batch))
			batch = batch[:0]
		}
	}

	// External users have no personnel behind them and are never
	// internal.
	for i := internal; i < g.cfg.Users; i++ {
		username, err := g.uniqueValue(g.usernames, g.fake.userName)
		if err != nil {
			g.logger.Warn("Skipping user", zap.Error(err))
			continue
		}
		batch = append(batch, &models.User{
			ExternalID:           nextID,
			ExternalIDDeleteFlag: g.rng.Intn(2) == 0,
			Username:             username,
			InternalUserFlag:     false,
			CreatedAt:            g.fake.dateTimeBetween(now.AddDate(-2, 0, 0), now),
		})
		nextID++
		if len(batch) >= g.cfg.BatchSize {
			inserted += len(g.flushUsers(ctx, batch))
			batch = batch[:0]
		}
	}
	inserted += len(g.flushUsers(ctx, batch))

	g.logger.Info("Users generated", zap.Int("inserted", inserted))
	return inserted, nil
}

func (g *Generator) flushUsers(ctx context.Context, batch []*models.User) []*models.User {
	if len(batch) == 0 {
		return nil
	}
	err := g.store.InsertUsers(ctx, batch)
	if err == nil {
		return batch
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		g.logger.Warn("User batch failed, skipping",
			zap.Int("size", len(batch)), zap.Error(err))
		return nil
	}
	kept := make([]*models.User, 0, len(batch))
	for _, u := range batch {
		if err := g.store.InsertUsers(ctx, []*models.User{u}); err != nil {
			g.logger.Warn("Skipping user", zap.String("username", u.Username), zap.Error(err))
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

func (g *Generator) generateConversations(ctx context.Context) (int, error) {
	users, err := g.store.UserRefs(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading user refs: %v", err)
	}
	if len(users) == 0 {
		return 0, errors.New("no users exist; generate users first")
	}
	maxID, err := g.store.MaxConversationExternalID(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading max conversation external id: %v", err)
	}
	nextID := maxID + 1
	if nextID < 2000 {
		nextID = 2000
	}

	g.logger.Info("Generating conversations", zap.Int("target", g.cfg.Conversations))
	now := time.Now()
	start := now.AddDate(0, 0, -21)
	end := now.AddDate(0, 0, -1)

	inserted := 0
	batch := make([]*models.Conversation, 0, g.cfg.BatchSize)
	for i := 0; i < g.cfg.Conversations; i++ {
		owner := users[g.rng.Intn(len(users))]
		batch = append(batch, &models.Conversation{
			ExternalID: nextID,
			UserID:     owner.ExternalID,
			Topic:      g.fake.sentence(),
			CreatedAt:  g.fake.dateTimeBetween(start, end),
			ModelID:    3 + g.rng.Intn(3),
			// Best-effort mirror of the owner's flag; the reconciler
			// corrects it if upstream data changes later.
			DisplayFlag: owner.InternalUserFlag,
		})
		nextID++
		if len(batch) >= g.cfg.BatchSize {
			inserted += len(g.flushConversations(ctx, batch))
			batch = batch[:0]
		}
	}
	inserted += len(g.flushConversations(ctx, batch))

	g.logger.Info("Conversations generated", zap.Int("inserted", inserted))
	return inserted, nil
}

func (g *Generator) flushConversations(ctx context.Context, batch []*models.Conversation) []*models.Conversation {
	if len(batch) == 0 {
		return nil
	}
	err := g.store.InsertConversations(ctx, batch)
	if err == nil {
		return batch
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		g.logger.Warn("Conversation batch failed, skipping",
			zap.Int("size", len(batch)), zap.Error(err))
		return nil
	}
	kept := make([]*models.Conversation, 0, len(batch))
	for _, c := range batch {
		if err := g.store.InsertConversations(ctx, []*models.Conversation{c}); err != nil {
			g.logger.Warn("Skipping conversation", zap.Int64("external_id", c.ExternalID), zap.Error(err))
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// messageIDBase keeps message external ids well clear of every other
// id range even on a fresh schema.
const messageIDBase = 10_000_000

func (g *Generator) generateMessages(ctx context.Context) (int, error) {
	convs, err := g.store.ConversationRefs(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading conversation refs: %v", err)
	}
	if len(convs) == 0 {
		return 0, errors.New("no conversations exist; generate conversations first")
	}
	cats, err := g.store.CategoryMappings(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading category mappings: %v", err)
	}
	if len(cats) == 0 {
		return 0, errors.New("no category mappings loaded; run the taxonomy loader first")
	}
	maxID, err := g.store.MaxMessageExternalID(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reading max message external id: %v", err)
	}
	nextID := maxID + 1
	if nextID < messageIDBase {
		nextID = messageIDBase
	}

	g.logger.Info("Generating messages",
		zap.Int("conversations", len(convs)),
		zap.Int("min_pairs", g.cfg.MinMessagePairs),
		zap.Int("max_pairs", g.cfg.MaxMessagePairs))

	catSampler := newCoverageSampler(len(cats), g.rng)
	inserted := 0
	batch := make([]*models.Message, 0, g.cfg.BatchSize)
	for _, conv := range convs {
		pairs := g.cfg.MinMessagePairs + g.rng.Intn(g.cfg.MaxMessagePairs-g.cfg.MinMessagePairs+1)
		cat := cats[catSampler.next()]
		// One parameter set and one category triple per conversation,
		// repeated on every message in it.
		params := models.ChatParameter{
			Temperature: math.Round((0.1+g.rng.Float64()*0.9)*100) / 100,
			MaxTokens:   50 + g.rng.Intn(1951),
			Model:       g.fake.chatModel(),
		}

		current := conv.CreatedAt
		for p := 0; p < pairs; p++ {
			batch = append(batch, &models.Message{
				ExternalID:            nextID,
				ConversationID:        conv.ExternalID,
				Body:                  g.fake.paragraph(),
				IsBot:                 false,
				ChatParameter:         params,
				CategoryGroup:         cat.CategoryGroupLabel,
				MainCategory:          cat.MainCategoryLabel,
				ChatParameterCategory: cat.ChatParameterCategoryLabel,
				CreatedAt:             current,
			})
			nextID++

			// Bot reply lands 5-50 seconds after the user message.
			current = current.Add(time.Duration(5+g.rng.Intn(46)) * time.Second)
			batch = append(batch, &models.Message{
				ExternalID:            nextID,
				ConversationID:        conv.ExternalID,
				Body:                  g.fake.paragraph(),
				IsBot:                 true,
				ChatParameter:         params,
				CategoryGroup:         cat.CategoryGroupLabel,
				MainCategory:          cat.MainCategoryLabel,
				ChatParameterCategory: cat.ChatParameterCategoryLabel,
				CreatedAt:             current,
			})
			nextID++

			// Next pair starts 1-10 minutes after the reply.
			current = current.Add(time.Duration(1+g.rng.Intn(10)) * time.Minute)

			if len(batch) >= g.cfg.BatchSize {
				inserted += len(g.flushMessages(ctx, batch))
				batch = batch[:0]
			}
		}
	}
	inserted += len(g.flushMessages(ctx, batch))

	g.logger.Info("Messages generated", zap.Int("inserted", inserted))
	return inserted, nil
}

func (g *Generator) flushMessages(ctx context.Context, batch []*models.Message) []*models.Message {
	if len(batch) == 0 {
		return nil
	}
	err := g.store.InsertMessages(ctx, batch)
	if err == nil {
		return batch
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		g.logger.Warn("Message batch failed, skipping",
			zap.Int("size", len(batch)), zap.Error(err))
		return nil
	}
	kept := make([]*models.Message, 0, len(batch))
	for _, m := range batch {
		if err := g.store.InsertMessages(ctx, []*models.Message{m}); err != nil {
			g.logger.Warn("Skipping message", zap.Int64("external_id", m.ExternalID), zap.Error(err))
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func (g *Generator) generateTags(ctx context.Context) (int, error) {
	g.logger.Info("Generating tags", zap.Int("target", g.cfg.Tags))
	now := time.Now()

	inserted := 0
	batch := make([]*models.Tag, 0, g.cfg.BatchSize)
	for i := 0; i < g.cfg.Tags; i++ {
		name, err := g.uniqueValue(g.tagNames, g.fake.word)
		if err != nil {
			g.logger.Warn("Skipping tag", zap.Error(err))
			continue
		}
		batch = append(batch, &models.Tag{
			Name:      name,
			CreatedAt: g.fake.dateTimeBetween(now.AddDate(-1, 0, 0), now),
		})
		if len(batch) >= g.cfg.BatchSize {
			inserted += len(g.flushTags(ctx, batch))
			batch = batch[:0]
		}
	}
	inserted += len(g.flushTags(ctx, batch))

	g.logger.Info("Tags generated", zap.Int("inserted", inserted))
	return inserted, nil
}

func (g *Generator) flushTags(ctx context.Context, batch []*models.Tag) []*models.Tag {
	if len(batch) == 0 {
		return nil
	}
	err := g.store.InsertTags(ctx, batch)
	if err == nil {
		return batch
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		g.logger.Warn("Tag batch failed, skipping", zap.Int("size", len(batch)), zap.Error(err))
		return nil
	}
	kept := make([]*models.Tag, 0, len(batch))
	for _, t := range batch {
		if err := g.store.InsertTags(ctx, []*models.Tag{t}); err != nil {
			g.logger.Warn("Skipping tag", zap.String("name", t.Name), zap.Error(err))
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// generateMessageTags links random tags to random messages. Nothing
// downstream depends on these rows, so an empty parent pool just skips
// the phase.
func (g *Generator) generateMessageTags(ctx context.Context) int {
	msgs, err := g.store.MessageRefs(ctx)
	if err != nil {
		g.logger.Warn("Skipping message tags", zap.Error(err))
		return 0
	}
	tagIDs, err := g.store.TagIDs(ctx)
	if err != nil {
		g.logger.Warn("Skipping message tags", zap.Error(err))
		return 0
	}
	if len(msgs) == 0 || len(tagIDs) == 0 {
		g.logger.Warn("No messages or tags to link, skipping message tags")
		return 0
	}

	g.logger.Info("Generating message tags", zap.Int("target", g.cfg.MessageTags))
	now := time.Now()

	inserted := 0
	batch := make([]*models.MessageTag, 0, g.cfg.BatchSize)
	for i := 0; i < g.cfg.MessageTags; i++ {
		msg := msgs[g.rng.Intn(len(msgs))]
		batch = append(batch, &models.MessageTag{
			MessageID: msg.ExternalID,
			TagID:     tagIDs[g.rng.Intn(len(tagIDs))],
			// Tagging can only happen after the message exists.
			CreatedAt: g.fake.dateTimeBetween(msg.CreatedAt, now),
		})
		if len(batch) >= g.cfg.BatchSize {
			inserted += g.flushMessageTags(ctx, batch)
			batch = batch[:0]
		}
	}
	inserted += g.flushMessageTags(ctx, batch)

	g.logger.Info("Message tags generated", zap.Int("inserted", inserted))
	return inserted
}

func (g *Generator) flushMessageTags(ctx context.Context, batch []*models.MessageTag) int {
	if len(batch) == 0 {
		return 0
	}
	if err := g.store.InsertMessageTags(ctx, batch); err != nil {
		g.logger.Warn("Message tag batch failed, skipping",
			zap.Int("size", len(batch)), zap.Error(err))
		return 0
	}
	return len(batch)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
