package generator

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/chatseed/internal/taxonomy"
)

// faker produces locale-appropriate surface text from fixed word pools.
// Only the text varies by locale; every structural property of the
// generated data is locale-independent.
type faker struct {
	rng   *rand.Rand
	vocab textVocab
}

type textVocab struct {
	firstNames      []string
	cities          []string
	companies       []string
	companySuffixes []string
	words           []string
	chatModels      []string
}

var enVocab = textVocab{
	firstNames: []string{
		"james", "mary", "robert", "patricia", "john", "jennifer", "michael",
		"linda", "david", "elizabeth", "william", "barbara", "richard", "susan",
		"joseph", "jessica", "thomas", "sarah", "charles", "karen", "daniel",
		"nancy", "matthew", "lisa", "anthony", "betty", "mark", "sandra",
		"steven", "ashley", "paul", "kimberly", "andrew", "emily", "joshua",
		"donna", "kevin", "michelle", "brian", "amanda", "george", "melissa",
		"edward", "deborah", "ronald", "stephanie", "timothy", "rebecca",
	},
	cities: []string{
		"Springfield", "Riverside", "Franklin", "Greenville", "Bristol",
		"Clinton", "Fairview", "Salem", "Madison", "Georgetown", "Arlington",
		"Ashland", "Burlington", "Manchester", "Oxford", "Jackson", "Milton",
		"Auburn", "Dayton", "Lexington",
	},
	companies: []string{
		"Northwind", "Contoso", "Fabrikam", "Globex", "Initech", "Umbrella",
		"Acme", "Stark", "Wayne", "Cyberdyne", "Hooli", "Vandelay",
		"Wonka", "Dunder", "Sterling", "Pied Piper",
	},
	companySuffixes: []string{
		"Inc", "LLC", "Group", "Holdings", "Partners", "Ltd", "Corp", "and Sons",
	},
	words: []string{
		"policy", "premium", "coverage", "claim", "renewal", "contract",
		"accident", "payment", "inquiry", "document", "procedure", "deadline",
		"estimate", "approval", "customer", "branch", "system", "report",
		"schedule", "meeting", "training", "product", "campaign", "review",
		"guideline", "manual", "update", "confirmation", "application", "status",
		"summary", "request", "notice", "history", "account", "support",
	},
	chatModels: []string{"gpt-3.5-turbo", "gpt-4", "claude-3-sonnet"},
}

var jaVocab = textVocab{
	firstNames: []string{
		"sato", "suzuki", "takahashi", "tanaka", "watanabe", "ito", "yamamoto",
		"nakamura", "kobayashi", "kato", "yoshida", "yamada", "sasaki",
		"yamaguchi", "matsumoto", "inoue", "kimura", "hayashi", "shimizu",
		"saito", "mori", "ikeda", "hashimoto", "abe", "ishikawa", "ogawa",
		"goto", "okada", "hasegawa", "murakami", "kondo", "ishii", "maeda",
		"fujita", "sakamoto", "endo", "aoki", "fujii", "nishimura", "fukuda",
	},
	cities: []string{
		"東京", "横浜", "大阪", "名古屋", "札幌", "福岡", "神戸", "川崎",
		"京都", "さいたま", "広島", "仙台", "千葉", "北九州", "堺", "新潟",
		"浜松", "熊本", "相模原", "岡山",
	},
	companies: []string{
		"東海興業", "日東商事", "大和物産", "丸山産業", "北斗興産", "旭日商会",
		"三崎実業", "富士見興業", "山城物流", "若葉商事", "青葉実業", "港南産業",
		"雲仙興産", "白鳥商会", "高砂実業", "千早興業",
	},
	companySuffixes: []string{
		"株式会社", "有限会社", "合同会社", "事業部", "営業部", "支社", "支店", "営業所",
	},
	words: []string{
		"契約", "保険料", "補償", "請求", "更改", "証券", "事故", "支払",
		"照会", "書類", "手続", "期限", "見積", "承認", "顧客", "支店",
		"システム", "報告", "日程", "会議", "研修", "商品", "施策", "確認",
		"規程", "マニュアル", "更新", "回答", "申込", "状況", "概要", "依頼",
		"通知", "履歴", "口座", "対応",
	},
	chatModels: []string{"gpt-3.5-turbo-ja", "gpt-4-ja", "claude-3-sonnet-ja"},
}

func newFaker(locale taxonomy.Locale, rng *rand.Rand) *faker {
	vocab := enVocab
	if locale == taxonomy.LocaleJA {
		vocab = jaVocab
	}
	return &faker{rng: rng, vocab: vocab}
}

func (f *faker) pick(pool []string) string {
	return pool[f.rng.Intn(len(pool))]
}

func (f *faker) firstName() string { return f.pick(f.vocab.firstNames) }
func (f *faker) city() string      { return f.pick(f.vocab.cities) }
func (f *faker) word() string      { return f.pick(f.vocab.words) }
func (f *faker) chatModel() string { return f.pick(f.vocab.chatModels) }

func (f *faker) company() string {
	return f.pick(f.vocab.companies) + " " + f.pick(f.vocab.companySuffixes)
}

func (f *faker) companySuffix() string {
	return f.pick(f.vocab.companySuffixes)
}

// userName builds a base username; uniqueness is the caller's problem.
func (f *faker) userName() string {
	switch f.rng.Intn(4) {
	case 0:
		return f.firstName() + "." + f.firstName()
	case 1:
		return f.firstName() + "_" + strconv.Itoa(f.rng.Intn(9999)+1)
	case 2:
		return f.firstName() + "_" + romanWord(f.rng)
	default:
		return f.bothify("??_###?")
	}
}

func (f *faker) sentence() string {
	n := 4 + f.rng.Intn(5)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = f.word()
	}
	return strings.Join(parts, " ") + "."
}

func (f *faker) paragraph() string {
	n := 2 + f.rng.Intn(3)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = f.sentence()
	}
	return strings.Join(parts, " ")
}

const (
	bothifyLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	bothifyDigits  = "0123456789"
	asciiLower     = "abcdefghijklmnopqrstuvwxyz"
)

// bothify fills a pattern: '?' becomes a random upper-case letter and
// '#' a random digit. Anything else passes through.
func (f *faker) bothify(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for _, c := range pattern {
		switch c {
		case '?':
			b.WriteByte(bothifyLetters[f.rng.Intn(len(bothifyLetters))])
		case '#':
			b.WriteByte(bothifyDigits[f.rng.Intn(len(bothifyDigits))])
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func (f *faker) dateTimeBetween(start, end time.Time) time.Time {
	if !end.After(start) {
		return start
	}
	span := end.Sub(start)
	return start.Add(time.Duration(f.rng.Int63n(int64(span))))
}

// romanWord makes a short ascii token usable inside a username for any
// locale.
func romanWord(rng *rand.Rand) string {
	n := 3 + rng.Intn(4)
	b := make([]byte, n)
	for i := range b {
		b[i] = asciiLower[rng.Intn(len(asciiLower))]
	}
	return string(b)
}

// uniqueSet tracks natural-key values claimed during a run. It is
// process-local and must be seeded from the store before resuming on a
// non-empty schema.
type uniqueSet struct {
	used map[string]struct{}
}

func newUniqueSet() *uniqueSet {
	return &uniqueSet{used: make(map[string]struct{})}
}

func (s *uniqueSet) seed(values []string) {
	for _, v := range values {
		s.used[v] = struct{}{}
	}
}

// claim reports whether v was free and marks it taken.
func (s *uniqueSet) claim(v string) bool {
	if _, ok := s.used[v]; ok {
		return false
	}
	s.used[v] = struct{}{}
	return true
}

func (s *uniqueSet) len() int { return len(s.used) }

// coverageSampler serves indexes into a fixed vocabulary: every index
// comes out once, in shuffled order, before any index repeats. After
// the coverage pass it degrades to uniform random.
type coverageSampler struct {
	rng   *rand.Rand
	n     int
	queue []int
}

func newCoverageSampler(n int, rng *rand.Rand) *coverageSampler {
	return &coverageSampler{rng: rng, n: n, queue: rng.Perm(n)}
}

func (s *coverageSampler) next() int {
	if len(s.queue) > 0 {
		idx := s.queue[0]
		s.queue = s.queue[1:]
		return idx
	}
	return s.rng.Intn(s.n)
}
