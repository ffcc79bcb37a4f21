package taxonomy

// Locale selects which fixed vocabulary a run seeds and generates
// surface text from. Structural invariants do not depend on it.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleJA Locale = "ja"
)

// FieldPair is a declared (field, field_detail) combination. The two
// values always travel together; organizations never mix them.
type FieldPair struct {
	Field       string
	FieldDetail string
}

// CategoryTriple is one row of the conversation category vocabulary.
type CategoryTriple struct {
	Group          string
	GroupLabel     string
	Main           string
	MainLabel      string
	Parameter      string
	ParameterLabel string
}

// Values holds every fixed reference set for one locale.
type Values struct {
	RoleTypes         []string
	EmployeeTypes     []string
	OrganizationTypes []string
	Abbreviations     []string
	FieldPairs        []FieldPair
	Categories        []CategoryTriple
	Regions           []string
}

var enValues = Values{
	RoleTypes: []string{
		"Manager", "Director", "Associate", "Senior Associate",
		"Vice President", "Senior Vice President", "Executive Director",
		"Managing Director", "Analyst", "Senior Analyst", "Specialist",
		"Team Lead", "Department Head", "Supervisor", "Consultant",
		"Senior Consultant",
	},
	EmployeeTypes: []string{
		"Full-time", "Part-time", "Contract", "Temporary", "Seconded",
	},
	OrganizationTypes: []string{
		"Corporate", "Sales", "Branch", "Other",
	},
	Abbreviations: []string{
		"HQ", "TKO", "OSK", "NGY", "FKO", "SPR", "SND", "HRS", "KYT", "YKH",
	},
	FieldPairs: []FieldPair{
		{"Property & Casualty", "Auto Insurance"},
		{"Property & Casualty", "Fire Insurance"},
		{"Property & Casualty", "Marine Insurance"},
		{"Life", "Whole Life Insurance"},
		{"Life", "Term Life Insurance"},
		{"Health", "Medical Insurance"},
		{"Health", "Cancer Insurance"},
		{"Retirement", "Individual Annuity"},
	},
	Categories: []CategoryTriple{
		{"policy", "Policy", "underwriting", "Underwriting", "new_contract", "New Contract"},
		{"policy", "Policy", "underwriting", "Underwriting", "renewal", "Renewal"},
		{"policy", "Policy", "endorsement", "Endorsement", "address_change", "Address Change"},
		{"claims", "Claims", "accident", "Accident Reception", "auto_accident", "Auto Accident"},
		{"claims", "Claims", "accident", "Accident Reception", "property_damage", "Property Damage"},
		{"claims", "Claims", "payment", "Claim Payment", "payment_status", "Payment Status"},
		{"products", "Products", "explanation", "Product Explanation", "coverage_detail", "Coverage Detail"},
		{"products", "Products", "comparison", "Product Comparison", "premium_quote", "Premium Quote"},
		{"internal", "Internal", "procedures", "Office Procedures", "system_usage", "System Usage"},
	},
	Regions: []string{
		"Tokyo", "Osaka", "Nagoya", "Fukuoka", "Sapporo", "Sendai",
		"Hiroshima", "Kyoto",
	},
}

var jaValues = Values{
	RoleTypes: []string{
		"マネージャー", "ディレクター", "アソシエイト", "アナリスト",
		"部長", "次長", "課長", "係長", "主任", "一般社員",
		"支店長", "営業所長", "スペシャリスト", "コンサルタント",
		"嘱託", "派遣",
	},
	EmployeeTypes: []string{
		"正社員", "パートタイム", "契約社員", "嘱託社員", "出向社員",
	},
	OrganizationTypes: []string{
		"本社", "営業", "各支店", "その他",
	},
	Abbreviations: []string{
		"本社", "東京", "大阪", "名古屋", "福岡", "札幌", "仙台", "広島", "京都", "横浜",
	},
	FieldPairs: []FieldPair{
		{"損害保険", "自動車保険"},
		{"損害保険", "火災保険"},
		{"損害保険", "海上保険"},
		{"生命保険", "終身保険"},
		{"生命保険", "定期保険"},
		{"医療保険", "医療保障"},
		{"医療保険", "がん保険"},
		{"年金", "個人年金"},
	},
	Categories: []CategoryTriple{
		{"policy", "契約", "underwriting", "引受", "new_contract", "新規契約"},
		{"policy", "契約", "underwriting", "引受", "renewal", "更改"},
		{"policy", "契約", "endorsement", "異動", "address_change", "住所変更"},
		{"claims", "保険金", "accident", "事故受付", "auto_accident", "自動車事故"},
		{"claims", "保険金", "accident", "事故受付", "property_damage", "物損"},
		{"claims", "保険金", "payment", "保険金支払", "payment_status", "支払状況"},
		{"products", "商品", "explanation", "商品説明", "coverage_detail", "補償内容"},
		{"products", "商品", "comparison", "商品比較", "premium_quote", "保険料見積"},
		{"internal", "社内", "procedures", "事務手続", "system_usage", "システム利用"},
	},
	Regions: []string{
		"東京", "大阪", "名古屋", "福岡", "札幌", "仙台", "広島", "京都",
	},
}

// ValuesFor returns the fixed reference sets for a locale, defaulting to
// English for anything unrecognized.
func ValuesFor(locale Locale) Values {
	if locale == LocaleJA {
		return jaValues
	}
	return enValues
}
