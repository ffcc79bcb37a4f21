package models

// RoleType is a fixed taxonomy row. DisplayFlag=false means the role
// currently counts as excluded from the internal-user predicate.
type RoleType struct {
	ID          int64  `json:"id"`
	Name        string `json:"role_type"`
	DisplayFlag bool   `json:"display_flag"`
}

// EmployeeType mirrors RoleType, including the exclusion semantics of
// DisplayFlag.
type EmployeeType struct {
	ID          int64  `json:"id"`
	Name        string `json:"employee_type"`
	DisplayFlag bool   `json:"display_flag"`
}

type OrganizationType struct {
	ID   int64  `json:"id"`
	Name string `json:"organization_type"`
}

// FieldMapping declares a valid (field, field_detail) pair. Organizations
// must take both values from the same row, never mixed.
type FieldMapping struct {
	ID          int64  `json:"id"`
	Field       string `json:"field"`
	FieldDetail string `json:"field_detail"`
}

type Abbreviation struct {
	ID    int64  `json:"id"`
	Value string `json:"abbreviation"`
}

// CategoryMapping is one row of the category triple vocabulary a
// conversation's messages are labeled with.
type CategoryMapping struct {
	ID                         int64  `json:"id"`
	CategoryGroup              string `json:"category_group"`
	CategoryGroupLabel         string `json:"category_group_label"`
	MainCategory               string `json:"main_category"`
	MainCategoryLabel          string `json:"main_category_label"`
	ChatParameterCategory      string `json:"chat_parameter_category"`
	ChatParameterCategoryLabel string `json:"chat_parameter_category_label"`
}
