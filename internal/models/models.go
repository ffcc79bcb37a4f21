package models

import "time"

// Organization is an org-chart node personnel records point at through
// their department code.
type Organization struct {
	ID                     int64     `json:"id"`
	ExternalDepartmentCode string    `json:"external_department_code"`
	ExternalDivisionCode   string    `json:"external_division_code"`
	ExternalSectionCode    string    `json:"external_section_code"`
	Field                  string    `json:"field"`
	FieldDetail            string    `json:"field_detail"`
	Region                 string    `json:"region"`
	Branch                 string    `json:"branch"`
	Abbreviation           string    `json:"abbreviation"`
	CreatedAt              time.Time `json:"created_at"`
}

// Personnel is an HR record. Optional text columns hold "" when unset;
// the head flags are tri-state (yes/no/unset) and stay strings for that
// reason.
type Personnel struct {
	ID                 int64  `json:"id"`
	ExternalUsername   string `json:"external_username"`
	EntryYear          int    `json:"entry_year"`
	DepartmentCode     string `json:"department_code"`
	BranchCode         string `json:"branch_code"`
	HeadOfficeName     string `json:"head_office_name"`
	BranchName         string `json:"branch_name"`
	SectionName        string `json:"section_name"`
	SalesOfficeName    string `json:"sales_office_name"`
	OrganizationType   string `json:"organization_type"`
	EmployeeType       string `json:"employee_type"`
	RoleType           string `json:"role_type"`
	IsOrganizationHead string `json:"is_organization_head"`
	IsDepartmentHead   string `json:"is_department_head"`
}

// User is a chat-service account. InternalUserFlag is derived: it must
// equal the internal-user predicate evaluated against the current
// Personnel and taxonomy state.
type User struct {
	ID                   int64     `json:"id"`
	ExternalID           int64     `json:"external_id"`
	ExternalIDDeleteFlag bool      `json:"external_id_delete_flag"`
	Username             string    `json:"username"`
	InternalUserFlag     bool      `json:"internal_user_flag"`
	CreatedAt            time.Time `json:"created_at"`
}

type Conversation struct {
	ID          int64     `json:"id"`
	ExternalID  int64     `json:"external_id"`
	UserID      int64     `json:"user_id"` // references User.ExternalID
	Topic       string    `json:"topic"`
	CreatedAt   time.Time `json:"created_at"`
	ModelID     int       `json:"model_id"`
	DisplayFlag bool      `json:"display_flag"`
}

// ChatParameter is the per-conversation inference settings blob stored
// as JSON on every message.
type ChatParameter struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Model       string  `json:"model"`
}

// Message belongs to a conversation via Conversation.ExternalID. The
// category triple is picked once per conversation and repeated on each
// of its messages.
type Message struct {
	ID                    int64         `json:"id"`
	ExternalID            int64         `json:"external_id"`
	ConversationID        int64         `json:"conversation_id"`
	Body                  string        `json:"message"`
	IsBot                 bool          `json:"is_bot"`
	ChatParameter         ChatParameter `json:"chat_parameter"`
	CategoryGroup         string        `json:"category_group"`
	MainCategory          string        `json:"main_category"`
	ChatParameterCategory string        `json:"chat_parameter_category"`
	CreatedAt             time.Time     `json:"created_at"`
}

type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageTag links a tag to a message via Message.ExternalID. Its
// CreatedAt is never earlier than the message's.
type MessageTag struct {
	ID        int64     `json:"id"`
	MessageID int64     `json:"message_id"`
	TagID     int64     `json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRef is the slice of a user the conversation generator needs.
type UserRef struct {
	ExternalID       int64
	InternalUserFlag bool
}

// ConversationRef is the slice of a conversation the message generator
// needs.
type ConversationRef struct {
	ExternalID int64
	CreatedAt  time.Time
}

// MessageRef is the slice of a message the tag linker needs.
type MessageRef struct {
	ExternalID int64
	CreatedAt  time.Time
}
