package dto

import "time"

// DashboardSummary carries the aggregate counts for one activity.
type DashboardSummary struct {
	ActivityName      string          `json:"activity_name"`
	ChatVisibility    bool            `json:"chat_visibility"`
	MemberCount       int             `json:"member_count"`
	ConsentedCount    int             `json:"consented_count"`
	ConversationCount int             `json:"conversation_count"`
	MessageCount      int             `json:"message_count"`
	ActiveLast7Days   int             `json:"active_last_7_days"`
	Timeline          []TimelineEntry `json:"timeline"`
}

// TimelineEntry is one day bucket of conversation activity.
type TimelineEntry struct {
	Date          string `json:"date"`
	Conversations int    `json:"conversations"`
}

// MemberSummary is an anonymized member row. It never exposes the LMS user
// id, the session identity or the display name.
type MemberSummary struct {
	Pseudonym    string     `json:"pseudonym"`
	Consented    bool       `json:"consented"`
	LaunchCount  uint       `json:"launch_count"`
	LastAccessAt *time.Time `json:"last_access_at"`
}

// ConversationSummary is an anonymized conversation row.
type ConversationSummary struct {
	ID            uint      `json:"id"`
	Pseudonym     string    `json:"pseudonym"`
	AssistantName string    `json:"assistant_name"`
	MessageCount  uint      `json:"message_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TranscriptMessage is one anonymized transcript turn.
type TranscriptMessage struct {
	Speaker   string    `json:"speaker"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript is a full anonymized conversation.
type Transcript struct {
	ID            uint                `json:"id"`
	Pseudonym     string              `json:"pseudonym"`
	AssistantName string              `json:"assistant_name"`
	Messages      []TranscriptMessage `json:"messages"`
}

// Page wraps a paginated list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}
