package domain

import (
	"time"

	"gorm.io/gorm"
)

// Role represents who authored a conversation turn
type Role string

const (
	// RoleUser - Turn written by the person asking for support
	RoleUser Role = "user"
	// RoleAssistant - Turn produced by the reply resolver
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role belongs to the closed set of turn roles
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// TurnID identifies a stored turn. IDs are assigned by the store in insertion order.
type TurnID uint64

// Session struct - Conversation identity with activity timestamps
type Session struct {
	ID        string    `gorm:"type:text;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

// TableName func
func (Session) TableName() string {
	return "sessions"
}

// Turn struct - One immutable message of a conversation
type Turn struct {
	ID        TurnID    `gorm:"primaryKey;autoIncrement"`
	SessionID string    `gorm:"type:text;not null;index:idx_messages_session_created,priority:1"`
	Role      Role      `gorm:"type:varchar(16);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_messages_session_created,priority:2"`
}

// TableName func
func (Turn) TableName() string {
	return "messages"
}

// MigrateDatabase func - Auto-migrate the sessions and messages tables
func MigrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(&Session{}, &Turn{})
}

// Reply is the outcome of resolving a user message
type Reply struct {
	Text       string
	TokensUsed int
	// Rule names the demo rule that produced the reply, empty for generated replies
	Rule string
}
