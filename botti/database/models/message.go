package models

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// Message is a scored message row. Content itself is never persisted,
// only content-derived counters.
type Message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID               snowflake.ID `bun:"id,pk"`
	UserID           snowflake.ID `bun:"user_id,notnull"`
	Attachments      int          `bun:"attachments,notnull,default:0"`
	JumpURL          string       `bun:"jump_url"`
	Reference        snowflake.ID `bun:"reference,nullzero"`
	CreatedAt        int64        `bun:"created_at,notnull"`
	MentionsEveryone bool         `bun:"mentions_everyone,notnull,default:false"`
	MentionedUserID  snowflake.ID `bun:"mentioned_user_id,nullzero"`
	Length           int          `bun:"length,notnull,default:1"`
	IsGif            bool         `bun:"is_gif,notnull,default:false"`
	HasEmoji         bool         `bun:"has_emoji,notnull,default:false"`
	IsBotCommand     bool         `bun:"is_bot_command,notnull,default:false"`
	ActivityPoints   int          `bun:"activity_points,notnull,default:0"`
}

// Reaction counts a tracked emoji's reactions on a message.
type Reaction struct {
	bun.BaseModel `bun:"table:reactions,alias:r"`

	MessageID snowflake.ID `bun:"message_id,notnull"`
	EmojiID   snowflake.ID `bun:"emoji_id"`
	Count     int          `bun:"count,notnull,default:0"`

	IsInDatabase bool `bun:"-"`
}
