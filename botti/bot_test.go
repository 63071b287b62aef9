package botti

import (
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundFromMessage(t *testing.T) {
	guildID := snowflake.ID(1)
	refID := snowflake.ID(55)
	msg := discord.Message{
		ID:        snowflake.ID(100),
		ChannelID: snowflake.ID(10),
		GuildID:   &guildID,
		Author:    discord.User{ID: snowflake.ID(7), Username: "tester", Discriminator: "0"},
		Content:   "moro kaikki",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Attachments: []discord.Attachment{
			{ID: snowflake.ID(1)},
		},
		MessageReference: &discord.MessageReference{MessageID: &refID},
		Mentions:         []discord.User{{ID: snowflake.ID(8)}},
		Reactions: []discord.MessageReaction{
			{Emoji: discord.Emoji{ID: snowflake.ID(900), Name: "megis"}, Count: 3},
			{Emoji: discord.Emoji{Name: "👍"}, Count: 5},
		},
	}

	in := InboundFromMessage(msg)

	assert.Equal(t, msg.ID, in.ID)
	assert.Equal(t, msg.Author.ID, in.AuthorID)
	assert.Equal(t, "tester", in.AuthorName)
	assert.Equal(t, snowflake.ID(10), in.ChannelID)
	assert.Equal(t, 1, in.Attachments)
	assert.Equal(t, refID, in.ReferenceID)
	assert.Equal(t, snowflake.ID(8), in.MentionedUserID)
	assert.Equal(t, "https://discord.com/channels/1/10/100", in.JumpURL)

	// unicode reactions have no emoji ID and stay out
	require.Len(t, in.Reactions, 1)
	assert.Equal(t, snowflake.ID(900), in.Reactions[0].EmojiID)
	assert.Equal(t, 3, in.Reactions[0].Count)
}
