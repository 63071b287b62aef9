package moderation

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakkee/eetubotti/botti"
)

func TestClampHours(t *testing.T) {
	assert.Equal(t, 1, ClampHours(0))
	assert.Equal(t, 1, ClampHours(-5))
	assert.Equal(t, 12, ClampHours(12))
	assert.Equal(t, 18, ClampHours(100))
}

func TestTooLongPaste(t *testing.T) {
	lines := ""
	for i := 0; i < 35; i++ {
		lines += "rivi\n"
	}

	msg := discord.Message{Content: lines}
	assert.False(t, tooLongPaste(msg), "plain text walls are allowed")

	msg.Embeds = []discord.Embed{{Description: lines + "jotain pitkää tekstiä"}}
	assert.True(t, tooLongPaste(msg))

	msg.Embeds[0].Description = "lyhyt"
	assert.False(t, tooLongPaste(msg))

	msg.Content = "lyhyt viesti"
	msg.Embeds[0].Description = lines
	assert.False(t, tooLongPaste(msg), "short content never triggers")
}

func TestExpirySweepThrottle(t *testing.T) {
	m := &Module{
		bans:     map[snowflake.ID]time.Time{},
		mutes:    map[snowflake.ID]time.Time{},
		timeouts: map[snowflake.ID]time.Time{},
		now:      time.Now,
	}
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	m.timeouts[1] = at.Add(-time.Minute)
	m.CheckExpirations(at)
	assert.Empty(t, m.timeouts, "expired timeout tracking is dropped")

	// a sweep right after the previous one is a no-op
	m.timeouts[2] = at.Add(-time.Minute)
	m.CheckExpirations(at.Add(2 * time.Second))
	assert.Len(t, m.timeouts, 1)

	m.CheckExpirations(at.Add(10 * time.Second))
	assert.Empty(t, m.timeouts)
}

func TestBanPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.json")
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	m := &Module{path: path, bans: map[snowflake.ID]time.Time{5: at.Add(3 * time.Hour)}}
	m.saveLocked()

	raw := map[string]int64{}
	require.NoError(t, botti.LoadJSON(path, &raw))
	assert.Equal(t, at.Add(3*time.Hour).Unix(), raw["5"])
}
