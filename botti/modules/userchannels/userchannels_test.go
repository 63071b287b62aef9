package userchannels

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/registry"
)

func TestChannelName(t *testing.T) {
	assert.Equal(t, "mattimeikäläinen1", channelName("Matti. Meikäläinen#1,"))
	assert.Equal(t, "jaska", channelName("jaska"))
}

func TestSweepDueOncePerHour(t *testing.T) {
	m := &Module{}
	at := time.Date(2024, 3, 10, 12, 10, 0, 0, time.UTC)

	assert.True(t, m.sweepDue(at), "first check after boot is due")
	assert.False(t, m.sweepDue(at.Add(30*time.Minute)), "same hour stays quiet")
	assert.True(t, m.sweepDue(at.Add(75*time.Minute)), "next hour is due again")
	assert.False(t, m.sweepDue(at), "the clock never runs backwards")
}

func TestChannelLookups(t *testing.T) {
	m := &Module{
		path: filepath.Join(t.TempDir(), "user_channels.json"),
		channels: []*Channel{
			{Owner: 1, ID: 9},
			{Owner: 2, ID: 11},
		},
	}

	assert.Equal(t, snowflake.ID(9), m.byOwner(1).ID)
	assert.Nil(t, m.byOwner(3))
	assert.Equal(t, snowflake.ID(1), m.byID(9).Owner)
	assert.True(t, m.Has(11))
	assert.False(t, m.Has(12))

	m.remove(9)
	assert.Nil(t, m.byOwner(1))
	assert.True(t, m.Has(11), "the other channel survives")
}

func TestUnbanWithoutChannel(t *testing.T) {
	m := &Module{}
	assert.Equal(t, UnbanNoChannel, m.Unban(1, 2))
}

func TestOwnerAndBannedAreLeftAlone(t *testing.T) {
	m := &Module{bot: &botti.Bot{Registry: registry.New(nil)}}
	ch := &Channel{Owner: 1, ID: 9, BannedUsers: []snowflake.ID{5}}
	m.channels = []*Channel{ch}

	m.banFromChannel(ch, 1, "omistaja")
	m.banFromChannel(ch, 5, "jobanni")
	assert.Equal(t, []snowflake.ID{5}, ch.BannedUsers)
}

func TestRetentionDefaultsToOneHour(t *testing.T) {
	m := &Module{bot: &botti.Bot{Registry: registry.New(nil)}}
	assert.Equal(t, time.Hour, m.retention(&Channel{Owner: 404}))
}

func TestSidecarRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_channels.json")
	m := &Module{path: path, channels: []*Channel{{
		Owner:       1,
		BannedUsers: []snowflake.ID{5},
		ID:          9,
		PinMessage:  7,
		LastMessage: 1700000000,
	}}}
	m.mu.Lock()
	m.saveLocked()
	m.mu.Unlock()

	var loaded []*Channel
	require.NoError(t, botti.LoadJSON(path, &loaded))
	require.Len(t, loaded, 1)
	assert.Equal(t, snowflake.ID(1), loaded[0].Owner)
	assert.Equal(t, snowflake.ID(9), loaded[0].ID)
	assert.Equal(t, snowflake.ID(7), loaded[0].PinMessage)
	assert.Equal(t, []snowflake.ID{5}, loaded[0].BannedUsers)
	assert.EqualValues(t, 1700000000, loaded[0].LastMessage)
}
