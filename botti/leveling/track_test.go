package leveling

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
)

func TestScoringTrackCreditCap(t *testing.T) {
	track := NewScoringTrack()
	user := snowflake.ID(1)

	assert.Equal(t, 60, track.Credit(user, 60))
	assert.Equal(t, 60, track.Credit(user, 60))
	assert.Equal(t, 60, track.Credit(user, 60))
	assert.Equal(t, 60, track.Credit(user, 60))
	// 240 earned, the next grant saturates at the cap
	assert.Equal(t, 16, track.Credit(user, 60))
	assert.Equal(t, 0, track.Credit(user, 60))

	// other users have their own budget
	assert.Equal(t, 60, track.Credit(snowflake.ID(2), 60))
}

func TestScoringTrackRollover(t *testing.T) {
	track := NewScoringTrack()
	user := snowflake.ID(1)

	track.Remember("moro")
	track.Credit(user, MaxPointsPerBucket)

	assert.False(t, track.Rollover(track.bucket))
	assert.True(t, track.Seen("moro"))
	assert.Equal(t, 0, track.Credit(user, 10))

	assert.True(t, track.Rollover(7))
	assert.False(t, track.Seen("moro"))
	assert.Equal(t, 10, track.Credit(user, 10))
}
