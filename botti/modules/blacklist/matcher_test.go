package blacklist

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
)

func TestMatchExactString(t *testing.T) {
	var m Matcher
	assert.True(t, m.AddString("Huono Meemi"))
	assert.False(t, m.AddString("huono meemi"), "duplicates are rejected")

	hit, what := m.Match("HUONO MEEMI", nil)
	assert.True(t, hit)
	assert.Equal(t, "HUONO MEEMI", what)

	hit, _ = m.Match("huono meemi tässä", nil)
	assert.False(t, hit, "exact entries do not match substrings")
}

func TestMatchURLEncodedContent(t *testing.T) {
	var m Matcher
	m.AddString("häly ääni")

	hit, _ := m.Match("h%C3%A4ly+%C3%A4%C3%A4ni", nil)
	assert.True(t, hit)
}

func TestMatchList(t *testing.T) {
	var m Matcher
	m.AddList([]string{"osta", "halvalla"})

	hit, _ := m.Match("OSTA nyt todella HALVALLA", nil)
	assert.True(t, hit)
	hit, _ = m.Match("osta nyt", nil)
	assert.False(t, hit, "every part must appear")

	var empty Matcher
	empty.AddList(nil)
	hit, _ = empty.Match("anything", nil)
	assert.False(t, hit, "an empty list never matches")
}

func TestMatchFile(t *testing.T) {
	var m Matcher
	assert.True(t, m.AddFile(File{Width: 640, Height: 480, Size: 12345}))
	assert.False(t, m.AddFile(File{Width: 640, Height: 480, Size: 12345}))

	hit, what := m.Match("", []Attachment{{Width: 640, Height: 480, Size: 12345}})
	assert.True(t, hit)
	assert.Equal(t, "File: height 480 px, width 640 px, size 12345", what)

	hit, _ = m.Match("", []Attachment{{Width: 640, Height: 480, Size: 99}})
	assert.False(t, hit)
}

func TestHostedMediaSlug(t *testing.T) {
	assert.Equal(t, "FunnyCat", hostedMediaSlug("https://gfycat.com/FunnyCat.gif"))
	assert.Equal(t, "aB3dE9", hostedMediaSlug("https://i.imgur.com/aB3dE9.jpeg"))
	assert.Equal(t, "", hostedMediaSlug("https://example.com/video.mp4"))
}

func TestSpamWindowSuppresses(t *testing.T) {
	m := &Module{kicklist: make(map[snowflake.ID]time.Time), now: time.Now}
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < spamThreshold; i++ {
		assert.False(t, m.beingSpammed(at.Add(time.Duration(i)*time.Second)))
	}
	assert.True(t, m.beingSpammed(at.Add(5*time.Second)))

	// hits age out of the window
	assert.False(t, m.beingSpammed(at.Add(time.Minute)))
}
