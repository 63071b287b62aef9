package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakkee/eetubotti/botti/clock"
)

func TestHumanCount(t *testing.T) {
	assert.Equal(t, "0", humanCount(0))
	assert.Equal(t, "999", humanCount(999))
	assert.Equal(t, "1,000", humanCount(1000))
	assert.Equal(t, "1,234,567", humanCount(1234567))
	assert.Equal(t, "-12,345", humanCount(-12345))
}

func TestWindowRange(t *testing.T) {
	var daylist []clock.Day
	for d := 1; d <= 20; d++ {
		daylist = append(daylist, clock.Day{Year: 2024, Month: 3, Day: d})
	}
	// last entry is the open day and stays out of the window
	first, last := windowRange(daylist)
	assert.Equal(t, "6.3.", first)
	assert.Equal(t, "19.3.", last)

	first, last = windowRange([]clock.Day{{Year: 2024, Month: 3, Day: 1}})
	assert.Empty(t, first)
	assert.Empty(t, last)
}

func TestParseBirthday(t *testing.T) {
	date, err := parseBirthday("5.6.1995")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1995, 6, 5, 0, 0, 0, 0, time.UTC), date)

	date, err = parseBirthday(" 05.06.1995 ")
	require.NoError(t, err)
	assert.Equal(t, 5, date.Day())

	_, err = parseBirthday("kesäkuun viides")
	assert.Error(t, err)
}
