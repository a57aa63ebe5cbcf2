package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeTally_Buckets(t *testing.T) {
	tally := newOutcomeTally()
	tally.add("sold", "a1")
	tally.add("sold", "a2")
	tally.add("not_home", "a1")
	tally.add("not_interested", "a3")
	tally.add("go_back", "a3")
	tally.add("callback_later", "a4") // free-text outcome lands in other

	assert.Equal(t, 2, tally.sold)
	assert.Equal(t, 1, tally.notHome)
	assert.Equal(t, 1, tally.notInterested)
	assert.Equal(t, 1, tally.goBack)
	assert.Equal(t, 1, tally.other)
	assert.Equal(t, 6, tally.total)

	// contacted excludes "other"
	assert.Equal(t, 5, tally.contacted())

	// a1..a4 distinct
	assert.Len(t, tally.worked, 4)
}

func TestCloseRate(t *testing.T) {
	assert.Equal(t, 0.0, closeRate(0, 0))
	assert.Equal(t, 0.0, closeRate(5, 0))
	assert.Equal(t, 100.0, closeRate(3, 3))
	assert.Equal(t, 50.0, closeRate(1, 2))
	// 1/3 => 33.333... rounds to one decimal
	assert.Equal(t, 33.3, closeRate(1, 3))
	// 2/3 => 66.666... rounds up
	assert.Equal(t, 66.7, closeRate(2, 3))
}

func TestCloseRate_MatchesBucketSum(t *testing.T) {
	tally := newOutcomeTally()
	for i := 0; i < 4; i++ {
		tally.add("sold", "a")
	}
	for i := 0; i < 6; i++ {
		tally.add("not_home", "b")
	}

	contacted := tally.contacted()
	assert.Equal(t, tally.sold+tally.notHome+tally.notInterested+tally.goBack, contacted)
	assert.Equal(t, 40.0, closeRate(tally.sold, contacted))
}

func TestChunkStrings(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	chunks := chunkStrings(ids, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
	assert.Equal(t, []string{"c", "d"}, chunks[1])
	assert.Equal(t, []string{"e"}, chunks[2])

	assert.Nil(t, chunkStrings(nil, 2))
	assert.Nil(t, chunkStrings(ids, 0))

	// chunk size larger than the slice yields a single chunk
	whole := chunkStrings(ids, 100)
	require.Len(t, whole, 1)
	assert.Equal(t, ids, whole[0])
}

func TestNormalizeWindow_DateOnly(t *testing.T) {
	from, to, err := normalizeWindow("2026-03-01", "2026-03-31")
	require.NoError(t, err)
	require.NotNil(t, from)
	require.NotNil(t, to)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *from)
	// inclusive end of day
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999000000, time.UTC), *to)
}

func TestNormalizeWindow_RFC3339Passthrough(t *testing.T) {
	from, to, err := normalizeWindow("2026-03-01T12:30:00Z", "")
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Nil(t, to)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC), *from)
}

func TestNormalizeWindow_Empty(t *testing.T) {
	from, to, err := normalizeWindow("", "")
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, to)
}

func TestNormalizeWindow_Invalid(t *testing.T) {
	_, _, err := normalizeWindow("03/01/2026", "")
	assert.Error(t, err)

	_, _, err = normalizeWindow("", "not-a-date")
	assert.Error(t, err)
}
