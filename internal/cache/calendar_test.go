package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/building-management/internal/config"
)

func newCalendar(t *testing.T) (*Calendar, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := config.CalendarCacheConfig{Enabled: true, TTL: 30 * time.Second, Prefix: "calendar"}
	return NewCalendar(cfg, rdb), mr
}

// fill stores days under the generation the cache reports right now.
func fill(t *testing.T, c *Calendar, roomID uint64, month time.Month, days []int) {
	t.Helper()
	_, gen, _ := c.Get(context.Background(), roomID, 2024, month)
	stored, err := c.Set(context.Background(), roomID, 2024, month, gen, days)
	require.NoError(t, err)
	require.True(t, stored)
}

func TestCalendarSetGet(t *testing.T) {
	c, mr := newCalendar(t)
	ctx := context.Background()

	_, gen, ok := c.Get(ctx, 1, 2024, time.March)
	assert.False(t, ok)
	assert.Zero(t, gen)

	stored, err := c.Set(ctx, 1, 2024, time.March, gen, []int{5, 17})
	require.NoError(t, err)
	assert.True(t, stored)
	days, _, ok := c.Get(ctx, 1, 2024, time.March)
	require.True(t, ok)
	assert.Equal(t, []int{5, 17}, days)
	assert.True(t, mr.Exists("calendar:room:1:2024-03"))

	// An empty month is cached as a hit, not a miss.
	fill(t, c, 1, time.April, nil)
	days, _, ok = c.Get(ctx, 1, 2024, time.April)
	require.True(t, ok)
	assert.NotNil(t, days)
	assert.Empty(t, days)
}

func TestCalendarExpires(t *testing.T) {
	c, mr := newCalendar(t)
	ctx := context.Background()

	fill(t, c, 1, time.March, []int{5})
	mr.FastForward(31 * time.Second)
	_, _, ok := c.Get(ctx, 1, 2024, time.March)
	assert.False(t, ok)
}

func TestCalendarInvalidate(t *testing.T) {
	c, mr := newCalendar(t)
	ctx := context.Background()

	fill(t, c, 1, time.March, []int{5})
	fill(t, c, 1, time.April, []int{1})
	fill(t, c, 2, time.March, []int{9})
	fill(t, c, 11, time.March, []int{3})

	require.NoError(t, c.Invalidate(ctx, 1, 2024, time.March))
	_, gen, ok := c.Get(ctx, 1, 2024, time.March)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), gen)
	_, _, ok = c.Get(ctx, 1, 2024, time.April)
	assert.True(t, ok)

	require.NoError(t, c.InvalidateRoom(ctx, 1))
	_, gen, ok = c.Get(ctx, 1, 2024, time.April)
	assert.False(t, ok)
	assert.Equal(t, uint64(2), gen)
	// The counter survives the purge of the room's entries.
	assert.True(t, mr.Exists("calendar:gen:room:1"))
	// Neither room 2 nor room 11 shares the key prefix of room 1.
	_, _, ok = c.Get(ctx, 2, 2024, time.March)
	assert.True(t, ok)
	_, _, ok = c.Get(ctx, 11, 2024, time.March)
	assert.True(t, ok)
}

// A reader that loaded the month before a booking was invalidated must not
// put its result back afterwards.
func TestCalendarRefusesFillOlderThanInvalidation(t *testing.T) {
	c, _ := newCalendar(t)
	ctx := context.Background()

	_, gen, ok := c.Get(ctx, 1, 2024, time.March)
	require.False(t, ok)
	// ... the reader queries MySQL and sees no reservations, meanwhile a
	// booking for 2024-03-05 commits and invalidates the month.
	require.NoError(t, c.Invalidate(ctx, 1, 2024, time.March))

	stored, err := c.Set(ctx, 1, 2024, time.March, gen, []int{})
	require.NoError(t, err)
	assert.False(t, stored)
	_, _, ok = c.Get(ctx, 1, 2024, time.March)
	assert.False(t, ok)

	// A fill that started after the booking is accepted.
	_, gen, _ = c.Get(ctx, 1, 2024, time.March)
	stored, err = c.Set(ctx, 1, 2024, time.March, gen, []int{5})
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestCalendarRefusesFillOlderThanRoomPurge(t *testing.T) {
	c, _ := newCalendar(t)
	ctx := context.Background()

	_, gen, _ := c.Get(ctx, 4, 2024, time.March)
	require.NoError(t, c.InvalidateRoom(ctx, 4))

	stored, err := c.Set(ctx, 4, 2024, time.March, gen, []int{2})
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestCalendarUndecodableEntryIsMiss(t *testing.T) {
	c, mr := newCalendar(t)
	require.NoError(t, mr.Set("calendar:room:1:2024-03", "not json"))
	_, _, ok := c.Get(context.Background(), 1, 2024, time.March)
	assert.False(t, ok)
}

func TestCalendarDisabled(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*Calendar{
		NewCalendar(config.CalendarCacheConfig{Enabled: false}, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})),
		NewCalendar(config.CalendarCacheConfig{Enabled: true}, nil),
		nil,
	} {
		stored, err := c.Set(ctx, 1, 2024, time.March, 0, []int{1})
		require.NoError(t, err)
		assert.False(t, stored)
		_, _, ok := c.Get(ctx, 1, 2024, time.March)
		assert.False(t, ok)
		require.NoError(t, c.Invalidate(ctx, 1, 2024, time.March))
		require.NoError(t, c.InvalidateRoom(ctx, 1))
	}
}
