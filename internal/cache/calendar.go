// Package cache keeps reserved-day calendars in Redis so that repeated
// month views do not hit MySQL.  The database stays authoritative: entries
// are dropped whenever a booking, cancellation or room deletion changes
// the month.  A short TTL bounds staleness if an invalidation is lost.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/building-management/internal/config"
)

// Calendar is a cache of ReservedDays results keyed by room and month.  A
// Calendar built without a client (or with caching disabled) misses on
// every Get and ignores writes, so callers never need to nil-check it.
//
// Every room has a generation counter that Invalidate and InvalidateRoom
// bump.  A reader takes the generation from Get before querying MySQL and
// hands it back to Set, which only stores the days while the generation is
// unchanged.  A fill that raced with a booking or cancellation is dropped
// instead of overwriting the invalidation.
type Calendar struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// generationTTL keeps idle rooms from holding a counter forever.  It is
// refreshed on every bump and is far longer than any read can take.
const generationTTL = 24 * time.Hour

// storeIfGeneration sets KEYS[2] to ARGV[2] with a PX of ARGV[3] only while
// the counter at KEYS[1] (missing counts as 0) still equals ARGV[1].
var storeIfGeneration = redis.NewScript(`
	local current = redis.call('GET', KEYS[1])
	if not current then current = '0' end
	if current ~= ARGV[1] then
		return 0
	end
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
	return 1
`)

// bumpGeneration increments the counter at KEYS[1], refreshes its PX to
// ARGV[1] and deletes the remaining keys.
var bumpGeneration = redis.NewScript(`
	local gen = redis.call('INCR', KEYS[1])
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	for i = 2, #KEYS do
		redis.call('DEL', KEYS[i])
	end
	return gen
`)

// NewCalendar returns a Calendar backed by rdb.
func NewCalendar(cfg config.CalendarCacheConfig, rdb *redis.Client) *Calendar {
	c := &Calendar{ttl: cfg.TTL, prefix: cfg.Prefix}
	if cfg.Enabled {
		c.rdb = rdb
	}
	if c.ttl <= 0 {
		c.ttl = 30 * time.Second
	}
	if c.prefix == "" {
		c.prefix = "calendar"
	}
	return c
}

func (c *Calendar) enabled() bool { return c != nil && c.rdb != nil }

func (c *Calendar) key(roomID uint64, year int, month time.Month) string {
	return fmt.Sprintf("%s:room:%d:%04d-%02d", c.prefix, roomID, year, int(month))
}

func (c *Calendar) roomPattern(roomID uint64) string {
	return fmt.Sprintf("%s:room:%d:*", c.prefix, roomID)
}

// generationKey lives outside the room:<id>: namespace so that the SCAN in
// InvalidateRoom never deletes it.
func (c *Calendar) generationKey(roomID uint64) string {
	return fmt.Sprintf("%s:gen:room:%d", c.prefix, roomID)
}

// Get returns the cached days for the month, the room's current generation
// and whether there was a hit.  The generation is returned on a miss too;
// pass it to Set after loading the days.  Redis errors and undecodable
// entries count as misses.
func (c *Calendar) Get(ctx context.Context, roomID uint64, year int, month time.Month) ([]int, uint64, bool) {
	if !c.enabled() {
		return nil, 0, false
	}
	vals, err := c.rdb.MGet(ctx, c.generationKey(roomID), c.key(roomID, year, month)).Result()
	if err != nil || len(vals) != 2 {
		return nil, 0, false
	}
	var gen uint64
	if s, ok := vals[0].(string); ok {
		if gen, err = strconv.ParseUint(s, 10, 64); err != nil {
			return nil, 0, false
		}
	}
	raw, ok := vals[1].(string)
	if !ok {
		return nil, gen, false
	}
	var days []int
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return nil, gen, false
	}
	if days == nil {
		days = []int{}
	}
	return days, gen, true
}

// Set stores the days for the month if the room's generation still equals
// gen.  It reports whether the entry was written.
func (c *Calendar) Set(ctx context.Context, roomID uint64, year int, month time.Month, gen uint64, days []int) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	if days == nil {
		days = []int{}
	}
	payload, err := json.Marshal(days)
	if err != nil {
		return false, err
	}
	stored, err := storeIfGeneration.Run(ctx, c.rdb,
		[]string{c.generationKey(roomID), c.key(roomID, year, month)},
		gen, payload, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Invalidate drops the entry for one month of a room and bumps the room's
// generation so that fills started before the change are discarded.
func (c *Calendar) Invalidate(ctx context.Context, roomID uint64, year int, month time.Month) error {
	if !c.enabled() {
		return nil
	}
	return bumpGeneration.Run(ctx, c.rdb,
		[]string{c.generationKey(roomID), c.key(roomID, year, month)},
		generationTTL.Milliseconds()).Err()
}

// InvalidateRoom bumps the room's generation and drops every cached month.
func (c *Calendar) InvalidateRoom(ctx context.Context, roomID uint64) error {
	if !c.enabled() {
		return nil
	}
	if err := bumpGeneration.Run(ctx, c.rdb, []string{c.generationKey(roomID)}, generationTTL.Milliseconds()).Err(); err != nil {
		return err
	}
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.roomPattern(roomID), 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
