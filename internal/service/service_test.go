package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/building-management/internal/queue"
)

var roomCols = []string{"id", "name", "people_count", "max_people_count", "image_ref", "created_at", "updated_at"}

const (
	lockRoomSQL   = "FROM rooms WHERE id = ? FOR UPDATE"
	updateRoomSQL = "UPDATE rooms SET people_count = ? WHERE id = ? AND ? <= max_people_count"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func roomRow(id uint64, people, max int) *sqlmock.Rows {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(roomCols).AddRow(id, fmt.Sprintf("room-%d", id), people, max, nil, now, now)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) all() []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.Event(nil), p.events...)
}

type calendarKey struct {
	room  uint64
	year  int
	month time.Month
}

// memoryCalendar mirrors cache.Calendar: a per-room generation guards Set.
// beforeSet, when set, runs just before a fill is stored.
type memoryCalendar struct {
	mu          sync.Mutex
	entries     map[calendarKey][]int
	gens        map[uint64]uint64
	invalidated []calendarKey
	purged      []uint64
	beforeSet   func()
}

func newMemoryCalendar() *memoryCalendar {
	return &memoryCalendar{entries: map[calendarKey][]int{}, gens: map[uint64]uint64{}}
}

func (c *memoryCalendar) Get(_ context.Context, roomID uint64, year int, month time.Month) ([]int, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	days, ok := c.entries[calendarKey{roomID, year, month}]
	return days, c.gens[roomID], ok
}

func (c *memoryCalendar) Set(_ context.Context, roomID uint64, year int, month time.Month, gen uint64, days []int) (bool, error) {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[roomID] != gen {
		return false, nil
	}
	c.entries[calendarKey{roomID, year, month}] = days
	return true, nil
}

func (c *memoryCalendar) Invalidate(_ context.Context, roomID uint64, year int, month time.Month) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := calendarKey{roomID, year, month}
	c.gens[roomID]++
	delete(c.entries, k)
	c.invalidated = append(c.invalidated, k)
	return nil
}

func (c *memoryCalendar) InvalidateRoom(_ context.Context, roomID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[roomID]++
	for k := range c.entries {
		if k.room == roomID {
			delete(c.entries, k)
		}
	}
	c.purged = append(c.purged, roomID)
	return nil
}
