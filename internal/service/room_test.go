package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/building-management/internal/queue"
	"github.com/iliyamo/building-management/internal/repository"
)

func newRoomService(t *testing.T) (*RoomService, sqlmock.Sqlmock, *memoryCalendar, *recordingPublisher) {
	t.Helper()
	db, mock := newMock(t)
	cal := newMemoryCalendar()
	events := &recordingPublisher{}
	return NewRoomService(repository.NewRoomRepo(db), repository.NewProjectorRepo(db), cal, events), mock, cal, events
}

func TestCreateRoom(t *testing.T) {
	svc, mock, _, events := newRoomService(t)

	mock.ExpectExec(q("INSERT INTO rooms")).
		WithArgs("Board room", int64(12), "img/board.jpg", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))

	room, err := svc.CreateRoom(context.Background(), "  Board room ", 12, "img/board.jpg")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), room.ID)
	assert.Equal(t, "Board room", room.Name)
	assert.Equal(t, uint32(0), room.PeopleCount)
	assert.Equal(t, uint32(12), room.MaxPeopleCount)
	require.NotNil(t, room.ImageRef)
	assert.Equal(t, "img/board.jpg", *room.ImageRef)

	got := events.all()
	require.Len(t, got, 1)
	assert.Equal(t, queue.KeyRoomCreated, got[0].RoutingKey())
}

func TestCreateRoomValidation(t *testing.T) {
	svc, _, _, _ := newRoomService(t)
	ctx := context.Background()

	cases := map[string]struct {
		name     string
		capacity int
		image    string
	}{
		"empty name":         {"  ", 10, ""},
		"long name":          {strings.Repeat("x", 101), 10, ""},
		"negative capacity":  {"A", -1, ""},
		"capacity too large": {"A", 65536, ""},
		"long image ref":     {"A", 10, strings.Repeat("i", 256)},
	}
	for name, tc := range cases {
		_, err := svc.CreateRoom(ctx, tc.name, tc.capacity, tc.image)
		assert.ErrorIs(t, err, ErrInvalidArgument, name)
	}
}

func TestDeleteRoomPurgesCalendar(t *testing.T) {
	svc, mock, cal, events := newRoomService(t)
	ctx := context.Background()
	stored, err := cal.Set(ctx, 3, 2024, time.March, 0, []int{5})
	require.NoError(t, err)
	require.True(t, stored)

	mock.ExpectExec(q("DELETE FROM rooms WHERE id = ?")).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.DeleteRoom(ctx, 3))

	_, gen, ok := cal.Get(ctx, 3, 2024, time.March)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, []uint64{3}, cal.purged)
	got := events.all()
	require.Len(t, got, 1)
	assert.Equal(t, queue.KeyRoomDeleted, got[0].RoutingKey())

	mock.ExpectExec(q("DELETE FROM rooms WHERE id = ?")).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, svc.DeleteRoom(ctx, 3), repository.ErrRoomNotFound)
}

func TestSetImageClearsWithEmptyRef(t *testing.T) {
	svc, mock, _, _ := newRoomService(t)

	mock.ExpectExec(q("UPDATE rooms SET image_ref = ? WHERE id = ?")).WithArgs(nil, int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("FROM rooms WHERE id = ?")).WithArgs(int64(2)).WillReturnRows(roomRow(2, 0, 4))

	room, err := svc.SetImage(context.Background(), 2, " ")
	require.NoError(t, err)
	assert.Nil(t, room.ImageRef)
}

func TestProjectorLifecycle(t *testing.T) {
	svc, mock, _, _ := newRoomService(t)
	ctx := context.Background()
	cols := []string{"id", "room_id", "producer", "serial_number", "created_at"}

	_, err := svc.AttachProjector(ctx, 1, "", "SN")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	mock.ExpectExec(q("INSERT INTO projectors")).WithArgs(int64(1), "Epson", "SN-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	p, err := svc.AttachProjector(ctx, 1, " Epson ", "SN-1")
	require.NoError(t, err)
	assert.Equal(t, "Epson", p.Producer)

	mock.ExpectExec(q("DELETE FROM projectors WHERE room_id=?")).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.DetachProjector(ctx, 1))

	mock.ExpectQuery(q("FROM projectors WHERE room_id=?")).WithArgs(int64(1)).WillReturnRows(sqlmock.NewRows(cols))
	_, err = svc.GetProjector(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrProjectorNotFound)
}
