package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatroom-service/internal/mocks"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

func TestListUserRoomsFiltersScan(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	rooms := new(mocks.RoomRepositoryMock)
	q := NewMembershipQuery(users, rooms, new(mocks.RealtimeRepositoryMock))

	users.On("GetUser", mock.Anything, "bob").Return(models.User{ID: "bob", MyRoomsIDs: []string{"r1", "deleted", "r3"}}, nil).Once()
	rooms.On("ListRooms", mock.Anything).Return([]models.Room{{ID: "r3"}, {ID: "r2"}, {ID: "r1"}}, nil).Once()

	got, err := q.ListUserRooms(context.Background(), "bob")
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	require.ElementsMatch(t, []string{"r1", "r3"}, ids)
}

func TestListUserRoomsEmptySkipsScan(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	rooms := new(mocks.RoomRepositoryMock)
	q := NewMembershipQuery(users, rooms, new(mocks.RealtimeRepositoryMock))

	users.On("GetUser", mock.Anything, "bob").Return(models.User{ID: "bob"}, nil).Once()

	got, err := q.ListUserRooms(context.Background(), "bob")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
	rooms.AssertNotCalled(t, "ListRooms", mock.Anything)
}

func TestListUserRoomsUnknownUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	q := NewMembershipQuery(users, new(mocks.RoomRepositoryMock), new(mocks.RealtimeRepositoryMock))

	users.On("GetUser", mock.Anything, "ghost").Return(nil, repositories.ErrUserNotFound).Once()

	_, err := q.ListUserRooms(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestListUserRoomsStoreError(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	rooms := new(mocks.RoomRepositoryMock)
	q := NewMembershipQuery(users, rooms, new(mocks.RealtimeRepositoryMock))

	users.On("GetUser", mock.Anything, "bob").Return(models.User{ID: "bob", MyRoomsIDs: []string{"r1"}}, nil).Once()
	rooms.On("ListRooms", mock.Anything).Return(nil, assert.AnError).Once()

	_, err := q.ListUserRooms(context.Background(), "bob")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCanAccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	realtime := new(mocks.RealtimeRepositoryMock)
	q := NewMembershipQuery(users, new(mocks.RoomRepositoryMock), realtime)
	ctx := context.Background()

	users.On("GetUser", mock.Anything, "bob").Return(models.User{ID: "bob", MyRoomsIDs: []string{"pub", "priv", "gone"}}, nil)
	users.On("GetUser", mock.Anything, "ghost").Return(nil, repositories.ErrUserNotFound)
	realtime.On("GetOwnership", mock.Anything, "pub").Return(models.RoomOwnership{RoomOwner: "a", RoomType: models.RoomTypePublic}, nil)
	realtime.On("GetOwnership", mock.Anything, "priv").Return(models.RoomOwnership{RoomOwner: "a", RoomType: models.RoomTypePrivate}, nil)
	realtime.On("GetOwnership", mock.Anything, "gone").Return(nil, repositories.ErrOwnershipNotFound)
	realtime.On("IsAllowedUser", mock.Anything, "priv", "bob").Return(true, nil)

	ok, err := q.CanAccess(ctx, "bob", "pub")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = q.CanAccess(ctx, "bob", "priv")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = q.CanAccess(ctx, "bob", "gone")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = q.CanAccess(ctx, "bob", "not-listed")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = q.CanAccess(ctx, "ghost", "pub")
	require.NoError(t, err)
	require.False(t, ok)
}
