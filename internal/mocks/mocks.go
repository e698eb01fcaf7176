package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) FindByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) AddRoom(ctx context.Context, userID string, roomID string) error {
	args := m.Called(ctx, userID, roomID)
	return args.Error(0)
}

func (m *UserRepositoryMock) RemoveRoom(ctx context.Context, userID string, roomID string) error {
	args := m.Called(ctx, userID, roomID)
	return args.Error(0)
}

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) CreateRoom(ctx context.Context, room models.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) ListRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

type RealtimeRepositoryMock struct {
	mock.Mock
}

func (m *RealtimeRepositoryMock) SetOwnership(ctx context.Context, roomID string, ownership models.RoomOwnership) error {
	args := m.Called(ctx, roomID, ownership)
	return args.Error(0)
}

func (m *RealtimeRepositoryMock) GetOwnership(ctx context.Context, roomID string) (models.RoomOwnership, error) {
	args := m.Called(ctx, roomID)
	var ownership models.RoomOwnership
	if val := args.Get(0); val != nil {
		ownership = val.(models.RoomOwnership)
	}
	return ownership, args.Error(1)
}

func (m *RealtimeRepositoryMock) DeleteRoomTree(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RealtimeRepositoryMock) AddAllowedUser(ctx context.Context, roomID string, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *RealtimeRepositoryMock) IsAllowedUser(ctx context.Context, roomID string, userID string) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RealtimeRepositoryMock) AppendMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *RealtimeRepositoryMock) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *RealtimeRepositoryMock) ListRoomIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.RealtimeRepository = (*RealtimeRepositoryMock)(nil)
