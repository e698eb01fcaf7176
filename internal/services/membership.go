package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

// MembershipQuery resolves a user's room list into room documents.
type MembershipQuery struct {
	users    repositories.UserRepository
	rooms    repositories.RoomRepository
	realtime repositories.RealtimeRepository
}

// NewMembershipQuery constructs a MembershipQuery.
func NewMembershipQuery(users repositories.UserRepository, rooms repositories.RoomRepository, realtime repositories.RealtimeRepository) *MembershipQuery {
	return &MembershipQuery{users: users, rooms: rooms, realtime: realtime}
}

// ListUserRooms returns the rooms the user belongs to. The rooms collection
// is scanned in full and filtered by the user's list, so ids of deleted rooms
// simply produce no entry. Result order follows the scan.
func (q *MembershipQuery) ListUserRooms(ctx context.Context, userID string) ([]models.Room, error) {
	ctx, span := tracer.Start(ctx, "rooms.list_for_user", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	user, err := q.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("read user", err)
	}
	if len(user.MyRoomsIDs) == 0 {
		return []models.Room{}, nil
	}

	all, err := q.rooms.ListRooms(ctx)
	if err != nil {
		return nil, storeError("list rooms", err)
	}

	wanted := make(map[string]struct{}, len(user.MyRoomsIDs))
	for _, id := range user.MyRoomsIDs {
		wanted[id] = struct{}{}
	}
	result := make([]models.Room, 0, len(user.MyRoomsIDs))
	for _, room := range all {
		if _, ok := wanted[room.ID]; ok {
			result = append(result, room)
		}
	}
	return result, nil
}

// CanAccess reports whether the user may follow the room's live log: the room
// must be in the user's list and, for private rooms, the user must have passed
// the password check.
func (q *MembershipQuery) CanAccess(ctx context.Context, userID, roomID string) (bool, error) {
	user, err := q.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return false, nil
		}
		return false, storeError("read user", err)
	}
	listed := false
	for _, id := range user.MyRoomsIDs {
		if id == roomID {
			listed = true
			break
		}
	}
	if !listed {
		return false, nil
	}

	ownership, err := q.realtime.GetOwnership(ctx, roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrOwnershipNotFound) {
			return false, nil
		}
		return false, storeError("read ownership marker", err)
	}
	if ownership.RoomType != models.RoomTypePrivate {
		return true, nil
	}
	allowed, err := q.realtime.IsAllowedUser(ctx, roomID, userID)
	if err != nil {
		return false, storeError("check allowed user", err)
	}
	return allowed, nil
}
