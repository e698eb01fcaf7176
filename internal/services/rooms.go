// Package services holds the room coordination workflows. They keep the
// rooms documents, the users' room lists and the realtime room tree in step
// without a transaction spanning the two stores.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chatroom-service/internal/models"
	"chatroom-service/internal/observability"
	"chatroom-service/internal/repositories"
)

var tracer = otel.Tracer("chatroom-service/services")

// CreateRoomInput carries the fields of a room creation request.
type CreateRoomInput struct {
	CallerID    string
	Name        string
	Description string
	Type        models.RoomType
	Password    string
}

// JoinRoomInput carries the fields of a room join request.
type JoinRoomInput struct {
	CallerID string
	RoomID   string
	RoomType models.RoomType
	Password string
}

// RoomCoordinator owns the create, delete, join and leave workflows.
type RoomCoordinator struct {
	users    repositories.UserRepository
	rooms    repositories.RoomRepository
	realtime repositories.RealtimeRepository
	newID    func() string

	// validatePublicJoin makes public joins check that the room exists and is
	// public. Off by default: the caller-supplied type is trusted.
	validatePublicJoin bool
}

// RoomCoordinatorOption customizes a RoomCoordinator.
type RoomCoordinatorOption func(*RoomCoordinator)

// WithPublicJoinValidation enables the room lookup on public joins.
func WithPublicJoinValidation(enabled bool) RoomCoordinatorOption {
	return func(c *RoomCoordinator) { c.validatePublicJoin = enabled }
}

// WithIDGenerator replaces the room id generator.
func WithIDGenerator(gen func() string) RoomCoordinatorOption {
	return func(c *RoomCoordinator) { c.newID = gen }
}

// NewRoomCoordinator constructs a RoomCoordinator.
func NewRoomCoordinator(users repositories.UserRepository, rooms repositories.RoomRepository, realtime repositories.RealtimeRepository, opts ...RoomCoordinatorOption) *RoomCoordinator {
	c := &RoomCoordinator{
		users:    users,
		rooms:    rooms,
		realtime: realtime,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (in CreateRoomInput) validate() error {
	if strings.TrimSpace(in.CallerID) == "" {
		return &ValidationError{Field: "userId", Reason: "required"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "roomName", Reason: "required"}
	}
	if !in.Type.Valid() {
		return &ValidationError{Field: "roomType", Reason: "must be public or private"}
	}
	if in.Type == models.RoomTypePrivate && in.Password == "" {
		return &ValidationError{Field: "roomPassword", Reason: "required for private rooms"}
	}
	return nil
}

// CreateRoom writes the ownership marker and then the room document, and
// adds the room to the creator's list.
//
// If the document write fails the marker is deleted again. When that
// compensation also fails the marker is left behind and a
// PartialConsistencyError is returned. A failure to update the creator's list
// is also partial; the room exists and its id is returned with the error.
func (c *RoomCoordinator) CreateRoom(ctx context.Context, in CreateRoomInput) (roomID string, err error) {
	ctx, span := tracer.Start(ctx, "rooms.create")
	defer span.End()
	defer func() { observability.ObserveRoomOp("create_room", err) }()

	if err := in.validate(); err != nil {
		return "", err
	}

	roomID = c.newID()
	span.SetAttributes(attribute.String("room.id", roomID), attribute.String("room.type", string(in.Type)))

	ownership := models.RoomOwnership{RoomOwner: in.CallerID, RoomType: in.Type}
	if err := c.realtime.SetOwnership(ctx, roomID, ownership); err != nil {
		return "", storeError("write ownership marker", err)
	}

	room := models.Room{
		ID:          roomID,
		Type:        in.Type,
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     in.CallerID,
		MessagesID:  roomID,
	}
	if in.Type == models.RoomTypePrivate {
		room.Password = sql.NullString{String: in.Password, Valid: true}
	}

	if err := c.rooms.CreateRoom(ctx, room); err != nil {
		if rbErr := c.realtime.DeleteRoomTree(ctx, roomID); rbErr != nil {
			return "", c.partial(span, &PartialConsistencyError{
				Op:        "create_room",
				RoomID:    roomID,
				Completed: []string{"ownership marker"},
				Failed:    []string{"room document", "ownership rollback"},
				Err:       errors.Join(err, rbErr),
			})
		}
		return "", storeError("write room document", err)
	}

	if err := c.users.AddRoom(ctx, in.CallerID, roomID); err != nil {
		return roomID, c.partial(span, &PartialConsistencyError{
			Op:        "create_room",
			RoomID:    roomID,
			Completed: []string{"ownership marker", "room document"},
			Failed:    []string{"creator room list"},
			Err:       err,
		})
	}

	return roomID, nil
}

// DeleteRoom removes a room on behalf of its owner. Both the realtime tree and
// the room document are always attempted. Member room lists are not touched.
func (c *RoomCoordinator) DeleteRoom(ctx context.Context, callerID, roomID string) (err error) {
	ctx, span := tracer.Start(ctx, "rooms.delete", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer span.End()
	defer func() { observability.ObserveRoomOp("delete_room", err) }()

	if strings.TrimSpace(roomID) == "" {
		return &ValidationError{Field: "roomId", Reason: "required"}
	}

	ownership, err := c.realtime.GetOwnership(ctx, roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrOwnershipNotFound) {
			return ErrRoomNotFound
		}
		return storeError("read ownership marker", err)
	}
	if ownership.RoomOwner != callerID {
		return ErrNotRoomOwner
	}

	treeErr := c.realtime.DeleteRoomTree(ctx, roomID)
	docErr := c.rooms.DeleteRoom(ctx, roomID)

	switch {
	case treeErr == nil && docErr == nil:
		return nil
	case treeErr != nil && docErr != nil:
		return storeError("delete room", errors.Join(treeErr, docErr))
	case treeErr != nil:
		return c.partial(span, &PartialConsistencyError{
			Op: "delete_room", RoomID: roomID,
			Completed: []string{"room document"}, Failed: []string{"realtime tree"}, Err: treeErr,
		})
	default:
		return c.partial(span, &PartialConsistencyError{
			Op: "delete_room", RoomID: roomID,
			Completed: []string{"realtime tree"}, Failed: []string{"room document"}, Err: docErr,
		})
	}
}

// JoinRoom adds the caller to a room. Private rooms require the stored
// password; a successful check grants access in the realtime tree before the
// room is added to the caller's list. The returned path is the room id.
func (c *RoomCoordinator) JoinRoom(ctx context.Context, in JoinRoomInput) (roomPath string, err error) {
	ctx, span := tracer.Start(ctx, "rooms.join", trace.WithAttributes(
		attribute.String("room.id", in.RoomID), attribute.String("room.type", string(in.RoomType))))
	defer span.End()
	defer func() { observability.ObserveRoomOp("join_room", err) }()

	if strings.TrimSpace(in.CallerID) == "" {
		return "", &ValidationError{Field: "userId", Reason: "required"}
	}
	if strings.TrimSpace(in.RoomID) == "" {
		return "", &ValidationError{Field: "roomId", Reason: "required"}
	}
	if !in.RoomType.Valid() {
		return "", &ValidationError{Field: "roomType", Reason: "must be public or private"}
	}

	if in.RoomType == models.RoomTypePublic {
		return in.RoomID, c.joinPublic(ctx, in)
	}

	roomID := strings.TrimSpace(in.RoomID)
	room, err := c.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			return "", ErrRoomNotFound
		}
		return "", storeError("read room", err)
	}
	if !room.Password.Valid || in.Password != room.Password.String {
		return "", ErrWrongPassword
	}

	if err := c.realtime.AddAllowedUser(ctx, roomID, in.CallerID); err != nil {
		return "", storeError("grant room access", err)
	}
	if err := c.users.AddRoom(ctx, in.CallerID, roomID); err != nil {
		return "", c.partial(span, &PartialConsistencyError{
			Op: "join_room", RoomID: roomID,
			Completed: []string{"allowed users"}, Failed: []string{"member room list"}, Err: err,
		})
	}
	return roomID, nil
}

func (c *RoomCoordinator) joinPublic(ctx context.Context, in JoinRoomInput) error {
	if c.validatePublicJoin {
		room, err := c.rooms.GetRoom(ctx, strings.TrimSpace(in.RoomID))
		if err != nil {
			if errors.Is(err, repositories.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return storeError("read room", err)
		}
		if room.Type != models.RoomTypePublic {
			return &ValidationError{Field: "roomType", Reason: "room is not public"}
		}
	}

	if err := c.users.AddRoom(ctx, in.CallerID, in.RoomID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return storeError("add room to member", err)
	}
	return nil
}

// LeaveRoom removes the room from the caller's list. Access granted to a
// private room is kept; rejoining always re-checks the password.
func (c *RoomCoordinator) LeaveRoom(ctx context.Context, callerID, roomID string) (err error) {
	ctx, span := tracer.Start(ctx, "rooms.leave", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer span.End()
	defer func() { observability.ObserveRoomOp("leave_room", err) }()

	if strings.TrimSpace(callerID) == "" {
		return &ValidationError{Field: "userId", Reason: "required"}
	}
	if err := c.users.RemoveRoom(ctx, callerID, roomID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return storeError("remove room from member", err)
	}
	return nil
}

func (c *RoomCoordinator) partial(span trace.Span, err *PartialConsistencyError) error {
	observability.IncPartialConsistency(err.Op)
	span.RecordError(err)
	log.Error().
		Str("op", err.Op).
		Str("room_id", err.RoomID).
		Strs("completed", err.Completed).
		Strs("failed", err.Failed).
		Err(err.Err).
		Msg("stores left inconsistent")
	return err
}
