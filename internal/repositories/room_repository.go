package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chatroom-service/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomRepository abstracts room document persistence.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room models.Room) error
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	ListRooms(ctx context.Context) ([]models.Room, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// CreateRoom inserts the room document.
func (r *RoomRepo) CreateRoom(ctx context.Context, room models.Room) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO rooms (id, type, name, description, owner_id, password, messages_id)
        VALUES (:id, :type, :name, :description, :owner_id, :password, :messages_id)`, room)
	return err
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT id, type, name, description, owner_id, password, messages_id, created_at FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// DeleteRoom removes the room document. Deleting a missing room is not an error.
func (r *RoomRepo) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id=$1`, roomID)
	return err
}

// ListRooms returns every room document in scan order.
func (r *RoomRepo) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT id, type, name, description, owner_id, password, messages_id, created_at FROM rooms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		var room models.Room
		if err := rows.StructScan(&room); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}
