package models

import (
	"database/sql"
	"time"
)

// RoomType is either public or private.
type RoomType string

const (
	RoomTypePublic  RoomType = "public"
	RoomTypePrivate RoomType = "private"
)

// Valid reports whether t is a known room type.
func (t RoomType) Valid() bool {
	return t == RoomTypePublic || t == RoomTypePrivate
}

// Room is the document-store record of a chat room. Password is set only for
// private rooms and is never serialized.
type Room struct {
	ID          string         `db:"id" json:"id"`
	Type        RoomType       `db:"type" json:"type"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	OwnerID     string         `db:"owner_id" json:"ownerId"`
	Password    sql.NullString `db:"password" json:"-"`
	MessagesID  string         `db:"messages_id" json:"messagesId"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// RoomOwnership is the realtime marker pairing a room with its creator.
type RoomOwnership struct {
	RoomOwner string   `json:"roomOwner"`
	RoomType  RoomType `json:"roomType"`
}
