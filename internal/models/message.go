package models

import "time"

// Message is an entry of a room's realtime message log.
type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RoomEvent is pushed to websocket subscribers of a room.
type RoomEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	RoomID  string   `json:"roomId,omitempty"`
}
