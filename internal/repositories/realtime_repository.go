package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"chatroom-service/internal/models"
)

var ErrOwnershipNotFound = errors.New("room ownership marker not found")

const (
	allowedUsersSuffix = "/allowedUsers"
	messagesSuffix     = "/messages"
	messageIndexSuffix = "/messages/index"
)

// RealtimeRepository abstracts the per-room realtime tree: the ownership
// marker, the allowed-user set of private rooms and the message log.
type RealtimeRepository interface {
	SetOwnership(ctx context.Context, roomID string, ownership models.RoomOwnership) error
	GetOwnership(ctx context.Context, roomID string) (models.RoomOwnership, error)
	DeleteRoomTree(ctx context.Context, roomID string) error
	AddAllowedUser(ctx context.Context, roomID string, userID string) error
	IsAllowedUser(ctx context.Context, roomID string, userID string) (bool, error)
	AppendMessage(ctx context.Context, msg models.Message) error
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
	ListRoomIDs(ctx context.Context) ([]string, error)
}

// RealtimeRepo stores the realtime tree in Redis. Each room owns the keys
// <prefix><roomId>, <prefix><roomId>/allowedUsers, <prefix><roomId>/messages
// and <prefix><roomId>/messages/index.
type RealtimeRepo struct {
	client *redis.Client
	prefix string
}

// NewRealtimeRepo constructs a RealtimeRepo.
func NewRealtimeRepo(client *redis.Client, prefix string) *RealtimeRepo {
	return &RealtimeRepo{client: client, prefix: prefix}
}

type messageRecord struct {
	Message    string    `json:"message"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (r *RealtimeRepo) rootKey(roomID string) string {
	return r.prefix + roomID
}

// SetOwnership replaces the room's ownership marker.
func (r *RealtimeRepo) SetOwnership(ctx context.Context, roomID string, ownership models.RoomOwnership) error {
	key := r.rootKey(roomID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "roomOwner", ownership.RoomOwner, "roomType", string(ownership.RoomType))
		return nil
	})
	if err != nil {
		return fmt.Errorf("set ownership: %w", err)
	}
	return nil
}

// GetOwnership reads the room's ownership marker.
func (r *RealtimeRepo) GetOwnership(ctx context.Context, roomID string) (models.RoomOwnership, error) {
	fields, err := r.client.HGetAll(ctx, r.rootKey(roomID)).Result()
	if err != nil {
		return models.RoomOwnership{}, fmt.Errorf("get ownership: %w", err)
	}
	owner, ok := fields["roomOwner"]
	if !ok {
		return models.RoomOwnership{}, ErrOwnershipNotFound
	}
	return models.RoomOwnership{RoomOwner: owner, RoomType: models.RoomType(fields["roomType"])}, nil
}

// DeleteRoomTree removes the room's whole realtime subtree in one command.
func (r *RealtimeRepo) DeleteRoomTree(ctx context.Context, roomID string) error {
	root := r.rootKey(roomID)
	if err := r.client.Del(ctx, root, root+allowedUsersSuffix, root+messagesSuffix, root+messageIndexSuffix).Err(); err != nil {
		return fmt.Errorf("delete room tree: %w", err)
	}
	return nil
}

// AddAllowedUser grants userID access to a private room.
func (r *RealtimeRepo) AddAllowedUser(ctx context.Context, roomID string, userID string) error {
	if err := r.client.SAdd(ctx, r.rootKey(roomID)+allowedUsersSuffix, userID).Err(); err != nil {
		return fmt.Errorf("add allowed user: %w", err)
	}
	return nil
}

// IsAllowedUser reports whether userID passed the room's password check.
func (r *RealtimeRepo) IsAllowedUser(ctx context.Context, roomID string, userID string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.rootKey(roomID)+allowedUsersSuffix, userID).Result()
	if err != nil {
		return false, fmt.Errorf("check allowed user: %w", err)
	}
	return ok, nil
}

// AppendMessage writes msg under the room's log keyed by its id.
func (r *RealtimeRepo) AppendMessage(ctx context.Context, msg models.Message) error {
	body, err := json.Marshal(messageRecord{
		Message:    msg.Body,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		CreatedAt:  msg.CreatedAt,
	})
	if err != nil {
		return err
	}

	root := r.rootKey(msg.RoomID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, root+messagesSuffix, msg.ID, body)
		pipe.ZAdd(ctx, root+messageIndexSuffix, redis.Z{Score: float64(msg.CreatedAt.UnixMilli()), Member: msg.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages returns the room's messages ordered by creation time. Messages
// created in the same millisecond are ordered by id.
func (r *RealtimeRepo) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	root := r.rootKey(roomID)
	ids, err := r.client.ZRange(ctx, root+messageIndexSuffix, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list message index: %w", err)
	}
	msgs := make([]models.Message, 0, len(ids))
	if len(ids) == 0 {
		return msgs, nil
	}

	values, err := r.client.HMGet(ctx, root+messagesSuffix, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i, val := range values {
		raw, ok := val.(string)
		if !ok {
			continue
		}
		var rec messageRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", ids[i], err)
		}
		msgs = append(msgs, models.Message{
			ID:         ids[i],
			RoomID:     roomID,
			SenderID:   rec.SenderID,
			SenderName: rec.SenderName,
			Body:       rec.Message,
			CreatedAt:  rec.CreatedAt,
		})
	}
	return msgs, nil
}

// ListRoomIDs scans the keyspace for ownership markers. SCAN may repeat keys
// across iterations, so ids are deduplicated.
func (r *RealtimeRepo) ListRoomIDs(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		ids    []string
	)
	seen := map[string]struct{}{}
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan room keys: %w", err)
		}
		for _, key := range keys {
			id := strings.TrimPrefix(key, r.prefix)
			if id == "" || strings.Contains(id, "/") {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

// Ping checks that Redis answers.
func (r *RealtimeRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
