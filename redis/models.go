package redis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/studyhall/rooms-backend/room"
)

// An entry is one cached message. The scored fields index the entry; the
// payload carries the full message, nested reactions and replies included,
// so the cache never serves a degraded copy.
type entry struct {
	ID        string    `redis:"id"`
	RoomID    string    `redis:"room_id"`
	CreatedAt time.Time `redis:"created_at"`
	Payload   string    `redis:"payload"`
}

func newEntry(msg room.Message) (*entry, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return &entry{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		CreatedAt: msg.CreatedAt,
		Payload:   string(payload),
	}, nil
}

func (e entry) message() (room.Message, error) {
	var msg room.Message
	if err := json.Unmarshal([]byte(e.Payload), &msg); err != nil {
		return room.Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	return msg, nil
}
