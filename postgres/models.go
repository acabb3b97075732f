package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/studyhall/rooms-backend/room"
)

// A roomRow holds a room aggregate. The full aggregate state lives in the
// JSONB column and is the source of truth; the scalar columns are promoted
// for querying and the archive sweep.
type roomRow struct {
	bun.BaseModel `bun:"table:rooms,alias:r"`

	ID         string          `bun:",pk,type:uuid"`
	Name       string          `bun:",notnull"`
	RoomType   string          `bun:"room_type,notnull"`
	State      json.RawMessage `bun:"state,type:jsonb,notnull"`
	CreatedAt  time.Time       `bun:",nullzero,default:now()"`
	UpdatedAt  time.Time       `bun:",nullzero,default:now()"`
	ArchivedAt *time.Time      `bun:",nullzero"`
}

func newRoomRow(r *room.Room) (*roomRow, error) {
	state, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal room state: %w", err)
	}
	return &roomRow{
		ID:         r.ID,
		Name:       r.Name,
		RoomType:   string(r.Type),
		State:      state,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		ArchivedAt: r.ArchivedAt,
	}, nil
}

func (row *roomRow) aggregate() (*room.Room, error) {
	var r room.Room
	if err := json.Unmarshal(row.State, &r); err != nil {
		return nil, fmt.Errorf("unmarshal room state: %w", err)
	}
	return &r, nil
}

// A messageRow is one entry of a room's message log, kept as a queryable
// mirror of the log inside the aggregate state.
type messageRow struct {
	bun.BaseModel `bun:"table:room_messages,alias:m"`

	ID          string    `bun:",pk,type:uuid"`
	RoomID      string    `bun:",notnull,type:uuid"`
	SenderID    string    `bun:",notnull"`
	MessageText string    `bun:"message_text,notnull"`
	MessageType string    `bun:"message_type,notnull"`
	TopicID     string    `bun:",nullzero"`
	IsPinned    bool      `bun:",notnull,default:false"`
	IsEdited    bool      `bun:",notnull,default:false"`
	CreatedAt   time.Time `bun:",nullzero,default:now()"`
	UpdatedAt   time.Time `bun:",nullzero,default:now()"`
}

func newMessageRow(msg room.Message) *messageRow {
	return &messageRow{
		ID:          msg.ID,
		RoomID:      msg.RoomID,
		SenderID:    msg.SenderID,
		MessageText: msg.Content,
		MessageType: string(msg.Type),
		TopicID:     msg.TopicID,
		IsPinned:    msg.IsPinned,
		IsEdited:    msg.IsEdited,
		CreatedAt:   msg.CreatedAt,
		UpdatedAt:   msg.UpdatedAt,
	}
}

// An inviteRow mirrors one room invite. The global expiry sweep runs against
// these rows only, so it never contends with room owners.
type inviteRow struct {
	bun.BaseModel `bun:"table:room_invites,alias:i"`

	ID          string    `bun:",pk,type:uuid"`
	RoomID      string    `bun:",notnull,type:uuid"`
	InvitedBy   string    `bun:",notnull"`
	InvitedUser string    `bun:",notnull"`
	Status      string    `bun:",notnull,default:'pending'"`
	CreatedAt   time.Time `bun:",nullzero,default:now()"`
	ExpiresAt   time.Time `bun:",notnull"`
}

func newInviteRow(inv room.Invite) *inviteRow {
	return &inviteRow{
		ID:          inv.ID,
		RoomID:      inv.RoomID,
		InvitedBy:   inv.InvitedBy,
		InvitedUser: inv.InvitedUser,
		Status:      string(inv.Status),
		CreatedAt:   inv.CreatedAt,
		ExpiresAt:   inv.ExpiresAt,
	}
}
