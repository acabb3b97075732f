// Package postgres provides durable storage for room aggregates in
// PostgreSQL. The aggregate snapshot is stored as JSONB and is the source of
// truth; message and invite rows are mirrored alongside it for queries and
// for the off-owner invite expiry sweep.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/studyhall/rooms-backend/room"
)

// Postgres provides storage in PostgreSQL.
type Postgres struct {
	bun *bun.DB
}

// Connect connects to the database and ping the DB to ensure the connection is
// working.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	return &Postgres{
		bun: db,
	}, nil
}

// SaveRoom upserts the full aggregate snapshot.
func (pg *Postgres) SaveRoom(ctx context.Context, r *room.Room) error {
	row, err := newRoomRow(r)
	if err != nil {
		return err
	}
	_, err = pg.bun.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("room_type = EXCLUDED.room_type").
		Set("state = EXCLUDED.state").
		Set("updated_at = EXCLUDED.updated_at").
		Set("archived_at = EXCLUDED.archived_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}
	return nil
}

// GetRoom loads a room aggregate from its snapshot.
func (pg *Postgres) GetRoom(ctx context.Context, roomID string) (*room.Room, error) {
	var row roomRow
	err := pg.bun.NewSelect().
		Model(&row).
		Where("id = ?", roomID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, room.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return row.aggregate()
}

// ListRooms returns all room aggregates.
func (pg *Postgres) ListRooms(ctx context.Context) ([]*room.Room, error) {
	var rows []roomRow
	err := pg.bun.NewSelect().
		Model(&rows).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	out := make([]*room.Room, len(rows))
	for i, row := range rows {
		r, err := row.aggregate()
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// AppendMessage inserts a message row mirroring a new log entry.
func (pg *Postgres) AppendMessage(ctx context.Context, msg room.Message) error {
	if _, err := pg.bun.NewInsert().Model(newMessageRow(msg)).Exec(ctx); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// UpdateMessage rewrites a message row after an edit, pin or reaction.
func (pg *Postgres) UpdateMessage(ctx context.Context, msg room.Message) error {
	_, err := pg.bun.NewUpdate().
		Model(newMessageRow(msg)).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message row.
func (pg *Postgres) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	_, err := pg.bun.NewDelete().
		Model((*messageRow)(nil)).
		Where("id = ?", messageID).
		Where("room_id = ?", roomID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// SaveInvite inserts an invite row.
func (pg *Postgres) SaveInvite(ctx context.Context, inv room.Invite) error {
	if _, err := pg.bun.NewInsert().Model(newInviteRow(inv)).Exec(ctx); err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

// UpdateInvite rewrites an invite row after a status transition.
func (pg *Postgres) UpdateInvite(ctx context.Context, inv room.Invite) error {
	_, err := pg.bun.NewUpdate().
		Model(newInviteRow(inv)).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update invite: %w", err)
	}
	return nil
}

// InviteRoom resolves an invite id to the room it belongs to.
func (pg *Postgres) InviteRoom(ctx context.Context, inviteID string) (string, error) {
	var row inviteRow
	err := pg.bun.NewSelect().
		Model(&row).
		Column("room_id").
		Where("id = ?", inviteID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", room.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("scan: %w", err)
	}
	return row.RoomID, nil
}

// ExpireInvites marks all pending invites past their deadline as expired and
// returns how many rows changed. It touches invite rows only, so it runs
// without involving any room owner; owners converge on their own copy lazily.
func (pg *Postgres) ExpireInvites(ctx context.Context, now time.Time) (int, error) {
	res, err := pg.bun.NewUpdate().
		Model((*inviteRow)(nil)).
		Set("status = ?", string(room.InviteExpired)).
		Where("status = ?", string(room.InvitePending)).
		Where("expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("expire invites: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
