// Package redis caches the hot head of each room's message log.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/studyhall/rooms-backend/room"
)

// Redis provides caching in Redis.
type Redis struct {
	cli *redis.Client
}

// Connect connects to the Redis server and pings the server to ensure the
// connection is working.
func Connect(ctx context.Context, addr string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
	}, nil
}

// maxSize caps how many messages are kept per room.
const maxSize = 50

func indexKey(roomID string) string {
	return fmt.Sprintf("room:%s:messages", roomID)
}

// ListMessages returns the cached messages of a room, newest first.
func (r *Redis) ListMessages(ctx context.Context, roomID string) ([]room.Message, error) {
	keys, err := r.cli.ZRevRangeByScore(ctx, indexKey(roomID), &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange: %w", err)
	}

	out := make([]room.Message, 0, len(keys))
	for _, key := range keys {
		var e entry
		if err := r.cli.HGetAll(ctx, key).Scan(&e); err != nil {
			return nil, fmt.Errorf("hgetall: %w", err)
		}
		msg, err := e.message()
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}

	return out, nil
}

// InsertMessage adds the message under room:ROOM_ID:messages:MESSAGE_ID and
// indexes the key in the room's sorted set. An existing entry is overwritten,
// so edits, pins and reactions reuse this path.
func (r *Redis) InsertMessage(ctx context.Context, msg room.Message) error {
	e, err := newEntry(msg)
	if err != nil {
		return err
	}

	err = r.cli.Watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			key := fmt.Sprintf("%s:%s", indexKey(e.RoomID), e.ID)
			pipe.HSet(ctx, key, e)
			pipe.ZAdd(ctx, indexKey(e.RoomID), redis.Z{
				Score:  float64(e.CreatedAt.UnixNano()),
				Member: key,
			})
			return nil
		})
		return err
	}, e.ID)
	if err != nil {
		return fmt.Errorf("redis insert message: %w", err)
	}

	if err := r.evictOldest(ctx, e.RoomID); err != nil {
		return fmt.Errorf("evict oldest: %w", err)
	}
	return nil
}

// RemoveMessage drops a message from the room's cache.
func (r *Redis) RemoveMessage(ctx context.Context, roomID, messageID string) error {
	key := fmt.Sprintf("%s:%s", indexKey(roomID), messageID)
	if err := r.cli.ZRem(ctx, indexKey(roomID), key).Err(); err != nil {
		return fmt.Errorf("zrem: %w", err)
	}
	if err := r.cli.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

func (r *Redis) evictOldest(ctx context.Context, roomID string) error {
	keys, err := r.cli.ZRange(ctx, indexKey(roomID), 0, int64(-maxSize-1)).Result()
	if err != nil {
		return fmt.Errorf("zrange: %w", err)
	}

	for _, key := range keys {
		_ = r.cli.ZRem(ctx, indexKey(roomID), key).Err()
		_ = r.cli.Del(ctx, key).Err()
	}

	return nil
}
