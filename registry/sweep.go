package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhall/rooms-backend/room"
)

// SweepExpiredInvites transitions all pending invite rows past their expiry
// to expired. It runs against storage only and never contends with room
// owners; owners apply the same transition lazily when an expired invite is
// answered.
func (reg *Registry) SweepExpiredInvites(ctx context.Context) (int, error) {
	n, err := reg.Store.ExpireInvites(ctx, reg.now())
	if err != nil {
		return 0, fmt.Errorf("expire invites: %w", err)
	}
	if n > 0 {
		reg.Logger.Info("Expired invites", "count", n)
	}
	return n, nil
}

// SweepArchive archives every room that has auto-archive enabled and has
// been quiet past its archive window. Eligibility is evaluated from stored
// state; the transition itself goes through the room owner like any other
// mutation so it cannot race a concurrent post.
func (reg *Registry) SweepArchive(ctx context.Context) (int, error) {
	rooms, err := reg.Store.ListRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rooms: %w", err)
	}
	archived := 0
	for _, r := range rooms {
		if !r.ArchiveEligible(reg.now()) {
			continue
		}
		v, err := reg.do(ctx, r.ID, func(now time.Time, r *room.Room) (any, error) {
			// Re-check inside the owner; a message may have landed
			// between the list and this command.
			if !r.ArchiveEligible(now) {
				return false, nil
			}
			r.Archive(now)
			return true, nil
		})
		if err != nil {
			reg.Logger.Error("Could not archive room", "room_id", r.ID, "error", err.Error())
			continue
		}
		if !v.(bool) {
			continue
		}
		archived++
		reg.Logger.Info("Archived room", "room_id", r.ID, "name", r.Name)
	}
	return archived, nil
}
