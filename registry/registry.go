// Package registry owns the live room aggregates. Every room is served by a
// single owner goroutine; all mutating operations on a room are funneled
// through that owner's command channel, which gives a total order of
// messages, invites, votes and role changes within the room without locks.
// Reads are served from the last committed snapshot and never block writers.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/studyhall/rooms-backend/room"
)

// A Store provides durable storage for room aggregates. SaveRoom persists
// the full aggregate snapshot, which is the source of truth; the per-message
// and per-invite rows exist for queries and the off-owner invite sweep.
type Store interface {
	SaveRoom(ctx context.Context, r *room.Room) error
	GetRoom(ctx context.Context, roomID string) (*room.Room, error)
	ListRooms(ctx context.Context) ([]*room.Room, error)

	AppendMessage(ctx context.Context, msg room.Message) error
	UpdateMessage(ctx context.Context, msg room.Message) error
	DeleteMessage(ctx context.Context, roomID, messageID string) error

	SaveInvite(ctx context.Context, inv room.Invite) error
	UpdateInvite(ctx context.Context, inv room.Invite) error
	InviteRoom(ctx context.Context, inviteID string) (string, error)
	ExpireInvites(ctx context.Context, now time.Time) (int, error)
}

// A Cache provides a storage layer that caches recent room messages for the
// read path. Cache failures are logged, never surfaced.
type Cache interface {
	ListMessages(ctx context.Context, roomID string) ([]room.Message, error)
	InsertMessage(ctx context.Context, msg room.Message) error
	RemoveMessage(ctx context.Context, roomID, messageID string) error
}

// A Notification is the record handed to the surrounding app's notification
// UI. The core emits it; display and delivery happen elsewhere.
type Notification struct {
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Type         string     `json:"type"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// A Notifier receives notification records emitted by room operations.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier is the default sink: it logs the notification and drops it.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) {
	l.Logger.Info("Notification", "type", n.Type, "title", n.Title, "message", n.Message)
}

// Registry routes operations to room owners.
type Registry struct {
	Logger   *slog.Logger
	Store    Store
	Cache    Cache
	Notifier Notifier

	// Now is the clock used for all state transitions. Defaults to
	// time.Now; tests substitute a fixed clock.
	Now func() time.Time

	mu     sync.Mutex
	owners map[string]*owner
	closed bool
}

type owner struct {
	commands chan command
	snapshot atomic.Pointer[room.Room]
	done     chan struct{}
}

type command struct {
	ctx   context.Context
	apply func(now time.Time, r *room.Room) (any, error)
	reply chan response
}

type response struct {
	value any
	err   error
}

func (reg *Registry) now() time.Time {
	if reg.Now != nil {
		return reg.Now()
	}
	return time.Now()
}

func (reg *Registry) notifier() Notifier {
	if reg.Notifier != nil {
		return reg.Notifier
	}
	return LogNotifier{Logger: reg.Logger}
}

// CreateRoom creates a room, persists it and starts its owner. The creator
// is always inserted as an admin regardless of spec.Participants.
func (reg *Registry) CreateRoom(ctx context.Context, spec room.Spec) (*room.Room, error) {
	r, err := room.New(reg.now(), spec)
	if err != nil {
		return nil, err
	}
	if err := reg.Store.SaveRoom(ctx, r); err != nil {
		return nil, fmt.Errorf("save room: %w", err)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.closed {
		return nil, fmt.Errorf("registry closed")
	}
	if reg.owners == nil {
		reg.owners = make(map[string]*owner)
	}
	reg.owners[r.ID] = reg.startOwner(r)
	return r.Clone(), nil
}

// Room returns the latest committed snapshot of a room.
func (reg *Registry) Room(ctx context.Context, roomID string) (*room.Room, error) {
	o, err := reg.owner(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return o.snapshot.Load(), nil
}

// owner returns the room's owner, starting one from storage on first use.
func (reg *Registry) owner(ctx context.Context, roomID string) (*owner, error) {
	reg.mu.Lock()
	if o, ok := reg.owners[roomID]; ok {
		reg.mu.Unlock()
		return o, nil
	}
	reg.mu.Unlock()

	// Load outside the lock; storage I/O must not block other rooms.
	r, err := reg.Store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.closed {
		return nil, fmt.Errorf("registry closed")
	}
	if o, ok := reg.owners[roomID]; ok {
		return o, nil
	}
	if reg.owners == nil {
		reg.owners = make(map[string]*owner)
	}
	o := reg.startOwner(r)
	reg.owners[roomID] = o
	return o, nil
}

func (reg *Registry) startOwner(r *room.Room) *owner {
	o := &owner{
		commands: make(chan command),
		done:     make(chan struct{}),
	}
	o.snapshot.Store(r.Clone())
	go reg.run(o, r)
	return o
}

// run is the owner loop. Each command is applied against a working copy so a
// failed apply or a failed save leaves the committed state untouched; on
// success the working copy becomes the state and is published as the new
// snapshot.
func (reg *Registry) run(o *owner, state *room.Room) {
	defer close(o.done)
	for cmd := range o.commands {
		working := state.Clone()
		value, err := cmd.apply(reg.now(), working)
		if err != nil {
			// Lazy expiry transitions mutate state even when the
			// operation itself fails; persist those.
			if saveErr := reg.Store.SaveRoom(cmd.ctx, working); saveErr == nil {
				state = working
				o.snapshot.Store(state.Clone())
			} else {
				reg.Logger.Error("Could not save room", "room_id", state.ID, "error", saveErr.Error())
			}
			cmd.reply <- response{value: value, err: err}
			continue
		}
		if err := reg.Store.SaveRoom(cmd.ctx, working); err != nil {
			cmd.reply <- response{err: fmt.Errorf("save room: %w", err)}
			continue
		}
		state = working
		o.snapshot.Store(state.Clone())
		cmd.reply <- response{value: value}
	}
}

// do submits a state transition to the room's owner and waits for the
// outcome.
func (reg *Registry) do(ctx context.Context, roomID string, apply func(now time.Time, r *room.Room) (any, error)) (any, error) {
	o, err := reg.owner(ctx, roomID)
	if err != nil {
		return nil, err
	}
	cmd := command{
		ctx:   ctx,
		apply: apply,
		reply: make(chan response, 1),
	}
	select {
	case o.commands <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-cmd.reply:
		return resp.value, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops all room owners. In-flight commands finish first.
func (reg *Registry) Close() {
	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return
	}
	reg.closed = true
	owners := reg.owners
	reg.mu.Unlock()

	for _, o := range owners {
		close(o.commands)
		<-o.done
	}
}
