package room

import (
	"time"

	"github.com/google/uuid"
)

// An InviteStatus is the lifecycle state of an invite. Accepted, rejected and
// expired are terminal.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
	InviteExpired  InviteStatus = "expired"
)

// DefaultInviteTTL is applied when CreateInvite is called with a zero ttl.
const DefaultInviteTTL = 7 * 24 * time.Hour

// An Invite is a pending offer for a user to join a room.
type Invite struct {
	ID          string       `json:"id"`
	RoomID      string       `json:"room_id"`
	InvitedBy   string       `json:"invited_by"`
	InvitedUser string       `json:"invited_user"`
	Status      InviteStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// CreateInvite issues a pending invite for invitedUser. The inviter needs
// canInvite; the invite is refused if the user is already in the room or the
// roster is at settings.maxParticipants.
func (r *Room) CreateInvite(now time.Time, invitedBy, invitedUser string, ttl time.Duration) (Invite, error) {
	if err := r.mutable(); err != nil {
		return Invite{}, err
	}
	perms, err := r.ResolvePermissions(invitedBy)
	if err != nil {
		return Invite{}, err
	}
	if !perms.CanInvite {
		return Invite{}, ErrPermissionDenied
	}
	if _, ok := r.participant(invitedUser); ok {
		return Invite{}, ErrAlreadyParticipant
	}
	if max := r.Settings.MaxParticipants; max > 0 && len(r.Participants) >= max {
		return Invite{}, ErrRoomFull
	}
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	inv := Invite{
		ID:          uuid.NewString(),
		RoomID:      r.ID,
		InvitedBy:   invitedBy,
		InvitedUser: invitedUser,
		Status:      InvitePending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	r.Invites = append(r.Invites, inv)
	r.touch(now)
	return inv, nil
}

// RespondToInvite accepts or rejects a pending invite. A pending invite past
// its expiry transitions to expired as a side effect and the call still fails
// with ErrInviteExpired. Accepting adds the invited user as a member with the
// member role-template permissions. Archived rooms refuse responses like any
// other mutation.
func (r *Room) RespondToInvite(now time.Time, inviteID string, accept bool) (Invite, error) {
	if err := r.mutable(); err != nil {
		return Invite{}, err
	}
	inv := r.invite(inviteID)
	if inv == nil {
		return Invite{}, ErrNotFound
	}
	if inv.Status != InvitePending {
		return *inv, ErrInviteNotPending
	}
	if now.After(inv.ExpiresAt) {
		inv.Status = InviteExpired
		return *inv, ErrInviteExpired
	}
	if !accept {
		inv.Status = InviteRejected
		r.touch(now)
		return *inv, nil
	}
	// The user joined through another path while this invite was open. The
	// invite stays pending and runs out on its own; no answer was given.
	if _, ok := r.participant(inv.InvitedUser); ok {
		return *inv, ErrAlreadyParticipant
	}
	if max := r.Settings.MaxParticipants; max > 0 && len(r.Participants) >= max {
		return *inv, ErrRoomFull
	}
	inv.Status = InviteAccepted
	r.Participants = append(r.Participants, Participant{
		UserID:   inv.InvitedUser,
		Role:     RoleMember,
		JoinedAt: now,
		LastSeen: now,
		Status:   StatusOnline,
	})
	r.touch(now)
	return *inv, nil
}

// SweepExpiredInvites moves every pending invite past its expiry to expired
// and reports how many transitioned. Non-expired invites are untouched, so
// the sweep is idempotent.
func (r *Room) SweepExpiredInvites(now time.Time) int {
	n := 0
	for i := range r.Invites {
		inv := &r.Invites[i]
		if inv.Status == InvitePending && now.After(inv.ExpiresAt) {
			inv.Status = InviteExpired
			n++
		}
	}
	return n
}

func (r *Room) invite(inviteID string) *Invite {
	for i := range r.Invites {
		if r.Invites[i].ID == inviteID {
			return &r.Invites[i]
		}
	}
	return nil
}
