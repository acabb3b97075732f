package room

import "time"

// Built-in role names. Rooms may define additional named templates in
// Room.Roles; participants always reference a template by name.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

// A Status tracks a participant's presence.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusAway    Status = "away"
)

// A PermissionSet holds the capabilities a participant has in a room.
type PermissionSet struct {
	CanInvite bool `json:"can_invite"`
	CanPin    bool `json:"can_pin"`
	CanDelete bool `json:"can_delete"`
	CanEdit   bool `json:"can_edit"`
	CanMute   bool `json:"can_mute"`
}

// Overrides replaces individual permission fields on top of a role template.
// Nil fields fall through to the template.
type Overrides struct {
	CanInvite *bool `json:"can_invite,omitempty"`
	CanPin    *bool `json:"can_pin,omitempty"`
	CanDelete *bool `json:"can_delete,omitempty"`
	CanEdit   *bool `json:"can_edit,omitempty"`
	CanMute   *bool `json:"can_mute,omitempty"`
}

// A Participant is a user's membership record in a room.
type Participant struct {
	UserID      string     `json:"user_id"`
	Role        string     `json:"role"`
	JoinedAt    time.Time  `json:"joined_at"`
	LastSeen    time.Time  `json:"last_seen"`
	Status      Status     `json:"status"`
	CustomTitle string     `json:"custom_title,omitempty"`
	Overrides   *Overrides `json:"overrides,omitempty"`
	MutedUntil  *time.Time `json:"muted_until,omitempty"`
}

func (p *Participant) isStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleModerator
}

// muted reports whether the participant's mute window is still open.
func (p *Participant) muted(now time.Time) bool {
	return p.MutedUntil != nil && now.Before(*p.MutedUntil)
}

// FullPermissions returns the capability set granted to admins.
func FullPermissions() PermissionSet {
	return PermissionSet{
		CanInvite: true,
		CanPin:    true,
		CanDelete: true,
		CanEdit:   true,
		CanMute:   true,
	}
}

// DefaultRoles returns the role templates every room starts with.
func DefaultRoles() map[string]PermissionSet {
	return map[string]PermissionSet{
		RoleAdmin: FullPermissions(),
		RoleModerator: {
			CanInvite: true,
			CanPin:    true,
			CanDelete: true,
			CanEdit:   true,
			CanMute:   true,
		},
		RoleMember: {
			CanInvite: false,
			CanPin:    false,
			CanDelete: false,
			CanEdit:   false,
			CanMute:   false,
		},
	}
}

// ResolvePermissions computes the effective capabilities of a user in this
// room: the role template, overridden field-by-field by the participant's
// explicit overrides. Every mutating operation calls this before touching
// state; UI-side gating is advisory only.
func (r *Room) ResolvePermissions(userID string) (PermissionSet, error) {
	p, ok := r.participant(userID)
	if !ok {
		return PermissionSet{}, ErrNotAParticipant
	}
	perms := r.Roles[p.Role]
	if o := p.Overrides; o != nil {
		if o.CanInvite != nil {
			perms.CanInvite = *o.CanInvite
		}
		if o.CanPin != nil {
			perms.CanPin = *o.CanPin
		}
		if o.CanDelete != nil {
			perms.CanDelete = *o.CanDelete
		}
		if o.CanEdit != nil {
			perms.CanEdit = *o.CanEdit
		}
		if o.CanMute != nil {
			perms.CanMute = *o.CanMute
		}
	}
	return perms, nil
}

// SetOverrides installs per-field permission overrides on a participant.
// Admin only; pass nil to clear.
func (r *Room) SetOverrides(now time.Time, actorID, targetID string, o *Overrides) error {
	if err := r.mutable(); err != nil {
		return err
	}
	actor, ok := r.participant(actorID)
	if !ok {
		return ErrNotAParticipant
	}
	if actor.Role != RoleAdmin {
		return ErrPermissionDenied
	}
	target, ok := r.participant(targetID)
	if !ok {
		return ErrNotAParticipant
	}
	target.Overrides = o
	r.touch(now)
	return nil
}
