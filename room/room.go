// Package room implements the messaging core domain model: room aggregates
// with participants, invites, topics, polls, announcements and an append-only
// message log. All methods are pure state transitions on the aggregate; the
// caller (see the registry package) is responsible for serializing them and
// persisting the result.
package room

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// A Type classifies what a room is used for.
type Type string

const (
	TypeClass   Type = "class"
	TypeStudy   Type = "study"
	TypeGroup   Type = "group"
	TypePrivate Type = "private"
)

// Settings holds the per-room knobs that moderation checks are derived from.
type Settings struct {
	MaxParticipants  int  `json:"max_participants"`
	SlowModeSeconds  int  `json:"slow_mode_seconds"`
	AllowPolls       bool `json:"allow_polls"`
	AutoArchive      bool `json:"auto_archive"`
	ArchiveAfterDays int  `json:"archive_after_days"`
}

// A Topic is a sub-channel within a room used to group messages.
type Topic struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	IsLocked       bool      `json:"is_locked"`
	IsAnnouncement bool      `json:"is_announcement"`
}

// An Announcement is a broadcast notice shown at the top of a room. ExpiresAt
// is a display hint only; expired announcements are not removed from state.
type Announcement struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// An Emoji is a custom reaction image registered on a room.
type Emoji struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// A Room is the aggregate root. All mutations go through its methods; every
// method re-resolves the actor's permissions before touching state.
type Room struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	Description      string                   `json:"description"`
	Type             Type                     `json:"type"`
	CreatedBy        string                   `json:"created_by"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
	ArchivedAt       *time.Time               `json:"archived_at,omitempty"`
	Settings         Settings                 `json:"settings"`
	Roles            map[string]PermissionSet `json:"roles"`
	Participants     []Participant            `json:"participants"`
	PinnedMessageIDs []string                 `json:"pinned_message_ids"`
	Topics           []Topic                  `json:"topics"`
	Polls            []Poll                   `json:"polls"`
	Announcements    []Announcement           `json:"announcements"`
	CustomEmojis     []Emoji                  `json:"custom_emojis"`
	Invites          []Invite                 `json:"invites"`
	Messages         []Message                `json:"messages"`
	OrphanedReplies  []Reply                  `json:"orphaned_replies,omitempty"`
}

// A Spec describes a room to be created. Any participants supplied by the
// caller are added as-is, except that the creator is always inserted as an
// admin with full permissions regardless of what the spec says.
type Spec struct {
	Name         string
	Description  string
	Type         Type
	CreatedBy    string
	Settings     Settings
	Roles        map[string]PermissionSet
	Participants []Participant
}

// New creates a room from a spec. The creator becomes an admin participant
// with full permissions; a room cannot be created without an admin.
func New(now time.Time, spec Spec) (*Room, error) {
	if spec.CreatedBy == "" {
		return nil, fmt.Errorf("creator: %w", ErrNotFound)
	}
	roomType := spec.Type
	if roomType == "" {
		roomType = TypeGroup
	}

	// Role templates for admin and moderator are not overridable; custom
	// templates may only add to the defaults.
	roles := DefaultRoles()
	for name, perms := range spec.Roles {
		if name == RoleAdmin || name == RoleModerator {
			continue
		}
		roles[name] = perms
	}

	r := &Room{
		ID:          uuid.NewString(),
		Name:        spec.Name,
		Description: spec.Description,
		Type:        roomType,
		CreatedBy:   spec.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
		Settings:    spec.Settings,
		Roles:       roles,
	}

	r.Participants = append(r.Participants, Participant{
		UserID:   spec.CreatedBy,
		Role:     RoleAdmin,
		JoinedAt: now,
		LastSeen: now,
		Status:   StatusOnline,
	})
	for _, p := range spec.Participants {
		if p.UserID == spec.CreatedBy {
			continue
		}
		if _, ok := r.participant(p.UserID); ok {
			continue
		}
		if p.Role == "" {
			p.Role = RoleMember
		}
		p.JoinedAt = now
		r.Participants = append(r.Participants, p)
	}
	return r, nil
}

// participant returns a pointer into the roster, or false if userID has no
// membership record.
func (r *Room) participant(userID string) (*Participant, bool) {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			return &r.Participants[i], true
		}
	}
	return nil, false
}

// mutable reports whether the room accepts mutations. Archived rooms reject
// everything except reads and UpdateSettings.
func (r *Room) mutable() error {
	if r.ArchivedAt != nil {
		return ErrRoomArchived
	}
	return nil
}

func (r *Room) touch(now time.Time) {
	r.UpdatedAt = now
}

// UpdateSettings replaces the room settings. It is the only mutation allowed
// on an archived room: touching the settings un-archives it, and the next
// archive sweep re-archives if the room is still eligible.
func (r *Room) UpdateSettings(now time.Time, actorID string, s Settings) error {
	p, ok := r.participant(actorID)
	if !ok {
		return ErrNotAParticipant
	}
	if p.Role != RoleAdmin {
		return ErrPermissionDenied
	}
	r.Settings = s
	r.ArchivedAt = nil
	r.touch(now)
	return nil
}

// AddTopic registers a new topic. Restricted to admins and moderators.
func (r *Room) AddTopic(now time.Time, actorID, name, description string, locked, announcement bool) (Topic, error) {
	if err := r.mutable(); err != nil {
		return Topic{}, err
	}
	p, ok := r.participant(actorID)
	if !ok {
		return Topic{}, ErrNotAParticipant
	}
	if !p.isStaff() {
		return Topic{}, ErrPermissionDenied
	}
	t := Topic{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    description,
		CreatedBy:      actorID,
		CreatedAt:      now,
		IsLocked:       locked,
		IsAnnouncement: announcement,
	}
	r.Topics = append(r.Topics, t)
	r.touch(now)
	return t, nil
}

func (r *Room) topic(topicID string) (*Topic, bool) {
	for i := range r.Topics {
		if r.Topics[i].ID == topicID {
			return &r.Topics[i], true
		}
	}
	return nil, false
}

// AddCustomEmoji registers a custom emoji on the room.
func (r *Room) AddCustomEmoji(now time.Time, actorID, name, url string) (Emoji, error) {
	if err := r.mutable(); err != nil {
		return Emoji{}, err
	}
	if _, ok := r.participant(actorID); !ok {
		return Emoji{}, ErrNotAParticipant
	}
	e := Emoji{
		ID:        uuid.NewString(),
		Name:      name,
		URL:       url,
		CreatedBy: actorID,
		CreatedAt: now,
	}
	r.CustomEmojis = append(r.CustomEmojis, e)
	r.touch(now)
	return e, nil
}

// PostAnnouncement publishes an announcement. Restricted to admins and
// moderators.
func (r *Room) PostAnnouncement(now time.Time, actorID, content string, expiresAt *time.Time) (Announcement, error) {
	if err := r.mutable(); err != nil {
		return Announcement{}, err
	}
	p, ok := r.participant(actorID)
	if !ok {
		return Announcement{}, ErrNotAParticipant
	}
	if !p.isStaff() {
		return Announcement{}, ErrPermissionDenied
	}
	a := Announcement{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedBy: actorID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	r.Announcements = append(r.Announcements, a)
	r.touch(now)
	return a, nil
}

// UpdateParticipantRole changes a participant's role to one of the room's
// role templates, clearing any per-field overrides. Requires canMute; an
// admin can only be demoted by another admin, and actors cannot change their
// own role (use TransferOwnership).
func (r *Room) UpdateParticipantRole(now time.Time, actorID, targetID, role string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	perms, err := r.ResolvePermissions(actorID)
	if err != nil {
		return err
	}
	if !perms.CanMute {
		return ErrPermissionDenied
	}
	if actorID == targetID {
		return ErrPermissionDenied
	}
	target, ok := r.participant(targetID)
	if !ok {
		return ErrNotAParticipant
	}
	if _, ok := r.Roles[role]; !ok {
		return fmt.Errorf("role %q: %w", role, ErrNotFound)
	}
	actor, _ := r.participant(actorID)
	if target.Role == RoleAdmin && actor.Role != RoleAdmin {
		return ErrPermissionDenied
	}
	target.Role = role
	target.Overrides = nil
	r.touch(now)
	return nil
}

// RemoveParticipant kicks a participant out of the room. Requires canMute;
// admins can only be removed by other admins. Self-removal is rejected, the
// Leave operation is the only path out for the actor themselves.
func (r *Room) RemoveParticipant(now time.Time, actorID, targetID string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	perms, err := r.ResolvePermissions(actorID)
	if err != nil {
		return err
	}
	if !perms.CanMute {
		return ErrPermissionDenied
	}
	if actorID == targetID {
		return ErrPermissionDenied
	}
	target, ok := r.participant(targetID)
	if !ok {
		return ErrNotAParticipant
	}
	actor, _ := r.participant(actorID)
	if target.Role == RoleAdmin && actor.Role != RoleAdmin {
		return ErrPermissionDenied
	}
	r.dropParticipant(targetID)
	r.touch(now)
	return nil
}

// Leave removes the caller from the roster. The last remaining admin cannot
// leave; ownership must be transferred first so the room never ends up
// without an admin.
func (r *Room) Leave(now time.Time, userID string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	p, ok := r.participant(userID)
	if !ok {
		return ErrNotAParticipant
	}
	if p.Role == RoleAdmin && r.countRole(RoleAdmin) == 1 {
		return ErrPermissionDenied
	}
	r.dropParticipant(userID)
	r.touch(now)
	return nil
}

// TransferOwnership promotes target to admin with full permissions and
// demotes the calling admin to moderator.
func (r *Room) TransferOwnership(now time.Time, actorID, targetID string) error {
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
	target.Role = RoleAdmin
	target.Overrides = nil
	actor.Role = RoleModerator
	actor.Overrides = nil
	r.touch(now)
	return nil
}

// MuteParticipant silences a participant until now+duration. Requires
// canMute; admins can only be muted by other admins.
func (r *Room) MuteParticipant(now time.Time, actorID, targetID string, duration time.Duration) error {
	if err := r.mutable(); err != nil {
		return err
	}
	perms, err := r.ResolvePermissions(actorID)
	if err != nil {
		return err
	}
	if !perms.CanMute || actorID == targetID {
		return ErrPermissionDenied
	}
	target, ok := r.participant(targetID)
	if !ok {
		return ErrNotAParticipant
	}
	actor, _ := r.participant(actorID)
	if target.Role == RoleAdmin && actor.Role != RoleAdmin {
		return ErrPermissionDenied
	}
	until := now.Add(duration)
	target.MutedUntil = &until
	r.touch(now)
	return nil
}

// UnmuteParticipant lifts a mute before it expires on its own.
func (r *Room) UnmuteParticipant(now time.Time, actorID, targetID string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	perms, err := r.ResolvePermissions(actorID)
	if err != nil {
		return err
	}
	if !perms.CanMute {
		return ErrPermissionDenied
	}
	target, ok := r.participant(targetID)
	if !ok {
		return ErrNotAParticipant
	}
	target.MutedUntil = nil
	r.touch(now)
	return nil
}

func (r *Room) dropParticipant(userID string) {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return
		}
	}
}

func (r *Room) countRole(role string) int {
	n := 0
	for i := range r.Participants {
		if r.Participants[i].Role == role {
			n++
		}
	}
	return n
}
