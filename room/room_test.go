package room

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestRoom(t *testing.T, settings Settings) *Room {
	t.Helper()
	r, err := New(t0, Spec{
		Name:      "algorithms study group",
		Type:      TypeStudy,
		CreatedBy: "u1",
		Settings:  settings,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func addMember(t *testing.T, r *Room, userID string) {
	t.Helper()
	inv, err := r.CreateInvite(t0, "u1", userID, time.Hour)
	if err != nil {
		t.Fatalf("CreateInvite(%s): %v", userID, err)
	}
	if _, err := r.RespondToInvite(t0, inv.ID, true); err != nil {
		t.Fatalf("RespondToInvite(%s): %v", userID, err)
	}
}

func TestNew_creatorIsAdmin(t *testing.T) {
	r := newTestRoom(t, Settings{})

	p, ok := r.participant("u1")
	if !ok {
		t.Fatal("creator is not a participant")
	}
	if p.Role != RoleAdmin {
		t.Errorf("Got role %q, want %q", p.Role, RoleAdmin)
	}
	perms, err := r.ResolvePermissions("u1")
	if err != nil {
		t.Fatalf("ResolvePermissions: %v", err)
	}
	if diff := cmp.Diff(FullPermissions(), perms); diff != "" {
		t.Errorf("Creator permissions mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_staffTemplatesNotOverridable(t *testing.T) {
	// The caller-supplied templates cannot demote the creator or weaken the
	// admin and moderator templates; custom roles still land.
	r, err := New(t0, Spec{
		Name:      "sneaky",
		CreatedBy: "u1",
		Roles: map[string]PermissionSet{
			RoleAdmin:     {},
			RoleModerator: {},
			"helper":      {CanPin: true},
		},
		Participants: []Participant{
			{UserID: "u1", Role: RoleMember},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, _ := r.participant("u1")
	if p.Role != RoleAdmin {
		t.Errorf("Got role %q, want %q", p.Role, RoleAdmin)
	}
	if got := r.Roles[RoleAdmin]; got != FullPermissions() {
		t.Errorf("Admin template was weakened: %+v", got)
	}
	if got, want := r.Roles[RoleModerator], DefaultRoles()[RoleModerator]; got != want {
		t.Errorf("Moderator template was weakened: %+v", got)
	}
	if got := r.Roles["helper"]; !got.CanPin {
		t.Errorf("Custom template dropped: %+v", got)
	}
}

func TestNew_noDuplicateParticipants(t *testing.T) {
	r, err := New(t0, Spec{
		Name:      "dups",
		CreatedBy: "u1",
		Participants: []Participant{
			{UserID: "u2"},
			{UserID: "u2"},
			{UserID: "u3"},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seen := map[string]bool{}
	for _, p := range r.Participants {
		if seen[p.UserID] {
			t.Errorf("Duplicate participant %q", p.UserID)
		}
		seen[p.UserID] = true
	}
	if len(r.Participants) != 3 {
		t.Errorf("Got %d participants, want 3", len(r.Participants))
	}
}

func TestResolvePermissions(t *testing.T) {
	yes := true
	no := false

	tests := []struct {
		name      string
		role      string
		overrides *Overrides
		userID    string
		want      PermissionSet
		wantErr   error
	}{
		{
			name:   "member defaults",
			role:   RoleMember,
			userID: "u2",
			want:   PermissionSet{},
		},
		{
			name:   "moderator defaults",
			role:   RoleModerator,
			userID: "u2",
			want:   FullPermissions(),
		},
		{
			name:      "member with invite override",
			role:      RoleMember,
			userID:    "u2",
			overrides: &Overrides{CanInvite: &yes},
			want:      PermissionSet{CanInvite: true},
		},
		{
			name:      "moderator with revoked mute",
			role:      RoleModerator,
			userID:    "u2",
			overrides: &Overrides{CanMute: &no},
			want: PermissionSet{
				CanInvite: true,
				CanPin:    true,
				CanDelete: true,
				CanEdit:   true,
			},
		},
		{
			name:    "stranger",
			role:    RoleMember,
			userID:  "ghost",
			wantErr: ErrNotAParticipant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRoom(t, Settings{})
			addMember(t, r, "u2")
			p, _ := r.participant("u2")
			p.Role = tt.role
			p.Overrides = tt.overrides

			got, err := r.ResolvePermissions(tt.userID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Got error %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUpdateParticipantRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		target  string
		role    string
		setup   func(r *Room)
		wantErr error
	}{
		{
			name:   "admin promotes member",
			actor:  "u1",
			target: "u2",
			role:   RoleModerator,
		},
		{
			name:    "member cannot change roles",
			actor:   "u3",
			target:  "u2",
			role:    RoleModerator,
			wantErr: ErrPermissionDenied,
		},
		{
			name:   "moderator cannot demote admin",
			actor:  "u2",
			target: "u1",
			role:   RoleMember,
			setup: func(r *Room) {
				p, _ := r.participant("u2")
				p.Role = RoleModerator
			},
			wantErr: ErrPermissionDenied,
		},
		{
			name:    "cannot change own role",
			actor:   "u1",
			target:  "u1",
			role:    RoleMember,
			wantErr: ErrPermissionDenied,
		},
		{
			name:    "unknown role template",
			actor:   "u1",
			target:  "u2",
			role:    "wizard",
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRoom(t, Settings{})
			addMember(t, r, "u2")
			addMember(t, r, "u3")
			if tt.setup != nil {
				tt.setup(r)
			}

			err := r.UpdateParticipantRole(t0.Add(time.Minute), tt.actor, tt.target, tt.role)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Got error %v, want %v", err, tt.wantErr)
			}
			if err == nil {
				p, _ := r.participant(tt.target)
				if p.Role != tt.role {
					t.Errorf("Got role %q, want %q", p.Role, tt.role)
				}
			}
		})
	}
}

func TestRemoveParticipant_selfRejected(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")

	if err := r.RemoveParticipant(t0, "u1", "u1"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Got error %v, want %v", err, ErrPermissionDenied)
	}
	if err := r.RemoveParticipant(t0, "u1", "u2"); err != nil {
		t.Errorf("Admin remove member: %v", err)
	}
	if _, ok := r.participant("u2"); ok {
		t.Error("u2 still in roster after removal")
	}
}

func TestLeave(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")

	// Sole admin cannot leave.
	if err := r.Leave(t0, "u1"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Got error %v, want %v", err, ErrPermissionDenied)
	}
	if err := r.Leave(t0, "u2"); err != nil {
		t.Errorf("Member leave: %v", err)
	}
	if _, ok := r.participant("u2"); ok {
		t.Error("u2 still in roster after leaving")
	}
}

func TestTransferOwnership(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")

	if err := r.TransferOwnership(t0, "u2", "u1"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Got error %v, want %v", err, ErrPermissionDenied)
	}
	if err := r.TransferOwnership(t0, "u1", "u2"); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	newOwner, _ := r.participant("u2")
	oldOwner, _ := r.participant("u1")
	if newOwner.Role != RoleAdmin {
		t.Errorf("Got new owner role %q, want %q", newOwner.Role, RoleAdmin)
	}
	if oldOwner.Role != RoleModerator {
		t.Errorf("Got old owner role %q, want %q", oldOwner.Role, RoleModerator)
	}

	// The previous owner may now leave.
	if err := r.Leave(t0, "u1"); err != nil {
		t.Errorf("Leave after transfer: %v", err)
	}
}

func TestMuteParticipant(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")

	if err := r.MuteParticipant(t0, "u1", "u2", 10*time.Minute); err != nil {
		t.Fatalf("MuteParticipant: %v", err)
	}

	if _, err := r.PostMessage(t0.Add(time.Minute), "u2", "hi", MessageDiscussion, "", nil); !errors.Is(err, ErrMuted) {
		t.Errorf("Got error %v, want %v", err, ErrMuted)
	}
	// Mute expires on its own.
	if _, err := r.PostMessage(t0.Add(11*time.Minute), "u2", "hi", MessageDiscussion, "", nil); err != nil {
		t.Errorf("PostMessage after mute expiry: %v", err)
	}
}

func TestUnmuteParticipant(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")

	if err := r.MuteParticipant(t0, "u1", "u2", time.Hour); err != nil {
		t.Fatalf("MuteParticipant: %v", err)
	}
	if err := r.UnmuteParticipant(t0, "u2", "u2"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Got error %v, want %v", err, ErrPermissionDenied)
	}
	if err := r.UnmuteParticipant(t0, "u1", "u2"); err != nil {
		t.Fatalf("UnmuteParticipant: %v", err)
	}
	if _, err := r.PostMessage(t0.Add(time.Minute), "u2", "hi", MessageDiscussion, "", nil); err != nil {
		t.Errorf("PostMessage after unmute: %v", err)
	}
}

func TestArchive(t *testing.T) {
	r := newTestRoom(t, Settings{AutoArchive: true, ArchiveAfterDays: 7})

	if r.ArchiveEligible(t0.Add(24 * time.Hour)) {
		t.Error("Room eligible for archive after one day")
	}
	if !r.ArchiveEligible(t0.Add(8 * 24 * time.Hour)) {
		t.Error("Room not eligible for archive after eight days")
	}

	// A fresh message resets the clock.
	if _, err := r.PostMessage(t0.Add(7*24*time.Hour), "u1", "still here", MessageDiscussion, "", nil); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if r.ArchiveEligible(t0.Add(8 * 24 * time.Hour)) {
		t.Error("Room eligible for archive right after a message")
	}

	r.Archive(t0.Add(20 * 24 * time.Hour))
	if r.ArchivedAt == nil {
		t.Fatal("ArchivedAt not set")
	}

	// Archived rooms reject mutations.
	if _, err := r.PostMessage(t0.Add(21*24*time.Hour), "u1", "hi", MessageDiscussion, "", nil); !errors.Is(err, ErrRoomArchived) {
		t.Errorf("Got error %v, want %v", err, ErrRoomArchived)
	}
	if _, err := r.CreateInvite(t0.Add(21*24*time.Hour), "u1", "u9", 0); !errors.Is(err, ErrRoomArchived) {
		t.Errorf("Got error %v, want %v", err, ErrRoomArchived)
	}

	// UpdateSettings is the one allowed mutation and un-archives.
	if err := r.UpdateSettings(t0.Add(21*24*time.Hour), "u1", Settings{}); err != nil {
		t.Fatalf("UpdateSettings on archived room: %v", err)
	}
	if r.ArchivedAt != nil {
		t.Error("Room still archived after UpdateSettings")
	}
	if _, err := r.PostMessage(t0.Add(22*24*time.Hour), "u1", "back", MessageDiscussion, "", nil); err != nil {
		t.Errorf("PostMessage after un-archive: %v", err)
	}
}

func TestAddTopicAndAnnouncement_staffOnly(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")

	if _, err := r.AddTopic(t0, "u2", "general", "", false, false); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("AddTopic as member: got %v, want %v", err, ErrPermissionDenied)
	}
	if _, err := r.AddTopic(t0, "u1", "general", "", false, false); err != nil {
		t.Errorf("AddTopic as admin: %v", err)
	}
	if _, err := r.PostAnnouncement(t0, "u2", "exam friday", nil); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("PostAnnouncement as member: got %v, want %v", err, ErrPermissionDenied)
	}
	if _, err := r.PostAnnouncement(t0, "u1", "exam friday", nil); err != nil {
		t.Errorf("PostAnnouncement as admin: %v", err)
	}
}

func TestAddCustomEmoji(t *testing.T) {
	r := newTestRoom(t, Settings{})
	e, err := r.AddCustomEmoji(t0, "u1", "gopher", "https://cdn.example.com/gopher.png")
	if err != nil {
		t.Fatalf("AddCustomEmoji: %v", err)
	}
	if e.ID == "" || e.Name != "gopher" {
		t.Errorf("Bad emoji: %+v", e)
	}
	if len(r.CustomEmojis) != 1 {
		t.Errorf("Got %d emojis, want 1", len(r.CustomEmojis))
	}
}

func TestClone_isolatedFromOriginal(t *testing.T) {
	r := newTestRoom(t, Settings{AllowPolls: true})
	addMember(t, r, "u2")
	msg, err := r.PostMessage(t0, "u1", "hello @u2 #intro", MessageDiscussion, "", nil)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if _, err := r.CreatePoll(t0, "u1", "q?", []string{"a", "b"}, PollFlags{}); err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}

	snap := r.Clone()
	if err := r.ReactToMessage(t0, msg.ID, "u2", "thumbs_up"); err != nil {
		t.Fatalf("ReactToMessage: %v", err)
	}
	if err := r.Vote(t0, r.Polls[0].ID, r.Polls[0].Options[0].ID, "u2"); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	r.Participants[0].Role = RoleMember

	if len(snap.Messages[0].Reactions) != 0 {
		t.Error("Snapshot saw a reaction added after cloning")
	}
	if len(snap.Polls[0].Options[0].Votes) != 0 {
		t.Error("Snapshot saw a vote added after cloning")
	}
	if snap.Participants[0].Role != RoleAdmin {
		t.Error("Snapshot saw a role change after cloning")
	}
}
