package room

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestPostMessage_extractsMentionsAndTags(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantMentions []string
		wantTags     []string
	}{
		{
			name:         "both",
			content:      "hey @alice and @bob, see #homework and #exam-prep",
			wantMentions: []string{"alice", "bob"},
			wantTags:     []string{"homework", "exam-prep"},
		},
		{
			name:         "duplicates collapse",
			content:      "@alice @alice #go #go",
			wantMentions: []string{"alice"},
			wantTags:     []string{"go"},
		},
		{
			name:    "plain text",
			content: "no tokens here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRoom(t, Settings{})
			msg, err := r.PostMessage(t0, "u1", tt.content, MessageDiscussion, "", nil)
			if err != nil {
				t.Fatalf("PostMessage: %v", err)
			}
			if diff := cmp.Diff(tt.wantMentions, msg.Mentions); diff != "" {
				t.Errorf("Mentions mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantTags, msg.Tags); diff != "" {
				t.Errorf("Tags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPostMessage_topicRules(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")

	locked, err := r.AddTopic(t0, "u1", "archive", "", true, false)
	if err != nil {
		t.Fatalf("AddTopic: %v", err)
	}
	announce, err := r.AddTopic(t0, "u1", "announcements", "", false, true)
	if err != nil {
		t.Fatalf("AddTopic: %v", err)
	}

	if _, err := r.PostMessage(t0, "u1", "hi", MessageDiscussion, locked.ID, nil); !errors.Is(err, ErrTopicLocked) {
		t.Errorf("Locked topic: got %v, want %v", err, ErrTopicLocked)
	}
	if _, err := r.PostMessage(t0, "u2", "hi", MessageDiscussion, announce.ID, nil); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Announcement topic as member: got %v, want %v", err, ErrPermissionDenied)
	}
	if _, err := r.PostMessage(t0, "u1", "hi", MessageAnnouncement, announce.ID, nil); err != nil {
		t.Errorf("Announcement topic as admin: %v", err)
	}
	if _, err := r.PostMessage(t0, "u1", "hi", MessageDiscussion, "no-such-topic", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Unknown topic: got %v, want %v", err, ErrNotFound)
	}
}

func TestPostMessage_slowMode(t *testing.T) {
	r := newTestRoom(t, Settings{SlowModeSeconds: 5})
	addMember(t, r, "u2")

	// t=0 ok, t=3 violates, t=6 ok.
	if _, err := r.PostMessage(t0, "u2", "first", MessageDiscussion, "", nil); err != nil {
		t.Fatalf("Post at t=0: %v", err)
	}
	if _, err := r.PostMessage(t0.Add(3*time.Second), "u2", "too fast", MessageDiscussion, "", nil); !errors.Is(err, ErrSlowModeViolation) {
		t.Fatalf("Post at t=3: got %v, want %v", err, ErrSlowModeViolation)
	}
	if _, err := r.PostMessage(t0.Add(6*time.Second), "u2", "ok again", MessageDiscussion, "", nil); err != nil {
		t.Fatalf("Post at t=6: %v", err)
	}

	// Staff are exempt.
	if _, err := r.PostMessage(t0, "u1", "a", MessageDiscussion, "", nil); err != nil {
		t.Fatalf("Admin post: %v", err)
	}
	if _, err := r.PostMessage(t0.Add(time.Second), "u1", "b", MessageDiscussion, "", nil); err != nil {
		t.Errorf("Admin rapid post: %v", err)
	}
}

func TestEditMessage(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")
	addMember(t, r, "u3")
	msg, err := r.PostMessage(t0, "u2", "v1", MessageDiscussion, "", nil)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	// Another member without canEdit is refused.
	if _, err := r.EditMessage(t0.Add(time.Minute), msg.ID, "u3", "vandalism"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Edit by other member: got %v, want %v", err, ErrPermissionDenied)
	}

	// Self-edit appends exactly one history entry.
	edited, err := r.EditMessage(t0.Add(time.Minute), msg.ID, "u2", "v2")
	if err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if !edited.IsEdited {
		t.Error("IsEdited not set")
	}
	if len(edited.EditHistory) != 1 {
		t.Fatalf("Got %d history entries, want 1", len(edited.EditHistory))
	}
	if edited.EditHistory[0].Content != "v1" {
		t.Errorf("Got history content %q, want v1", edited.EditHistory[0].Content)
	}

	// Admin edit via canEdit grows history again; history never shrinks.
	edited, err = r.EditMessage(t0.Add(2*time.Minute), msg.ID, "u1", "v3")
	if err != nil {
		t.Fatalf("EditMessage by admin: %v", err)
	}
	if len(edited.EditHistory) != 2 {
		t.Errorf("Got %d history entries, want 2", len(edited.EditHistory))
	}
	if edited.Content != "v3" {
		t.Errorf("Got content %q, want v3", edited.Content)
	}
}

func TestPinMessage(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")
	m1, _ := r.PostMessage(t0, "u1", "one", MessageDiscussion, "", nil)
	m2, _ := r.PostMessage(t0.Add(time.Second), "u1", "two", MessageDiscussion, "", nil)

	if err := r.PinMessage(t0, "u2", m1.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Pin as member: got %v, want %v", err, ErrPermissionDenied)
	}
	if err := r.PinMessage(t0, "u1", m1.ID); err != nil {
		t.Fatalf("PinMessage: %v", err)
	}
	if err := r.PinMessage(t0, "u1", m2.ID); err != nil {
		t.Fatalf("PinMessage: %v", err)
	}
	// Re-pinning is a no-op, and most recently pinned comes first.
	if err := r.PinMessage(t0, "u1", m2.ID); err != nil {
		t.Fatalf("Re-pin: %v", err)
	}
	want := []string{m2.ID, m1.ID}
	if diff := cmp.Diff(want, r.PinnedMessageIDs); diff != "" {
		t.Errorf("Pin order mismatch (-want +got):\n%s", diff)
	}

	// Every pinned id resolves to a live message of this room.
	for _, id := range r.PinnedMessageIDs {
		m, err := r.Message(id)
		if err != nil {
			t.Errorf("Pinned id %s does not resolve: %v", id, err)
			continue
		}
		if m.RoomID != r.ID {
			t.Errorf("Pinned message %s belongs to room %s", id, m.RoomID)
		}
	}

	if err := r.UnpinMessage(t0, "u1", m2.ID); err != nil {
		t.Fatalf("UnpinMessage: %v", err)
	}
	if diff := cmp.Diff([]string{m1.ID}, r.PinnedMessageIDs); diff != "" {
		t.Errorf("Pin list after unpin (-want +got):\n%s", diff)
	}
}

func TestDeleteMessage(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")
	addMember(t, r, "u3")
	msg, _ := r.PostMessage(t0, "u2", "delete me", MessageDiscussion, "", nil)
	if err := r.PinMessage(t0, "u1", msg.ID); err != nil {
		t.Fatalf("PinMessage: %v", err)
	}

	if err := r.DeleteMessage(t0, "u3", msg.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Delete by other member: got %v, want %v", err, ErrPermissionDenied)
	}
	if err := r.DeleteMessage(t0, "u2", msg.ID); err != nil {
		t.Fatalf("Self delete: %v", err)
	}
	if _, err := r.Message(msg.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deleted message still readable: %v", err)
	}
	if len(r.PinnedMessageIDs) != 0 {
		t.Errorf("Pin list still references deleted message: %v", r.PinnedMessageIDs)
	}

	// Replying to a deleted message fails.
	if _, err := r.ReplyToMessage(t0, msg.ID, "u3", "too late"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Reply to deleted: got %v, want %v", err, ErrNotFound)
	}
}

func TestDeleteMessage_orphansReplies(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")
	msg, _ := r.PostMessage(t0, "u1", "parent", MessageDiscussion, "", nil)
	reply, err := r.ReplyToMessage(t0.Add(time.Second), msg.ID, "u2", "still useful")
	if err != nil {
		t.Fatalf("ReplyToMessage: %v", err)
	}

	if err := r.DeleteMessage(t0.Add(time.Minute), "u1", msg.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}

	// The reply outlives its parent with sender and content intact.
	if len(r.OrphanedReplies) != 1 {
		t.Fatalf("Got %d orphaned replies, want 1", len(r.OrphanedReplies))
	}
	got := r.OrphanedReplies[0]
	if got.ID != reply.ID || got.SenderID != "u2" || got.Content != "still useful" {
		t.Errorf("Bad orphaned reply: %+v", got)
	}
}

func TestReactToMessage_upsert(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")
	msg, _ := r.PostMessage(t0, "u1", "react to me", MessageDiscussion, "", nil)

	if err := r.ReactToMessage(t0, msg.ID, "u2", "thumbs_up"); err != nil {
		t.Fatalf("ReactToMessage: %v", err)
	}
	// Same user, different type: replaced, not appended.
	if err := r.ReactToMessage(t0.Add(time.Second), msg.ID, "u2", "heart"); err != nil {
		t.Fatalf("ReactToMessage: %v", err)
	}
	if err := r.ReactToMessage(t0, msg.ID, "u1", "thumbs_up"); err != nil {
		t.Fatalf("ReactToMessage: %v", err)
	}

	got, err := r.Message(msg.ID)
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if len(got.Reactions) != 2 {
		t.Fatalf("Got %d reactions, want 2", len(got.Reactions))
	}
	for _, rc := range got.Reactions {
		if rc.UserID == "u2" && rc.Type != "heart" {
			t.Errorf("Got u2 reaction %q, want heart", rc.Type)
		}
	}
}

func TestReplyToMessage(t *testing.T) {
	r := newTestRoom(t, Settings{})
	addMember(t, r, "u2")
	msg, _ := r.PostMessage(t0, "u1", "question?", MessageQuestion, "", nil)

	reply, err := r.ReplyToMessage(t0.Add(time.Second), msg.ID, "u2", "answer")
	if err != nil {
		t.Fatalf("ReplyToMessage: %v", err)
	}
	if reply.ID == "" || reply.SenderID != "u2" {
		t.Errorf("Bad reply: %+v", reply)
	}
	got, _ := r.Message(msg.ID)
	if len(got.Replies) != 1 {
		t.Errorf("Got %d replies, want 1", len(got.Replies))
	}

	// Muted participants cannot reply either.
	if err := r.MuteParticipant(t0, "u1", "u2", time.Hour); err != nil {
		t.Fatalf("MuteParticipant: %v", err)
	}
	if _, err := r.ReplyToMessage(t0.Add(2*time.Second), msg.ID, "u2", "more"); !errors.Is(err, ErrMuted) {
		t.Errorf("Reply while muted: got %v, want %v", err, ErrMuted)
	}
}
