package room

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// A MessageType classifies a message within a room.
type MessageType string

const (
	MessageAnnouncement MessageType = "announcement"
	MessageDiscussion   MessageType = "discussion"
	MessageQuestion     MessageType = "question"
)

// An Attachment is an opaque reference to an externally stored file. Upload
// and storage belong to the attachment store; the core only records the
// reference.
type Attachment struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Size       int64     `json:"size"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// An Edit records one prior revision of a message.
type Edit struct {
	Content  string    `json:"content"`
	EditedAt time.Time `json:"edited_at"`
	EditedBy string    `json:"edited_by"`
}

// A Reaction is one user's reaction to a message. A user holds at most one
// reaction per message; reacting again with a different type replaces it.
type Reaction struct {
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	ReactedAt time.Time `json:"reacted_at"`
}

// A Reply is a lightweight threaded response attached to a message.
type Reply struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// A Message is one entry in a room's append-only log. Messages are mutated
// only by Edit (which appends to EditHistory), pinning, and reactions; a
// moderation Delete is the only way one leaves the log.
type Message struct {
	ID          string       `json:"id"`
	RoomID      string       `json:"room_id"`
	SenderID    string       `json:"sender_id"`
	Content     string       `json:"content"`
	Type        MessageType  `json:"type"`
	TopicID     string       `json:"topic_id,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	IsPinned    bool         `json:"is_pinned"`
	IsEdited    bool         `json:"is_edited"`
	EditHistory []Edit       `json:"edit_history,omitempty"`
	Mentions    []string     `json:"mentions,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
	Replies     []Reply      `json:"replies,omitempty"`
}

var (
	mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.-]+)`)
	tagPattern     = regexp.MustCompile(`#([A-Za-z0-9_-]+)`)
)

// extractTokens pulls @mentions and #tags out of message content. Extraction
// happens once at creation time; edits do not re-extract.
func extractTokens(content string) (mentions, tags []string) {
	seen := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		if !seen["@"+m[1]] {
			seen["@"+m[1]] = true
			mentions = append(mentions, m[1])
		}
	}
	for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
		if !seen["#"+m[1]] {
			seen["#"+m[1]] = true
			tags = append(tags, m[1])
		}
	}
	return mentions, tags
}

// PostMessage appends a message to the room log. The sender must be an
// unmuted participant, the topic (if given) must exist, be unlocked and, for
// announcement topics, the sender must be staff. Slow mode applies to
// members only.
func (r *Room) PostMessage(now time.Time, senderID, content string, msgType MessageType, topicID string, attachments []Attachment) (Message, error) {
	if err := r.mutable(); err != nil {
		return Message{}, err
	}
	sender, ok := r.participant(senderID)
	if !ok {
		return Message{}, ErrNotAParticipant
	}
	if sender.muted(now) {
		return Message{}, ErrMuted
	}
	if topicID != "" {
		t, ok := r.topic(topicID)
		if !ok {
			return Message{}, ErrNotFound
		}
		if t.IsLocked {
			return Message{}, ErrTopicLocked
		}
		if t.IsAnnouncement && !sender.isStaff() {
			return Message{}, ErrPermissionDenied
		}
	}
	if err := r.checkSlowMode(now, sender); err != nil {
		return Message{}, err
	}
	if msgType == "" {
		msgType = MessageDiscussion
	}

	mentions, tags := extractTokens(content)
	msg := Message{
		ID:          uuid.NewString(),
		RoomID:      r.ID,
		SenderID:    senderID,
		Content:     content,
		Type:        msgType,
		TopicID:     topicID,
		Attachments: attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
		Mentions:    mentions,
		Tags:        tags,
	}
	r.Messages = append(r.Messages, msg)
	sender.LastSeen = now
	sender.Status = StatusOnline
	r.touch(now)
	return msg, nil
}

// EditMessage replaces a message's content, appending the prior revision to
// its edit history. Allowed for the original sender or anyone with canEdit.
func (r *Room) EditMessage(now time.Time, messageID, editorID, newContent string) (Message, error) {
	if err := r.mutable(); err != nil {
		return Message{}, err
	}
	msg := r.message(messageID)
	if msg == nil {
		return Message{}, ErrNotFound
	}
	if editorID != msg.SenderID {
		perms, err := r.ResolvePermissions(editorID)
		if err != nil {
			return Message{}, err
		}
		if !perms.CanEdit {
			return Message{}, ErrPermissionDenied
		}
	} else if _, ok := r.participant(editorID); !ok {
		return Message{}, ErrNotAParticipant
	}
	msg.EditHistory = append(msg.EditHistory, Edit{
		Content:  msg.Content,
		EditedAt: now,
		EditedBy: editorID,
	})
	msg.Content = newContent
	msg.IsEdited = true
	msg.UpdatedAt = now
	r.touch(now)
	return *msg, nil
}

// PinMessage marks a message pinned and prepends it to the room's pin list,
// most recently pinned first. Requires canPin; pinning twice is a no-op.
func (r *Room) PinMessage(now time.Time, actorID, messageID string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	perms, err := r.ResolvePermissions(actorID)
	if err != nil {
		return err
	}
	if !perms.CanPin {
		return ErrPermissionDenied
	}
	msg := r.message(messageID)
	if msg == nil {
		return ErrNotFound
	}
	if msg.IsPinned {
		return nil
	}
	msg.IsPinned = true
	msg.UpdatedAt = now
	r.PinnedMessageIDs = append([]string{messageID}, r.PinnedMessageIDs...)
	r.touch(now)
	return nil
}

// UnpinMessage clears the pinned flag and drops the id from the pin list.
func (r *Room) UnpinMessage(now time.Time, actorID, messageID string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	perms, err := r.ResolvePermissions(actorID)
	if err != nil {
		return err
	}
	if !perms.CanPin {
		return ErrPermissionDenied
	}
	msg := r.message(messageID)
	if msg == nil {
		return ErrNotFound
	}
	msg.IsPinned = false
	msg.UpdatedAt = now
	r.dropPin(messageID)
	r.touch(now)
	return nil
}

// DeleteMessage removes a message from the log and the pin list. Allowed for
// the sender or anyone with canDelete. Replies already attached survive as
// orphans on the room, keeping their sender and content.
func (r *Room) DeleteMessage(now time.Time, actorID, messageID string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	msg := r.message(messageID)
	if msg == nil {
		return ErrNotFound
	}
	if actorID != msg.SenderID {
		perms, err := r.ResolvePermissions(actorID)
		if err != nil {
			return err
		}
		if !perms.CanDelete {
			return ErrPermissionDenied
		}
	} else if _, ok := r.participant(actorID); !ok {
		return ErrNotAParticipant
	}
	r.OrphanedReplies = append(r.OrphanedReplies, msg.Replies...)
	for i := range r.Messages {
		if r.Messages[i].ID == messageID {
			r.Messages = append(r.Messages[:i], r.Messages[i+1:]...)
			break
		}
	}
	r.dropPin(messageID)
	r.touch(now)
	return nil
}

// ReactToMessage upserts a reaction: a prior reaction by the same user is
// replaced regardless of type, so each user holds at most one reaction per
// message. Last write wins.
func (r *Room) ReactToMessage(now time.Time, messageID, userID, reactionType string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	if _, ok := r.participant(userID); !ok {
		return ErrNotAParticipant
	}
	msg := r.message(messageID)
	if msg == nil {
		return ErrNotFound
	}
	for i := range msg.Reactions {
		if msg.Reactions[i].UserID == userID {
			msg.Reactions[i].Type = reactionType
			msg.Reactions[i].ReactedAt = now
			r.touch(now)
			return nil
		}
	}
	msg.Reactions = append(msg.Reactions, Reaction{
		UserID:    userID,
		Type:      reactionType,
		ReactedAt: now,
	})
	r.touch(now)
	return nil
}

// ReplyToMessage appends a threaded reply to a message. Fails with
// ErrNotFound if the target has been deleted. Replies are not subject to
// slow mode.
func (r *Room) ReplyToMessage(now time.Time, messageID, senderID, content string) (Reply, error) {
	if err := r.mutable(); err != nil {
		return Reply{}, err
	}
	sender, ok := r.participant(senderID)
	if !ok {
		return Reply{}, ErrNotAParticipant
	}
	if sender.muted(now) {
		return Reply{}, ErrMuted
	}
	msg := r.message(messageID)
	if msg == nil {
		return Reply{}, ErrNotFound
	}
	reply := Reply{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Content:   content,
		CreatedAt: now,
	}
	msg.Replies = append(msg.Replies, reply)
	msg.UpdatedAt = now
	sender.LastSeen = now
	r.touch(now)
	return reply, nil
}

// Message returns a copy of the message with the given id for reads.
func (r *Room) Message(messageID string) (Message, error) {
	msg := r.message(messageID)
	if msg == nil {
		return Message{}, ErrNotFound
	}
	return *msg, nil
}

func (r *Room) message(messageID string) *Message {
	for i := range r.Messages {
		if r.Messages[i].ID == messageID {
			return &r.Messages[i]
		}
	}
	return nil
}

func (r *Room) dropPin(messageID string) {
	for i, id := range r.PinnedMessageIDs {
		if id == messageID {
			r.PinnedMessageIDs = append(r.PinnedMessageIDs[:i], r.PinnedMessageIDs[i+1:]...)
			return
		}
	}
}
