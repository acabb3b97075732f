package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhall/rooms-backend/room"
)

// The operation wrappers below submit a single state transition to the room
// owner and, on success, maintain the query rows and message cache. Row and
// cache maintenance is best-effort: the saved aggregate snapshot is the
// source of truth, so failures there are logged, not surfaced.

// UpdateSettings replaces the room settings; on an archived room this is the
// operation that un-archives it.
func (reg *Registry) UpdateSettings(ctx context.Context, roomID, actorID string, s room.Settings) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.UpdateSettings(now, actorID, s)
	})
	return err
}

func (reg *Registry) AddTopic(ctx context.Context, roomID, actorID, name, description string, locked, announcement bool) (room.Topic, error) {
	v, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return r.AddTopic(now, actorID, name, description, locked, announcement)
	})
	if err != nil {
		return room.Topic{}, err
	}
	return v.(room.Topic), nil
}

func (reg *Registry) AddCustomEmoji(ctx context.Context, roomID, actorID, name, url string) (room.Emoji, error) {
	v, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return r.AddCustomEmoji(now, actorID, name, url)
	})
	if err != nil {
		return room.Emoji{}, err
	}
	return v.(room.Emoji), nil
}

func (reg *Registry) PostAnnouncement(ctx context.Context, roomID, actorID, content string, expiresAt *time.Time) (room.Announcement, error) {
	v, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return r.PostAnnouncement(now, actorID, content, expiresAt)
	})
	if err != nil {
		return room.Announcement{}, err
	}
	return v.(room.Announcement), nil
}

// UpdateParticipantRole changes a participant's role and emits a role-change
// notification.
func (reg *Registry) UpdateParticipantRole(ctx context.Context, roomID, actorID, targetID, role string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.UpdateParticipantRole(now, actorID, targetID, role)
	})
	if err != nil {
		return err
	}
	reg.notifier().Notify(ctx, Notification{
		Title:   "Role changed",
		Message: fmt.Sprintf("%s is now %s", targetID, role),
		Type:    "role_change",
	})
	return nil
}

func (reg *Registry) RemoveParticipant(ctx context.Context, roomID, actorID, targetID string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.RemoveParticipant(now, actorID, targetID)
	})
	return err
}

func (reg *Registry) LeaveRoom(ctx context.Context, roomID, userID string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.Leave(now, userID)
	})
	return err
}

func (reg *Registry) TransferOwnership(ctx context.Context, roomID, actorID, targetID string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.TransferOwnership(now, actorID, targetID)
	})
	if err != nil {
		return err
	}
	reg.notifier().Notify(ctx, Notification{
		Title:   "Ownership transferred",
		Message: fmt.Sprintf("%s now owns the room", targetID),
		Type:    "role_change",
	})
	return nil
}

func (reg *Registry) MuteParticipant(ctx context.Context, roomID, actorID, targetID string, duration time.Duration) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.MuteParticipant(now, actorID, targetID, duration)
	})
	return err
}

func (reg *Registry) UnmuteParticipant(ctx context.Context, roomID, actorID, targetID string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.UnmuteParticipant(now, actorID, targetID)
	})
	return err
}

func (reg *Registry) SetOverrides(ctx context.Context, roomID, actorID, targetID string, o *room.Overrides) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.SetOverrides(now, actorID, targetID, o)
	})
	return err
}

// CreateInvite issues an invite and notifies the invited user.
func (reg *Registry) CreateInvite(ctx context.Context, roomID, invitedBy, invitedUser string, ttl time.Duration) (room.Invite, error) {
	v, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return r.CreateInvite(now, invitedBy, invitedUser, ttl)
	})
	if err != nil {
		return room.Invite{}, err
	}
	inv := v.(room.Invite)
	if err := reg.Store.SaveInvite(ctx, inv); err != nil {
		reg.Logger.Error("Could not save invite row", "invite_id", inv.ID, "error", err.Error())
	}
	reg.notifier().Notify(ctx, Notification{
		Title:   "Room invitation",
		Message: fmt.Sprintf("%s invited %s to join", invitedBy, invitedUser),
		Type:    "invite",
	})
	return inv, nil
}

// RespondToInvite accepts or rejects an invite. The invite's room is looked
// up in storage so callers only need the invite id.
func (reg *Registry) RespondToInvite(ctx context.Context, inviteID string, accept bool) (room.Invite, error) {
	roomID, err := reg.Store.InviteRoom(ctx, inviteID)
	if err != nil {
		return room.Invite{}, err
	}
	v, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return r.RespondToInvite(now, inviteID, accept)
	})
	var inv room.Invite
	if i, ok := v.(room.Invite); ok {
		inv = i
	}
	// The invite row tracks terminal transitions, including the lazy
	// expired transition on a failed accept.
	if inv.ID != "" && inv.Status != room.InvitePending {
		if rowErr := reg.Store.UpdateInvite(ctx, inv); rowErr != nil {
			reg.Logger.Error("Could not update invite row", "invite_id", inv.ID, "error", rowErr.Error())
		}
	}
	if err != nil {
		return inv, err
	}
	return inv, nil
}

// PostMessage appends a message to the room log, caches it and notifies.
func (reg *Registry) PostMessage(ctx context.Context, roomID, senderID, content string, msgType room.MessageType, topicID string, attachments []room.Attachment) (room.Message, error) {
	v, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return r.PostMessage(now, senderID, content, msgType, topicID, attachments)
	})
	if err != nil {
		return room.Message{}, err
	}
	msg := v.(room.Message)
	if err := reg.Store.AppendMessage(ctx, msg); err != nil {
		reg.Logger.Error("Could not append message row", "message_id", msg.ID, "error", err.Error())
	}
	if reg.Cache != nil {
		if err := reg.Cache.InsertMessage(ctx, msg); err != nil {
			reg.Logger.Error("Could not cache message", "message_id", msg.ID, "error", err.Error())
		}
	}
	reg.notifier().Notify(ctx, Notification{
		Title:   "New message",
		Message: fmt.Sprintf("%s posted in the room", senderID),
		Type:    "message",
	})
	return msg, nil
}

func (reg *Registry) EditMessage(ctx context.Context, roomID, messageID, editorID, newContent string) (room.Message, error) {
	v, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return r.EditMessage(now, messageID, editorID, newContent)
	})
	if err != nil {
		return room.Message{}, err
	}
	msg := v.(room.Message)
	if err := reg.Store.UpdateMessage(ctx, msg); err != nil {
		reg.Logger.Error("Could not update message row", "message_id", msg.ID, "error", err.Error())
	}
	if reg.Cache != nil {
		if err := reg.Cache.InsertMessage(ctx, msg); err != nil {
			reg.Logger.Error("Could not cache message", "message_id", msg.ID, "error", err.Error())
		}
	}
	return msg, nil
}

func (reg *Registry) PinMessage(ctx context.Context, roomID, actorID, messageID string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.PinMessage(now, actorID, messageID)
	})
	return err
}

func (reg *Registry) UnpinMessage(ctx context.Context, roomID, actorID, messageID string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.UnpinMessage(now, actorID, messageID)
	})
	return err
}

func (reg *Registry) DeleteMessage(ctx context.Context, roomID, actorID, messageID string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.DeleteMessage(now, actorID, messageID)
	})
	if err != nil {
		return err
	}
	if err := reg.Store.DeleteMessage(ctx, roomID, messageID); err != nil {
		reg.Logger.Error("Could not delete message row", "message_id", messageID, "error", err.Error())
	}
	if reg.Cache != nil {
		if err := reg.Cache.RemoveMessage(ctx, roomID, messageID); err != nil {
			reg.Logger.Error("Could not evict message", "message_id", messageID, "error", err.Error())
		}
	}
	return nil
}

func (reg *Registry) ReactToMessage(ctx context.Context, roomID, messageID, userID, reactionType string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.ReactToMessage(now, messageID, userID, reactionType)
	})
	return err
}

func (reg *Registry) ReplyToMessage(ctx context.Context, roomID, messageID, senderID, content string) (room.Reply, error) {
	v, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return r.ReplyToMessage(now, messageID, senderID, content)
	})
	if err != nil {
		return room.Reply{}, err
	}
	return v.(room.Reply), nil
}

// Messages returns the room's message log, newest first. The cache serves
// the hot head of the log; the snapshot fills in the remainder.
func (reg *Registry) Messages(ctx context.Context, roomID string, limit int) ([]room.Message, error) {
	var out []room.Message
	seen := map[string]bool{}
	if reg.Cache != nil {
		cached, err := reg.Cache.ListMessages(ctx, roomID)
		if err != nil {
			reg.Logger.Error("Could not list cached messages", "room_id", roomID, "error", err.Error())
		} else {
			for _, msg := range cached {
				seen[msg.ID] = true
			}
			out = cached
		}
	}

	snap, err := reg.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		msg := snap.Messages[i]
		if !seen[msg.ID] {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (reg *Registry) CreatePoll(ctx context.Context, roomID, creatorID, question string, options []string, flags room.PollFlags) (room.Poll, error) {
	v, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return r.CreatePoll(now, creatorID, question, options, flags)
	})
	if err != nil {
		return room.Poll{}, err
	}
	p := v.(room.Poll)
	reg.notifier().Notify(ctx, Notification{
		Title:        "Poll created",
		Message:      p.Question,
		Type:         "poll_created",
		ScheduledFor: p.EndsAt,
	})
	return p, nil
}

func (reg *Registry) Vote(ctx context.Context, roomID, pollID, optionID, userID string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.Vote(now, pollID, optionID, userID)
	})
	return err
}

func (reg *Registry) ClosePoll(ctx context.Context, roomID, actorID, pollID string) error {
	_, err := reg.do(ctx, roomID, func(now time.Time, r *room.Room) (any, error) {
		return nil, r.ClosePoll(now, actorID, pollID)
	})
	if err != nil {
		return err
	}
	reg.notifier().Notify(ctx, Notification{
		Title:   "Poll closed",
		Message: pollID,
		Type:    "poll_closed",
	})
	return nil
}

// TallyPoll computes poll results from the current snapshot; no state is
// mutated.
func (reg *Registry) TallyPoll(ctx context.Context, roomID, pollID string) (room.Tally, error) {
	snap, err := reg.Room(ctx, roomID)
	if err != nil {
		return room.Tally{}, err
	}
	return snap.TallyPoll(reg.now(), pollID)
}
