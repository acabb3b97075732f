package room

import "time"

// Clone returns a deep copy of the room. The registry publishes a clone as
// the read snapshot after every successful mutation, so readers never share
// memory with the owner goroutine.
func (r *Room) Clone() *Room {
	cp := *r

	cp.Roles = make(map[string]PermissionSet, len(r.Roles))
	for name, perms := range r.Roles {
		cp.Roles[name] = perms
	}

	cp.Participants = make([]Participant, len(r.Participants))
	for i, p := range r.Participants {
		if p.Overrides != nil {
			o := *p.Overrides
			o.CanInvite = copyBool(p.Overrides.CanInvite)
			o.CanPin = copyBool(p.Overrides.CanPin)
			o.CanDelete = copyBool(p.Overrides.CanDelete)
			o.CanEdit = copyBool(p.Overrides.CanEdit)
			o.CanMute = copyBool(p.Overrides.CanMute)
			p.Overrides = &o
		}
		p.MutedUntil = copyTime(p.MutedUntil)
		cp.Participants[i] = p
	}

	cp.PinnedMessageIDs = append([]string(nil), r.PinnedMessageIDs...)
	cp.Topics = append([]Topic(nil), r.Topics...)
	cp.CustomEmojis = append([]Emoji(nil), r.CustomEmojis...)
	cp.Invites = append([]Invite(nil), r.Invites...)

	cp.Announcements = make([]Announcement, len(r.Announcements))
	for i, a := range r.Announcements {
		a.ExpiresAt = copyTime(a.ExpiresAt)
		cp.Announcements[i] = a
	}

	cp.Polls = make([]Poll, len(r.Polls))
	for i, p := range r.Polls {
		p.EndsAt = copyTime(p.EndsAt)
		p.ClosedAt = copyTime(p.ClosedAt)
		opts := make([]PollOption, len(p.Options))
		for j, opt := range p.Options {
			opt.Votes = append([]string(nil), opt.Votes...)
			opts[j] = opt
		}
		p.Options = opts
		cp.Polls[i] = p
	}

	cp.Messages = make([]Message, len(r.Messages))
	for i, m := range r.Messages {
		m.Attachments = append([]Attachment(nil), m.Attachments...)
		m.EditHistory = append([]Edit(nil), m.EditHistory...)
		m.Mentions = append([]string(nil), m.Mentions...)
		m.Tags = append([]string(nil), m.Tags...)
		m.Reactions = append([]Reaction(nil), m.Reactions...)
		m.Replies = append([]Reply(nil), m.Replies...)
		cp.Messages[i] = m
	}

	cp.OrphanedReplies = append([]Reply(nil), r.OrphanedReplies...)

	cp.ArchivedAt = copyTime(r.ArchivedAt)
	return &cp
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
