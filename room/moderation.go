package room

import "time"

// Moderation checks are derived from the message log and settings rather
// than stored as separate state, so they cannot drift from the source of
// truth.

// checkSlowMode rejects a post when settings.slowMode seconds have not
// elapsed since the sender's previous message in this room. Admins and
// moderators are exempt.
func (r *Room) checkSlowMode(now time.Time, sender *Participant) error {
	if r.Settings.SlowModeSeconds <= 0 || sender.isStaff() {
		return nil
	}
	last, ok := r.lastMessageAt(sender.UserID)
	if !ok {
		return nil
	}
	if now.Sub(last) < time.Duration(r.Settings.SlowModeSeconds)*time.Second {
		return ErrSlowModeViolation
	}
	return nil
}

// lastMessageAt returns the creation time of the sender's most recent
// message. The log is append-only, so the scan runs newest-first.
func (r *Room) lastMessageAt(senderID string) (time.Time, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].SenderID == senderID {
			return r.Messages[i].CreatedAt, true
		}
	}
	return time.Time{}, false
}

// ArchiveEligible reports whether the auto-archive sweep should archive this
// room: autoArchive enabled, not already archived, and no message posted
// within archiveAfter days. A room with no messages ages from its creation
// time.
func (r *Room) ArchiveEligible(now time.Time) bool {
	if !r.Settings.AutoArchive || r.ArchivedAt != nil || r.Settings.ArchiveAfterDays <= 0 {
		return false
	}
	last := r.CreatedAt
	if n := len(r.Messages); n > 0 {
		last = r.Messages[n-1].CreatedAt
	}
	return now.Sub(last) > time.Duration(r.Settings.ArchiveAfterDays)*24*time.Hour
}

// Archive moves the room to the archived state. Archived rooms reject every
// mutation except UpdateSettings, which un-archives.
func (r *Room) Archive(now time.Time) {
	if r.ArchivedAt != nil {
		return
	}
	archivedAt := now
	r.ArchivedAt = &archivedAt
	r.touch(now)
}
