package room

import "errors"

// Operation errors. Every mutating operation returns one of these when a
// precondition fails; callers map them onto their own status codes. State
// expiry (invites, mutes, archiving) is applied lazily at operation entry and
// then the matching precondition error is returned.
var (
	ErrNotAParticipant     = errors.New("not a participant")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAlreadyParticipant  = errors.New("already a participant")
	ErrRoomFull            = errors.New("room is full")
	ErrInviteNotPending    = errors.New("invite is not pending")
	ErrInviteExpired       = errors.New("invite has expired")
	ErrMuted               = errors.New("participant is muted")
	ErrTopicLocked         = errors.New("topic is locked")
	ErrSlowModeViolation   = errors.New("slow mode interval has not elapsed")
	ErrPollClosed          = errors.New("poll is closed")
	ErrInsufficientOptions = errors.New("poll needs at least two options")
	ErrRoomArchived        = errors.New("room is archived")
	ErrNotFound            = errors.New("not found")
)

// ErrorKind returns the wire identifier for a domain error, or an empty
// string if err is not a domain error.
func ErrorKind(err error) string {
	for kind, domainErr := range kinds {
		if errors.Is(err, domainErr) {
			return kind
		}
	}
	return ""
}

var kinds = map[string]error{
	"not_a_participant":    ErrNotAParticipant,
	"permission_denied":    ErrPermissionDenied,
	"already_participant":  ErrAlreadyParticipant,
	"room_full":            ErrRoomFull,
	"invite_not_pending":   ErrInviteNotPending,
	"invite_expired":       ErrInviteExpired,
	"muted":                ErrMuted,
	"topic_locked":         ErrTopicLocked,
	"slow_mode_violation":  ErrSlowModeViolation,
	"poll_closed":          ErrPollClosed,
	"insufficient_options": ErrInsufficientOptions,
	"room_archived":        ErrRoomArchived,
	"not_found":            ErrNotFound,
}
