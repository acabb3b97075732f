package room

import (
	"time"

	"github.com/google/uuid"
)

// A PollOption is one answer a participant can vote for. Votes always record
// the voter's user id, anonymous polls included; without the identity a
// second vote could not be detected. Anonymity is applied on the read side.
type PollOption struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Votes []string `json:"votes"`
}

// PollFlags carries the optional behaviors of a poll.
type PollFlags struct {
	EndsAt           *time.Time
	IsMultipleChoice bool
	IsAnonymous      bool
}

// A Poll is a question with a fixed option list attached to a room.
type Poll struct {
	ID               string       `json:"id"`
	Question         string       `json:"question"`
	Options          []PollOption `json:"options"`
	CreatedBy        string       `json:"created_by"`
	CreatedAt        time.Time    `json:"created_at"`
	EndsAt           *time.Time   `json:"ends_at,omitempty"`
	ClosedAt         *time.Time   `json:"closed_at,omitempty"`
	IsMultipleChoice bool         `json:"is_multiple_choice"`
	IsAnonymous      bool         `json:"is_anonymous"`
}

// closed reports whether the poll no longer accepts votes, either because it
// was closed explicitly or its end time has passed.
func (p *Poll) closed(now time.Time) bool {
	if p.ClosedAt != nil {
		return true
	}
	return p.EndsAt != nil && now.After(*p.EndsAt)
}

// A TallyOption is the read-side vote count for one option. VoterIDs is nil
// for anonymous polls; identity never leaves storage there, the creator
// included.
type TallyOption struct {
	OptionID string   `json:"option_id"`
	Text     string   `json:"text"`
	Count    int      `json:"count"`
	VoterIDs []string `json:"voter_ids,omitempty"`
}

// A Tally is the computed result of a poll. Pure read-side computation, no
// state is mutated.
type Tally struct {
	PollID   string        `json:"poll_id"`
	Question string        `json:"question"`
	Closed   bool          `json:"closed"`
	Options  []TallyOption `json:"options"`
}

// CreatePoll attaches a new poll to the room. Requires settings.allowPolls
// and at least two options.
func (r *Room) CreatePoll(now time.Time, creatorID, question string, options []string, flags PollFlags) (Poll, error) {
	if err := r.mutable(); err != nil {
		return Poll{}, err
	}
	if _, ok := r.participant(creatorID); !ok {
		return Poll{}, ErrNotAParticipant
	}
	if !r.Settings.AllowPolls {
		return Poll{}, ErrPermissionDenied
	}
	if len(options) < 2 {
		return Poll{}, ErrInsufficientOptions
	}
	p := Poll{
		ID:               uuid.NewString(),
		Question:         question,
		CreatedBy:        creatorID,
		CreatedAt:        now,
		EndsAt:           flags.EndsAt,
		IsMultipleChoice: flags.IsMultipleChoice,
		IsAnonymous:      flags.IsAnonymous,
	}
	for _, text := range options {
		p.Options = append(p.Options, PollOption{
			ID:   uuid.NewString(),
			Text: text,
		})
	}
	r.Polls = append(r.Polls, p)
	r.touch(now)
	return p, nil
}

// Vote records a participant's vote. In a single-choice poll a vote for a
// different option moves the vote; re-voting the same option is a no-op.
func (r *Room) Vote(now time.Time, pollID, optionID, userID string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	if _, ok := r.participant(userID); !ok {
		return ErrNotAParticipant
	}
	p := r.poll(pollID)
	if p == nil {
		return ErrNotFound
	}
	if p.closed(now) {
		return ErrPollClosed
	}
	var chosen *PollOption
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			chosen = &p.Options[i]
			break
		}
	}
	if chosen == nil {
		return ErrNotFound
	}
	if !p.IsMultipleChoice {
		for i := range p.Options {
			if p.Options[i].ID != optionID {
				p.Options[i].Votes = removeVote(p.Options[i].Votes, userID)
			}
		}
	}
	for _, v := range chosen.Votes {
		if v == userID {
			return nil
		}
	}
	chosen.Votes = append(chosen.Votes, userID)
	r.touch(now)
	return nil
}

// ClosePoll freezes a poll ahead of (or without) its end time. Allowed for
// the poll creator or an admin.
func (r *Room) ClosePoll(now time.Time, actorID, pollID string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	actor, ok := r.participant(actorID)
	if !ok {
		return ErrNotAParticipant
	}
	p := r.poll(pollID)
	if p == nil {
		return ErrNotFound
	}
	if actorID != p.CreatedBy && actor.Role != RoleAdmin {
		return ErrPermissionDenied
	}
	if p.ClosedAt != nil {
		return ErrPollClosed
	}
	closedAt := now
	p.ClosedAt = &closedAt
	r.touch(now)
	return nil
}

// TallyPoll computes the current result of a poll. Voter identities are
// included only for non-anonymous polls.
func (r *Room) TallyPoll(now time.Time, pollID string) (Tally, error) {
	p := r.poll(pollID)
	if p == nil {
		return Tally{}, ErrNotFound
	}
	t := Tally{
		PollID:   p.ID,
		Question: p.Question,
		Closed:   p.closed(now),
	}
	for _, opt := range p.Options {
		to := TallyOption{
			OptionID: opt.ID,
			Text:     opt.Text,
			Count:    len(opt.Votes),
		}
		if !p.IsAnonymous {
			to.VoterIDs = append([]string(nil), opt.Votes...)
		}
		t.Options = append(t.Options, to)
	}
	return t, nil
}

func (r *Room) poll(pollID string) *Poll {
	for i := range r.Polls {
		if r.Polls[i].ID == pollID {
			return &r.Polls[i]
		}
	}
	return nil
}

func removeVote(votes []string, userID string) []string {
	for i, v := range votes {
		if v == userID {
			return append(votes[:i], votes[i+1:]...)
		}
	}
	return votes
}
