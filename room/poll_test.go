package room

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newPollRoom(t *testing.T) *Room {
	t.Helper()
	r := newTestRoom(t, Settings{AllowPolls: true})
	addMember(t, r, "u2")
	addMember(t, r, "u3")
	return r
}

func TestCreatePoll(t *testing.T) {
	tests := []struct {
		name     string
		creator  string
		options  []string
		settings Settings
		wantErr  error
	}{
		{
			name:     "ok",
			creator:  "u2",
			options:  []string{"mon", "tue"},
			settings: Settings{AllowPolls: true},
		},
		{
			name:     "polls disabled",
			creator:  "u1",
			options:  []string{"mon", "tue"},
			settings: Settings{},
			wantErr:  ErrPermissionDenied,
		},
		{
			name:     "one option",
			creator:  "u1",
			options:  []string{"mon"},
			settings: Settings{AllowPolls: true},
			wantErr:  ErrInsufficientOptions,
		},
		{
			name:     "stranger",
			creator:  "ghost",
			options:  []string{"mon", "tue"},
			settings: Settings{AllowPolls: true},
			wantErr:  ErrNotAParticipant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRoom(t, tt.settings)
			addMember(t, r, "u2")

			p, err := r.CreatePoll(t0, tt.creator, "when?", tt.options, PollFlags{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Got error %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(p.Options) != len(tt.options) {
				t.Errorf("Got %d options, want %d", len(p.Options), len(tt.options))
			}
		})
	}
}

func TestVote_singleChoiceMovesVote(t *testing.T) {
	r := newPollRoom(t)
	p, err := r.CreatePoll(t0, "u1", "when?", []string{"mon", "tue"}, PollFlags{})
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	optA, optB := p.Options[0].ID, p.Options[1].ID

	// Vote A, then B: the vote moves. Tally shows A:0 B:1.
	if err := r.Vote(t0, p.ID, optA, "u1"); err != nil {
		t.Fatalf("Vote A: %v", err)
	}
	if err := r.Vote(t0, p.ID, optB, "u1"); err != nil {
		t.Fatalf("Vote B: %v", err)
	}
	tally, err := r.TallyPoll(t0, p.ID)
	if err != nil {
		t.Fatalf("TallyPoll: %v", err)
	}
	want := []TallyOption{
		{OptionID: optA, Text: "mon", Count: 0},
		{OptionID: optB, Text: "tue", Count: 1, VoterIDs: []string{"u1"}},
	}
	if diff := cmp.Diff(want, tally.Options); diff != "" {
		t.Errorf("Tally mismatch (-want +got):\n%s", diff)
	}

	// Re-voting the same option is idempotent.
	if err := r.Vote(t0, p.ID, optB, "u1"); err != nil {
		t.Fatalf("Re-vote B: %v", err)
	}
	tally, _ = r.TallyPoll(t0, p.ID)
	if tally.Options[1].Count != 1 {
		t.Errorf("Got count %d after re-vote, want 1", tally.Options[1].Count)
	}
}

func TestVote_multipleChoice(t *testing.T) {
	r := newPollRoom(t)
	p, _ := r.CreatePoll(t0, "u1", "topics?", []string{"graphs", "dp", "greedy"}, PollFlags{IsMultipleChoice: true})

	if err := r.Vote(t0, p.ID, p.Options[0].ID, "u2"); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if err := r.Vote(t0, p.ID, p.Options[2].ID, "u2"); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	tally, _ := r.TallyPoll(t0, p.ID)
	if tally.Options[0].Count != 1 || tally.Options[2].Count != 1 {
		t.Errorf("Multi-choice votes not kept: %+v", tally.Options)
	}
}

func TestVote_closedPoll(t *testing.T) {
	endsAt := t0.Add(time.Hour)
	r := newPollRoom(t)
	p, _ := r.CreatePoll(t0, "u1", "when?", []string{"mon", "tue"}, PollFlags{EndsAt: &endsAt})

	if err := r.Vote(t0.Add(30*time.Minute), p.ID, p.Options[0].ID, "u2"); err != nil {
		t.Fatalf("Vote before end: %v", err)
	}
	if err := r.Vote(t0.Add(2*time.Hour), p.ID, p.Options[0].ID, "u3"); !errors.Is(err, ErrPollClosed) {
		t.Errorf("Vote after end: got %v, want %v", err, ErrPollClosed)
	}
}

func TestClosePoll(t *testing.T) {
	r := newPollRoom(t)
	p, _ := r.CreatePoll(t0, "u2", "when?", []string{"mon", "tue"}, PollFlags{})

	// Neither creator nor admin.
	if err := r.ClosePoll(t0, "u3", p.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Close by member: got %v, want %v", err, ErrPermissionDenied)
	}
	// Creator may close.
	if err := r.ClosePoll(t0.Add(time.Minute), "u2", p.ID); err != nil {
		t.Fatalf("ClosePoll: %v", err)
	}
	if err := r.Vote(t0.Add(2*time.Minute), p.ID, p.Options[0].ID, "u3"); !errors.Is(err, ErrPollClosed) {
		t.Errorf("Vote after close: got %v, want %v", err, ErrPollClosed)
	}
	if err := r.ClosePoll(t0.Add(3*time.Minute), "u1", p.ID); !errors.Is(err, ErrPollClosed) {
		t.Errorf("Double close: got %v, want %v", err, ErrPollClosed)
	}
}

func TestTallyPoll_anonymousHidesVoters(t *testing.T) {
	r := newPollRoom(t)
	p, _ := r.CreatePoll(t0, "u1", "secret?", []string{"yes", "no"}, PollFlags{IsAnonymous: true})

	if err := r.Vote(t0, p.ID, p.Options[0].ID, "u2"); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	// Identity is stored so the second vote still moves rather than adds.
	if err := r.Vote(t0, p.ID, p.Options[1].ID, "u2"); err != nil {
		t.Fatalf("Vote: %v", err)
	}

	tally, err := r.TallyPoll(t0, p.ID)
	if err != nil {
		t.Fatalf("TallyPoll: %v", err)
	}
	if tally.Options[0].Count != 0 || tally.Options[1].Count != 1 {
		t.Errorf("Anonymous poll double-counted: %+v", tally.Options)
	}
	for _, opt := range tally.Options {
		if opt.VoterIDs != nil {
			t.Errorf("Anonymous tally exposes voters: %+v", opt)
		}
	}
}
