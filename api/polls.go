package api

import (
	"net/http"
	"time"

	"github.com/studyhall/rooms-backend/room"
)

func (a *API) createPoll(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID          string     `json:"actor_id" validate:"required"`
		Question         string     `json:"question" validate:"required"`
		Options          []string   `json:"options" validate:"required,min=2,dive,required"`
		EndsAt           *time.Time `json:"ends_at"`
		IsMultipleChoice bool       `json:"is_multiple_choice"`
		IsAnonymous      bool       `json:"is_anonymous"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	poll, err := a.Core.CreatePoll(r.Context(), r.PathValue("roomID"), body.ActorID, body.Question, body.Options, room.PollFlags{
		EndsAt:           body.EndsAt,
		IsMultipleChoice: body.IsMultipleChoice,
		IsAnonymous:      body.IsAnonymous,
	})
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusCreated, poll)
}

func (a *API) vote(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID  string `json:"actor_id" validate:"required"`
		OptionID string `json:"option_id" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.Vote(r.Context(), r.PathValue("roomID"), r.PathValue("pollID"), body.OptionID, body.ActorID)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) closePoll(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.ClosePoll(r.Context(), r.PathValue("roomID"), body.ActorID, r.PathValue("pollID"))
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

// tallyPoll is a pure read: vote counts per option, voter ids only for
// non-anonymous polls.
func (a *API) tallyPoll(w http.ResponseWriter, r *http.Request) {
	tally, err := a.Core.TallyPoll(r.Context(), r.PathValue("roomID"), r.PathValue("pollID"))
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, tally)
}
