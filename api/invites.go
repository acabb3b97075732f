package api

import (
	"net/http"
	"time"
)

func (a *API) createInvite(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID     string `json:"actor_id" validate:"required"`
		InvitedUser string `json:"invited_user" validate:"required"`
		TTLSeconds  int    `json:"ttl_seconds" validate:"gte=0"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	inv, err := a.Core.CreateInvite(r.Context(), r.PathValue("roomID"), body.ActorID, body.InvitedUser, time.Duration(body.TTLSeconds)*time.Second)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusCreated, inv)
}

func (a *API) respondToInvite(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Accept bool `json:"accept"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	inv, err := a.Core.RespondToInvite(r.Context(), r.PathValue("inviteID"), body.Accept)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, inv)
}
