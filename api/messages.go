package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/studyhall/rooms-backend/room"
)

// pageSize defines the default number of messages returned from the log.
var pageSize = 50

var errInvalidLimit = errors.New("invalid limit parameter")

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Messages []room.Message `json:"messages"`
	}

	limit := pageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			a.respondError(w, http.StatusBadRequest, errInvalidLimit, "Invalid limit")
			return
		}
		limit = n
	}

	msgs, err := a.Core.Messages(r.Context(), r.PathValue("roomID"), limit)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []room.Message{}
	}
	a.respond(w, http.StatusOK, response{Messages: msgs})
}

func (a *API) postMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID     string            `json:"actor_id" validate:"required"`
		Content     string            `json:"content" validate:"required"`
		Type        string            `json:"type" validate:"omitempty,oneof=announcement discussion question"`
		TopicID     string            `json:"topic_id"`
		Attachments []room.Attachment `json:"attachments"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	msg, err := a.Core.PostMessage(r.Context(), r.PathValue("roomID"), body.ActorID, body.Content, room.MessageType(body.Type), body.TopicID, body.Attachments)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusCreated, msg)
}

func (a *API) editMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
		Content string `json:"content" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	msg, err := a.Core.EditMessage(r.Context(), r.PathValue("roomID"), r.PathValue("messageID"), body.ActorID, body.Content)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, msg)
}

func (a *API) deleteMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.DeleteMessage(r.Context(), r.PathValue("roomID"), body.ActorID, r.PathValue("messageID"))
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) pinMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.PinMessage(r.Context(), r.PathValue("roomID"), body.ActorID, r.PathValue("messageID"))
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) unpinMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.UnpinMessage(r.Context(), r.PathValue("roomID"), body.ActorID, r.PathValue("messageID"))
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) reactToMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
		Type    string `json:"type" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.ReactToMessage(r.Context(), r.PathValue("roomID"), r.PathValue("messageID"), body.ActorID, body.Type)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusCreated, struct{}{})
}

func (a *API) replyToMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
		Content string `json:"content" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	reply, err := a.Core.ReplyToMessage(r.Context(), r.PathValue("roomID"), r.PathValue("messageID"), body.ActorID, body.Content)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusCreated, reply)
}
