package api

import (
	"net/http"
	"time"

	"github.com/studyhall/rooms-backend/room"
)

func (a *API) createRoom(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		Type        string `json:"type" validate:"omitempty,roomtype"`
		ActorID     string `json:"actor_id" validate:"required"`
		Settings    struct {
			MaxParticipants  int  `json:"max_participants" validate:"gte=0"`
			SlowModeSeconds  int  `json:"slow_mode_seconds" validate:"gte=0"`
			AllowPolls       bool `json:"allow_polls"`
			AutoArchive      bool `json:"auto_archive"`
			ArchiveAfterDays int  `json:"archive_after_days" validate:"gte=0"`
		} `json:"settings"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	created, err := a.Core.CreateRoom(r.Context(), room.Spec{
		Name:        body.Name,
		Description: body.Description,
		Type:        room.Type(body.Type),
		CreatedBy:   body.ActorID,
		Settings: room.Settings{
			MaxParticipants:  body.Settings.MaxParticipants,
			SlowModeSeconds:  body.Settings.SlowModeSeconds,
			AllowPolls:       body.Settings.AllowPolls,
			AutoArchive:      body.Settings.AutoArchive,
			ArchiveAfterDays: body.Settings.ArchiveAfterDays,
		},
	})
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusCreated, created)
}

func (a *API) getRoom(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Core.Room(r.Context(), r.PathValue("roomID"))
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, snap)
}

func (a *API) updateSettings(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID          string `json:"actor_id" validate:"required"`
		MaxParticipants  int    `json:"max_participants" validate:"gte=0"`
		SlowModeSeconds  int    `json:"slow_mode_seconds" validate:"gte=0"`
		AllowPolls       bool   `json:"allow_polls"`
		AutoArchive      bool   `json:"auto_archive"`
		ArchiveAfterDays int    `json:"archive_after_days" validate:"gte=0"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.UpdateSettings(r.Context(), r.PathValue("roomID"), body.ActorID, room.Settings{
		MaxParticipants:  body.MaxParticipants,
		SlowModeSeconds:  body.SlowModeSeconds,
		AllowPolls:       body.AllowPolls,
		AutoArchive:      body.AutoArchive,
		ArchiveAfterDays: body.ArchiveAfterDays,
	})
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) addTopic(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID        string `json:"actor_id" validate:"required"`
		Name           string `json:"name" validate:"required"`
		Description    string `json:"description"`
		IsLocked       bool   `json:"is_locked"`
		IsAnnouncement bool   `json:"is_announcement"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	topic, err := a.Core.AddTopic(r.Context(), r.PathValue("roomID"), body.ActorID, body.Name, body.Description, body.IsLocked, body.IsAnnouncement)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusCreated, topic)
}

func (a *API) addCustomEmoji(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
		Name    string `json:"name" validate:"required"`
		URL     string `json:"url" validate:"required,url"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	emoji, err := a.Core.AddCustomEmoji(r.Context(), r.PathValue("roomID"), body.ActorID, body.Name, body.URL)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusCreated, emoji)
}

func (a *API) postAnnouncement(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID   string     `json:"actor_id" validate:"required"`
		Content   string     `json:"content" validate:"required"`
		ExpiresAt *time.Time `json:"expires_at"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	ann, err := a.Core.PostAnnouncement(r.Context(), r.PathValue("roomID"), body.ActorID, body.Content, body.ExpiresAt)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusCreated, ann)
}

func (a *API) updateParticipantRole(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
		Role    string `json:"role" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.UpdateParticipantRole(r.Context(), r.PathValue("roomID"), body.ActorID, r.PathValue("userID"), body.Role)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

// setOverrides replaces a participant's permission overrides. Omitted fields
// fall through to the role template; a null overrides object clears them all.
func (a *API) setOverrides(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID   string          `json:"actor_id" validate:"required"`
		Overrides *room.Overrides `json:"overrides"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.SetOverrides(r.Context(), r.PathValue("roomID"), body.ActorID, r.PathValue("userID"), body.Overrides)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) removeParticipant(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.RemoveParticipant(r.Context(), r.PathValue("roomID"), body.ActorID, r.PathValue("userID"))
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) muteParticipant(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID         string `json:"actor_id" validate:"required"`
		DurationSeconds int    `json:"duration_seconds" validate:"required,gt=0"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.MuteParticipant(r.Context(), r.PathValue("roomID"), body.ActorID, r.PathValue("userID"), time.Duration(body.DurationSeconds)*time.Second)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) unmuteParticipant(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.UnmuteParticipant(r.Context(), r.PathValue("roomID"), body.ActorID, r.PathValue("userID"))
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) leaveRoom(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID string `json:"actor_id" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.LeaveRoom(r.Context(), r.PathValue("roomID"), body.ActorID)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) transferOwnership(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ActorID  string `json:"actor_id" validate:"required"`
		TargetID string `json:"target_id" validate:"required"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	err := a.Core.TransferOwnership(r.Context(), r.PathValue("roomID"), body.ActorID, body.TargetID)
	if err != nil {
		a.respondDomainError(w, err)
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}
