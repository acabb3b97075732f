// Package api provides the REST endpoints for the messaging core. Handlers
// decode and validate the request, hand the operation to the room registry
// and translate domain errors onto HTTP statuses; all domain rules live
// behind the registry.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/studyhall/rooms-backend/api/validator"
	"github.com/studyhall/rooms-backend/room"
)

// A Core provides the room operations served by the API. Implemented by
// *registry.Registry.
type Core interface {
	CreateRoom(ctx context.Context, spec room.Spec) (*room.Room, error)
	Room(ctx context.Context, roomID string) (*room.Room, error)
	UpdateSettings(ctx context.Context, roomID, actorID string, s room.Settings) error

	AddTopic(ctx context.Context, roomID, actorID, name, description string, locked, announcement bool) (room.Topic, error)
	AddCustomEmoji(ctx context.Context, roomID, actorID, name, url string) (room.Emoji, error)
	PostAnnouncement(ctx context.Context, roomID, actorID, content string, expiresAt *time.Time) (room.Announcement, error)

	UpdateParticipantRole(ctx context.Context, roomID, actorID, targetID, role string) error
	SetOverrides(ctx context.Context, roomID, actorID, targetID string, o *room.Overrides) error
	RemoveParticipant(ctx context.Context, roomID, actorID, targetID string) error
	MuteParticipant(ctx context.Context, roomID, actorID, targetID string, duration time.Duration) error
	UnmuteParticipant(ctx context.Context, roomID, actorID, targetID string) error
	LeaveRoom(ctx context.Context, roomID, userID string) error
	TransferOwnership(ctx context.Context, roomID, actorID, targetID string) error

	CreateInvite(ctx context.Context, roomID, invitedBy, invitedUser string, ttl time.Duration) (room.Invite, error)
	RespondToInvite(ctx context.Context, inviteID string, accept bool) (room.Invite, error)

	PostMessage(ctx context.Context, roomID, senderID, content string, msgType room.MessageType, topicID string, attachments []room.Attachment) (room.Message, error)
	Messages(ctx context.Context, roomID string, limit int) ([]room.Message, error)
	EditMessage(ctx context.Context, roomID, messageID, editorID, newContent string) (room.Message, error)
	PinMessage(ctx context.Context, roomID, actorID, messageID string) error
	UnpinMessage(ctx context.Context, roomID, actorID, messageID string) error
	DeleteMessage(ctx context.Context, roomID, actorID, messageID string) error
	ReactToMessage(ctx context.Context, roomID, messageID, userID, reactionType string) error
	ReplyToMessage(ctx context.Context, roomID, messageID, senderID, content string) (room.Reply, error)

	CreatePoll(ctx context.Context, roomID, creatorID, question string, options []string, flags room.PollFlags) (room.Poll, error)
	Vote(ctx context.Context, roomID, pollID, optionID, userID string) error
	ClosePoll(ctx context.Context, roomID, actorID, pollID string) error
	TallyPoll(ctx context.Context, roomID, pollID string) (room.Tally, error)
}

// API provides the REST endpoints for the application.
type API struct {
	Logger *slog.Logger
	Core   Core
	Val    *validator.Validator

	once sync.Once
	mux  *http.ServeMux
}

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /rooms", a.createRoom)
	mux.HandleFunc("GET /rooms/{roomID}", a.getRoom)
	mux.HandleFunc("PATCH /rooms/{roomID}/settings", a.updateSettings)
	mux.HandleFunc("POST /rooms/{roomID}/topics", a.addTopic)
	mux.HandleFunc("POST /rooms/{roomID}/emojis", a.addCustomEmoji)
	mux.HandleFunc("POST /rooms/{roomID}/announcements", a.postAnnouncement)

	mux.HandleFunc("PUT /rooms/{roomID}/participants/{userID}/role", a.updateParticipantRole)
	mux.HandleFunc("PUT /rooms/{roomID}/participants/{userID}/overrides", a.setOverrides)
	mux.HandleFunc("DELETE /rooms/{roomID}/participants/{userID}", a.removeParticipant)
	mux.HandleFunc("POST /rooms/{roomID}/participants/{userID}/mute", a.muteParticipant)
	mux.HandleFunc("DELETE /rooms/{roomID}/participants/{userID}/mute", a.unmuteParticipant)
	mux.HandleFunc("POST /rooms/{roomID}/leave", a.leaveRoom)
	mux.HandleFunc("POST /rooms/{roomID}/transfer", a.transferOwnership)

	mux.HandleFunc("POST /rooms/{roomID}/invites", a.createInvite)
	mux.HandleFunc("POST /invites/{inviteID}/respond", a.respondToInvite)

	mux.HandleFunc("GET /rooms/{roomID}/messages", a.listMessages)
	mux.HandleFunc("POST /rooms/{roomID}/messages", a.postMessage)
	mux.HandleFunc("PATCH /rooms/{roomID}/messages/{messageID}", a.editMessage)
	mux.HandleFunc("DELETE /rooms/{roomID}/messages/{messageID}", a.deleteMessage)
	mux.HandleFunc("POST /rooms/{roomID}/messages/{messageID}/pin", a.pinMessage)
	mux.HandleFunc("DELETE /rooms/{roomID}/messages/{messageID}/pin", a.unpinMessage)
	mux.HandleFunc("POST /rooms/{roomID}/messages/{messageID}/reactions", a.reactToMessage)
	mux.HandleFunc("POST /rooms/{roomID}/messages/{messageID}/replies", a.replyToMessage)

	mux.HandleFunc("POST /rooms/{roomID}/polls", a.createPoll)
	mux.HandleFunc("POST /rooms/{roomID}/polls/{pollID}/votes", a.vote)
	mux.HandleFunc("POST /rooms/{roomID}/polls/{pollID}/close", a.closePoll)
	mux.HandleFunc("GET /rooms/{roomID}/polls/{pollID}/tally", a.tallyPoll)

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)
	a.mux.ServeHTTP(w, r)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, response{Error: msg})
}

// respondDomainError maps a domain error onto an HTTP status and surfaces
// the error kind verbatim; precondition errors are never downgraded.
func (a *API) respondDomainError(w http.ResponseWriter, err error) {
	type response struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	kind := room.ErrorKind(err)
	if kind == "" {
		a.respondError(w, http.StatusInternalServerError, err, "Internal error")
		return
	}
	a.Logger.Info("Operation refused", "kind", kind, "error", err.Error())
	a.respond(w, statusForKind(err), response{Error: kind, Detail: err.Error()})
}

func statusForKind(err error) int {
	switch {
	case errors.Is(err, room.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrNotAParticipant),
		errors.Is(err, room.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, room.ErrMuted),
		errors.Is(err, room.ErrSlowModeViolation):
		return http.StatusTooManyRequests
	case errors.Is(err, room.ErrInviteExpired):
		return http.StatusGone
	case errors.Is(err, room.ErrInsufficientOptions):
		return http.StatusUnprocessableEntity
	default:
		// AlreadyParticipant, RoomFull, InviteNotPending, TopicLocked,
		// PollClosed, RoomArchived: state conflicts.
		return http.StatusConflict
	}
}

func (a *API) validateBody(w http.ResponseWriter, s interface{}) bool {
	errs := a.Val.ValidateStruct(s)
	type response struct {
		Errors []validator.ValidationError `json:"errors"`
	}

	if len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

// decodeBody decodes and validates a JSON request body. It writes the error
// response itself and reports whether the handler should continue.
func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, body any) bool {
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return false
	}
	if err := r.Body.Close(); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not close request body")
		return false
	}
	return a.validateBody(w, body)
}
