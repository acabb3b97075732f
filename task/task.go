// Package task runs the background sweeps as asynq tasks: invite expiry
// against storage rows, and auto-archive of quiet rooms. Both are periodic
// and idempotent, so a retried or doubled run is harmless.
package task

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/studyhall/rooms-backend/registry"
)

const (
	TypeSweepInvites = "rooms:sweep_invites"
	TypeSweepArchive = "rooms:sweep_archive"
)

// Handler dispatches sweep tasks to the registry.
type Handler struct {
	Logger   *slog.Logger
	Registry *registry.Registry
}

// Mux returns an asynq mux with all sweep handlers registered.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSweepInvites, h.sweepInvites)
	mux.HandleFunc(TypeSweepArchive, h.sweepArchive)
	return mux
}

func (h *Handler) sweepInvites(ctx context.Context, _ *asynq.Task) error {
	n, err := h.Registry.SweepExpiredInvites(ctx)
	if err != nil {
		return err
	}
	h.Logger.Info("Invite sweep done", "expired", n)
	return nil
}

func (h *Handler) sweepArchive(ctx context.Context, _ *asynq.Task) error {
	n, err := h.Registry.SweepArchive(ctx)
	if err != nil {
		return err
	}
	h.Logger.Info("Archive sweep done", "archived", n)
	return nil
}
