package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/handlers"
	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/respond"
)

type Streamer interface {
	Stream(ctx context.Context, msgs []models.ChatMessage, f func(ctx context.Context, chunk []byte) error) error
}

func New(log *slog.Logger, streamer Streamer) Handler {
	return Handler{
		log:      log,
		streamer: streamer,
	}
}

type Handler struct {
	log      *slog.Logger
	streamer Streamer
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.ChatPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		respond.WithError(w, "at least one message is required", http.StatusBadRequest)
		return
	}
	for _, m := range req.Messages {
		if !m.Type.Valid() {
			respond.WithError(w, "message type must be system, human or ai", http.StatusBadRequest)
			return
		}
	}

	h.log.Info("streaming chat", slog.String("user", user), slog.Int("messages", len(req.Messages)))

	var written bool
	f := func(ctx context.Context, chunk []byte) error {
		select {
		case <-ctx.Done():
			return nil
		default:
			if !written {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				written = true
			}
			if _, err := w.Write(chunk); err != nil {
				return err
			}
			if flusher, canFlush := w.(http.Flusher); canFlush {
				flusher.Flush()
			}
			return nil
		}
	}

	err = h.streamer.Stream(r.Context(), req.Messages, f)
	if err != nil {
		if written {
			// The status has already been sent.
			h.log.Error("chat stream interrupted", slog.Any("error", err))
			return
		}
		handlers.WriteError(h.log, w, "failed to stream chat", err)
		return
	}
}
