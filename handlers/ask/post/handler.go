package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/handlers"
	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/respond"
)

type Asker interface {
	Ask(ctx context.Context, question string) (answer string, err error)
}

func New(log *slog.Logger, asker Asker) Handler {
	return Handler{
		log:   log,
		asker: asker,
	}
}

type Handler struct {
	log   *slog.Logger
	asker Asker
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.GetUser(r); !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.AskRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.WithError(w, "text is required", http.StatusBadRequest)
		return
	}

	answer, err := h.asker.Ask(r.Context(), req.Text)
	if err != nil {
		handlers.WriteError(h.log, w, "failed to ask question", err)
		return
	}
	respond.WithJSON(w, models.AskResponse{Answer: answer}, http.StatusOK)
}
