package post

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/competitionmonitor/analysis"
	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/handlers"
	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/respond"
)

func New(log *slog.Logger, svc *analysis.Service) Handler {
	return Handler{
		log: log,
		svc: svc,
	}
}

type Handler struct {
	log *slog.Logger
	svc *analysis.Service
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.CompareRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}

	resp, err := h.svc.Compare(r.Context(), user, req.IDs)
	if err != nil {
		handlers.WriteError(h.log, w, "failed to compare analyses", err)
		return
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
