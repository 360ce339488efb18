package get

import (
	"log/slog"
	"net/http"

	"github.com/a-h/competitionmonitor/analysis"
	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/handlers"
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
	id, ok := handlers.PathID(r)
	if !ok {
		respond.WithError(w, "id must be a positive integer", http.StatusBadRequest)
		return
	}
	resp, ok, err := h.svc.Get(r.Context(), user, id)
	if err != nil {
		handlers.WriteError(h.log, w, "failed to get analysis", err)
		return
	}
	if !ok {
		respond.WithError(w, "analysis not found", http.StatusNotFound)
		return
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
