package get

import (
	"log/slog"
	"net/http"
	"strconv"

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

func intParam(r *http.Request, name string) (v int, ok bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, true
	}
	v, err := strconv.Atoi(s)
	return v, err == nil && v >= 0
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}
	limit, ok := intParam(r, "limit")
	if !ok {
		respond.WithError(w, "limit must be a non-negative integer", http.StatusBadRequest)
		return
	}
	offset, ok := intParam(r, "offset")
	if !ok {
		respond.WithError(w, "offset must be a non-negative integer", http.StatusBadRequest)
		return
	}

	resp, err := h.svc.History(r.Context(), user, limit, offset)
	if err != nil {
		handlers.WriteError(h.log, w, "failed to list history", err)
		return
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
