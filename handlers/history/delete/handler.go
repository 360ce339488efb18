package delete

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

type Response struct {
	Deleted int64 `json:"deleted"`
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}
	n, err := h.svc.Clear(r.Context(), user)
	if err != nil {
		handlers.WriteError(h.log, w, "failed to clear history", err)
		return
	}
	h.log.Info("history cleared", slog.String("user", user), slog.Int64("deleted", n))
	respond.WithJSON(w, Response{Deleted: n}, http.StatusOK)
}
