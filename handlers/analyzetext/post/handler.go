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

// Images are sent base64 encoded, so allow a little over 10MB of image data.
const maxBodyBytes = 15 << 20

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

	var req models.AnalyzeRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}

	resp, err := h.svc.Analyze(r.Context(), user, req)
	if err != nil {
		handlers.WriteError(h.log, w, "failed to analyze text", err)
		return
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
