package get

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/competitionmonitor/analysis"
	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/handlers"
	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/respond"
)

// New creates the query string analysis handler. When scored is true, scores
// are always returned.
func New(log *slog.Logger, svc *analysis.Service, scored bool) Handler {
	return Handler{
		log:    log,
		svc:    svc,
		scored: scored,
	}
}

type Handler struct {
	log    *slog.Logger
	svc    *analysis.Service
	scored bool
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	req := models.AnalyzeRequest{
		Text:       q.Get("text"),
		Competitor: q.Get("competitor"),
		Score:      h.scored,
	}
	if s := q.Get("score"); s != "" && !h.scored {
		score, err := strconv.ParseBool(s)
		if err != nil {
			respond.WithError(w, "score must be true or false", http.StatusBadRequest)
			return
		}
		req.Score = score
	}

	resp, err := h.svc.Analyze(r.Context(), user, req)
	if err != nil {
		handlers.WriteError(h.log, w, "failed to analyze text", err)
		return
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
