package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/competitionmonitor"
	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/respond"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	PerplexityConfigured bool
	ScoringEnabled       bool
	// StoreName is reported as the store type, e.g. "sqlite".
	StoreName string
}

func New(log *slog.Logger, store Pinger, opts Options) Handler {
	return Handler{
		log:   log,
		store: store,
		opts:  opts,
	}
}

type Handler struct {
	log   *slog.Logger
	store Pinger
	opts  Options
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:               "healthy",
		Service:              "CompetitionMonitor",
		Version:              competitionmonitor.Version,
		PerplexityConfigured: h.opts.PerplexityConfigured,
		Scoring:              h.opts.ScoringEnabled,
		Store:                h.opts.StoreName,
	}
	status := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.Error("store ping failed", slog.Any("error", err))
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	respond.WithJSON(w, resp, status)
}
