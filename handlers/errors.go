package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/competitionmonitor/analysis"
	"github.com/a-h/competitionmonitor/perplexity"
	"github.com/a-h/competitionmonitor/scrape"
	"github.com/a-h/respond"
)

// Status maps an error to the message and status code returned to the caller.
func Status(err error) (msg string, status int) {
	switch {
	case errors.Is(err, analysis.ErrInvalidText),
		errors.Is(err, analysis.ErrInvalidImage),
		errors.Is(err, analysis.ErrNoIDs),
		errors.Is(err, scrape.ErrInvalidURL):
		return err.Error(), http.StatusBadRequest
	case errors.Is(err, analysis.ErrNotFound):
		return "analysis not found", http.StatusNotFound
	case errors.Is(err, analysis.ErrScoringDisabled):
		return "scoring is disabled", http.StatusServiceUnavailable
	case errors.Is(err, perplexity.ErrNotConfigured):
		return "Perplexity API key is not configured", http.StatusServiceUnavailable
	case errors.Is(err, perplexity.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "upstream request timed out", http.StatusGatewayTimeout
	case errors.Is(err, perplexity.ErrUnparsable):
		return "upstream response could not be parsed", http.StatusBadGateway
	case errors.Is(err, perplexity.ErrUpstream):
		return "upstream request failed", http.StatusBadGateway
	case errors.Is(err, scrape.ErrFetchFailed):
		return "failed to fetch page", http.StatusBadGateway
	}
	return "internal server error", http.StatusInternalServerError
}

// WriteError logs err and responds with the mapped status.
func WriteError(log *slog.Logger, w http.ResponseWriter, msg string, err error) {
	text, status := Status(err)
	if status >= http.StatusInternalServerError {
		log.Error(msg, slog.Int("status", status), slog.Any("error", err))
	} else {
		log.Info(msg, slog.Int("status", status), slog.Any("error", err))
	}
	respond.WithError(w, text, status)
}

// PathID parses the {id} path value.
func PathID(r *http.Request) (id int64, ok bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}
