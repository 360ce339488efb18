package get

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/competitionmonitor/analysis"
	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/handlers"
	"github.com/a-h/competitionmonitor/report"
	"github.com/a-h/respond"
)

func New(log *slog.Logger, svc *analysis.Service, pdf *report.Writer) Handler {
	return Handler{
		log: log,
		svc: svc,
		pdf: pdf,
	}
}

type Handler struct {
	log *slog.Logger
	svc *analysis.Service
	pdf *report.Writer
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
	a, ok, err := h.svc.Get(r.Context(), user, id)
	if err != nil {
		handlers.WriteError(h.log, w, "failed to get analysis", err)
		return
	}
	if !ok {
		respond.WithError(w, "analysis not found", http.StatusNotFound)
		return
	}

	// Render to a buffer so that errors can still be reported with a status code.
	var buf bytes.Buffer
	if err = h.pdf.Write(&buf, a); err != nil {
		h.log.Error("failed to render PDF", slog.Int64("id", id), slog.Any("error", err))
		respond.WithError(w, "failed to render PDF", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(id)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err = buf.WriteTo(w); err != nil {
		h.log.Warn("failed to write PDF", slog.Int64("id", id), slog.Any("error", err))
	}
}
