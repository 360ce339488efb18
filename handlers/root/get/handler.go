package get

import (
	"net/http"

	"github.com/a-h/competitionmonitor"
	"github.com/a-h/respond"
)

type Response struct {
	Message   string   `json:"message"`
	Version   string   `json:"version"`
	Scoring   bool     `json:"scoring"`
	Endpoints []string `json:"endpoints"`
}

func New(scoringEnabled bool, endpoints []string) Handler {
	return Handler{
		resp: Response{
			Message:   "CompetitionMonitor API",
			Version:   competitionmonitor.Version,
			Scoring:   scoringEnabled,
			Endpoints: endpoints,
		},
	}
}

type Handler struct {
	resp Response
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The root pattern matches every unknown path.
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	respond.WithJSON(w, h.resp, http.StatusOK)
}
