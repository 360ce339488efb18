package get

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/competitionmonitor/analysis/analysistest"
	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/competitionmonitor/report"
)

func TestHandler(t *testing.T) {
	svc, _, _ := analysistest.New(t)
	stored, err := svc.Analyze(context.Background(), "alice", models.AnalyzeRequest{Text: "Figma is a design tool.", Competitor: "Figma", Score: true})
	if err != nil {
		t.Fatalf("failed to analyze: %v", err)
	}
	pdf, err := report.New("")
	if err != nil {
		t.Fatalf("failed to create report writer: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /export-pdf/{id}", New(analysistest.Discard, svc, pdf))

	get := func(path string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r = r.WithContext(auth.WithUser(r.Context(), "alice"))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		return w
	}

	t.Run("analyses are exported as PDF attachments", func(t *testing.T) {
		w := get("/export-pdf/1")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("unexpected content type %q", ct)
		}
		expectedDisposition := `attachment; filename="` + report.Filename(stored.ID) + `"`
		if cd := w.Header().Get("Content-Disposition"); cd != expectedDisposition {
			t.Errorf("expected %q, got %q", expectedDisposition, cd)
		}
		if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
			t.Error("expected a PDF body")
		}
	})
	t.Run("missing analyses return 404", func(t *testing.T) {
		if w := get("/export-pdf/2"); w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})
}
