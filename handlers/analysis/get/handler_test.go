package get

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/competitionmonitor/analysis/analysistest"
	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/models"
	"github.com/google/go-cmp/cmp"
)

func TestHandler(t *testing.T) {
	svc, _, _ := analysistest.New(t)
	stored, err := svc.Analyze(context.Background(), "alice", models.AnalyzeRequest{Text: "Figma is a design tool.", Score: true})
	if err != nil {
		t.Fatalf("failed to analyze: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /analysis/{id}", New(analysistest.Discard, svc))

	get := func(user, path string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r = r.WithContext(auth.WithUser(r.Context(), user))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		return w
	}

	t.Run("stored analyses are returned", func(t *testing.T) {
		w := get("alice", "/analysis/1")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var actual models.AnalyzeResponse
		if err := json.Unmarshal(w.Body.Bytes(), &actual); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if diff := cmp.Diff(stored, actual); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("other users' analyses are not found", func(t *testing.T) {
		if w := get("bob", "/analysis/1"); w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})
	t.Run("missing analyses are not found", func(t *testing.T) {
		if w := get("alice", "/analysis/999"); w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})
	t.Run("non-integer ids return 400", func(t *testing.T) {
		if w := get("alice", "/analysis/abc"); w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}
