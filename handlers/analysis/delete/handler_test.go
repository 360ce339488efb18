package delete

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/competitionmonitor/analysis/analysistest"
	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/models"
)

func TestHandler(t *testing.T) {
	svc, _, _ := analysistest.New(t)
	if _, err := svc.Analyze(context.Background(), "alice", models.AnalyzeRequest{Text: "Figma is a design tool."}); err != nil {
		t.Fatalf("failed to analyze: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("DELETE /analysis/{id}", New(analysistest.Discard, svc))

	del := func(user, path string) int {
		r := httptest.NewRequest(http.MethodDelete, path, nil)
		r = r.WithContext(auth.WithUser(r.Context(), user))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		return w.Code
	}

	if code := del("bob", "/analysis/1"); code != http.StatusNotFound {
		t.Errorf("expected other users to get 404, got %d", code)
	}
	if code := del("alice", "/analysis/x"); code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid ids, got %d", code)
	}
	if code := del("alice", "/analysis/1"); code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", code)
	}
	if code := del("alice", "/analysis/1"); code != http.StatusNotFound {
		t.Errorf("expected 404 after deletion, got %d", code)
	}
}
