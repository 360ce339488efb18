package post

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/competitionmonitor/analysis/analysistest"
	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/competitionmonitor/perplexity"
)

type fakeAsker struct {
	question string
	answer   string
	err      error
}

func (f *fakeAsker) Ask(ctx context.Context, question string) (string, error) {
	f.question = question
	return f.answer, f.err
}

func request(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	return r.WithContext(auth.WithUser(r.Context(), "alice"))
}

func TestHandler(t *testing.T) {
	t.Run("answers are returned", func(t *testing.T) {
		asker := &fakeAsker{answer: "Canva and Sketch."}
		w := httptest.NewRecorder()
		New(analysistest.Discard, asker).ServeHTTP(w, request(`{"text": "Who competes with Figma?"}`))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var resp models.AskResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Answer != asker.answer {
			t.Errorf("expected %q, got %q", asker.answer, resp.Answer)
		}
		if asker.question != "Who competes with Figma?" {
			t.Errorf("unexpected question %q", asker.question)
		}
	})
	t.Run("empty questions return 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		New(analysistest.Discard, &fakeAsker{}).ServeHTTP(w, request(`{"text": "  "}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
	t.Run("unconfigured providers return 503", func(t *testing.T) {
		w := httptest.NewRecorder()
		New(analysistest.Discard, &fakeAsker{err: perplexity.ErrNotConfigured}).ServeHTTP(w, request(`{"text": "Who competes with Figma?"}`))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", w.Code)
		}
	})
}
