package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a-h/competitionmonitor/client"
	"github.com/a-h/competitionmonitor/models"
)

func TestSession(t *testing.T) {
	var fail atomic.Bool
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "upstream request failed", http.StatusBadGateway)
			return
		}
		var req models.ChatPostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte("You said: " + req.Messages[len(req.Messages)-1].Content))
	}))
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess := newSession(client.New(s.URL, ""), "system prompt")
	go sess.run(ctx)

	waitFor := func(t *testing.T, expected string) {
		t.Helper()
		for {
			select {
			case msgs := <-sess.fromLLM:
				last := msgs[len(msgs)-1]
				if last.Type == models.ChatMessageTypeAI && last.Content == expected {
					return
				}
			case err := <-sess.errors:
				t.Fatalf("unexpected error: %v", err)
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %q", expected)
			}
		}
	}

	t.Run("answers are streamed", func(t *testing.T) {
		sess.toLLM <- models.ChatMessage{Type: models.ChatMessageTypeHuman, Content: "Hello"}
		waitFor(t, "You said: Hello")
	})
	t.Run("failed requests are reported and dropped from the dialog", func(t *testing.T) {
		fail.Store(true)
		sess.toLLM <- models.ChatMessage{Type: models.ChatMessageTypeHuman, Content: "Lost"}
		for {
			select {
			case <-sess.fromLLM:
				continue
			case err := <-sess.errors:
				if err == nil {
					t.Fatal("expected an error")
				}
			case <-ctx.Done():
				t.Fatal("timed out waiting for error")
			}
			break
		}
		fail.Store(false)
		sess.toLLM <- models.ChatMessage{Type: models.ChatMessageTypeHuman, Content: "Again"}
		waitFor(t, "You said: Again")
	})
}
