package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/jsonapi"
	"github.com/google/go-cmp/cmp"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /analyzetext", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(models.AnalyzeResponse{
			ID:         1,
			Competitor: r.URL.Query().Get("competitor"),
			Query:      r.URL.Query().Get("text"),
		})
	})
	mux.HandleFunc("GET /history", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.HistoryResponse{
			Items: []models.HistoryItem{{ID: 2, Competitor: r.URL.Query().Get("limit")}},
			Total: 1,
		})
	})
	mux.HandleFunc("DELETE /history", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"deleted":3}`))
	})
	mux.HandleFunc("DELETE /analysis/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "5" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /export-pdf/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.3"))
	})
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hello, "))
		w.Write([]byte("world"))
	})
	s := httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func TestClient(t *testing.T) {
	s := newServer(t)
	c := New(s.URL, "key")
	ctx := context.Background()

	t.Run("Query parameters are sent for GET /analyzetext", func(t *testing.T) {
		resp, err := c.AnalyzeTextGet(ctx, "Figma is a design tool", "Figma", true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := models.AnalyzeResponse{ID: 1, Competitor: "Figma", Query: "Figma is a design tool"}
		if diff := cmp.Diff(expected, resp); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("Non-2xx responses return an InvalidStatusError", func(t *testing.T) {
		_, err := New(s.URL, "wrong").AnalyzeTextGet(ctx, "Figma is a design tool", "", false)
		var ise jsonapi.InvalidStatusError
		if !errors.As(err, &ise) {
			t.Fatalf("expected InvalidStatusError, got %v", err)
		}
		if ise.Status != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", ise.Status)
		}
	})
	t.Run("History is paged", func(t *testing.T) {
		resp, err := c.HistoryGet(ctx, 5, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Total != 1 || len(resp.Items) != 1 || resp.Items[0].Competitor != "5" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
	t.Run("History can be cleared", func(t *testing.T) {
		deleted, err := c.HistoryDelete(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deleted != 3 {
			t.Errorf("expected 3 deleted, got %d", deleted)
		}
	})
	t.Run("Deleting an analysis returns no content", func(t *testing.T) {
		if err := c.AnalysisDelete(ctx, 5); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := c.AnalysisDelete(ctx, 6); err == nil {
			t.Error("expected error for missing analysis")
		}
	})
	t.Run("PDF exports are copied to the writer", func(t *testing.T) {
		var buf bytes.Buffer
		if err := c.ExportPDF(ctx, 1, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "%PDF-1.3" {
			t.Errorf("unexpected body %q", buf.String())
		}
	})
	t.Run("Chat responses are streamed", func(t *testing.T) {
		var buf bytes.Buffer
		err := c.ChatPost(ctx, models.ChatPostRequest{
			Messages: []models.ChatMessage{{Type: models.ChatMessageTypeHuman, Content: "Hi"}},
		}, func(ctx context.Context, chunk []byte) error {
			_, err := buf.Write(chunk)
			return err
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "Hello, world" {
			t.Errorf("unexpected body %q", buf.String())
		}
	})
}
