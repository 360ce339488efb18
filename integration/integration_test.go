package integration

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/a-h/competitionmonitor/client"
	"github.com/a-h/jsonapi"
)

// newClient returns a client for the server under test, which must be
// started separately.
func newClient(t *testing.T) client.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("COMPETITION_MONITOR_URL")
	if url == "" {
		url = "http://localhost:8000"
	}
	return client.New(url, os.Getenv("COMPETITION_MONITOR_API_KEY"))
}

func statusOf(err error) int {
	var ise jsonapi.InvalidStatusError
	if errors.As(err, &ise) {
		return ise.Status
	}
	return 0
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	resp, err := c.HealthGet(context.Background())
	if err != nil {
		t.Fatalf("failed to get health: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %q", resp.Status)
	}
}

func TestAnalysisNotFound(t *testing.T) {
	c := newClient(t)
	_, err := c.AnalysisGet(context.Background(), 1<<62)
	if status := statusOf(err); status != http.StatusNotFound {
		t.Errorf("expected 404, got %d (%v)", status, err)
	}
}

func TestAnalyzeTextValidation(t *testing.T) {
	c := newClient(t)
	_, err := c.AnalyzeTextGet(context.Background(), "short", "", false)
	if status := statusOf(err); status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d (%v)", status, err)
	}
}
