package post

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/competitionmonitor/analysis/analysistest"
	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/models"
)

func request(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/analyzetext", strings.NewReader(body))
	return r.WithContext(auth.WithUser(r.Context(), "alice"))
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedKind   models.AnalysisKind
	}{
		{
			name:           "invalid JSON returns 400",
			body:           `{`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "short text returns 400",
			body:           `{"text": "Figma"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid images return 400",
			body:           `{"text": "Figma is a design tool.", "image_base64": "!!!"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "text is analyzed",
			body:           `{"text": "Figma is a design tool.", "competitor": "Figma", "score": true}`,
			expectedStatus: http.StatusOK,
			expectedKind:   models.AnalysisKindText,
		},
		{
			name:           "images are analyzed without text",
			body:           `{"image_base64": "cG5n", "image_type": "image/png"}`,
			expectedStatus: http.StatusOK,
			expectedKind:   models.AnalysisKindImage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := analysistest.New(t)
			w := httptest.NewRecorder()
			New(analysistest.Discard, svc).ServeHTTP(w, request(tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var resp models.AnalyzeResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Kind != tt.expectedKind {
				t.Errorf("expected kind %q, got %q", tt.expectedKind, resp.Kind)
			}
			if resp.ID == 0 {
				t.Error("expected a stored ID")
			}
		})
	}
}
