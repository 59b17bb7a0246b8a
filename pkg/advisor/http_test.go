package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/confpilot/confpilot/pkg/pipeline"
)

func TestHTTPAdvisorSuggest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Errorf("authorization = %q", got)
		}

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "test-model" {
			t.Errorf("model = %q", body.Model)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{
				"message": map[string]string{
					"content": "Review role mappings\n\nStage changes in a sandbox tenant\n",
				},
			}},
		})
	}))
	defer server.Close()

	a := NewHTTPAdvisor(server.URL, "key-123", "test-model")
	got, err := a.Suggest(context.Background(), Summary{
		TotalItems: 12,
		Types:      []pipeline.ConfigType{pipeline.ConfigTypeUser},
	})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (blank lines dropped)", len(got))
	}
	if got[0] != "Review role mappings" {
		t.Errorf("first = %q", got[0])
	}
}

func TestHTTPAdvisorServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := NewHTTPAdvisor(server.URL, "key", "model")
	if _, err := a.Suggest(context.Background(), Summary{}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestHTTPAdvisorMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	a := NewHTTPAdvisor(server.URL, "key", "model")
	if _, err := a.Suggest(context.Background(), Summary{}); err == nil {
		t.Fatal("expected error for malformed response")
	}
}

func TestNoopSuggest(t *testing.T) {
	got, err := Noop{}.Suggest(context.Background(), Summary{TotalItems: 100})
	if err != nil {
		t.Fatalf("Noop must never fail, got %v", err)
	}
	if got != nil {
		t.Errorf("Noop must return nil, got %v", got)
	}
}
