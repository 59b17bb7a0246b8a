package hcm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/confpilot/confpilot/pkg/pipeline"
	"github.com/confpilot/confpilot/pkg/telemetry"
)

func testLogger(t *testing.T) *telemetry.Logger {
	t.Helper()
	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{Level: "error"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return logger
}

func testConnection() pipeline.Connection {
	return pipeline.Connection{
		ID:        "conn-1",
		CompanyID: "ACME",
		Username:  "api-user",
		Secret:    "s3cret",
	}
}

func TestEndpointFor(t *testing.T) {
	tests := []struct {
		configType pipeline.ConfigType
		want       string
	}{
		{pipeline.ConfigTypeUser, "User"},
		{pipeline.ConfigTypePosition, "Position"},
		{pipeline.ConfigTypeJob, "Job"},
		{pipeline.ConfigTypeDepartment, "Department"},
		{pipeline.ConfigTypePayGrade, "PayGrade"},
		{pipeline.ConfigTypeCompensation, "Compensation"},
		{pipeline.ConfigTypePermission, "Permission"},
		{pipeline.ConfigTypeWorkflow, "Workflow"},
		{pipeline.ConfigTypeFormTemplate, "FormTemplate"},
		{pipeline.ConfigTypeRatingScale, "RatingScale"},
		{pipeline.ConfigTypeGeneric, "GenericObject"},
		{pipeline.ConfigType("unheard_of"), "GenericObject"},
	}

	for _, tt := range tests {
		if got := EndpointFor(tt.configType); got != tt.want {
			t.Errorf("EndpointFor(%s) = %s, want %s", tt.configType, got, tt.want)
		}
	}
}

func TestTokenSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			t.Errorf("path = %s", r.URL.Path)
		}
		user, secret, ok := r.BasicAuth()
		if !ok || user != "api-user@ACME" || secret != "s3cret" {
			t.Errorf("basic auth = %q/%q ok=%v", user, secret, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
	}))
	defer server.Close()

	ts := NewTokenSource(server.URL, testLogger(t))
	token, err := ts.Token(context.Background(), testConnection())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q", token)
	}
}

func TestTokenFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
		}},
		{"missing token field", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"token_type": "bearer"})
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			ts := NewTokenSource(server.URL, testLogger(t))
			_, err := ts.Token(context.Background(), testConnection())
			if !pipeline.IsAuthentication(err) {
				t.Errorf("expected authentication error, got %v", err)
			}
		})
	}
}

func TestApplySuccessStatuses(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v2/User" {
				t.Errorf("path = %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("authorization = %q", got)
			}
			var payload map[string]string
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			if payload["User ID"] != "u-1" {
				t.Errorf("payload = %v", payload)
			}
			w.WriteHeader(status)
		}))

		c := NewClient(Config{BaseURL: server.URL}, testLogger(t))
		err := c.Apply(context.Background(), "tok", "User", map[string]string{"User ID": "u-1"})
		server.Close()
		if err != nil {
			t.Errorf("Apply with status %d: %v", status, err)
		}
	}
}

func TestApplyFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate user", http.StatusConflict)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL}, testLogger(t))
	err := c.Apply(context.Background(), "tok", "User", map[string]string{"k": "v"})
	if err == nil {
		t.Fatal("expected error for 409 response")
	}
}

func TestApplyContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(Config{BaseURL: server.URL}, testLogger(t))
	if err := c.Apply(ctx, "tok", "User", nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
