// Package hcm is the HTTP client for the remote HCM platform: OAuth
// token issuance and per-item configuration apply calls. It is the only
// package that talks to the tenant.
package hcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/confpilot/confpilot/pkg/pipeline"
	"github.com/confpilot/confpilot/pkg/telemetry"
)

const (
	defaultAPIVersion  = "v2"
	defaultHTTPTimeout = 30 * time.Second
	tokenTimeout       = 10 * time.Second
)

// endpointMap routes each configuration type to its API object endpoint.
// Unknown types fall back to GenericObject rather than being rejected.
var endpointMap = map[pipeline.ConfigType]string{
	pipeline.ConfigTypeUser:         "User",
	pipeline.ConfigTypePosition:     "Position",
	pipeline.ConfigTypeJob:          "Job",
	pipeline.ConfigTypeDepartment:   "Department",
	pipeline.ConfigTypePayGrade:     "PayGrade",
	pipeline.ConfigTypeCompensation: "Compensation",
	pipeline.ConfigTypePermission:   "Permission",
	pipeline.ConfigTypeWorkflow:     "Workflow",
	pipeline.ConfigTypeFormTemplate: "FormTemplate",
	pipeline.ConfigTypeRatingScale:  "RatingScale",
}

// EndpointFor resolves the remote endpoint name for a configuration type.
func EndpointFor(configType pipeline.ConfigType) string {
	if endpoint, ok := endpointMap[configType]; ok {
		return endpoint
	}
	return "GenericObject"
}

// Config holds the tenant connection settings.
type Config struct {
	BaseURL    string `yaml:"base_url" validate:"required,url"`
	APIVersion string `yaml:"api_version"`
}

// TokenSource issues bearer tokens via the OAuth client-credentials flow.
type TokenSource struct {
	baseURL string
	client  *http.Client
	logger  *telemetry.Logger
}

// NewTokenSource creates a token source against the given base URL.
func NewTokenSource(baseURL string, logger *telemetry.Logger) *TokenSource {
	return &TokenSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: tokenTimeout},
		logger:  logger.NewComponentLogger("hcm.token"),
	}
}

// Token exchanges the connection's credentials for a bearer token. Any
// failure is a pipeline-level authentication error: the executor must not
// attempt a single item without a token.
func (t *TokenSource) Token(ctx context.Context, conn pipeline.Connection) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", pipeline.NewAuthenticationError("failed to build token request", err)
	}
	// The tenant expects basic auth as "username@companyID" / secret.
	req.SetBasicAuth(conn.Username+"@"+conn.CompanyID, conn.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", pipeline.NewAuthenticationError("token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pipeline.NewAuthenticationError(
			fmt.Sprintf("token endpoint returned status %d", resp.StatusCode), nil)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", pipeline.NewAuthenticationError("failed to decode token response", err)
	}
	if body.AccessToken == "" {
		return "", pipeline.NewAuthenticationError("token response carried no access token", nil)
	}

	t.logger.WithField("company_id", conn.CompanyID).Debug("token issued")
	return body.AccessToken, nil
}

// Client applies configuration payloads to the tenant.
type Client struct {
	baseURL    string
	apiVersion string
	client     *http.Client
	logger     *telemetry.Logger
}

// NewClient creates an apply client from the tenant config.
func NewClient(cfg Config, logger *telemetry.Logger) *Client {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiVersion: apiVersion,
		client:     &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger.NewComponentLogger("hcm.client"),
	}
}

// Apply posts one item's row data to the endpoint for its type. A 200 or
// 201 is success; every other status, and any transport error, is an
// item-level failure for the caller to record.
func (c *Client) Apply(ctx context.Context, token, endpoint string, payload map[string]string) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	applyURL := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, applyURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build apply request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("apply call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		c.logger.WithField("endpoint", endpoint).Debug("configuration applied")
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("endpoint %s returned status %d: %s",
		endpoint, resp.StatusCode, strings.TrimSpace(string(detail)))
}
