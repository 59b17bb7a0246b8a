package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// HTTPAdvisor calls a chat-completions style endpoint for supplementary
// recommendations. It is wired behind the Advisor interface so the analyzer
// stays decoupled from any specific provider.
type HTTPAdvisor struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPAdvisor creates an advisor client for the given endpoint.
func NewHTTPAdvisor(endpoint, apiKey, model string) *HTTPAdvisor {
	return &HTTPAdvisor{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: defaultTimeout},
	}
}

// Suggest implements Advisor. Each non-empty line of the reply becomes one
// recommendation string.
func (a *HTTPAdvisor) Suggest(ctx context.Context, summary Summary) ([]string, error) {
	types := make([]string, len(summary.Types))
	for i, t := range summary.Types {
		types[i] = string(t)
	}

	prompt := fmt.Sprintf(
		"A configuration workbook contains %d configuration items of types: %s. "+
			"List implementation recommendations, one per line.",
		summary.TotalItems, strings.Join(types, ", "))

	body := map[string]interface{}{
		"model": a.model,
		"messages": []map[string]string{{
			"role":    "user",
			"content": prompt,
		}},
		"temperature": 0,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisor error (status %d): %s", resp.StatusCode, string(respBytes))
	}

	var reply struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &reply); err != nil {
		return nil, err
	}
	if len(reply.Choices) == 0 {
		return nil, fmt.Errorf("empty advisor response")
	}

	var recommendations []string
	for _, line := range strings.Split(reply.Choices[0].Message.Content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			recommendations = append(recommendations, line)
		}
	}

	return recommendations, nil
}
