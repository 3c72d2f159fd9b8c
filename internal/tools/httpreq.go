package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const httpMaxBody = 30000

// HTTPTool is a generic request proxy for APIs the other tools don't cover.
type HTTPTool struct {
	Client *http.Client
}

func NewHTTPTool() *HTTPTool {
	return &HTTPTool{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (h *HTTPTool) Name() string {
	return "http_request"
}

func (h *HTTPTool) Description() string {
	return "Make an HTTP request (GET, POST, PUT, DELETE) to a URL and return the status and response body."
}

func (h *HTTPTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"method": map[string]any{
				"type":        "string",
				"enum":        []string{"GET", "POST", "PUT", "DELETE"},
				"description": "The HTTP method (defaults to GET)",
			},
			"url": map[string]any{
				"type":        "string",
				"description": "The full URL to request",
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Optional request headers as key-value pairs",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Optional request body (for POST/PUT)",
			},
		},
		"required": []string{"url"},
	}
}

func (h *HTTPTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Method  string            `json:"method"`
		URL     string            `json:"url"`
		Headers map[string]string `json:"headers"`
		Body    string            `json:"body"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if args.Method == "" {
		args.Method = "GET"
	}

	var body io.Reader
	if args.Body != "" {
		body = strings.NewReader(args.Body)
	}

	req, err := http.NewRequestWithContext(ctx, args.Method, args.URL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	for k, v := range args.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, httpMaxBody+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %v", err)
	}
	payload := string(data)
	if len(payload) > httpMaxBody {
		payload = payload[:httpMaxBody] + "\n... (body truncated)"
	}

	return fmt.Sprintf("STATUS: %s\n\n%s", resp.Status, payload), nil
}
