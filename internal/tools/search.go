package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// SearchFallback is a secondary search path tried when the primary client
// fails, typically the driven browser's HTML scrape.
type SearchFallback func(ctx context.Context, query string) (string, error)

type SearchTool struct {
	client   *duckduckgo.Tool
	fallback SearchFallback
}

func NewSearchTool(fallback SearchFallback) (*SearchTool, error) {
	ddg, err := duckduckgo.New(10, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &SearchTool{client: ddg, fallback: fallback}, nil
}

func (s *SearchTool) Name() string {
	return "search"
}

func (s *SearchTool) Description() string {
	return "Search the web using DuckDuckGo for real-time information."
}

func (s *SearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to look up",
			},
		},
		"required": []string{"query"},
	}
}

func (s *SearchTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	res, err := s.client.Call(ctx, args.Query)
	if err == nil {
		return res, nil
	}

	if s.fallback != nil {
		log.Printf("Warning: primary search failed (%v), using fallback", err)
		fres, ferr := s.fallback(ctx, args.Query)
		if ferr == nil {
			return fres, nil
		}
		return "", fmt.Errorf("search failed: %v (fallback: %v)", err, ferr)
	}
	return "", fmt.Errorf("search failed: %w", err)
}
