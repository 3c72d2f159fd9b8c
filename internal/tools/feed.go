package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedTool reads RSS/Atom feeds for monitoring-style goals.
type FeedTool struct {
	parser *gofeed.Parser
}

func NewFeedTool() *FeedTool {
	return &FeedTool{parser: gofeed.NewParser()}
}

func (f *FeedTool) Name() string {
	return "feed"
}

func (f *FeedTool) Description() string {
	return "Read an RSS or Atom feed URL and return the latest entries (title, link, date, summary)."
}

func (f *FeedTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The feed URL",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of entries to return (default 10)",
			},
		},
		"required": []string{"url"},
	}
}

func (f *FeedTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		URL   string `json:"url"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if args.Limit <= 0 {
		args.Limit = 10
	}

	feed, err := f.parser.ParseURLWithContext(args.URL, ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read feed: %v", err)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "FEED: %s\n\n", feed.Title)
	for i, item := range feed.Items {
		if i >= args.Limit {
			break
		}
		fmt.Fprintf(&out, "- %s\n  %s\n", item.Title, item.Link)
		if item.Published != "" {
			fmt.Fprintf(&out, "  %s\n", item.Published)
		}
		if item.Description != "" {
			desc := item.Description
			if len(desc) > 300 {
				desc = desc[:300] + "..."
			}
			fmt.Fprintf(&out, "  %s\n", desc)
		}
	}
	if len(feed.Items) == 0 {
		out.WriteString("(feed has no entries)")
	}
	return out.String(), nil
}
