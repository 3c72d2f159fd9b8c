package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/rohan/orbit/internal/guard"
)

// ResourceGuard is the exclusivity lock the browser session sits behind.
// Satisfied by *guard.Guard.
type ResourceGuard interface {
	Acquire(ctx context.Context, holder string) (guard.Acquisition, error)
	Release(ctx context.Context, holder string) error
}

// BrowserTool drives a single chrome session. The session is single-tenant:
// every action first claims the resource guard for the calling task, and a
// busy guard turns into a polite refusal rather than a second browser.
type BrowserTool struct {
	mu            sync.Mutex
	guard         ResourceGuard
	holder        string
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func NewBrowserTool(g ResourceGuard) *BrowserTool {
	return &BrowserTool{guard: g}
}

func (b *BrowserTool) Name() string {
	return "browser"
}

func (b *BrowserTool) Description() string {
	return "Control a browser to interact with websites. The browser window remains open until you call 'close'. Actions: 'navigate', 'click', 'content', 'type', 'scroll', 'wait', 'back', 'reload', 'screenshot', 'close'."
}

func (b *BrowserTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []string{
					"navigate", "click", "content", "type",
					"scroll", "wait", "back", "reload",
					"screenshot", "close",
				},
				"description": "The action to perform.",
			},
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to navigate to (required for 'navigate')",
			},
			"selector": map[string]any{
				"type":        "string",
				"description": "CSS selector for the target element (required for 'click', 'type', 'wait')",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "The text to type (required for 'type')",
			},
			"wait_seconds": map[string]any{
				"type":        "integer",
				"description": "Time to wait in seconds (used with 'wait')",
			},
		},
		"required": []string{"action"},
	}
}

// claim takes the resource guard for the current task. The holder survives
// across actions so one task can run a whole browsing sequence.
func (b *BrowserTool) claim(ctx context.Context) (string, error) {
	holder := TaskID(ctx)
	if holder == "" {
		holder = "interactive"
	}
	if b.guard == nil {
		return holder, nil
	}
	acq, err := b.guard.Acquire(ctx, holder)
	if err != nil {
		return "", fmt.Errorf("browser lock check failed: %v", err)
	}
	if !acq.Acquired {
		return "", fmt.Errorf("%s", acq.Reason)
	}
	b.mu.Lock()
	b.holder = holder
	b.mu.Unlock()
	return holder, nil
}

func (b *BrowserTool) initBrowser() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		select {
		case <-b.browserCtx.Done():
			b.cleanupLocked()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)

	return chromedp.Run(b.browserCtx)
}

func (b *BrowserTool) cleanupLocked() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.allocCtx = nil
}

// ForceClose tears down the chrome session unconditionally. The guard uses
// it as the reclaim hook when a stale lock is taken over, and main calls it
// on shutdown.
func (b *BrowserTool) ForceClose(ctx context.Context) error {
	b.mu.Lock()
	holder := b.holder
	b.holder = ""
	b.cleanupLocked()
	b.mu.Unlock()

	if b.guard != nil && holder != "" {
		return b.guard.Release(ctx, holder)
	}
	return nil
}

func (b *BrowserTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Action      string `json:"action"`
		URL         string `json:"url"`
		Selector    string `json:"selector"`
		Text        string `json:"text"`
		WaitSeconds int    `json:"wait_seconds"`
	}

	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	if args.Action == "close" {
		if err := b.ForceClose(ctx); err != nil {
			return "", err
		}
		return "Successfully closed the browser.", nil
	}

	if _, err := b.claim(ctx); err != nil {
		return "", err
	}

	if err := b.initBrowser(); err != nil {
		return "", fmt.Errorf("failed to initialize browser: %v", err)
	}

	actionCtx, cancel := context.WithTimeout(b.browserCtx, 60*time.Second)
	defer cancel()

	var result string
	var err error

	switch args.Action {
	case "navigate":
		if args.URL == "" {
			return "Error: url is required for 'navigate'", nil
		}
		err = chromedp.Run(actionCtx, chromedp.Navigate(args.URL))
		result = fmt.Sprintf("Successfully navigated to %s", args.URL)

	case "content":
		var html string
		err = chromedp.Run(actionCtx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				node, err := dom.GetDocument().Do(ctx)
				if err != nil {
					return err
				}
				html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
				return err
			}),
		)
		if len(html) > scrapeMaxChars {
			html = html[:scrapeMaxChars] + "\n... (truncated)"
		}
		result = html

	case "click":
		if args.Selector == "" {
			return "Error: selector required", nil
		}
		err = chromedp.Run(actionCtx, chromedp.Click(args.Selector, chromedp.ByQuery))
		result = fmt.Sprintf("Clicked %s", args.Selector)

	case "type":
		if args.Selector == "" || args.Text == "" {
			return "Error: selector and text required", nil
		}
		err = chromedp.Run(actionCtx, chromedp.SendKeys(args.Selector, args.Text, chromedp.ByQuery))
		result = fmt.Sprintf("Typed text in %s", args.Selector)

	case "scroll":
		if args.Selector != "" {
			err = chromedp.Run(actionCtx, chromedp.ScrollIntoView(args.Selector, chromedp.ByQuery))
			result = fmt.Sprintf("Scrolled to %s", args.Selector)
		} else {
			err = chromedp.Run(actionCtx, chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil))
			result = "Scrolled to bottom"
		}

	case "wait":
		if args.Selector != "" {
			err = chromedp.Run(actionCtx, chromedp.WaitVisible(args.Selector, chromedp.ByQuery))
			result = fmt.Sprintf("Finished waiting for %s", args.Selector)
		} else if args.WaitSeconds > 0 {
			select {
			case <-time.After(time.Duration(args.WaitSeconds) * time.Second):
			case <-actionCtx.Done():
			}
			result = fmt.Sprintf("Waited for %d seconds", args.WaitSeconds)
		} else {
			result = "Nothing to wait for"
		}

	case "back":
		err = chromedp.Run(actionCtx, chromedp.NavigateBack())
		result = "Navigated back"

	case "reload":
		err = chromedp.Run(actionCtx, chromedp.Reload())
		result = "Page reloaded"

	case "screenshot":
		var buf []byte
		err = chromedp.Run(actionCtx, chromedp.CaptureScreenshot(&buf))
		if err == nil {
			os.MkdirAll("screenshots", 0755)
			filename := fmt.Sprintf("screenshot_%d.png", time.Now().Unix())
			path := filepath.Join("screenshots", filename)
			err = os.WriteFile(path, buf, 0644)
			if err == nil {
				absPath, _ := filepath.Abs(path)
				result = fmt.Sprintf("Screenshot saved to %s", absPath)
			}
		}

	default:
		return "Invalid action", nil
	}

	if err != nil {
		return fmt.Sprintf("Browser action failed: %v", err), nil
	}

	return result, nil
}

// Search drives the browser to the DuckDuckGo HTML endpoint and pulls the
// result snippets. The search tool uses it when the API client errors out.
func (b *BrowserTool) Search(ctx context.Context, query string) (string, error) {
	if _, err := b.claim(ctx); err != nil {
		return "", err
	}
	if err := b.initBrowser(); err != nil {
		return "", fmt.Errorf("failed to initialize browser: %v", err)
	}

	actionCtx, cancel := context.WithTimeout(b.browserCtx, 60*time.Second)
	defer cancel()

	target := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)
	var text string
	err := chromedp.Run(actionCtx,
		chromedp.Navigate(target),
		chromedp.WaitVisible("#links", chromedp.ByID),
		chromedp.Text("#links", &text, chromedp.ByID),
	)
	if err != nil {
		return "", fmt.Errorf("browser search failed: %v", err)
	}

	text = strings.TrimSpace(text)
	if len(text) > 8000 {
		text = text[:8000] + "\n... (truncated)"
	}
	return text, nil
}
