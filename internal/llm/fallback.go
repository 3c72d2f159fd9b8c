package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Fallback chains providers in priority order. Each call walks the chain and
// returns the first response with non-empty content; if every backend fails
// the last error is raised. A single backend outage therefore never halts
// the agent while alternates are configured.
type Fallback struct {
	providers []Provider
}

func NewFallback(providers ...Provider) *Fallback {
	return &Fallback{providers: providers}
}

func (f *Fallback) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

func (f *Fallback) Chat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	if len(f.providers) == 0 {
		return nil, &ProviderError{Provider: "fallback", Err: fmt.Errorf("no providers configured")}
	}

	var lastErr error
	for _, p := range f.providers {
		resp, err := p.Chat(ctx, messages, opts)
		if err != nil {
			lastErr = err
			log.Printf("Warning: provider %s failed, trying next: %v", p.Name(), err)
			continue
		}
		if strings.TrimSpace(resp.Content) == "" {
			lastErr = &ProviderError{Provider: p.Name(), Err: fmt.Errorf("empty response content")}
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}
