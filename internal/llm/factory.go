package llm

import (
	"fmt"
	"log"

	"github.com/rohan/orbit/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// FromConfig builds a provider from the enabled config entries, in priority
// order. One entry yields that backend directly; several are wrapped in a
// Fallback chain.
func FromConfig(cfg *config.Config) (Provider, error) {
	enabled := cfg.EnabledProviders()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no enabled provider found in config")
	}

	var providers []Provider
	for _, pc := range enabled {
		p, err := build(pc)
		if err != nil {
			log.Printf("Warning: skipping provider %s: %v", pc.Name, err)
			continue
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no provider could be initialized")
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return NewFallback(providers...), nil
}

func build(pc config.NamedProvider) (Provider, error) {
	var (
		model llms.Model
		err   error
	)
	switch pc.Name {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pc.APIKey),
			openai.WithModel(pc.Model),
		}
		if pc.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pc.BaseURL))
		}
		model, err = openai.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{
			anthropic.WithToken(pc.APIKey),
			anthropic.WithModel(pc.Model),
		}
		if pc.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(pc.BaseURL))
		}
		model, err = anthropic.New(opts...)
	case "ollama":
		opts := []ollama.Option{
			ollama.WithModel(pc.Model),
		}
		if pc.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(pc.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown provider type %q", pc.Name)
	}
	if err != nil {
		return nil, err
	}
	return NewLangChain(pc.Name, pc.Model, model), nil
}
