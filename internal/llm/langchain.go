package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// LangChain adapts a langchaingo model to the Provider interface.
type LangChain struct {
	name  string
	model string
	llm   llms.Model
}

func NewLangChain(name, model string, m llms.Model) *LangChain {
	return &LangChain{name: name, model: model, llm: m}
}

func (p *LangChain) Name() string {
	return p.name
}

func (p *LangChain) Chat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role llms.ChatMessageType
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	var callOpts []llms.CallOption
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	resp, err := p.llm.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return nil, &ProviderError{Provider: p.name, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.name, Err: fmt.Errorf("backend returned no choices")}
	}

	choice := resp.Choices[0]
	out := &Response{
		Content:      choice.Content,
		Model:        p.model,
		FinishReason: choice.StopReason,
	}
	out.InputTokens = intFromInfo(choice.GenerationInfo, "PromptTokens")
	out.OutputTokens = intFromInfo(choice.GenerationInfo, "CompletionTokens")
	return out, nil
}

func intFromInfo(info map[string]any, key string) int {
	if info == nil {
		return 0
	}
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
