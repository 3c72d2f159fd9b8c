// Package llm abstracts over language-model backends so the orchestrator
// never touches a specific wire format.
package llm

import (
	"context"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a chat exchange.
type Message struct {
	Role    string
	Content string
}

// Options tune a single chat call. Zero values mean backend defaults.
type Options struct {
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Response is a backend-agnostic completion.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Provider is a stateless chat backend. Implementations may wrap several
// underlying backends (see Fallback).
type Provider interface {
	Name() string
	Chat(ctx context.Context, messages []Message, opts Options) (*Response, error)
}

// ProviderError marks a backend network/auth failure. The fallback chain
// absorbs it as long as an alternate backend succeeds.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// System and User are small helpers for building message slices.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
