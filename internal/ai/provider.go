package ai

import (
	"context"
	"fmt"
)

// Chat roles as used by the web client and OpenAI.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatModel produces the next assistant reply for msgs.
type ChatModel interface {
	Chat(ctx context.Context, msgs []Message) (string, error)
}

// Audio is synthesized speech ready to relay to the client.
type Audio struct {
	ContentType string
	Data        []byte
}

// Speaker converts text to speech.
type Speaker interface {
	Speak(ctx context.Context, text string) (*Audio, error)
}

// ProviderError wraps an upstream failure. Detail is relayed to the client as the
// "error" field: the provider's message, or its error object when it sent one.
type ProviderError struct {
	Provider string
	Detail   any
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Detail)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerErr(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Detail: err.Error(), Err: err}
}

func notConfigured(provider string) *ProviderError {
	return &ProviderError{Provider: provider, Detail: provider + " is not configured"}
}
