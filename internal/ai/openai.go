package ai

import (
	"context"
	"errors"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "OpenAI"

func newOpenAIClient(cfg Config) *openai.Client {
	oc := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return openai.NewClientWithConfig(oc)
}

// OpenAIChat sends chat completions to OpenAI.
type OpenAIChat struct {
	client *openai.Client
	model  string
}

func NewOpenAIChat(cfg Config) *OpenAIChat {
	return &OpenAIChat{client: newOpenAIClient(cfg), model: cfg.OpenAIModel}
}

func (c *OpenAIChat) Chat(ctx context.Context, msgs []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: providerOpenAI, Detail: "empty completion"}
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAISpeaker synthesizes MP3 speech with OpenAI TTS.
type OpenAISpeaker struct {
	client *openai.Client
	model  string
	voice  string
}

func NewOpenAISpeaker(cfg Config) *OpenAISpeaker {
	return &OpenAISpeaker{client: newOpenAIClient(cfg), model: cfg.OpenAITTSModel, voice: cfg.OpenAIVoice}
}

func (s *OpenAISpeaker) Speak(ctx context.Context, text string) (*Audio, error) {
	rc, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, openAIError(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, providerErr(providerOpenAI, err)
	}
	return &Audio{ContentType: "audio/mpeg", Data: data}, nil
}

// openAIError relays the API's own message when there is one.
func openAIError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &ProviderError{Provider: providerOpenAI, Detail: apiErr.Message, Err: err}
	}
	return providerErr(providerOpenAI, err)
}
