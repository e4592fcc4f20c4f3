package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const providerGemini = "Google AI"

// GeminiChat generates replies with the Gemini API.
type GeminiChat struct {
	client *genai.Client
	model  string
}

func NewGeminiChat(ctx context.Context, cfg Config) (*GeminiChat, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.GoogleKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.GeminiBaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.GeminiBaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiChat{client: client, model: cfg.GeminiModel}, nil
}

// Chat maps system messages to the system instruction and assistant turns to
// the model role.
func (g *GeminiChat) Chat(ctx context.Context, msgs []Message) (string, error) {
	var (
		system   []string
		contents = make([]*genai.Content, 0, len(msgs))
	)
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	var gc *genai.GenerateContentConfig
	if len(system) > 0 {
		gc = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(strings.Join(system, "\n"), genai.RoleUser),
		}
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, gc)
	if err != nil {
		return "", providerErr(providerGemini, err)
	}
	return result.Text(), nil
}
