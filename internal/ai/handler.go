package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/chiremba/chiremba-api/pkg/utilities"
)

const maxBodyBytes = 1 << 20

// Providers groups the upstream clients. A nil entry means the provider has no credentials.
type Providers struct {
	OpenAIChat    ChatModel
	GeminiChat    ChatModel
	OpenAITTS     Speaker
	GoogleTTS     Speaker
	ElevenLabsTTS Speaker
}

// NewProviders builds a client for every provider that has a key configured.
func NewProviders(ctx context.Context, cfg Config, logger *zap.SugaredLogger) Providers {
	var p Providers
	if cfg.OpenAIKey != "" {
		p.OpenAIChat = NewOpenAIChat(cfg)
		p.OpenAITTS = NewOpenAISpeaker(cfg)
	}
	if cfg.GoogleKey != "" {
		g, err := NewGeminiChat(ctx, cfg)
		if err != nil {
			logger.Errorw("gemini disabled", "err", err)
		} else {
			p.GeminiChat = g
		}
	}
	if cfg.GoogleTTSKey != "" {
		p.GoogleTTS = NewGoogleSpeaker(cfg)
	}
	if cfg.ElevenLabsKey != "" {
		p.ElevenLabsTTS = NewElevenLabsSpeaker(cfg)
	}
	logger.Infow("ai providers", "enabled", cfg.Enabled())
	return p
}

// Handler proxies chat and speech requests to the configured providers.
type Handler struct {
	p       Providers
	history *History
	logger  *zap.SugaredLogger
}

func NewHandler(p Providers, history *History, logger *zap.SugaredLogger) *Handler {
	return &Handler{p: p, history: history, logger: logger}
}

type chatRequest struct {
	Prompt         string    `json:"prompt"`
	Messages       []Message `json:"messages"`
	ConversationID string    `json:"conversationId"`
}

type chatResponse struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversationId,omitempty"`
}

type speechRequest struct {
	Text string `json:"text"`
}

func (h *Handler) OpenAIChat(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, providerOpenAI, h.p.OpenAIChat)
}

func (h *Handler) GeminiChat(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, providerGemini, h.p.GeminiChat)
}

func (h *Handler) OpenAITTS(w http.ResponseWriter, r *http.Request) {
	h.speak(w, r, providerOpenAI, h.p.OpenAITTS)
}

func (h *Handler) GoogleTTS(w http.ResponseWriter, r *http.Request) {
	h.speak(w, r, providerGoogleTTS, h.p.GoogleTTS)
}

func (h *Handler) ElevenLabsTTS(w http.ResponseWriter, r *http.Request) {
	h.speak(w, r, providerElevenLabs, h.p.ElevenLabsTTS)
}

// chat forwards one turn. With a conversationId the stored turns are sent first
// and the exchange is remembered; without one the call is stateless.
func (h *Handler) chat(w http.ResponseWriter, r *http.Request, name string, model ChatModel) {
	var req chatRequest
	if !h.decode(w, r, &req) {
		return
	}
	turn := req.Messages
	if len(turn) == 0 {
		if strings.TrimSpace(req.Prompt) == "" {
			writeError(w, http.StatusBadRequest, "Missing prompt or messages")
			return
		}
		turn = []Message{{Role: RoleUser, Content: req.Prompt}}
	}
	if model == nil {
		h.providerFailure(w, r, notConfigured(name))
		return
	}

	msgs := turn
	if req.ConversationID != "" {
		msgs = append(h.history.Get(req.ConversationID), turn...)
	}
	content, err := model.Chat(r.Context(), msgs)
	if err != nil {
		h.providerFailure(w, r, err)
		return
	}
	if req.ConversationID != "" {
		h.history.Append(req.ConversationID, append(turn, Message{Role: RoleAssistant, Content: content})...)
	}
	utilities.WriteJSON(w, http.StatusOK, chatResponse{Content: content, ConversationID: req.ConversationID})
}

func (h *Handler) speak(w http.ResponseWriter, r *http.Request, name string, s Speaker) {
	var req speechRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Missing text")
		return
	}
	if s == nil {
		h.providerFailure(w, r, notConfigured(name))
		return
	}
	audio, err := s.Speak(r.Context(), req.Text)
	if err != nil {
		h.providerFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", audio.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data)
}

func (h *Handler) providerFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warnw("provider call failed", "path", r.URL.Path, "err", err)
	var perr *ProviderError
	if errors.As(err, &perr) {
		writeError(w, http.StatusInternalServerError, perr.Detail)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	// An empty body is treated as an empty object so the missing-field message applies.
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, detail any) {
	utilities.WriteJSON(w, status, map[string]any{"error": detail})
}
