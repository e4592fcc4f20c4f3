package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChat struct {
	reply string
	err   error
	got   [][]Message
}

func (f *fakeChat) Chat(_ context.Context, msgs []Message) (string, error) {
	f.got = append(f.got, msgs)
	return f.reply, f.err
}

type fakeSpeaker struct {
	audio *Audio
	err   error
	text  string
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) (*Audio, error) {
	f.text = text
	return f.audio, f.err
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/ai", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func newHandler(p Providers) *Handler {
	return NewHandler(p, NewHistory(10, time.Minute), zap.NewNop().Sugar())
}

func TestChat_Prompt(t *testing.T) {
	chat := &fakeChat{reply: "Drink water."}
	h := newHandler(Providers{OpenAIChat: chat})

	rec := post(h.OpenAIChat, `{"prompt":"I have a headache"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"content":"Drink water."}`, rec.Body.String())
	require.Len(t, chat.got, 1)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "I have a headache"}}, chat.got[0])
}

func TestChat_MissingInput(t *testing.T) {
	h := newHandler(Providers{OpenAIChat: &fakeChat{}})

	for _, body := range []string{`{}`, `{"prompt":"  "}`, ``} {
		rec := post(h.OpenAIChat, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.JSONEq(t, `{"error":"Missing prompt or messages"}`, rec.Body.String())
	}

	rec := post(h.OpenAIChat, `{"prompt":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_ConversationHistory(t *testing.T) {
	chat := &fakeChat{reply: "first"}
	h := newHandler(Providers{GeminiChat: chat})

	rec := post(h.GeminiChat, `{"prompt":"hello","conversationId":"c1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"content":"first","conversationId":"c1"}`, rec.Body.String())

	chat.reply = "second"
	rec = post(h.GeminiChat, `{"messages":[{"role":"user","content":"again"}],"conversationId":"c1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, chat.got, 2)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "first"},
		{Role: RoleUser, Content: "again"},
	}, chat.got[1])
	assert.Len(t, h.history.Get("c1"), 4)

	// Other conversations and stateless calls do not see c1.
	rec = post(h.GeminiChat, `{"prompt":"solo"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "solo"}}, chat.got[2])
}

func TestChat_ProviderError(t *testing.T) {
	chat := &fakeChat{err: &ProviderError{Provider: providerOpenAI, Detail: "quota exceeded"}}
	h := newHandler(Providers{OpenAIChat: chat})

	rec := post(h.OpenAIChat, `{"prompt":"hi","conversationId":"c2"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"quota exceeded"}`, rec.Body.String())
	assert.Empty(t, h.history.Get("c2"), "failed turns are not remembered")

	chat.err = errors.New("boom")
	rec = post(h.OpenAIChat, `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
}

func TestProviderNotConfigured(t *testing.T) {
	h := newHandler(Providers{})

	rec := post(h.GeminiChat, `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Google AI is not configured"}`, rec.Body.String())

	rec = post(h.ElevenLabsTTS, `{"text":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSpeak(t *testing.T) {
	sp := &fakeSpeaker{audio: &Audio{ContentType: "audio/mp3", Data: []byte("ID3")}}
	h := newHandler(Providers{GoogleTTS: sp})

	rec := post(h.GoogleTTS, `{"text":"Take rest"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mp3", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ID3", rec.Body.String())
	assert.Equal(t, "Take rest", sp.text)

	rec = post(h.GoogleTTS, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing text"}`, rec.Body.String())
}

func TestSpeak_ProviderErrorObject(t *testing.T) {
	detail := map[string]any{"detail": map[string]any{"status": "quota_exceeded"}}
	sp := &fakeSpeaker{err: &ProviderError{Provider: providerElevenLabs, Detail: detail}}
	h := newHandler(Providers{ElevenLabsTTS: sp})

	rec := post(h.ElevenLabsTTS, `{"text":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, detail, out["error"])
}
