package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		OpenAIKey:         "sk-test",
		OpenAIModel:       "gpt-4",
		OpenAITTSModel:    "tts-1",
		OpenAIVoice:       "nova",
		GoogleKey:         "g-test",
		GeminiModel:       "gemini-2.0-flash",
		GoogleTTSKey:      "tts-test",
		GoogleTTSLanguage: "en-US",
		GoogleTTSVoice:    "en-US-Wavenet-D",
		ElevenLabsKey:     "xi-test",
		ElevenLabsVoice:   "tnSpp4vdxKPjI9w0GnoV",
		ElevenLabsModel:   "eleven_multilingual_v2",
		Timeout:           5 * time.Second,
	}
}

func TestOpenAIChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4", body.Model)
		assert.Equal(t, []Message{{Role: RoleUser, Content: "hi"}}, body.Messages)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello"}}]}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.OpenAIBaseURL = srv.URL + "/v1"
	got, err := NewOpenAIChat(cfg).Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestOpenAIChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.OpenAIBaseURL = srv.URL + "/v1"
	_, err := NewOpenAIChat(cfg).Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Incorrect API key provided", perr.Detail)
}

func TestOpenAISpeaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tts-1", body["model"])
		assert.Equal(t, "nova", body["voice"])
		assert.Equal(t, "read this", body["input"])
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("MP3DATA"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.OpenAIBaseURL = srv.URL + "/v1"
	audio, err := NewOpenAISpeaker(cfg).Speak(context.Background(), "read this")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", audio.ContentType)
	assert.Equal(t, []byte("MP3DATA"), audio.Data)
}

func TestGeminiChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"), r.URL.Path)
		var body struct {
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			SystemInstruction *struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"systemInstruction"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Contents, 2) {
			assert.Equal(t, "user", body.Contents[0].Role)
			assert.Equal(t, "model", body.Contents[1].Role)
		}
		if assert.NotNil(t, body.SystemInstruction) && assert.NotEmpty(t, body.SystemInstruction.Parts) {
			assert.Equal(t, "be brief", body.SystemInstruction.Parts[0].Text)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"rest and fluids"}]}}]}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.GeminiBaseURL = srv.URL + "/"
	g, err := NewGeminiChat(context.Background(), cfg)
	require.NoError(t, err)

	got, err := g.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "fever"},
		{Role: RoleAssistant, Content: "how long?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "rest and fluids", got)
}

func TestGoogleSpeaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text:synthesize", r.URL.Path)
		assert.Equal(t, "tts-test", r.URL.Query().Get("key"))
		var body googleSynthesizeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body.Input.Text)
		assert.Equal(t, "en-US-Wavenet-D", body.Voice.Name)
		assert.Equal(t, "MP3", body.AudioConfig.AudioEncoding)
		w.Header().Set("Content-Type", "application/json")
		// base64("MP3DATA")
		_, _ = io.WriteString(w, `{"audioContent":"TVAzREFUQQ=="}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.GoogleTTSURL = srv.URL
	audio, err := NewGoogleSpeaker(cfg).Speak(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "audio/mp3", audio.ContentType)
	assert.Equal(t, []byte("MP3DATA"), audio.Data)
}

func TestGoogleSpeaker_Errors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusForbidden)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(status.Load()))
		if status.Load() == http.StatusOK {
			_, _ = io.WriteString(w, `{}`)
			return
		}
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.GoogleTTSURL = srv.URL
	sp := NewGoogleSpeaker(cfg)

	_, err := sp.Speak(context.Background(), "hello")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "API key not valid", perr.Detail)

	status.Store(http.StatusOK)
	_, err = sp.Speak(context.Background(), "hello")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "No audio content", perr.Detail)
}

func TestElevenLabsSpeaker(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/tnSpp4vdxKPjI9w0GnoV", r.URL.Path)
		assert.Equal(t, "xi-test", r.Header.Get("xi-api-key"))
		var body elevenLabsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "eleven_multilingual_v2", body.ModelID)
		assert.Equal(t, 0.75, body.VoiceSettings.SimilarityBoost)
		assert.True(t, body.VoiceSettings.UseSpeakerBoost)
		if fail.Load() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":{"status":"invalid_api_key"}}`)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("MP3DATA"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.ElevenLabsURL = srv.URL
	sp := NewElevenLabsSpeaker(cfg)

	audio, err := sp.Speak(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("MP3DATA"), audio.Data)

	fail.Store(true)
	_, err = sp.Speak(context.Background(), "hello")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, map[string]any{"detail": map[string]any{"status": "invalid_api_key"}}, perr.Detail)
}

func TestConfigFromEnv_ViteFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("VITE_OPENAI_API_KEY", "sk-vite")
	t.Setenv("GOOGLE_API_KEY", "g-server")
	t.Setenv("VITE_GOOGLE_API_KEY", "g-vite")
	t.Setenv("ELEVEN_LABS_API_KEY", "")
	t.Setenv("VITE_ELEVEN_LABS_API_KEY", "")
	t.Setenv("CHAT_HISTORY_SIZE", "0")

	cfg := ConfigFromEnv()
	assert.Equal(t, "sk-vite", cfg.OpenAIKey)
	assert.Equal(t, "g-server", cfg.GoogleKey)
	assert.Equal(t, 1000, cfg.HistorySize)
	assert.Equal(t, "gpt-4", cfg.OpenAIModel)
	assert.False(t, cfg.Enabled()["elevenLabs"])
	assert.True(t, cfg.Enabled()["openai"])
}
