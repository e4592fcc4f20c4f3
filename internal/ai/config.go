package ai

import (
	"os"
	"strconv"
	"time"

	"github.com/chiremba/chiremba-api/pkg/utilities"
)

// Config holds provider credentials and request shaping for the proxy endpoints.
type Config struct {
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
	OpenAITTSModel string
	OpenAIVoice    string

	GoogleKey   string
	GeminiModel string
	// GeminiBaseURL overrides the Gemini API endpoint; empty uses the SDK default.
	GeminiBaseURL string

	GoogleTTSKey      string
	GoogleTTSURL      string
	GoogleTTSLanguage string
	GoogleTTSVoice    string

	ElevenLabsKey   string
	ElevenLabsURL   string
	ElevenLabsVoice string
	ElevenLabsModel string

	Timeout     time.Duration
	HistorySize int
	HistoryTTL  time.Duration
}

// keyFromEnv prefers the server-side name and falls back to the VITE_ name the web build used.
func keyFromEnv(name string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return os.Getenv("VITE_" + name)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func ConfigFromEnv() Config {
	size, err := strconv.Atoi(os.Getenv("CHAT_HISTORY_SIZE"))
	if err != nil || size <= 0 {
		size = 1000
	}
	return Config{
		OpenAIKey:      keyFromEnv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:    envOr("OPENAI_CHAT_MODEL", "gpt-4"),
		OpenAITTSModel: envOr("OPENAI_TTS_MODEL", "tts-1"),
		OpenAIVoice:    envOr("OPENAI_TTS_VOICE", "nova"),

		GoogleKey:     keyFromEnv("GOOGLE_API_KEY"),
		GeminiModel:   envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),

		GoogleTTSKey:      keyFromEnv("GOOGLE_CLOUD_TTS_API_KEY"),
		GoogleTTSURL:      envOr("GOOGLE_TTS_URL", "https://texttospeech.googleapis.com"),
		GoogleTTSLanguage: envOr("GOOGLE_TTS_LANGUAGE", "en-US"),
		GoogleTTSVoice:    envOr("GOOGLE_TTS_VOICE", "en-US-Wavenet-D"),

		ElevenLabsKey:   keyFromEnv("ELEVEN_LABS_API_KEY"),
		ElevenLabsURL:   envOr("ELEVEN_LABS_URL", "https://api.elevenlabs.io"),
		ElevenLabsVoice: envOr("ELEVEN_LABS_VOICE", "tnSpp4vdxKPjI9w0GnoV"),
		ElevenLabsModel: envOr("ELEVEN_LABS_MODEL", "eleven_multilingual_v2"),

		Timeout:     utilities.DurationFromEnv("AI_TIMEOUT", 60*time.Second),
		HistorySize: size,
		HistoryTTL:  utilities.DurationFromEnv("CHAT_HISTORY_TTL", 30*time.Minute),
	}
}

// Enabled reports which providers have credentials, keyed the way the web client names them.
func (c Config) Enabled() map[string]bool {
	return map[string]bool{
		"openai":     c.OpenAIKey != "",
		"google":     c.GoogleKey != "",
		"googleTTS":  c.GoogleTTSKey != "",
		"elevenLabs": c.ElevenLabsKey != "",
	}
}
