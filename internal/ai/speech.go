package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const (
	providerGoogleTTS  = "Google TTS"
	providerElevenLabs = "ElevenLabs"
)

// GoogleSpeaker calls the Cloud Text-to-Speech REST API.
type GoogleSpeaker struct {
	client   *resty.Client
	key      string
	language string
	voice    string
}

func NewGoogleSpeaker(cfg Config) *GoogleSpeaker {
	return &GoogleSpeaker{
		client:   resty.New().SetBaseURL(cfg.GoogleTTSURL).SetTimeout(cfg.Timeout),
		key:      cfg.GoogleTTSKey,
		language: cfg.GoogleTTSLanguage,
		voice:    cfg.GoogleTTSVoice,
	}
}

type googleSynthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type googleSynthesizeResponse struct {
	// AudioContent arrives base64 encoded; encoding/json decodes it into bytes.
	AudioContent []byte `json:"audioContent"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *GoogleSpeaker) Speak(ctx context.Context, text string) (*Audio, error) {
	var body googleSynthesizeRequest
	body.Input.Text = text
	body.Voice.LanguageCode = g.language
	body.Voice.Name = g.voice
	body.AudioConfig.AudioEncoding = "MP3"

	var (
		out    googleSynthesizeResponse
		errOut googleErrorResponse
	)
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.key).
		SetBody(body).
		SetResult(&out).
		SetError(&errOut).
		Post("/v1/text:synthesize")
	if err != nil {
		return nil, providerErr(providerGoogleTTS, err)
	}
	if resp.IsError() {
		msg := errOut.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return nil, &ProviderError{Provider: providerGoogleTTS, Detail: msg, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	if len(out.AudioContent) == 0 {
		return nil, &ProviderError{Provider: providerGoogleTTS, Detail: "No audio content"}
	}
	return &Audio{ContentType: "audio/mp3", Data: out.AudioContent}, nil
}

// ElevenLabsSpeaker calls the ElevenLabs text-to-speech API.
type ElevenLabsSpeaker struct {
	client *resty.Client
	voice  string
	model  string
}

func NewElevenLabsSpeaker(cfg Config) *ElevenLabsSpeaker {
	return &ElevenLabsSpeaker{
		client: resty.New().
			SetBaseURL(cfg.ElevenLabsURL).
			SetTimeout(cfg.Timeout).
			SetHeader("xi-api-key", cfg.ElevenLabsKey),
		voice: cfg.ElevenLabsVoice,
		model: cfg.ElevenLabsModel,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Speak relays the provider's JSON error object unchanged on failure.
func (e *ElevenLabsSpeaker) Speak(ctx context.Context, text string) (*Audio, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Accept", "audio/mpeg").
		SetPathParam("voice", e.voice).
		SetBody(elevenLabsRequest{
			Text:    text,
			ModelID: e.model,
			VoiceSettings: voiceSettings{
				Stability:       0.5,
				SimilarityBoost: 0.75,
				Style:           0.5,
				UseSpeakerBoost: true,
			},
		}).
		Post("/v1/text-to-speech/{voice}")
	if err != nil {
		return nil, providerErr(providerElevenLabs, err)
	}
	if resp.IsError() {
		var detail any
		if jerr := json.Unmarshal(resp.Body(), &detail); jerr != nil || detail == nil {
			detail = resp.Status()
		}
		return nil, &ProviderError{Provider: providerElevenLabs, Detail: detail, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	return &Audio{ContentType: "audio/mpeg", Data: resp.Body()}, nil
}
