package mail

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetupLink(t *testing.T) {
	assert.Equal(t, "http://localhost:5173/setup-password?token=a.b.c", SetupLink("http://localhost:5173/", "a.b.c"))
	assert.Equal(t, "https://x.io/setup-password?token=a%2Bb", SetupLink("https://x.io", "a+b"))
}

func TestHumanizeTTL(t *testing.T) {
	assert.Equal(t, "1 hour", humanizeTTL(time.Hour))
	assert.Equal(t, "2 hours", humanizeTTL(2*time.Hour))
	assert.Equal(t, "30 minutes", humanizeTTL(30*time.Minute))
	assert.Equal(t, "a short time", humanizeTTL(0))
}

func TestContentFor(t *testing.T) {
	tests := []struct {
		kind    Kind
		subject string
		intro   string
	}{
		{KindStaffInvite, "Welcome to Chiremba – Set Up Your Account", "staff member"},
		{KindAdminInvite, "Welcome to Chiremba – Set Up Your Admin Account", "administrator"},
		{KindReset, "Reset Your Chiremba Account", "reset by an administrator"},
	}
	for _, tt := range tests {
		subject, c := contentFor(Notice{Kind: tt.kind, Token: "tok", TTL: time.Hour}, "http://app")
		assert.Equal(t, tt.subject, subject)
		assert.Contains(t, c.Intro, tt.intro)
		assert.Equal(t, "http://app/setup-password?token=tok", c.Link)
	}
}

func TestSMTPSender_BuildMessage(t *testing.T) {
	s := &SMTPSender{cfg: Config{From: "no-reply@chiremba.com", FrontendURL: "http://app"}, logger: zap.NewNop().Sugar()}

	msg, err := s.buildMessage(Notice{Kind: KindAdminInvite, To: "a@x.com", Name: "Ada <b>", Token: "tok-1", TTL: time.Hour})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "a@x.com")
	assert.Contains(t, out, "as an administrator")
	assert.Contains(t, out, "setup-password?token=tok-1")
	assert.Contains(t, out, "Hi Ada &lt;b&gt;,")

	_, err = s.buildMessage(Notice{Kind: KindReset})
	assert.Error(t, err)
}

func TestSMTPSender_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := New(Config{
		Host:        "127.0.0.1",
		Port:        port,
		From:        "no-reply@chiremba.com",
		FrontendURL: "http://app",
		Timeout:     2 * time.Second,
	}, zap.NewNop().Sugar())
	_, ok := s.(*SMTPSender)
	require.True(t, ok)

	err = s.Send(context.Background(), Notice{To: "a@x.com", Token: "t", TTL: time.Hour})
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(Config{FrontendURL: "http://app"}, zap.New(core).Sugar())
	_, ok := s.(*LogSender)
	require.True(t, ok)

	require.NoError(t, s.Send(context.Background(), Notice{Kind: KindReset, To: "a@x.com", Token: "tok", TTL: time.Hour}))
	entries := logs.FilterMessage("setup email (not sent)").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "http://app/setup-password?token=tok", entries[0].ContextMap()["link"])
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("EMAIL_HOST", "smtp.x.com")
	t.Setenv("EMAIL_PORT", "465")
	t.Setenv("EMAIL_FROM", "")
	t.Setenv("FRONTEND_URL", "https://chiremba.app/")
	cfg := ConfigFromEnv()
	assert.Equal(t, "smtp.x.com", cfg.Host)
	assert.Equal(t, 465, cfg.Port)
	assert.Equal(t, "no-reply@chiremba.com", cfg.From)
	assert.Equal(t, "https://chiremba.app", cfg.FrontendURL)

	t.Setenv("EMAIL_PORT", "bogus")
	assert.Equal(t, 587, ConfigFromEnv().Port)
}
