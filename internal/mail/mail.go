package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	htmltpl "html/template"
	"net/url"
	"os"
	"strconv"
	"strings"
	texttpl "text/template"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/chiremba/chiremba-api/pkg/utilities"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTemplate = htmltpl.Must(htmltpl.ParseFS(templateFS, "templates/setup.html"))
	textTemplate = texttpl.Must(texttpl.ParseFS(templateFS, "templates/setup.txt"))
)

// Kind selects the wording of a setup-link email.
type Kind int

const (
	KindStaffInvite Kind = iota
	KindAdminInvite
	KindReset
)

// Notice is one setup-link email.
type Notice struct {
	Kind  Kind
	To    string
	Name  string
	Token string
	TTL   time.Duration
}

// Sender delivers setup-link emails.
type Sender interface {
	Send(ctx context.Context, n Notice) error
}

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
	Timeout     time.Duration
	// SkipVerify disables certificate checks on the SMTP connection.
	SkipVerify bool
}

// ConfigFromEnv reads EMAIL_* settings plus FRONTEND_URL and SMTP_TIMEOUT.
func ConfigFromEnv() Config {
	port, err := strconv.Atoi(os.Getenv("EMAIL_PORT"))
	if err != nil || port <= 0 {
		port = 587
	}
	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = "no-reply@chiremba.com"
	}
	frontend := os.Getenv("FRONTEND_URL")
	if frontend == "" {
		frontend = os.Getenv("VITE_EXPRESS_API_URL")
	}
	if frontend == "" {
		frontend = "http://localhost:5173"
	}
	return Config{
		Host:        os.Getenv("EMAIL_HOST"),
		Port:        port,
		Username:    os.Getenv("EMAIL_USER"),
		Password:    os.Getenv("EMAIL_PASS"),
		From:        from,
		FrontendURL: strings.TrimRight(frontend, "/"),
		Timeout:     utilities.DurationFromEnv("SMTP_TIMEOUT", 15*time.Second),
		SkipVerify:  os.Getenv("EMAIL_TLS_SKIP_VERIFY") == "1",
	}
}

// New returns an SMTP sender, or a sender that only logs when no host is configured.
func New(cfg Config, logger *zap.SugaredLogger) Sender {
	if cfg.Host == "" {
		logger.Warnw("EMAIL_HOST not set, setup links will only be logged")
		return &LogSender{cfg: cfg, logger: logger}
	}
	return &SMTPSender{cfg: cfg, logger: logger}
}

// SetupLink builds the client URL that carries token.
func SetupLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/setup-password?token=" + url.QueryEscape(token)
}

type content struct {
	Title   string
	Heading string
	Intro   string
	Name    string
	Link    string
	Expiry  string
	Year    int
}

func contentFor(n Notice, frontendURL string) (subject string, c content) {
	c = content{
		Name:   n.Name,
		Link:   SetupLink(frontendURL, n.Token),
		Expiry: humanizeTTL(n.TTL),
		Year:   time.Now().Year(),
	}
	switch n.Kind {
	case KindAdminInvite:
		subject = "Welcome to Chiremba – Set Up Your Admin Account"
		c.Title = "Set Up Your Chiremba Admin Account"
		c.Heading = "Welcome to Chiremba"
		c.Intro = "You've been invited to join Chiremba as an administrator. To get started, please set up your password by clicking the button below."
	case KindReset:
		subject = "Reset Your Chiremba Account"
		c.Title = subject
		c.Heading = subject
		c.Intro = "Your account has been reset by an administrator. To reactivate your account, please set a new password by clicking the button below."
	default:
		subject = "Welcome to Chiremba – Set Up Your Account"
		c.Title = "Set Up Your Chiremba Account"
		c.Heading = "Welcome to Chiremba"
		c.Intro = "You've been invited to join Chiremba as a staff member. To get started, please set up your password by clicking the button below."
	}
	return subject, c
}

func humanizeTTL(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short time"
	case d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	default:
		m := int(d.Round(time.Minute) / time.Minute)
		if m <= 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
}

// SMTPSender sends through an SMTP relay. Port 465 uses implicit TLS, any
// other port upgrades with STARTTLS when the server offers it.
type SMTPSender struct {
	cfg    Config
	logger *zap.SugaredLogger
}

func (s *SMTPSender) Send(ctx context.Context, n Notice) error {
	msg, err := s.buildMessage(n)
	if err != nil {
		return err
	}
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	if s.cfg.SkipVerify {
		opts = append(opts, gomail.WithTLSConfig(&tls.Config{ServerName: s.cfg.Host, InsecureSkipVerify: true}))
	}
	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	// The account change that triggered the email has already happened,
	// so delivery is not tied to the caller's request lifetime.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()
	if err := client.DialAndSendWithContext(sendCtx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", n.To, err)
	}
	s.logger.Infow("setup email sent", "to", n.To, "kind", n.Kind)
	return nil
}

func (s *SMTPSender) buildMessage(n Notice) (*gomail.Msg, error) {
	if n.To == "" {
		return nil, errors.New("mail: empty recipient")
	}
	subject, c := contentFor(n, s.cfg.FrontendURL)
	msg := gomail.NewMsg(gomail.WithEncoding(gomail.NoEncoding))
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(n.To); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	if err := msg.SetBodyHTMLTemplate(htmlTemplate, c); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := msg.AddAlternativeTextTemplate(textTemplate, c); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}
	return msg, nil
}

// LogSender writes the setup link to the log instead of sending mail.
type LogSender struct {
	cfg    Config
	logger *zap.SugaredLogger
}

func (s *LogSender) Send(_ context.Context, n Notice) error {
	subject, c := contentFor(n, s.cfg.FrontendURL)
	var buf bytes.Buffer
	if err := textTemplate.Execute(&buf, c); err != nil {
		return fmt.Errorf("render text: %w", err)
	}
	s.logger.Infow("setup email (not sent)", "to", n.To, "subject", subject, "link", c.Link)
	s.logger.Debugw("setup email body", "to", n.To, "body", buf.String())
	return nil
}
