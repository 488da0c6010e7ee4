// Package email sends transactional mail over SMTP.
package email

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	mail "github.com/wneessen/go-mail"

	"github.com/higher-endeavors/endeavors/internal/config"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

const dialTimeout = 10 * time.Second

// Message is a plain-text email with an optional HTML alternative.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP delivers through the configured relay. Secure selects implicit TLS
// (port 465); otherwise STARTTLS is used when the server offers it.
type SMTP struct {
	cfg config.SMTPConfig
	log *logger.Logger
}

func NewSMTP(cfg config.SMTPConfig, log *logger.Logger) *SMTP {
	if log == nil {
		log = logger.NewDefault("email")
	}
	return &SMTP{cfg: cfg, log: log}
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	m, err := Compose(s.cfg.From, msg, time.Now())
	if err != nil {
		return err
	}
	c, err := mail.NewClient(s.cfg.Host, clientOptions(s.cfg)...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	s.log.WithContext(ctx).WithField("subject", msg.Subject).Info("email sent")
	return nil
}

func clientOptions(cfg config.SMTPConfig) []mail.Option {
	opts := []mail.Option{mail.WithTimeout(dialTimeout)}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}
	return opts
}

// Compose builds msg as a MIME message: plain text, or multipart/alternative
// when an HTML body is present.
func Compose(from string, msg Message, now time.Time) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(now.UTC())
	m.SetMessageIDWithValue(uuid.NewString() + "@" + domainOf(from))

	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func addressOnly(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		return strings.TrimSuffix(from[i+1:], ">")
	}
	return from
}

func domainOf(from string) string {
	addr := addressOnly(from)
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return "localhost"
}

// Recorder keeps messages in memory. Local development and tests use it in
// place of a relay.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, msg)
	return nil
}

// Last returns the most recent message.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}
