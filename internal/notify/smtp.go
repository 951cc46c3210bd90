package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// SMTPConfig holds the mail relay settings for the shoutrrr SMTP service.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// SMTPNotifier sends e-mail through shoutrrr's SMTP service. The recipient
// varies per region, so the service URL is built per send.
type SMTPNotifier struct {
	cfg SMTPConfig
}

// NewSMTPNotifier validates the relay settings and returns a notifier.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("smtp port %d out of range", cfg.Port)
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	return &SMTPNotifier{cfg: cfg}, nil
}

// Send delivers one message to address. Blocking, no retries: a failed
// dispatch is the caller's signal to leave the event flagged for follow-up.
func (s *SMTPNotifier) Send(ctx context.Context, address, subject, body string) error {
	if address == "" {
		return errors.New("empty recipient address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sender, err := shoutrrr.CreateSender(s.serviceURL(address))
	if err != nil {
		return fmt.Errorf("configure smtp sender: %w", err)
	}

	params := types.Params{"subject": subject}
	for _, sendErr := range sender.Send(body, &params) {
		if sendErr != nil {
			return fmt.Errorf("send notification to %s: %w", address, sendErr)
		}
	}
	return nil
}

func (s *SMTPNotifier) serviceURL(to string) string {
	u := url.URL{
		Scheme: "smtp",
		Host:   fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Path:   "/",
	}
	if s.cfg.Username != "" {
		u.User = url.UserPassword(s.cfg.Username, s.cfg.Password)
	}
	q := url.Values{}
	q.Set("from", s.cfg.From)
	q.Set("to", to)
	if !s.cfg.UseTLS {
		q.Set("usestarttls", "no")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
