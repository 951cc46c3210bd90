package notify

import (
	"context"
	"time"

	"github.com/guaxindiba/firenotify/internal/logger"
)

// timeoutNotifier bounds each dispatch with a deadline. There are no retries;
// a timed-out send surfaces as a failure like any other.
type timeoutNotifier struct {
	inner   Notifier
	timeout time.Duration
}

// WithTimeout wraps a Notifier so every Send runs under a deadline.
// A non-positive timeout returns the notifier unchanged.
func WithTimeout(n Notifier, timeout time.Duration) Notifier {
	if timeout <= 0 {
		return n
	}
	return &timeoutNotifier{inner: n, timeout: timeout}
}

func (t *timeoutNotifier) Send(ctx context.Context, address, subject, body string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Send(ctx, address, subject, body)
}

// LogNotifier writes messages to the log instead of delivering them. Used
// when no SMTP relay is configured, so local runs exercise the full pipeline
// without sending mail.
type LogNotifier struct {
	Log logger.Logger
}

// Send logs the message and reports success.
func (l *LogNotifier) Send(_ context.Context, address, subject, _ string) error {
	l.Log.Info("notification logged instead of sent (no smtp relay configured)",
		logger.String("address", address),
		logger.String("subject", subject))
	return nil
}
