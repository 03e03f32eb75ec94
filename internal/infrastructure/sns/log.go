package sns

import (
	"context"
	"log/slog"

	"github.com/JagadeshwaranK/MedPlusMart/internal/pkg/phone"
)

// LogSender stands in for SNS outside production. It writes the message to
// the log instead of delivering it.
type LogSender struct {
	// Reveal logs the message body. Off, only the masked recipient is logged.
	Reveal bool
}

func (s LogSender) SendSMS(_ context.Context, to, message string) error {
	if s.Reveal {
		slog.Info("sms (not delivered)", "to", phone.Mask(to), "message", message)
		return nil
	}
	slog.Info("sms (not delivered)", "to", phone.Mask(to))
	return nil
}
