// Package notifier decides who hears about a booking event, renders the text
// and hands it to a Sender.
package notifier

import (
	"context"
	"log/slog"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "log_sender")}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	s.logger.InfoContext(ctx, "notification", "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}
