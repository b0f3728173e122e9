// Package notify is the delivery seam: a message, a channel, a target.
// Actual delivery (SMTP relays, SMS gateways, voice) lives behind Sender
// implementations owned by other systems; the pipeline only needs
// send(channel, target, message).
package notify

import (
	"context"
	"log/slog"
)

// Channel is a delivery channel for one-time codes.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelCall  Channel = "call"
)

// Valid reports whether the channel is one of the supported values.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelCall:
		return true
	}
	return false
}

// Sender delivers a message to a target over a channel.
type Sender interface {
	Send(ctx context.Context, channel Channel, target, message string) error
}

// LogSender logs deliveries instead of sending them. Local runs and tests
// use it; the message body is logged only at debug level since it carries
// the code.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, channel Channel, target, message string) error {
	s.logger.InfoContext(ctx, "delivery requested", "channel", channel, "target", target)
	s.logger.DebugContext(ctx, "delivery body", "channel", channel, "message", message)
	return nil
}

// CaptureSender records sends for test assertions.
type CaptureSender struct {
	Sent []CapturedMessage
}

// CapturedMessage is one recorded delivery.
type CapturedMessage struct {
	Channel Channel
	Target  string
	Message string
}

func (s *CaptureSender) Send(ctx context.Context, channel Channel, target, message string) error {
	s.Sent = append(s.Sent, CapturedMessage{Channel: channel, Target: target, Message: message})
	return nil
}
