package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonwraymond/healthops/observe"
)

// LogSender writes notifications to a Logger. Urgent and high priority
// notifications are logged at error and warn level.
type LogSender struct {
	logger observe.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger observe.Logger) *LogSender {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, n Notification) error {
	fields := []observe.Field{
		observe.F("notification_id", n.ID),
		observe.F("type", n.Type),
		observe.F("priority", string(n.Priority)),
		observe.F("title", n.Title),
	}
	for k, v := range n.Data {
		fields = append(fields, observe.F("data."+k, v))
	}

	switch n.Priority {
	case PriorityUrgent:
		s.logger.Error(ctx, n.Message, fields...)
	case PriorityHigh:
		s.logger.Warn(ctx, n.Message, fields...)
	default:
		s.logger.Info(ctx, n.Message, fields...)
	}
	return nil
}

// Publisher is a pub/sub transport; *cache.RedisCache satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "healthops:notifications"

// PubSubSender publishes notifications as JSON on a pub/sub channel.
type PubSubSender struct {
	pub     Publisher
	channel string
}

// NewPubSubSender creates a sender publishing on channel.
func NewPubSubSender(pub Publisher, channel string) *PubSubSender {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PubSubSender{pub: pub, channel: channel}
}

func (s *PubSubSender) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: encode %s: %w", n.ID, err)
	}
	if err := s.pub.Publish(ctx, s.channel, payload); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", s.channel, err)
	}
	return nil
}

// Multi sends to every sender and joins their errors.
type Multi []Sender

func (m Multi) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
