package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/ojtauth/internal/logging"
)

// LogBackend writes every published message to the logger. It is the
// development stand-in for a broker.
type LogBackend struct {
	logger logging.Logger
}

func NewLogBackend(logger logging.Logger) *LogBackend {
	return &LogBackend{logger: logger.With("module", "notify")}
}

func (l *LogBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	id := uuid.NewString()
	l.logger.Info(ctx, "notification published", "id", id, "channel", channel, "attrs", attrs, "body", string(data))
	return id, nil
}

func (l *LogBackend) Subscribe(context.Context, string, Handler) error {
	return ErrSubscribeUnsupported
}

func (l *LogBackend) Close() error { return nil }
