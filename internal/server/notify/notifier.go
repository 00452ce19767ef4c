package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/models"
)

const (
	AttrType    = "type"
	AttrPurpose = "purpose"
	TypeOTP     = "otp"
)

// OTPMessage is the payload the mail pipeline renders into an email.
type OTPMessage struct {
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Code      string            `json:"code"`
	Purpose   models.OTPPurpose `json:"purpose"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Notifier publishes OTP messages on a single channel.
type Notifier struct {
	backend Backend
	channel string
}

func NewNotifier(backend Backend, channel string) *Notifier {
	return &Notifier{backend: backend, channel: channel}
}

// SendOTP publishes msg and returns the broker message id.
func (n *Notifier) SendOTP(ctx context.Context, msg OTPMessage) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	id, err := n.backend.Publish(ctx, n.channel, data, map[string]string{
		AttrType:    TypeOTP,
		AttrPurpose: string(msg.Purpose),
	})
	if err != nil {
		return "", fmt.Errorf("publish otp: %w", err)
	}
	return id, nil
}

// ConsumeOTP blocks, decoding each message on the channel and passing it to
// handle. Undecodable messages are acknowledged and dropped.
func (n *Notifier) ConsumeOTP(ctx context.Context, handle func(context.Context, OTPMessage) error, onBad func(Message, error)) error {
	return n.backend.Subscribe(ctx, n.channel, func(ctx context.Context, m Message) error {
		var msg OTPMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			if onBad != nil {
				onBad(m, err)
			}
			return nil
		}
		return handle(ctx, msg)
	})
}

func (n *Notifier) Close() error {
	return n.backend.Close()
}
