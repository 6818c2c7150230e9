// Package notify delivers reminder messages to subscribers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aion-timer/backend/internal/config"
)

// Provider names accepted by New.
const (
	ProviderTwilio = "twilio"
	ProviderLog    = "log"
)

// ErrNotConfigured is returned by every Send of a sender built from
// incomplete credentials.
var ErrNotConfigured = errors.New("twilio configuration incomplete: check TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER")

// Delivery describes an accepted message.
type Delivery struct {
	MessageID string `json:"message_id"`
	Simulated bool   `json:"simulated,omitempty"`
}

// Sender sends a text message to a phone number in E.164 form.
type Sender interface {
	Send(ctx context.Context, to, body string) (Delivery, error)
}

// New creates a sender from config. Provider "twilio" sends WhatsApp messages
// through Twilio; "log" only logs them. Unknown providers fall back to "log".
func New(cfg config.NotifyConfig, logger *slog.Logger) Sender {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Provider {
	case ProviderTwilio:
		if !Configured(cfg) {
			logger.Warn("twilio credentials missing, reminders will fail until configured")
			return unconfiguredSender{}
		}
		return NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, logger)
	case ProviderLog:
		return NewLogSender(logger)
	default:
		logger.Warn("unknown notify provider, using log", "provider", cfg.Provider)
		return NewLogSender(logger)
	}
}

// Configured reports whether all Twilio credentials are present.
func Configured(cfg config.NotifyConfig) bool {
	return cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioPhoneNumber != ""
}

type unconfiguredSender struct{}

func (unconfiguredSender) Send(context.Context, string, string) (Delivery, error) {
	return Delivery{}, ErrNotConfigured
}

// LogSender simulates delivery by logging the message.
type LogSender struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewLogSender creates a sender that never leaves the process.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger, now: time.Now}
}

// Send logs the message and returns a TEST-<unix ms> id.
func (s *LogSender) Send(ctx context.Context, to, body string) (Delivery, error) {
	if err := ctx.Err(); err != nil {
		return Delivery{}, err
	}
	id := fmt.Sprintf("TEST-%d", s.now().UnixMilli())
	s.logger.Info("simulated message", "to", to, "message_id", id, "body", body)
	return Delivery{MessageID: id, Simulated: true}, nil
}

// whatsappAddress decorates a phone number for the WhatsApp channel.
func whatsappAddress(phone string) string {
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return "whatsapp:" + phone
}
