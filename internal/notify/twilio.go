package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the slice of the Twilio REST API the sender needs.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends WhatsApp messages through the Twilio Messages API.
type TwilioSender struct {
	api    messageCreator
	from   string
	logger *slog.Logger
}

// NewTwilioSender creates a sender for the given account. from is the
// WhatsApp-enabled Twilio number, with or without the "whatsapp:" prefix.
func NewTwilioSender(accountSID, authToken, from string, logger *slog.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioSender(client.Api, from, logger)
}

func newTwilioSender(api messageCreator, from string, logger *slog.Logger) *TwilioSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &TwilioSender{api: api, from: whatsappAddress(from), logger: logger}
}

// Send delivers body to the phone number to.
func (s *TwilioSender) Send(ctx context.Context, to, body string) (Delivery, error) {
	if err := ctx.Err(); err != nil {
		return Delivery{}, err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(whatsappAddress(to))
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return Delivery{}, fmt.Errorf("twilio: %w", err)
	}
	if resp == nil || resp.Sid == nil {
		return Delivery{}, errors.New("twilio: response without message sid")
	}

	s.logger.Info("message sent", "to", to, "sid", *resp.Sid)
	return Delivery{MessageID: *resp.Sid}, nil
}
