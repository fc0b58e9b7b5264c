package services

import (
	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// SMSSender delivers text messages to phones.
type SMSSender interface {
	SendSMS(to, message string) error
}

// TwilioSender sends SMS through Twilio, or logs the message when no sender
// number is configured.
type TwilioSender struct {
	client     *twilio.RestClient
	fromNumber string
	log        *zap.Logger
}

// NewTwilioSender creates a TwilioSender.
func NewTwilioSender(accountSID, authToken, fromNumber string, log *zap.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{
		client:     client,
		fromNumber: fromNumber,
		log:        log,
	}
}

// SendSMS implements SMSSender.
func (t *TwilioSender) SendSMS(to, message string) error {
	if t.fromNumber == "" {
		t.log.Info("[MOCK SMS]", zap.String("to", to), zap.String("message", message))
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return errors.Wrap(err, "failed to send SMS")
	}

	return nil
}
