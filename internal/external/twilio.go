package external

import (
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioClient sends SMS and WhatsApp messages
type TwilioClient struct {
	messages     messageCreator
	smsFrom      string
	whatsAppFrom string
}

type TwilioConfig struct {
	AccountSID     string `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken      string `envconfig:"TWILIO_AUTH_TOKEN"`
	PhoneNumber    string `envconfig:"TWILIO_PHONE_NUMBER"`
	WhatsAppNumber string `envconfig:"TWILIO_WHATSAPP_NUMBER"`
}

func NewTwilioClient(cfg TwilioConfig) *TwilioClient {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioClient{
		messages:     rest.Api,
		smsFrom:      cfg.PhoneNumber,
		whatsAppFrom: cfg.WhatsAppNumber,
	}
}

func (c *TwilioClient) SendSMS(to, body string) (string, error) {
	return c.send(c.smsFrom, to, body)
}

func (c *TwilioClient) SendWhatsApp(to, body string) (string, error) {
	return c.send(whatsAppAddress(c.whatsAppFrom), whatsAppAddress(to), body)
}

func (c *TwilioClient) send(from, to, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := c.messages.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio send to %s failed: %w", to, err)
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

func whatsAppAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
