package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curated/internal/models"
)

type fakePhone struct {
	sms      []string
	whatsapp []string
	failTo   string
}

func (f *fakePhone) SendSMS(to, body string) (string, error) {
	f.sms = append(f.sms, to)
	if to == f.failTo {
		return "", errors.New("twilio down")
	}
	return "SM1", nil
}

func (f *fakePhone) SendWhatsApp(to, body string) (string, error) {
	f.whatsapp = append(f.whatsapp, to)
	return "WA1", nil
}

type fakeEmail struct {
	sent []string
}

func (f *fakeEmail) Send(ctx context.Context, to, subject, body string) (string, error) {
	f.sent = append(f.sent, to)
	return "em_1", nil
}

func TestDeliverPreferredSMSOnly(t *testing.T) {
	phone, email := &fakePhone{}, &fakeEmail{}
	d := NewDispatcher(phone, email)

	res := d.Deliver(context.Background(), Recipient{
		UserID: "u1",
		Email:  "u1@example.com",
		Preferences: models.CommunicationPreferences{
			SMS:              true,
			Email:            true,
			WhatsApp:         true,
			PreferredChannel: models.ChannelSMS,
			PhoneNumber:      "+15550001111",
			WhatsAppNumber:   "+15550002222",
		},
	}, Message{Subject: "Hi", Body: "Hello"})

	assert.Equal(t, StatusSent, res.Status)
	assert.Equal(t, models.ChannelSMS, res.Channel)
	assert.Equal(t, "SM1", res.ExternalID)
	assert.Equal(t, []string{"+15550001111"}, phone.sms)
	assert.Empty(t, phone.whatsapp)
	assert.Empty(t, email.sent)
}

func TestDeliverSkipsSilently(t *testing.T) {
	phone, email := &fakePhone{}, &fakeEmail{}
	d := NewDispatcher(phone, email)

	cases := []models.CommunicationPreferences{
		{SMS: false, PreferredChannel: models.ChannelSMS, PhoneNumber: "+1"},
		{SMS: true, PreferredChannel: models.ChannelSMS},
		{WhatsApp: true, PreferredChannel: models.ChannelWhatsApp},
		{Email: true},
	}
	for _, prefs := range cases {
		res := d.Deliver(context.Background(), Recipient{UserID: "u", Preferences: prefs}, Message{Body: "x"})
		assert.Equal(t, StatusSkipped, res.Status)
		assert.NoError(t, res.Err)
	}
	assert.Empty(t, phone.sms)
	assert.Empty(t, phone.whatsapp)
	assert.Empty(t, email.sent)
}

func TestFanoutContinuesAfterFailure(t *testing.T) {
	phone, email := &fakePhone{failTo: "+1"}, &fakeEmail{}
	d := NewDispatcher(phone, email)

	results := d.Fanout(context.Background(), []Recipient{
		{UserID: "a", Preferences: models.CommunicationPreferences{SMS: true, PreferredChannel: models.ChannelSMS, PhoneNumber: "+1"}},
		{UserID: "b", Email: "b@example.com", Preferences: models.CommunicationPreferences{Email: true, PreferredChannel: models.ChannelEmail}},
		{UserID: "c", Preferences: models.CommunicationPreferences{WhatsApp: true, PreferredChannel: models.ChannelWhatsApp, WhatsAppNumber: "+3"}},
	}, Message{Subject: "s", Body: "b"})

	require.Len(t, results, 3)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Error(t, results[0].Err)
	assert.Equal(t, StatusSent, results[1].Status)
	assert.Equal(t, StatusSent, results[2].Status)
	assert.Equal(t, []string{"b@example.com"}, email.sent)
	assert.Equal(t, []string{"+3"}, phone.whatsapp)
}

func TestSendUnsupportedChannel(t *testing.T) {
	d := NewDispatcher(&fakePhone{}, &fakeEmail{})
	_, err := d.Send(context.Background(), "fax", "x", Message{})
	assert.Error(t, err)
}
