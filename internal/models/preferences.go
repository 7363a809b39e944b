package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// Valid reports whether c is one of the known delivery channels
func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail:
		return true
	}
	return false
}

// CommunicationPreferences хранится в users.communication_preferences (JSONB)
type CommunicationPreferences struct {
	Email            bool    `json:"email"`
	WhatsApp         bool    `json:"whatsapp"`
	SMS              bool    `json:"sms"`
	PreferredChannel Channel `json:"preferredChannel"`
	PhoneNumber      string  `json:"phoneNumber,omitempty"`
	WhatsAppNumber   string  `json:"whatsappNumber,omitempty"`
}

// OptedIn reports the opt-in flag for ch
func (p CommunicationPreferences) OptedIn(ch Channel) bool {
	switch ch {
	case ChannelSMS:
		return p.SMS
	case ChannelWhatsApp:
		return p.WhatsApp
	case ChannelEmail:
		return p.Email
	}
	return false
}

// Address returns the destination for ch. Email lives on the user row,
// not in the preferences document, so it is passed in.
func (p CommunicationPreferences) Address(ch Channel, email string) string {
	switch ch {
	case ChannelSMS:
		return p.PhoneNumber
	case ChannelWhatsApp:
		return p.WhatsAppNumber
	case ChannelEmail:
		return email
	}
	return ""
}

// Validate rejects a preferred channel the user has not opted into
func (p CommunicationPreferences) Validate() error {
	if p.PreferredChannel == "" {
		return nil
	}
	if !p.PreferredChannel.Valid() {
		return fmt.Errorf("unknown preferred channel %q", p.PreferredChannel)
	}
	if !p.OptedIn(p.PreferredChannel) {
		return fmt.Errorf("preferred channel %q is not enabled", p.PreferredChannel)
	}
	return nil
}

func (p CommunicationPreferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *CommunicationPreferences) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = CommunicationPreferences{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("cannot scan %T into CommunicationPreferences", src)
	}
}
