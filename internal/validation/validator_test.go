package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curated/internal/models"
)

type sample struct {
	Date    string         `validate:"required,bookingdate"`
	Channel models.Channel `validate:"omitempty,channel"`
}

func newValidator(t *testing.T) *validator.Validate {
	v := validator.New()
	require.NoError(t, RegisterOn(v))
	return v
}

func TestBookingDate(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Struct(sample{Date: "2026-11-20"}))

	err := v.Struct(sample{Date: "20.11.2026"})
	require.Error(t, err)
	assert.Equal(t, "Date must be in YYYY-MM-DD format", Message(err))

	assert.Error(t, v.Struct(sample{Date: "2026-02-30"}))
}

func TestChannel(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Struct(sample{Date: "2026-11-20", Channel: models.ChannelWhatsApp}))
	assert.NoError(t, v.Struct(sample{Date: "2026-11-20"}))

	err := v.Struct(sample{Date: "2026-11-20", Channel: "pigeon"})
	require.Error(t, err)
	assert.Equal(t, "Channel must be one of sms, whatsapp, email", Message(err))
}
