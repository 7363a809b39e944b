package validation

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"curated/internal/models"
)

const BookingDateLayout = "2006-01-02"

// Register добавляет кастомные правила в валидатор gin.
// Вызывается один раз до старта сервера.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return RegisterOn(v)
}

func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("bookingdate", bookingDate); err != nil {
		return fmt.Errorf("failed to register bookingdate: %w", err)
	}
	if err := v.RegisterValidation("channel", channel); err != nil {
		return fmt.Errorf("failed to register channel: %w", err)
	}
	return nil
}

// bookingDate - дата в формате YYYY-MM-DD
func bookingDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(BookingDateLayout, fl.Field().String())
	return err == nil
}

func channel(fl validator.FieldLevel) bool {
	return models.Channel(fl.Field().String()).Valid()
}

// Message превращает ошибки валидатора в одну строку для ответа клиенту
func Message(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err.Error()
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "bookingdate":
		return fmt.Sprintf("%s must be in YYYY-MM-DD format", fe.Field())
	case "channel":
		return fmt.Sprintf("%s must be one of sms, whatsapp, email", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a UUID", fe.Field())
	case "min", "gt":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
