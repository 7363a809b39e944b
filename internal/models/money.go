package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Money - сумма в центах. В базе хранится как NUMERIC(10,2), в JSON
// отдаётся десятичным числом (50.00).
type Money int64

// ParseMoney разбирает десятичную строку ("50", "50.5", "49.99").
// Лишние знаки после второго округляются по половине вверх.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	roundUp := false
	if len(frac) > 2 {
		if frac[2] < '0' || frac[2] > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		roundUp = frac[2] >= '5'
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	total := units*100 + cents
	if roundUp {
		total++
	}
	if neg {
		total = -total
	}
	return Money(total), nil
}

// Cents возвращает сумму в минимальных единицах (unit_amount для Stripe)
func (m Money) Cents() int64 {
	return int64(m)
}

// Times умножает цену на количество участников
func (m Money) Times(n int) Money {
	return m * Money(n)
}

// Percent возвращает pct% от суммы, округлённые до цента
func (m Money) Percent(pct int64) Money {
	v := int64(m) * pct
	if v >= 0 {
		return Money((v + 50) / 100)
	}
	return Money((v - 50) / 100)
}

func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return nil
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = 0
		return nil
	case []byte:
		parsed, err := ParseMoney(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case string:
		parsed, err := ParseMoney(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case int64:
		*m = Money(v * 100)
		return nil
	case float64:
		parsed, err := ParseMoney(strconv.FormatFloat(v, 'f', -1, 64))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
}

// Value implements driver.Valuer
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
