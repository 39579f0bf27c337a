package wizard

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Philippine mobile numbers: 09XXXXXXXXX or +63XXXXXXXXXX
var phMobile = regexp.MustCompile(`^(09\d{9}|\+63\d{10})$`)

var phZip = regexp.MustCompile(`^\d{4}$`)

// First returns the first non-nil error, preserving rule order.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func Required(label, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required", label)
	}
	return nil
}

func MaxLen(label, v string, n int) error {
	if len([]rune(strings.TrimSpace(v))) > n {
		return fmt.Errorf("%s must be at most %d characters", label, n)
	}
	return nil
}

func MinLen(label, v string, n int) error {
	if len([]rune(v)) < n {
		return fmt.Errorf("%s must be at least %d characters", label, n)
	}
	return nil
}

// PHMobile requires a Philippine mobile number.
func PHMobile(label, v string) error {
	if err := Required(label, v); err != nil {
		return err
	}
	if !phMobile.MatchString(strings.TrimSpace(v)) {
		return fmt.Errorf("%s must be a valid mobile number (09XXXXXXXXX or +63XXXXXXXXXX)", label)
	}
	return nil
}

func Zipcode(label, v string) error {
	if err := Required(label, v); err != nil {
		return err
	}
	if !phZip.MatchString(strings.TrimSpace(v)) {
		return fmt.Errorf("%s must be 4 digits", label)
	}
	return nil
}

func Email(label, v string) error {
	if err := Required(label, v); err != nil {
		return err
	}
	return OptionalEmail(label, v)
}

func OptionalEmail(label, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@")+1:], ".") {
		return fmt.Errorf("%s is not a valid email address", label)
	}
	return nil
}

func OneOf(label, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of: %s", label, strings.Join(allowed, ", "))
}

// OptionalOneOf accepts the empty string.
func OptionalOneOf(label, v string, allowed ...string) error {
	if v == "" {
		return nil
	}
	return OneOf(label, v, allowed...)
}

func Positive(label string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%s must be greater than 0", label)
	}
	return nil
}

func Decimal(label, v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be a number", label)
	}
	if d.IsNegative() {
		return fmt.Errorf("%s cannot be negative", label)
	}
	return nil
}

func UUID(label, v string) error {
	if v == "" {
		return nil
	}
	if _, err := uuid.Parse(v); err != nil {
		return fmt.Errorf("%s is not a valid id", label)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD value.
func ParseDate(label, v string) (time.Time, error) {
	if err := Required(label, v); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a valid date (YYYY-MM-DD)", label)
	}
	return t, nil
}

func Date(label, v string) error {
	_, err := ParseDate(label, v)
	return err
}

func OptionalDate(label, v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return Date(label, v)
}

// Today is the current calendar day at UTC midnight; dates are parsed the same way.
func Today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func DateNotInPast(label, v string) error {
	t, err := ParseDate(label, v)
	if err != nil {
		return err
	}
	if t.Before(Today()) {
		return fmt.Errorf("%s cannot be in the past", label)
	}
	return nil
}

func DateNotInFuture(label, v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	t, err := ParseDate(label, v)
	if err != nil {
		return err
	}
	if t.After(Today()) {
		return fmt.Errorf("%s cannot be in the future", label)
	}
	return nil
}

// DateAfter requires later to be strictly after earlier. Empty values are left to Required.
func DateAfter(laterLabel, later, earlierLabel, earlier string) error {
	l, err1 := time.Parse(DateLayout, strings.TrimSpace(later))
	e, err2 := time.Parse(DateLayout, strings.TrimSpace(earlier))
	if err1 != nil || err2 != nil {
		return nil
	}
	if !l.After(e) {
		return fmt.Errorf("%s must be after %s", laterLabel, earlierLabel)
	}
	return nil
}

// DateOnOrAfter is DateAfter allowing the same day.
func DateOnOrAfter(laterLabel, later, earlierLabel, earlier string) error {
	l, err1 := time.Parse(DateLayout, strings.TrimSpace(later))
	e, err2 := time.Parse(DateLayout, strings.TrimSpace(earlier))
	if err1 != nil || err2 != nil {
		return nil
	}
	if l.Before(e) {
		return fmt.Errorf("%s cannot be before %s", laterLabel, earlierLabel)
	}
	return nil
}

// ClockTime parses HH:MM, also accepting a one-digit hour such as 9:00.
func ClockTime(v string) (time.Time, error) {
	return time.Parse(TimeLayout, strings.TrimSpace(v))
}

func TimeOfDay(label, v string) error {
	if err := Required(label, v); err != nil {
		return err
	}
	if _, err := ClockTime(v); err != nil {
		return fmt.Errorf("%s must be a valid time (HH:MM)", label)
	}
	return nil
}

func TimeAfter(laterLabel, later, earlierLabel, earlier string) error {
	l, err1 := ClockTime(later)
	e, err2 := ClockTime(earlier)
	if err1 != nil || err2 != nil {
		return nil
	}
	if !l.After(e) {
		return fmt.Errorf("%s must be after %s", laterLabel, earlierLabel)
	}
	return nil
}

// MinAge requires the birthday to be at least years ago.
func MinAge(label, birthday string, years int) error {
	t, err := time.Parse(DateLayout, strings.TrimSpace(birthday))
	if err != nil {
		return nil
	}
	today := Today()
	if t.After(today) {
		return fmt.Errorf("%s cannot be in the future", label)
	}
	if t.AddDate(years, 0, 0).After(today) {
		return fmt.Errorf("You must be at least %d years old", years)
	}
	return nil
}

func Equal(label, a, b string) error {
	if a != b {
		return errors.New(label)
	}
	return nil
}

func True(msg string, v bool) error {
	if !v {
		return errors.New(msg)
	}
	return nil
}
