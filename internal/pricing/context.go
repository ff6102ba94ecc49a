// Package pricing считает цену бронирования по конфигурации ресурса.
// Пакет не делает ввода-вывода и не читает системные часы.
package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"booking-system/internal/models"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")
	ErrInvalidTimeRange  = errors.New("end time must be after start time")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
)

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ContextInput сырые параметры запроса на расчёт.
type ContextInput struct {
	Pricing       models.PricingConfig
	Date          time.Time
	StartTime     string
	EndTime       string
	DurationHours *float64
	PromoCode     string
}

// RuleContext нормализованный и проверенный контекст расчёта.
type RuleContext struct {
	Date          time.Time
	StartMinutes  int
	EndMinutes    int
	DurationHours float64
	IsWeekend     bool
	Pricing       models.PricingConfig
	PromoCode     string
	Issues        []ConfigIssue
}

// BookingMinutes длительность интервала в минутах.
func (c RuleContext) BookingMinutes() int {
	return c.EndMinutes - c.StartMinutes
}

// DayOfWeek день недели бронирования, 0 = воскресенье.
func (c RuleContext) DayOfWeek() int {
	return int(c.Date.Weekday())
}

// ParseTimeOfDay переводит HH:MM в минуты от полуночи.
func ParseTimeOfDay(value string) (int, error) {
	if !timeOfDayPattern.MatchString(value) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	hours := int(value[0]-'0')*10 + int(value[1]-'0')
	minutes := int(value[3]-'0')*10 + int(value[4]-'0')
	return hours*60 + minutes, nil
}

// ParseDate разбирает дату бронирования в формате YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return date, nil
}

// FormatDate форматирует дату с точностью до дня.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// BuildContext проверяет входные данные и строит контекст расчёта.
func BuildContext(in ContextInput) (RuleContext, error) {
	start, err := ParseTimeOfDay(in.StartTime)
	if err != nil {
		return RuleContext{}, err
	}
	end, err := ParseTimeOfDay(in.EndTime)
	if err != nil {
		return RuleContext{}, err
	}
	if end <= start {
		return RuleContext{}, fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, in.StartTime, in.EndTime)
	}

	duration := float64(end-start) / 60
	if in.DurationHours != nil && *in.DurationHours > 0 {
		duration = *in.DurationHours
	}

	pricing, issues := Sanitize(in.Pricing)
	weekday := in.Date.Weekday()

	return RuleContext{
		Date:          in.Date,
		StartMinutes:  start,
		EndMinutes:    end,
		DurationHours: duration,
		IsWeekend:     weekday == time.Sunday || weekday == time.Saturday,
		Pricing:       pricing,
		PromoCode:     strings.ToUpper(strings.TrimSpace(in.PromoCode)),
		Issues:        issues,
	}, nil
}
