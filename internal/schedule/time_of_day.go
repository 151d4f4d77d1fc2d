package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day format: %s", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, err
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, err
	}
	t := TimeOfDay{Hour: hour, Minute: minute}
	return t, t.Validate()
}

func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("invalid hour: %d", t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("invalid minute: %d", t.Minute)
	}
	return nil
}

// json unmarshalling
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var dat string
	if err := json.Unmarshal(b, &dat); err != nil {
		return fmt.Errorf("invalid time of day format type: %s", string(b))
	}
	parsed, err := ParseTimeOfDay(dat)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// json marshalling
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("\"%s\"", t.String())), nil
}

// On returns the instant at t on the calendar day of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// NextDaily returns the first instant strictly after now at which the wall
// clock in loc reads t.
func NextDaily(now time.Time, t TimeOfDay, loc *time.Location) time.Time {
	next := t.On(now, loc)
	if !next.After(now) {
		n := now.In(loc)
		next = t.On(time.Date(n.Year(), n.Month(), n.Day()+1, 12, 0, 0, 0, loc), loc)
	}
	return next
}

// NextWeekly returns the first instant strictly after now that falls on
// weekday at t in loc.
func NextWeekly(now time.Time, weekday time.Weekday, t TimeOfDay, loc *time.Location) time.Time {
	n := now.In(loc)
	days := (int(weekday) - int(n.Weekday()) + 7) % 7
	next := t.On(time.Date(n.Year(), n.Month(), n.Day()+days, 12, 0, 0, 0, loc), loc)
	if !next.After(now) {
		next = t.On(time.Date(n.Year(), n.Month(), n.Day()+days+7, 12, 0, 0, 0, loc), loc)
	}
	return next
}
