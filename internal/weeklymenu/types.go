package weeklymenu

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/canteen/internal/menu"
)

var (
	ErrNotFound         = errors.New("weekly menu entry not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrInvalidDay       = errors.New("invalid day of week")
)

// DayOfWeek is an upper-case English weekday name.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// ParseDay accepts a weekday name in any case.
func ParseDay(s string) (DayOfWeek, error) {
	d := DayOfWeek(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

// DayOf returns the weekday of t.
func DayOf(t time.Time) DayOfWeek {
	return DayOfWeek(strings.ToUpper(t.Weekday().String()))
}

// Entry places a menu item on one day and meal of a week.
type Entry struct {
	ID            int64      `json:"id"`
	WeekStartDate time.Time  `json:"weekStartDate"`
	WeekEndDate   time.Time  `json:"weekEndDate"`
	DayOfWeek     DayOfWeek  `json:"dayOfWeek"`
	MealCategory  string     `json:"mealCategory"`
	MenuItem      *menu.Item `json:"menuItem"`
	CreatedAt     time.Time  `json:"createdAt"`
	CreatedBy     string     `json:"createdBy"`
}

// CreateRequest schedules the menu item with public id MenuID.
type CreateRequest struct {
	WeekStartDate time.Time
	WeekEndDate   time.Time
	DayOfWeek     DayOfWeek
	MealCategory  string
	MenuID        string
}
