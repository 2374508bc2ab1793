package menu

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("menu item not found")
	ErrNoCategory      = errors.New("at least one category must be selected")
	ErrNameRequired    = errors.New("name is required")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidWindow   = errors.New("end date must not be before start date")
	ErrInUse           = errors.New("menu item has orders")
)

// Category is the meal slot an item is sold in.
type Category string

const (
	Breakfast Category = "breakfast"
	Lunch     Category = "lunch"
	Thali     Category = "thali"
	Snacks    Category = "snacks"
	Beverages Category = "beverages"
)

// Categories lists every category in menu order.
var Categories = []Category{Breakfast, Lunch, Thali, Snacks, Beverages}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Item is one priced menu entry. An item offered in several categories, or
// repriced over time, is stored as several rows sharing a name.
type Item struct {
	ID              int64     `json:"id"`
	MenuID          string    `json:"menuId"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit"`
	Price           float64   `json:"price"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	Category        Category  `json:"category"`
	AvailableStatus bool      `json:"availableStatus"`
	Active          bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	CreatedBy       string    `json:"createdBy"`
	UpdatedAt       time.Time `json:"updatedAt,omitzero"`
	UpdatedBy       string    `json:"updatedBy,omitempty"`
}

// IsActive reports whether now falls inside the item's validity window.
func (it *Item) IsActive(now time.Time) bool {
	return !now.Before(it.StartDate) && !now.After(it.EndDate)
}

// CreateRequest describes a new item offered in one or more categories.
type CreateRequest struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Quantity        float64    `json:"quantity"`
	Unit            string     `json:"unit"`
	Price           float64    `json:"price"`
	StartDate       time.Time  `json:"-"`
	EndDate         time.Time  `json:"-"`
	Categories      []Category `json:"categories"`
	AvailableStatus *bool      `json:"availableStatus"`
}

// UpdateRequest replaces the editable fields of an item.
type UpdateRequest struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit"`
	Price           float64   `json:"price"`
	StartDate       time.Time `json:"-"`
	EndDate         time.Time `json:"-"`
	AvailableStatus *bool     `json:"availableStatus"`
}

// Filter narrows Store.Filter. Zero fields are ignored.
type Filter struct {
	Name       string
	Category   Category
	Start      time.Time
	End        time.Time
	ActiveOnly bool
}

// PriceVersion is one row of an item's price history.
type PriceVersion struct {
	Item
	AllCategories []Category `json:"allCategories"`
}

// MenuIDFor derives the public id of an item from its name and creation
// time: "Masala Dosa" at 1700000000000ms becomes "masala-dosa-1700000000000".
func MenuIDFor(name string, at time.Time) string {
	slug := strings.Join(strings.Fields(strings.ToLower(name)), "-")
	return fmt.Sprintf("%s-%d", slug, at.UnixMilli())
}
