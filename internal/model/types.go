package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used for ledger dates.
const DateLayout = "2006-01-02"

type Meal string

const (
	MealBreakfast Meal = "breakfast"
	MealLunch     Meal = "lunch"
	MealDinner    Meal = "dinner"
	MealSnacks    Meal = "snacks"
)

// Meals lists every meal in display order.
var Meals = []Meal{MealBreakfast, MealLunch, MealDinner, MealSnacks}

func ParseMeal(value string) (Meal, error) {
	v := Meal(strings.ToLower(strings.TrimSpace(value)))
	for _, m := range Meals {
		if v == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown meal %q (expected breakfast, lunch, dinner or snacks)", value)
}

// Order is the position of the meal within a day.
func (m Meal) Order() int {
	for i, candidate := range Meals {
		if m == candidate {
			return i
		}
	}
	return len(Meals)
}

// FoodItem is a catalog entry. Calories and ProteinG are per one DefaultUnit.
type FoodItem struct {
	ID          int64
	Name        string
	Calories    float64
	ProteinG    float64
	DefaultUnit string
	Frequency   int
}

// LoggedEntry is one consumption event. Calories and ProteinG are totals for Quantity.
type LoggedEntry struct {
	ID         int64
	FoodName   string
	Quantity   float64
	Unit       string
	Calories   float64
	ProteinG   float64
	Date       time.Time
	Meal       Meal
	Notes      string
	FoodItemID *int64
}

// DateString returns the ledger date in DateLayout.
func (e LoggedEntry) DateString() string {
	return e.Date.Format(DateLayout)
}

type DailySummary struct {
	Date          time.Time
	TotalCalories float64
	TotalProteinG float64
}

type Targets struct {
	Calories float64
	ProteinG float64
}

type DayStatus struct {
	Date              string
	Entries           []LoggedEntry
	TotalCalories     float64
	TotalProteinG     float64
	Targets           Targets
	RemainingCalories float64
	RemainingProteinG float64
}

// ParseDate parses a calendar date and returns it at midnight UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// DateOf drops the time of day, keeping the calendar date as seen in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
