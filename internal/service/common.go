package service

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/p42rthicle/shoku/internal/model"
)

const (
	defaultSuggestionLimit    = 10
	defaultSuggestionCacheTTL = 5 * time.Minute
)

type options struct {
	logger          *slog.Logger
	suggestionLimit int
	cacheTTL        time.Duration
	now             func() time.Time
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSuggestionLimit caps the number of catalog suggestions returned per query.
func WithSuggestionLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.suggestionLimit = n
		}
	}
}

// WithSuggestionCacheTTL sets how long suggestion results stay cached between catalog mutations.
func WithSuggestionCacheTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cacheTTL = d
		}
	}
}

// WithClock overrides the source of "today" for entries logged without a date.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:          slog.Default(),
		suggestionLimit: defaultSuggestionLimit,
		cacheTTL:        defaultSuggestionCacheTTL,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validateNonNegativeFloat(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return invalid(name, "must be a number")
	}
	if value < 0 {
		return invalid(name, "must be >= 0")
	}
	return nil
}

func validateEntry(e model.LoggedEntry) error {
	if strings.TrimSpace(e.FoodName) == "" {
		return invalid("food name", "is required")
	}
	if math.IsNaN(e.Quantity) || e.Quantity <= 0 {
		return invalid("quantity", "must be > 0")
	}
	if err := validateNonNegativeFloat("calories", e.Calories); err != nil {
		return err
	}
	if err := validateNonNegativeFloat("protein", e.ProteinG); err != nil {
		return err
	}
	if _, err := model.ParseMeal(string(e.Meal)); err != nil {
		return invalid("meal", "must be one of breakfast, lunch, dinner, snacks")
	}
	return nil
}

// perUnit divides a logged total by its quantity, yielding 0 for non-positive quantities.
func perUnit(total, quantity float64) float64 {
	if quantity <= 0 {
		return 0
	}
	return total / quantity
}
