// Package entryform holds the state of one add-entry session: the raw text of each
// field, the suggestion list, and the per-unit baseline captured from a selected
// catalog entry.
package entryform

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/p42rthicle/shoku/internal/model"
	"github.com/p42rthicle/shoku/internal/service"
)

// Fields is a snapshot of the form as the user sees it.
type Fields struct {
	Name     string
	Quantity string
	Unit     string
	Calories string
	Protein  string
	Meal     model.Meal
	Notes    string
}

// Baseline is the per-unit nutrition of a selected suggestion.
type Baseline struct {
	CaloriesPerUnit float64
	ProteinPerUnit  float64
	Unit            string
}

// NameSink receives every edit of the name field. *suggest.Pipeline satisfies it.
type NameSink interface {
	Input(text string)
}

type Option func(*Form)

// WithNameSink forwards name edits, typically to a suggestion pipeline.
func WithNameSink(s NameSink) Option {
	return func(f *Form) {
		f.sink = s
	}
}

// Form is safe for concurrent use.
type Form struct {
	mu          sync.Mutex
	fields      Fields
	baseline    *Baseline
	suggestions []model.FoodItem
	sink        NameSink
}

func New(opts ...Option) *Form {
	f := &Form{fields: defaultFields()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func defaultFields() Fields {
	return Fields{Unit: service.DefaultUnit, Meal: model.MealBreakfast}
}

// Units lists the unit labels offered by the form.
func Units() []string {
	return append([]string(nil), service.AvailableUnits...)
}

func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// Baseline returns the active baseline, if any.
func (f *Form) Baseline() (Baseline, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.baseline == nil {
		return Baseline{}, false
	}
	return *f.baseline, true
}

func (f *Form) Suggestions() []model.FoodItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.FoodItem(nil), f.suggestions...)
}

// SetSuggestions replaces the list shown under the name field.
func (f *Form) SetSuggestions(items []model.FoodItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestions = append([]model.FoodItem(nil), items...)
}

// SetName records a typed name. Typing discards the baseline.
func (f *Form) SetName(name string) {
	f.mu.Lock()
	f.fields.Name = name
	f.baseline = nil
	sink := f.sink
	f.mu.Unlock()

	if sink != nil {
		sink.Input(name)
	}
}

// Select fills the form from a catalog entry and captures its baseline.
func (f *Form) Select(item model.FoodItem) {
	f.mu.Lock()
	defer f.mu.Unlock()

	unit := item.DefaultUnit
	if unit == "" {
		unit = f.fields.Unit
	}
	f.fields.Name = item.Name
	f.fields.Quantity = "1"
	f.fields.Unit = unit
	f.fields.Calories = formatRounded(item.Calories)
	f.fields.Protein = formatRounded(item.ProteinG)
	f.baseline = &Baseline{
		CaloriesPerUnit: item.Calories,
		ProteinPerUnit:  item.ProteinG,
		Unit:            unit,
	}
	f.suggestions = nil
}

// SetQuantity records a quantity edit and rescales the totals while the
// baseline unit is still selected. Text that is not a positive number leaves
// the totals and the baseline as they are.
func (f *Form) SetQuantity(quantity string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fields.Quantity = quantity
	if f.baseline == nil || f.fields.Unit != f.baseline.Unit {
		return
	}
	qty, err := parseNumber(quantity)
	if err != nil || qty <= 0 {
		return
	}
	f.fields.Calories = formatRounded(f.baseline.CaloriesPerUnit * qty)
	f.fields.Protein = formatRounded(f.baseline.ProteinPerUnit * qty)
}

// SetUnit records a unit choice. Leaving the baseline unit discards the baseline.
func (f *Form) SetUnit(unit string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fields.Unit = unit
	if f.baseline != nil && unit != f.baseline.Unit {
		f.baseline = nil
	}
}

// SetCalories records a manual edit, which discards the baseline.
func (f *Form) SetCalories(calories string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.Calories = calories
	f.baseline = nil
}

// SetProtein records a manual edit, which discards the baseline.
func (f *Form) SetProtein(protein string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.Protein = protein
	f.baseline = nil
}

func (f *Form) SetMeal(meal model.Meal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.Meal = meal
}

func (f *Form) SetNotes(notes string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.Notes = notes
}

// Reset ends the session, restoring the defaults.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = defaultFields()
	f.baseline = nil
	f.suggestions = nil
}

// Entry validates the form and builds the entry to log on date.
// Failures are *service.ValidationError.
func (f *Form) Entry(date time.Time) (model.LoggedEntry, error) {
	fields := f.Fields()

	name := strings.TrimSpace(fields.Name)
	if name == "" {
		return model.LoggedEntry{}, &service.ValidationError{Field: "food name", Reason: "is required"}
	}
	qty, err := parseNumber(fields.Quantity)
	if err != nil || qty <= 0 {
		return model.LoggedEntry{}, &service.ValidationError{Field: "quantity", Reason: "must be a number > 0"}
	}
	calories, err := parseNumber(fields.Calories)
	if err != nil || calories < 0 {
		return model.LoggedEntry{}, &service.ValidationError{Field: "calories", Reason: "must be a number >= 0"}
	}
	protein, err := parseNumber(fields.Protein)
	if err != nil || protein < 0 {
		return model.LoggedEntry{}, &service.ValidationError{Field: "protein", Reason: "must be a number >= 0"}
	}
	meal, err := model.ParseMeal(string(fields.Meal))
	if err != nil {
		return model.LoggedEntry{}, &service.ValidationError{Field: "meal", Reason: "must be one of breakfast, lunch, dinner, snacks"}
	}

	unit := strings.TrimSpace(fields.Unit)
	if unit == "" {
		unit = service.DefaultUnit
	}
	return model.LoggedEntry{
		FoodName: name,
		Quantity: qty,
		Unit:     unit,
		Calories: calories,
		ProteinG: protein,
		Date:     model.DateOf(date),
		Meal:     meal,
		Notes:    strings.TrimSpace(fields.Notes),
	}, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func formatRounded(v float64) string {
	return strconv.FormatFloat(math.Round(v), 'f', -1, 64)
}
