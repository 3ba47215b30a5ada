package service

import (
	"sort"
	"time"

	"github.com/p42rthicle/shoku/internal/model"
)

// SummariesByDate reduces ledger rows to one summary per date, newest date first.
func SummariesByDate(entries []model.LoggedEntry) []model.DailySummary {
	byDay := make(map[string]*model.DailySummary)
	for _, e := range entries {
		key := e.DateString()
		s, ok := byDay[key]
		if !ok {
			s = &model.DailySummary{Date: model.DateOf(e.Date)}
			byDay[key] = s
		}
		s.TotalCalories += e.Calories
		s.TotalProteinG += e.ProteinG
	}

	out := make([]model.DailySummary, 0, len(byDay))
	for _, s := range byDay {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// TotalsForDate sums calories and protein over the entries logged on date.
func TotalsForDate(entries []model.LoggedEntry, date time.Time) (calories, protein float64) {
	day := date.Format(model.DateLayout)
	for _, e := range entries {
		if e.DateString() != day {
			continue
		}
		calories += e.Calories
		protein += e.ProteinG
	}
	return calories, protein
}

func buildDayStatus(date time.Time, entries []model.LoggedEntry, targets model.Targets) model.DayStatus {
	calories, protein := TotalsForDate(entries, date)
	return model.DayStatus{
		Date:              date.Format(model.DateLayout),
		Entries:           entries,
		TotalCalories:     calories,
		TotalProteinG:     protein,
		Targets:           targets,
		RemainingCalories: targets.Calories - calories,
		RemainingProteinG: targets.ProteinG - protein,
	}
}
