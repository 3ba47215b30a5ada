package service

import "strings"

// DefaultUnit is used when an entry is logged without a unit.
const DefaultUnit = "g"

// AvailableUnits are the unit labels offered when logging food.
var AvailableUnits = []string{"g", "ml", "pc", "cup", "slice", "katori"}

var unitAliases = map[string]string{
	"gram":    "g",
	"grams":   "g",
	"gm":      "g",
	"milli":   "ml",
	"piece":   "pc",
	"pieces":  "pc",
	"pcs":     "pc",
	"cups":    "cup",
	"slices":  "slice",
	"katoris": "katori",
}

// NormalizeUnit trims a unit label and folds common spellings of the known units.
// Unknown labels are kept as typed.
func NormalizeUnit(unit string) string {
	u := strings.TrimSpace(unit)
	if alias, ok := unitAliases[strings.ToLower(u)]; ok {
		return alias
	}
	for _, known := range AvailableUnits {
		if strings.EqualFold(u, known) {
			return known
		}
	}
	return u
}
