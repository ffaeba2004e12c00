package learning

import (
	"fmt"
	"sort"

	"github.com/agext/levenshtein"
)

// EditStats summarizes how much the user changed the suggested answers.
type EditStats struct {
	CharsAdded   int            `validate:"gte=0"`
	CharsDeleted int            `validate:"gte=0"`
	PerField     map[string]any `validate:"-"`
}

func (s *EditStats) empty() bool {
	return s == nil || (s.CharsAdded == 0 && s.CharsDeleted == 0 && len(s.PerField) == 0)
}

// Insertions and deletions cost 1 and a substitution 2, so the distance
// equals added+deleted characters.
var editParams = levenshtein.NewParams().SubCost(2)

// DiffMaps derives edit stats by comparing each selector's suggested answer
// with the submitted one. Selectors missing on either side count as empty.
func DiffMaps(suggested, final map[string]any) EditStats {
	keys := make(map[string]struct{}, len(suggested)+len(final))
	for k := range suggested {
		keys[k] = struct{}{}
	}
	for k := range final {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	out := EditStats{PerField: make(map[string]any, len(sorted))}
	for _, k := range sorted {
		s := answerText(suggested[k])
		f := answerText(final[k])

		d := levenshtein.Distance(s, f, editParams)
		lenDiff := len([]rune(f)) - len([]rune(s))

		out.CharsAdded += (d + lenDiff) / 2
		out.CharsDeleted += (d - lenDiff) / 2
		out.PerField[k] = d
	}

	return out
}

func answerText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
