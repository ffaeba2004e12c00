package learning

import (
	"autofillTuner/domain"
)

// FormIdentity is what the selector knows about the form being resolved.
type FormIdentity struct {
	FormID     string
	FamilyKey  *string
	SegmentKey *string
}

// SelectionMeta records why a style was chosen. Source is empty when no
// granularity had enough data.
type SelectionMeta struct {
	Source      string
	SegmentKey  *string
	Competitors []string
}

// SelectStyle walks form, then (family, segment), then family, returning the
// best style of the first level where some style meets that level's run
// floor. It returns nil when no level qualifies; callers must not substitute
// a default.
func SelectStyle(tables StatTables, id FormIdentity, th Thresholds) (*domain.StyleStats, SelectionMeta) {
	meta := SelectionMeta{SegmentKey: id.SegmentKey}

	if best, rest, ok := bestAtLevel(tables.Form.Stats(id.FormID), th.MinFormRuns); ok {
		meta.Source = domain.SourceForm
		meta.Competitors = rest
		return best, meta
	}

	if id.FamilyKey != nil && id.SegmentKey != nil {
		key := segmentTableKey(*id.FamilyKey, *id.SegmentKey)
		if best, rest, ok := bestAtLevel(tables.Segment.Stats(key), th.MinSegmentRuns); ok {
			meta.Source = domain.SourceSegment
			meta.Competitors = rest
			return best, meta
		}
	}

	if id.FamilyKey != nil {
		if best, rest, ok := bestAtLevel(tables.Family.Stats(*id.FamilyKey), th.MinFamilyRuns); ok {
			meta.Source = domain.SourceFamily
			meta.Competitors = rest
			return best, meta
		}
	}

	return nil, meta
}

// bestAtLevel picks the top-ranked style among those with at least floor
// runs. The remaining styles at the level, in rank order, are returned as
// competitors regardless of their run count.
func bestAtLevel(stats map[string]domain.StyleStats, floor int) (*domain.StyleStats, []string, bool) {
	if len(stats) == 0 {
		return nil, nil, false
	}

	ranked := rankStyles(stats)

	bestIdx := -1
	for i, s := range ranked {
		if s.TotalRuns >= floor {
			bestIdx = i
			break
		}
	}
	if bestIdx < 0 {
		return nil, nil, false
	}

	best := ranked[bestIdx]
	rest := make([]string, 0, len(ranked)-1)
	for i, s := range ranked {
		if i != bestIdx {
			rest = append(rest, s.StyleID)
		}
	}

	return &best, rest, true
}
