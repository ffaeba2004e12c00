package learning

import (
	"sort"

	"autofillTuner/domain"
)

type styleAccumulator struct {
	total     int
	helpful   int
	unhelpful int
	editSum   int
}

func (a *styleAccumulator) add(ev domain.AutofillEvent) {
	a.total++
	a.editSum += ev.EditChars()
	if ev.FeedbackStatus != nil {
		switch *ev.FeedbackStatus {
		case domain.FeedbackHelpful:
			a.helpful++
		case domain.FeedbackUnhelpful:
			a.unhelpful++
		}
	}
}

func (a *styleAccumulator) stats(styleID string) domain.StyleStats {
	rated := a.helpful + a.unhelpful
	if rated < 1 {
		rated = 1
	}
	avg := 0.0
	if a.total > 0 {
		avg = float64(a.editSum) / float64(a.total)
	}
	return domain.StyleStats{
		StyleID:        styleID,
		TotalRuns:      a.total,
		HelpfulCount:   a.helpful,
		UnhelpfulCount: a.unhelpful,
		HelpfulRatio:   float64(a.helpful) / float64(rated),
		AvgEditChars:   avg,
	}
}

// StatsTable holds per-style accumulators for one granularity, keyed by the
// granularity's key (form id, family|segment, or family).
type StatsTable map[string]map[string]*styleAccumulator

func (t StatsTable) add(key, styleID string, ev domain.AutofillEvent) {
	styles, ok := t[key]
	if !ok {
		styles = make(map[string]*styleAccumulator)
		t[key] = styles
	}
	acc, ok := styles[styleID]
	if !ok {
		acc = &styleAccumulator{}
		styles[styleID] = acc
	}
	acc.add(ev)
}

// Stats returns the per-style stats for key, or nil when the key is absent.
func (t StatsTable) Stats(key string) map[string]domain.StyleStats {
	styles, ok := t[key]
	if !ok {
		return nil
	}
	out := make(map[string]domain.StyleStats, len(styles))
	for id, acc := range styles {
		out[id] = acc.stats(id)
	}
	return out
}

// StatTables are the three granularities built by one aggregation pass.
type StatTables struct {
	Form    StatsTable
	Segment StatsTable
	Family  StatsTable
}

func NewStatTables() StatTables {
	return StatTables{
		Form:    StatsTable{},
		Segment: StatsTable{},
		Family:  StatsTable{},
	}
}

// Add files a styled event under every granularity it qualifies for. Events
// without a style contribute nothing.
func (t StatTables) Add(ev domain.AutofillEvent) {
	if ev.GenStyleID == nil || *ev.GenStyleID == "" {
		return
	}
	style := *ev.GenStyleID

	t.Form.add(ev.FormID(), style, ev)

	if ev.FamilyKey == nil {
		return
	}
	t.Family.add(*ev.FamilyKey, style, ev)

	if ev.SegmentKey != nil {
		t.Segment.add(segmentTableKey(*ev.FamilyKey, *ev.SegmentKey), style, ev)
	}
}

func segmentTableKey(family, segment string) string {
	return family + "|" + segment
}

// rankStyles orders stats by helpful ratio, then run count, then style id.
func rankStyles(stats map[string]domain.StyleStats) []domain.StyleStats {
	out := make([]domain.StyleStats, 0, len(stats))
	for _, s := range stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HelpfulRatio != out[j].HelpfulRatio {
			return out[i].HelpfulRatio > out[j].HelpfulRatio
		}
		if out[i].TotalRuns != out[j].TotalRuns {
			return out[i].TotalRuns > out[j].TotalRuns
		}
		return out[i].StyleID < out[j].StyleID
	})
	return out
}
