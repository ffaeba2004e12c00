package learning

import "strings"

const (
	SegmentIntern  = "intern"
	SegmentJunior  = "junior"
	SegmentSenior  = "senior"
	SegmentDefault = "default"
)

// Checked in order; the first rule with a matching needle wins.
var segmentRules = []struct {
	segment string
	needles []string
}{
	{SegmentIntern, []string{"intern", "co-op"}},
	{SegmentJunior, []string{"junior", "jr", "entry"}},
	{SegmentSenior, []string{"senior", "sr", "lead", "principal"}},
}

// ClassifySegment maps a job title to a coarse seniority segment. A nil
// title means no job context and yields nil.
func ClassifySegment(title *string) *string {
	if title == nil {
		return nil
	}

	t := strings.ToLower(*title)
	for _, rule := range segmentRules {
		for _, needle := range rule.needles {
			if strings.Contains(t, needle) {
				seg := rule.segment
				return &seg
			}
		}
	}

	seg := SegmentDefault
	return &seg
}
