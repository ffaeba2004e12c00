package learning

import (
	"autofillTuner/domain"

	"gorm.io/datatypes"
)

// ApplyQualityGate withholds a profile's recommendations when its recorded
// runs fall below the success rate or exceed the edit volume limit. The
// stored profile is untouched; rejected is true when the returned copy was
// emptied. Profiles without any recorded runs pass.
func ApplyQualityGate(p domain.FormProfile, th Thresholds) (gated domain.FormProfile, rejected bool) {
	if !failsQuality(p, th) {
		return p, false
	}

	p.CanonicalMap = datatypes.JSONMap{}
	p.StyleHint = nil
	p.StyleHintRaw = nil

	return p, true
}

func failsQuality(p domain.FormProfile, th Thresholds) bool {
	if p.TotalRuns == 0 {
		return false
	}
	return p.SuccessRate < th.MinSuccessRate || p.AvgEditChars > th.MaxAvgEditChars
}
