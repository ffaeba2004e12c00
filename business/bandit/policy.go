package bandit

import (
	"math/rand/v2"

	"autofillTuner/domain"
)

const DefaultEpsilon = 0.15

// Source is the randomness behind a draw. Implementations used from several
// goroutines must be safe for concurrent use.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// globalSource uses the goroutine-safe top-level math/rand/v2 functions.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

type Options struct {
	Epsilon float64
	// Enabled false is the kill switch: every decision becomes a fallback
	// to the preferred style.
	Enabled bool
}

// Decision is the style to generate with and the branch that picked it.
type Decision struct {
	StyleID *string `json:"style_id"`
	Policy  string  `json:"policy"`
}

// Policy is an epsilon-greedy chooser between the preferred style and its
// competitors. It keeps no state between decisions.
type Policy struct {
	opts Options
	rng  Source
}

func NewPolicy(opts Options, rng Source) *Policy {
	if rng == nil {
		rng = globalSource{}
	}
	if opts.Epsilon < 0 {
		opts.Epsilon = 0
	}
	if opts.Epsilon > 1 {
		opts.Epsilon = 1
	}
	return &Policy{opts: opts, rng: rng}
}

// Decide picks the style for one request.
func (p *Policy) Decide(preferred *string, competitors []string) Decision {
	if preferred != nil && *preferred == "" {
		preferred = nil
	}

	if !p.opts.Enabled {
		return Decision{StyleID: preferred, Policy: domain.PolicyFallback}
	}

	if preferred == nil {
		return Decision{StyleID: nil, Policy: domain.PolicyFallback}
	}

	pool := explorable(*preferred, competitors)
	if len(pool) == 0 {
		return Decision{StyleID: preferred, Policy: domain.PolicyExploit}
	}

	if p.rng.Float64() < p.opts.Epsilon {
		pick := pool[p.rng.IntN(len(pool))]
		return Decision{StyleID: &pick, Policy: domain.PolicyExplore}
	}

	return Decision{StyleID: preferred, Policy: domain.PolicyExploit}
}

// DecideHint runs Decide on a profile's style hint; a nil hint falls back.
func (p *Policy) DecideHint(hint *domain.StyleHint) Decision {
	if hint == nil {
		return p.Decide(nil, nil)
	}
	preferred := hint.PreferredStyleID
	return p.Decide(&preferred, hint.Competitors)
}

// explorable drops blanks, duplicates and the preferred style itself.
func explorable(preferred string, competitors []string) []string {
	out := make([]string, 0, len(competitors))
	seen := make(map[string]struct{}, len(competitors))
	for _, c := range competitors {
		if c == "" || c == preferred {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
