// Package classifier maps heart metrics and eye redness to a coarse intoxication label
// through ordered, first-match-wins rule tables.
package classifier

import (
	"fmt"
	"math"
	"strings"

	"wisefido-rppg/internal/models"
)

var inf = math.Inf(1)

// Inputs are the values a rule can look at. Redness is nil when the deployment has no
// eye input; redness conditions never match then.
type Inputs struct {
	HeartRateBPM float64
	HRVMs        float64
	Redness      *float64
}

func (in Inputs) rednessIn(lo, hi float64) bool {
	return in.Redness != nil && *in.Redness >= lo && *in.Redness < hi
}

// Rule yields Label when Match holds.
type Rule struct {
	Label string
	Match func(Inputs) bool
}

// Table is an ordered rule list. The zero rules table always answers Unknown.
type Table struct {
	name  string
	rules []Rule
}

// NewTable builds a named table from rules in evaluation order.
func NewTable(name string, rules ...Rule) *Table {
	return &Table{name: name, rules: append([]Rule(nil), rules...)}
}

// Name is the configuration name of the table.
func (t *Table) Name() string { return t.name }

// Classify evaluates the rules top to bottom and returns the first matching label, or
// Unknown. Gaps between bands are intentional and also yield Unknown.
func (t *Table) Classify(in Inputs) string {
	for _, r := range t.rules {
		if r.Match(in) {
			return r.Label
		}
	}
	return models.LabelUnknown
}

// RednessAware uses eye redness together with HR and HRV.
var RednessAware = NewTable("redness",
	Rule{Label: models.LabelSober, Match: func(in Inputs) bool {
		return in.rednessIn(-inf, 50) && in.HeartRateBPM < 90 && in.HRVMs > 40
	}},
	Rule{Label: models.LabelTipsy, Match: func(in Inputs) bool {
		return in.rednessIn(70, 100) ||
			(in.HeartRateBPM >= 90 && in.HeartRateBPM < 110 && in.HRVMs >= 20 && in.HRVMs <= 40)
	}},
	Rule{Label: models.LabelExtremelyDrunk, Match: func(in Inputs) bool {
		return in.rednessIn(100, inf) || (in.HeartRateBPM >= 110 && in.HRVMs < 20)
	}},
)

// HeartOnly ignores redness.
var HeartOnly = NewTable("heart",
	Rule{Label: models.LabelSober, Match: func(in Inputs) bool {
		return in.HeartRateBPM < 60 || in.HRVMs > 50
	}},
	Rule{Label: models.LabelTipsy, Match: func(in Inputs) bool {
		return in.HeartRateBPM >= 60 && in.HeartRateBPM < 90 && in.HRVMs >= 30 && in.HRVMs <= 50
	}},
	Rule{Label: models.LabelExtremelyDrunk, Match: func(in Inputs) bool {
		return in.HeartRateBPM >= 90 && in.HRVMs < 30
	}},
)

// ParseTable accepts "redness" or "heart".
func ParseTable(s string) (*Table, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "redness", "redness-aware":
		return RednessAware, nil
	case "heart", "heart-only":
		return HeartOnly, nil
	default:
		return nil, fmt.Errorf("unknown classifier table %q", s)
	}
}
