package timeline

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultDuplicateThreshold is the title similarity from which two events are reported.
const DefaultDuplicateThreshold = .85

// DuplicatePair is two events of the same stage list with look-alike titles.
type DuplicatePair struct {
	StageID  string   `json:"stageId"`
	Category Category `json:"category"`
	First    Event    `json:"first"`
	Second   Event    `json:"second"`
	Ratio    float64  `json:"ratio"`
}

// NearDuplicates reports events of the same stage and category whose titles are at least
// threshold similar. Nothing is removed: legitimately repeated entries exist.
func NearDuplicates(stages []Stage, threshold float64) []DuplicatePair {
	pairs := make([]DuplicatePair, 0)
	for _, stg := range stages {
		for _, cat := range Categories {
			events := stg.Events(cat)
			for i := 0; i < len(events); i++ {
				for j := i + 1; j < len(events); j++ {
					ratio := titleRatio(events[i].Title, events[j].Title)
					if ratio >= threshold {
						pairs = append(pairs, DuplicatePair{
							StageID:  stg.ID,
							Category: cat,
							First:    events[i],
							Second:   events[j],
							Ratio:    ratio,
						})
					}
				}
			}
		}
	}
	return pairs
}

func titleRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
