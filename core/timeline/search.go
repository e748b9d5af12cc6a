package timeline

import (
	"strings"
	"unicode/utf8"

	"github.com/trezcool/lichsu/core"
)

// MaxSuggestions caps the quick suggestions returned by Search.
const MaxSuggestions = 5

// Suggestion is an event whose title matches the search term.
type Suggestion struct {
	Event
	StageID  string   `json:"stageId"`
	Category Category `json:"category"`
}

type SearchResult struct {
	Suggestions []Suggestion
	Stages      []Stage
}

// Search filters the merged stages on a free-text term.
// Terms of at most one character leave the stages untouched and give no suggestions.
// Otherwise events match when their title, description or year contains the term (case-insensitive);
// stages without any match are dropped.
func Search(stages []Stage, term string) SearchResult {
	term = core.NormalizeText(strings.TrimSpace(term))
	if utf8.RuneCountInString(term) <= 1 {
		return SearchResult{Suggestions: []Suggestion{}, Stages: stages}
	}
	needle := strings.ToLower(term)

	res := SearchResult{
		Suggestions: make([]Suggestion, 0, MaxSuggestions),
		Stages:      make([]Stage, 0, len(stages)),
	}
	for _, stg := range stages {
		for _, cat := range Categories {
			for _, evt := range stg.Events(cat) {
				if len(res.Suggestions) == MaxSuggestions {
					break
				}
				if containsFold(evt.Title, needle) {
					res.Suggestions = append(res.Suggestions, Suggestion{Event: evt, StageID: stg.ID, Category: cat})
				}
			}
		}

		filtered := stg
		filtered.DomesticEvents = matchingEvents(stg.DomesticEvents, needle)
		filtered.WorldEvents = matchingEvents(stg.WorldEvents, needle)
		if len(filtered.DomesticEvents) > 0 || len(filtered.WorldEvents) > 0 {
			res.Stages = append(res.Stages, filtered)
		}
	}
	return res
}

func matchingEvents(events []Event, needle string) []Event {
	out := make([]Event, 0)
	for _, evt := range events {
		if containsFold(evt.Title, needle) || containsFold(evt.Description, needle) || containsFold(evt.Year, needle) {
			out = append(out, evt)
		}
	}
	return out
}

// containsFold reports whether s contains the lower-cased needle, ignoring case.
func containsFold(s, needle string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(strings.ToLower(core.NormalizeText(s)), needle)
}
