package timeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchFixture() []Stage {
	stages, extras := mergeFixture()
	return Merge(stages, extras)
}

func TestSearch(t *testing.T) {
	stages := searchFixture()

	tests := []struct {
		name        string
		term        string
		wantStages  []string
		wantEvents  []string
		wantSuggest []string
	}{
		{
			name:        "title, case-insensitive",
			term:        "dien BIEN",
			wantStages:  []string{"stage-1945-1954"},
			wantEvents:  []string{"e2"},
			wantSuggest: []string{"e2"},
		},
		{
			name:       "year matches without suggestion",
			term:       "1975",
			wantStages: []string{"stage-1954-1975"},
			wantEvents: []string{"e4"},
		},
		{
			name:        "vietnamese title",
			term:        "đồng khởi",
			wantStages:  []string{"stage-1954-1975"},
			wantEvents:  []string{"e5"},
			wantSuggest: []string{"e5"},
		},
		{
			name: "no match",
			term: "xyz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Search(stages, tt.term)

			var gotStages, gotEvents, gotSuggest []string
			for _, stg := range res.Stages {
				gotStages = append(gotStages, stg.ID)
				gotEvents = append(gotEvents, ids(stg.DomesticEvents)...)
				gotEvents = append(gotEvents, ids(stg.WorldEvents)...)
			}
			for _, sug := range res.Suggestions {
				gotSuggest = append(gotSuggest, sug.ID)
			}
			assert.Equal(t, tt.wantStages, gotStages)
			assert.Equal(t, tt.wantEvents, gotEvents)
			assert.Equal(t, tt.wantSuggest, gotSuggest)
		})
	}
}

func TestSearch_shortTerm(t *testing.T) {
	stages := searchFixture()
	for _, term := range []string{"", " ", "d", " đ "} {
		res := Search(stages, term)
		assert.Equal(t, stages, res.Stages, "term %q", term)
		assert.NotNil(t, res.Suggestions)
		assert.Empty(t, res.Suggestions, "term %q", term)
	}
}

func TestSearch_suggestionCap(t *testing.T) {
	stg := Stage{ID: "s", WorldEvents: []Event{}}
	for i := 0; i < MaxSuggestions+3; i++ {
		stg.DomesticEvents = append(stg.DomesticEvents, Event{ID: fmt.Sprint(i), Title: "Hội nghị", Year: "1954"})
	}
	res := Search([]Stage{stg}, "hội nghị")
	require.Len(t, res.Stages, 1)
	assert.Len(t, res.Stages[0].DomesticEvents, MaxSuggestions+3)
	assert.Len(t, res.Suggestions, MaxSuggestions)
	assert.Equal(t, Domestic, res.Suggestions[0].Category)
	assert.Equal(t, "s", res.Suggestions[0].StageID)
}
