package timeline

import "github.com/trezcool/lichsu/core"

// Filter is the user's current filtering state.
type Filter struct {
	Search string  `query:"search"`
	Topic  TopicID `query:"topic"`
}

func (f *Filter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Topic = TopicID(core.CleanString(string(f.Topic), true /* lower */))
}

type Counts struct {
	Stages   int `json:"stages"`
	Domestic int `json:"domestic"`
	World    int `json:"world"`
}

// View is what the timeline pages render.
type View struct {
	Stages      []Stage      `json:"stages"`
	Suggestions []Suggestion `json:"suggestions"`
	Counts      Counts       `json:"counts"`
}

// Compute derives the view from the three sources and the filter: merge, exclude hidden,
// apply the topic (if any), then the search term. It is a pure function of its arguments.
func Compute(snap Snapshot, f Filter) (View, error) {
	base := ExcludeHidden(Merge(snap.Stages, snap.Extras), snap.Hidden)
	return filterView(base, f)
}

func filterView(base []Stage, f Filter) (View, error) {
	stages := base
	if f.Topic != "" {
		var err error
		if stages, err = FilterByTopic(stages, f.Topic); err != nil {
			return View{}, err
		}
	}
	res := Search(stages, f.Search)
	return View{
		Stages:      res.Stages,
		Suggestions: res.Suggestions,
		Counts:      CountEvents(res.Stages),
	}, nil
}

// CountEvents counts stages and events per category.
func CountEvents(stages []Stage) Counts {
	c := Counts{Stages: len(stages)}
	for _, stg := range stages {
		c.Domestic += len(stg.DomesticEvents)
		c.World += len(stg.WorldEvents)
	}
	return c
}
