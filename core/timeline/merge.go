package timeline

import (
	"sort"
)

// Merge combines the stages with the supplementary events into a new stage list.
// Extras are appended to their stage's domestic or world list, both lists are then sorted
// by date value (stable) and stages are ordered by id. Extras referencing an unknown stage
// are dropped. Neither argument is modified.
func Merge(stages []Stage, extras []ExtraEvent) []Stage {
	merged := make([]Stage, len(stages))
	index := make(map[string]int, len(stages))
	for i, stg := range stages {
		merged[i] = stg.Clone()
		if _, dup := index[stg.ID]; !dup {
			index[stg.ID] = i
		}
	}

	for _, extra := range extras {
		i, ok := index[extra.StageID]
		if !ok {
			continue
		}
		if extra.Category == World {
			merged[i].WorldEvents = append(merged[i].WorldEvents, extra.Event)
		} else {
			merged[i].DomesticEvents = append(merged[i].DomesticEvents, extra.Event)
		}
	}

	for i := range merged {
		SortEvents(merged[i].DomesticEvents)
		SortEvents(merged[i].WorldEvents)
	}
	SortStages(merged)
	return merged
}

// SortEvents sorts events in place by ascending date value, keeping the input order of equal dates.
func SortEvents(events []Event) {
	values := make(map[string]int, len(events))
	valueOf := func(e Event) int {
		v, ok := values[e.Year]
		if !ok {
			v = ResolveDateValue(e.Year)
			values[e.Year] = v
		}
		return v
	}
	sort.SliceStable(events, func(i, j int) bool {
		return valueOf(events[i]) < valueOf(events[j])
	})
}

// SortStages sorts stages in place by id.
func SortStages(stages []Stage) {
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].ID < stages[j].ID
	})
}

// Orphans returns the extras that Merge drops because their stage does not exist.
func Orphans(stages []Stage, extras []ExtraEvent) []ExtraEvent {
	known := make(map[string]struct{}, len(stages))
	for _, stg := range stages {
		known[stg.ID] = struct{}{}
	}
	var orphans []ExtraEvent
	for _, extra := range extras {
		if _, ok := known[extra.StageID]; !ok {
			orphans = append(orphans, extra)
		}
	}
	return orphans
}

// ExcludeHidden returns a copy of stages without the hidden stages and events.
func ExcludeHidden(stages []Stage, hidden HiddenSet) []Stage {
	out := make([]Stage, 0, len(stages))
	for _, stg := range stages {
		if hidden.Has(stg.ID) {
			continue
		}
		stg.DomesticEvents = visibleEvents(stg.DomesticEvents, hidden)
		stg.WorldEvents = visibleEvents(stg.WorldEvents, hidden)
		out = append(out, stg)
	}
	return out
}

func visibleEvents(events []Event, hidden HiddenSet) []Event {
	out := make([]Event, 0, len(events))
	for _, evt := range events {
		if !hidden.Has(evt.ID) {
			out = append(out, evt)
		}
	}
	return out
}
