// Package inmemdb keeps the timeline sources in memory. Used by tests and demos without a database.
package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/lichsu/core/timeline"
)

type timelineRepository struct {
	mu     sync.RWMutex
	stages map[string]*timeline.Stage
	extras []timeline.ExtraEvent
	hidden timeline.HiddenSet
}

var _ timeline.Repository = (*timelineRepository)(nil)

func NewTimelineRepository() timeline.Repository {
	return &timelineRepository{
		stages: make(map[string]*timeline.Stage),
		extras: make([]timeline.ExtraEvent, 0),
		hidden: timeline.HiddenSet{},
	}
}

func (repo *timelineRepository) QueryStages(ctx context.Context) ([]timeline.Stage, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	stages := make([]timeline.Stage, 0, len(repo.stages))
	for _, stg := range repo.stages {
		stages = append(stages, stg.Clone())
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].ID < stages[j].ID })
	return stages, nil
}

func (repo *timelineRepository) GetStage(ctx context.Context, id string) (timeline.Stage, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	stg, ok := repo.stages[id]
	if !ok {
		return timeline.Stage{}, timeline.ErrStageNotFound
	}
	return stg.Clone(), nil
}

func (repo *timelineRepository) CreateStage(ctx context.Context, stg timeline.Stage) (timeline.Stage, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.stages[stg.ID]; ok {
		return timeline.Stage{}, timeline.ErrStageExists
	}
	created := timeline.Stage{
		ID:             stg.ID,
		Title:          stg.Title,
		Period:         stg.Period,
		DomesticEvents: []timeline.Event{},
		WorldEvents:    []timeline.Event{},
	}
	repo.stages[stg.ID] = &created
	return created.Clone(), nil
}

func (repo *timelineRepository) UpdateStage(ctx context.Context, stg timeline.Stage) (timeline.Stage, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	current, ok := repo.stages[stg.ID]
	if !ok {
		return timeline.Stage{}, timeline.ErrStageNotFound
	}
	current.Title = stg.Title
	current.Period = stg.Period
	return current.Clone(), nil
}

func (repo *timelineRepository) AppendEvent(ctx context.Context, stageID string, cat timeline.Category, evt timeline.Event) (timeline.Event, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	stg, ok := repo.stages[stageID]
	if !ok {
		return timeline.Event{}, timeline.ErrStageNotFound
	}
	list := eventList(stg, cat)
	*list = append(*list, evt)
	return evt, nil
}

func (repo *timelineRepository) UpdateEvent(ctx context.Context, stageID string, evt timeline.Event) (timeline.Event, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	stg, ok := repo.stages[stageID]
	if !ok {
		return timeline.Event{}, timeline.ErrEventNotFound
	}
	for _, events := range [][]timeline.Event{stg.DomesticEvents, stg.WorldEvents} {
		for i := range events {
			if events[i].ID == evt.ID {
				events[i] = evt
				return evt, nil
			}
		}
	}
	return timeline.Event{}, timeline.ErrEventNotFound
}

func (repo *timelineRepository) QueryExtraEvents(ctx context.Context) ([]timeline.ExtraEvent, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	extras := make([]timeline.ExtraEvent, len(repo.extras))
	copy(extras, repo.extras)
	return extras, nil
}

func (repo *timelineRepository) GetExtraEvent(ctx context.Context, id string) (timeline.ExtraEvent, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if i := repo.extraIndex(id); i >= 0 {
		return repo.extras[i], nil
	}
	return timeline.ExtraEvent{}, timeline.ErrEventNotFound
}

func (repo *timelineRepository) CreateExtraEvent(ctx context.Context, extra timeline.ExtraEvent) (timeline.ExtraEvent, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.extras = append(repo.extras, extra)
	return extra, nil
}

func (repo *timelineRepository) UpdateExtraEvent(ctx context.Context, extra timeline.ExtraEvent) (timeline.ExtraEvent, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	i := repo.extraIndex(extra.ID)
	if i < 0 {
		return timeline.ExtraEvent{}, timeline.ErrEventNotFound
	}
	repo.extras[i] = extra
	return extra, nil
}

// ImportSnapshot upserts the whole snapshot under a single lock.
// An event already stored under another stage or category is moved to the end of its new list.
func (repo *timelineRepository) ImportSnapshot(ctx context.Context, snap timeline.Snapshot) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, stg := range snap.Stages {
		current, ok := repo.stages[stg.ID]
		if !ok {
			current = &timeline.Stage{ID: stg.ID, DomesticEvents: []timeline.Event{}, WorldEvents: []timeline.Event{}}
			repo.stages[stg.ID] = current
		}
		current.Title = stg.Title
		current.Period = stg.Period
		for _, cat := range timeline.Categories {
			for _, evt := range stg.Events(cat) {
				repo.importEvent(stg.ID, cat, evt)
			}
		}
	}
	for _, extra := range snap.Extras {
		if i := repo.extraIndex(extra.ID); i >= 0 {
			repo.extras[i] = extra
		} else {
			repo.extras = append(repo.extras, extra)
		}
	}
	for id := range snap.Hidden {
		repo.hidden[id] = struct{}{}
	}
	return nil
}

func (repo *timelineRepository) importEvent(stageID string, cat timeline.Category, evt timeline.Event) {
	for id, stg := range repo.stages {
		for _, c := range timeline.Categories {
			events := eventList(stg, c)
			for i := range *events {
				if (*events)[i].ID != evt.ID {
					continue
				}
				if id == stageID && c == cat {
					(*events)[i] = evt
					return
				}
				*events = append((*events)[:i], (*events)[i+1:]...)
				target := eventList(repo.stages[stageID], cat)
				*target = append(*target, evt)
				return
			}
		}
	}
	target := eventList(repo.stages[stageID], cat)
	*target = append(*target, evt)
}

func eventList(stg *timeline.Stage, cat timeline.Category) *[]timeline.Event {
	if cat == timeline.World {
		return &stg.WorldEvents
	}
	return &stg.DomesticEvents
}

func (repo *timelineRepository) extraIndex(id string) int {
	for i, extra := range repo.extras {
		if extra.ID == id {
			return i
		}
	}
	return -1
}

func (repo *timelineRepository) QueryHiddenIDs(ctx context.Context) (timeline.HiddenSet, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return timeline.NewHiddenSet(repo.hidden.IDs()...), nil
}

func (repo *timelineRepository) HideIDs(ctx context.Context, ids ...string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, id := range ids {
		repo.hidden[id] = struct{}{}
	}
	return nil
}

func (repo *timelineRepository) UnhideIDs(ctx context.Context, ids ...string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, id := range ids {
		delete(repo.hidden, id)
	}
	return nil
}
