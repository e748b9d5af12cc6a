package timeline

import (
	"github.com/trezcool/lichsu/core"
)

// Category tells whether an event belongs to a stage's domestic or world list.
type Category string

const (
	Domestic Category = "domestic"
	World    Category = "world"
)

// Categories lists every valid Category.
var Categories = []Category{Domestic, World}

// ParseCategory decodes a loosely typed category value. Anything unknown is Domestic.
func ParseCategory(s string) Category {
	switch core.CleanString(s, true /* lower */) {
	case "world", "thegioi", "thế giới", "the-gioi", "quocte", "quốc tế":
		return World
	default:
		return Domestic
	}
}

func (c Category) Valid() bool {
	return c == Domestic || c == World
}

// Event is a single historical occurrence.
// Year is free text: "1945", "1945 - 1954", "08/1945" or "02/09/1945".
type Event struct {
	ID          string `json:"id" yaml:"id" db:"id"`
	Title       string `json:"title" yaml:"title" db:"title"`
	Year        string `json:"year" yaml:"year" db:"year"`
	Description string `json:"description" yaml:"description" db:"description"`
}

// DateValue is the sortable YYYYMMDD value of the event's Year.
func (e Event) DateValue() int {
	return ResolveDateValue(e.Year)
}

// Stage is a historical period holding two ordered event lists.
type Stage struct {
	ID             string  `json:"id" yaml:"id" db:"id"`
	Title          string  `json:"title" yaml:"title" db:"title"`
	Period         string  `json:"period" yaml:"period" db:"period"`
	DomesticEvents []Event `json:"domesticEvents" yaml:"domesticEvents"`
	WorldEvents    []Event `json:"worldEvents" yaml:"worldEvents"`
}

// Events returns the stage's list for the category.
func (s Stage) Events(cat Category) []Event {
	if cat == World {
		return s.WorldEvents
	}
	return s.DomesticEvents
}

// Clone returns a copy of the stage that shares no slice with s.
func (s Stage) Clone() Stage {
	s.DomesticEvents = cloneEvents(s.DomesticEvents)
	s.WorldEvents = cloneEvents(s.WorldEvents)
	return s
}

func cloneEvents(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// ExtraEvent is an event of the supplementary collection,
// attached to a stage and a category at merge time.
type ExtraEvent struct {
	Event
	StageID  string   `json:"stageId" yaml:"stageId" db:"stage_id"`
	Category Category `json:"category" yaml:"category" db:"category"`
}

// HiddenSet is the set of soft-deleted stage and event ids.
type HiddenSet map[string]struct{}

func NewHiddenSet(ids ...string) HiddenSet {
	hs := make(HiddenSet, len(ids))
	for _, id := range ids {
		hs[id] = struct{}{}
	}
	return hs
}

func (hs HiddenSet) Has(id string) bool {
	_, ok := hs[id]
	return ok
}

// IDs returns the hidden ids in no particular order.
func (hs HiddenSet) IDs() []string {
	ids := make([]string, 0, len(hs))
	for id := range hs {
		ids = append(ids, id)
	}
	return ids
}

func (hs HiddenSet) clone() HiddenSet {
	out := make(HiddenSet, len(hs))
	for id := range hs {
		out[id] = struct{}{}
	}
	return out
}

// Snapshot holds the latest state of the three timeline sources.
type Snapshot struct {
	Stages []Stage
	Extras []ExtraEvent
	Hidden HiddenSet
}

// CleanStageID returns the canonical form of a stage id: trimmed and lower-case.
func CleanStageID(id string) string {
	return core.CleanString(id, true /* lower */)
}

// NormalizeSnapshot returns a copy of snap whose stage ids and extra stage references are canonical.
func NormalizeSnapshot(snap Snapshot) Snapshot {
	out := Snapshot{
		Stages: make([]Stage, len(snap.Stages)),
		Extras: make([]ExtraEvent, len(snap.Extras)),
		Hidden: snap.Hidden,
	}
	for i, stg := range snap.Stages {
		stg.ID = CleanStageID(stg.ID)
		out.Stages[i] = stg
	}
	for i, extra := range snap.Extras {
		extra.StageID = CleanStageID(extra.StageID)
		out.Extras[i] = extra
	}
	return out
}

// NewStage contains information needed to create a new Stage.
type NewStage struct {
	ID     string `json:"id" validate:"required,stageid"`
	Title  string `json:"title" validate:"notblank"`
	Period string `json:"period" validate:"omitempty"`
}

func (ns *NewStage) Clean() {
	ns.ID = CleanStageID(ns.ID)
	ns.Title = core.NormalizeText(core.CleanString(ns.Title))
	ns.Period = core.CleanString(ns.Period)
}

// UpdateStage defines what information may be provided to modify an existing Stage.
type UpdateStage struct {
	Title  string  `json:"title"`
	Period *string `json:"period"`
}

func (us *UpdateStage) Clean(orig Stage) {
	if title := core.NormalizeText(core.CleanString(us.Title)); title != "" {
		us.Title = title
	} else {
		us.Title = orig.Title
	}
	if us.Period == nil {
		period := orig.Period
		us.Period = &period
	} else {
		period := core.CleanString(*us.Period)
		us.Period = &period
	}
}

// NewEvent contains information needed to append an Event to a stage.
type NewEvent struct {
	Title       string   `json:"title" validate:"notblank"`
	Year        string   `json:"year" validate:"required,datestr"`
	Description string   `json:"description"`
	Category    Category `json:"category" validate:"required,category"`
}

func (ne *NewEvent) Clean() {
	ne.Title = core.NormalizeText(core.CleanString(ne.Title))
	ne.Year = core.CleanString(ne.Year)
	ne.Description = core.NormalizeText(core.CleanString(ne.Description))
	ne.Category = Category(core.CleanString(string(ne.Category), true /* lower */))
}

// UpdateEvent defines what information may be provided to modify an existing Event.
// Empty fields keep their current value.
type UpdateEvent struct {
	Title       string  `json:"title"`
	Year        string  `json:"year" validate:"omitempty,datestr"`
	Description *string `json:"description"`
}

func (ue *UpdateEvent) Clean() {
	ue.Title = core.NormalizeText(core.CleanString(ue.Title))
	ue.Year = core.CleanString(ue.Year)
	if ue.Description != nil {
		desc := core.NormalizeText(core.CleanString(*ue.Description))
		ue.Description = &desc
	}
}

func (ue UpdateEvent) apply(evt Event) Event {
	if ue.Title != "" {
		evt.Title = ue.Title
	}
	if ue.Year != "" {
		evt.Year = ue.Year
	}
	if ue.Description != nil {
		evt.Description = *ue.Description
	}
	return evt
}

// NewExtraEvent contains information needed to create a supplementary event.
// StageID is not checked against existing stages: the stage may be created later.
type NewExtraEvent struct {
	NewEvent
	StageID string `json:"stageId" validate:"required,stageid"`
}

func (ne *NewExtraEvent) Clean() {
	ne.NewEvent.Clean()
	ne.StageID = CleanStageID(ne.StageID)
}

// HideRequest lists the ids to soft-delete or restore.
type HideRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,notblank"`
}

func (hr *HideRequest) Clean() {
	ids := hr.IDs[:0]
	for _, id := range hr.IDs {
		if id = core.CleanString(id); id != "" {
			ids = append(ids, id)
		}
	}
	hr.IDs = ids
}
