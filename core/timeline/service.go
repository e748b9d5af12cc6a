package timeline

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/lichsu/core"
)

var (
	// errors
	ErrStageNotFound = errors.New("stage not found")
	ErrStageExists   = errors.New("a stage with this id already exists")
	ErrEventNotFound = errors.New("event not found")
)

type (
	Repository interface {
		// QueryStages returns every stage with its native events in list order.
		QueryStages(ctx context.Context) ([]Stage, error)
		GetStage(ctx context.Context, id string) (Stage, error)
		CreateStage(ctx context.Context, stg Stage) (Stage, error)
		UpdateStage(ctx context.Context, stg Stage) (Stage, error)
		// AppendEvent adds evt at the end of the stage's list for cat.
		AppendEvent(ctx context.Context, stageID string, cat Category, evt Event) (Event, error)
		// UpdateEvent replaces the event matching evt.ID within the stage's lists.
		UpdateEvent(ctx context.Context, stageID string, evt Event) (Event, error)

		QueryExtraEvents(ctx context.Context) ([]ExtraEvent, error)
		GetExtraEvent(ctx context.Context, id string) (ExtraEvent, error)
		CreateExtraEvent(ctx context.Context, extra ExtraEvent) (ExtraEvent, error)
		UpdateExtraEvent(ctx context.Context, extra ExtraEvent) (ExtraEvent, error)

		QueryHiddenIDs(ctx context.Context) (HiddenSet, error)
		HideIDs(ctx context.Context, ids ...string) error
		UnhideIDs(ctx context.Context, ids ...string) error

		// ImportSnapshot upserts stages, events, extras and hidden ids atomically: either the
		// whole snapshot is stored or nothing is. Event ids are unique across stages, so an
		// event imported under another stage or category is moved there.
		ImportSnapshot(ctx context.Context, snap Snapshot) error
	}

	Service struct {
		repo      Repository
		projector *Projector
		validate  *validator.Validate
		newID     func() (string, error)
	}
)

func NewService(repo Repository, projector *Projector, validate *validator.Validate) *Service {
	return &Service{
		repo:      repo,
		projector: projector,
		validate:  validate,
		newID:     newEventID,
	}
}

// newEventID returns a time-based (v1) UUID.
func newEventID() (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (svc *Service) Projector() *Projector { return svc.projector }

// Refresh loads the three sources concurrently and replaces the projector's snapshot.
func (svc *Service) Refresh(ctx context.Context) error {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Stages, err = svc.repo.QueryStages(gctx)
		return errors.Wrap(err, "querying stages")
	})
	g.Go(func() (err error) {
		snap.Extras, err = svc.repo.QueryExtraEvents(gctx)
		return errors.Wrap(err, "querying extra events")
	})
	g.Go(func() (err error) {
		snap.Hidden, err = svc.repo.QueryHiddenIDs(gctx)
		return errors.Wrap(err, "querying hidden ids")
	})
	if err := g.Wait(); err != nil {
		return err
	}
	svc.projector.SetSnapshot(snap)
	return nil
}

func (svc *Service) refreshStages(ctx context.Context) error {
	stages, err := svc.repo.QueryStages(ctx)
	if err != nil {
		return errors.Wrap(err, "querying stages")
	}
	svc.projector.SetStages(stages)
	return nil
}

func (svc *Service) refreshExtras(ctx context.Context) error {
	extras, err := svc.repo.QueryExtraEvents(ctx)
	if err != nil {
		return errors.Wrap(err, "querying extra events")
	}
	svc.projector.SetExtras(extras)
	return nil
}

func (svc *Service) refreshHidden(ctx context.Context) error {
	hidden, err := svc.repo.QueryHiddenIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "querying hidden ids")
	}
	svc.projector.SetHidden(hidden)
	return nil
}

// Timeline returns the filtered timeline view.
func (svc *Service) Timeline(f Filter) (View, error) {
	f.Clean()
	return svc.projector.View(f)
}

// Stage returns the merged stage, hidden events excluded.
func (svc *Service) Stage(id string) (Stage, error) {
	stg, ok := svc.projector.Stage(CleanStageID(id))
	if !ok {
		return Stage{}, ErrStageNotFound
	}
	return stg, nil
}

func (svc *Service) CreateStage(ctx context.Context, ns NewStage) (Stage, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Stage{}, err
	}
	stg, err := svc.repo.CreateStage(ctx, Stage{ID: ns.ID, Title: ns.Title, Period: ns.Period})
	if err != nil {
		if errors.Cause(err) == ErrStageExists {
			return Stage{}, core.NewValidationError(err, core.FieldError{Field: "id", Error: err.Error()})
		}
		return Stage{}, errors.Wrap(err, "creating stage")
	}
	return stg, svc.refreshStages(ctx)
}

func (svc *Service) UpdateStage(ctx context.Context, id string, us UpdateStage) (Stage, error) {
	orig, err := svc.repo.GetStage(ctx, CleanStageID(id))
	if err != nil {
		return Stage{}, err
	}
	us.Clean(orig)
	if err = svc.validate.Struct(us); err != nil {
		return Stage{}, err
	}
	orig.Title = us.Title
	orig.Period = *us.Period
	stg, err := svc.repo.UpdateStage(ctx, orig)
	if err != nil {
		return Stage{}, errors.Wrap(err, "updating stage")
	}
	return stg, svc.refreshStages(ctx)
}

// AppendEvent adds a native event at the end of the stage's list.
func (svc *Service) AppendEvent(ctx context.Context, stageID string, ne NewEvent) (Event, error) {
	ne.Clean()
	if err := svc.validate.Struct(ne); err != nil {
		return Event{}, err
	}
	id, err := svc.newID()
	if err != nil {
		return Event{}, errors.Wrap(err, "generating event id")
	}
	evt := Event{ID: id, Title: ne.Title, Year: ne.Year, Description: ne.Description}
	if evt, err = svc.repo.AppendEvent(ctx, CleanStageID(stageID), ne.Category, evt); err != nil {
		return Event{}, errors.Wrap(err, "appending event")
	}
	return evt, svc.refreshStages(ctx)
}

// UpdateEvent modifies a native event in place, matching on its id within the stage.
func (svc *Service) UpdateEvent(ctx context.Context, stageID, eventID string, ue UpdateEvent) (Event, error) {
	ue.Clean()
	if err := svc.validate.Struct(ue); err != nil {
		return Event{}, err
	}
	stg, err := svc.repo.GetStage(ctx, CleanStageID(stageID))
	if err != nil {
		return Event{}, err
	}
	orig, ok := findEvent(stg, eventID)
	if !ok {
		return Event{}, ErrEventNotFound
	}
	evt, err := svc.repo.UpdateEvent(ctx, stg.ID, ue.apply(orig))
	if err != nil {
		return Event{}, errors.Wrap(err, "updating event")
	}
	return evt, svc.refreshStages(ctx)
}

func (svc *Service) ExtraEvents(ctx context.Context) ([]ExtraEvent, error) {
	return svc.repo.QueryExtraEvents(ctx)
}

func (svc *Service) CreateExtraEvent(ctx context.Context, ne NewExtraEvent) (ExtraEvent, error) {
	ne.Clean()
	if err := svc.validate.Struct(ne); err != nil {
		return ExtraEvent{}, err
	}
	id, err := svc.newID()
	if err != nil {
		return ExtraEvent{}, errors.Wrap(err, "generating event id")
	}
	extra := ExtraEvent{
		Event:    Event{ID: id, Title: ne.Title, Year: ne.Year, Description: ne.Description},
		StageID:  ne.StageID,
		Category: ne.Category,
	}
	if extra, err = svc.repo.CreateExtraEvent(ctx, extra); err != nil {
		return ExtraEvent{}, errors.Wrap(err, "creating extra event")
	}
	return extra, svc.refreshExtras(ctx)
}

func (svc *Service) UpdateExtraEvent(ctx context.Context, id string, ue UpdateEvent) (ExtraEvent, error) {
	ue.Clean()
	if err := svc.validate.Struct(ue); err != nil {
		return ExtraEvent{}, err
	}
	extra, err := svc.repo.GetExtraEvent(ctx, id)
	if err != nil {
		return ExtraEvent{}, err
	}
	extra.Event = ue.apply(extra.Event)
	if extra, err = svc.repo.UpdateExtraEvent(ctx, extra); err != nil {
		return ExtraEvent{}, errors.Wrap(err, "updating extra event")
	}
	return extra, svc.refreshExtras(ctx)
}

// HiddenIDs returns the soft-deleted ids.
func (svc *Service) HiddenIDs(ctx context.Context) (HiddenSet, error) {
	return svc.repo.QueryHiddenIDs(ctx)
}

// Hide soft-deletes stages or events by id.
func (svc *Service) Hide(ctx context.Context, hr HideRequest) error {
	hr.Clean()
	if err := svc.validate.Struct(hr); err != nil {
		return err
	}
	if err := svc.repo.HideIDs(ctx, hr.IDs...); err != nil {
		return errors.Wrap(err, "hiding ids")
	}
	return svc.refreshHidden(ctx)
}

// Unhide restores soft-deleted stages or events.
func (svc *Service) Unhide(ctx context.Context, ids ...string) error {
	hr := HideRequest{IDs: ids}
	hr.Clean()
	if len(hr.IDs) == 0 {
		return nil
	}
	if err := svc.repo.UnhideIDs(ctx, hr.IDs...); err != nil {
		return errors.Wrap(err, "unhiding ids")
	}
	return svc.refreshHidden(ctx)
}

// Orphans returns the supplementary events that no view shows because their stage is missing.
func (svc *Service) Orphans() []ExtraEvent {
	orphans := svc.projector.Orphans()
	if orphans == nil {
		orphans = []ExtraEvent{}
	}
	return orphans
}

// Duplicates reports look-alike events of the merged timeline.
func (svc *Service) Duplicates(threshold float64) []DuplicatePair {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDuplicateThreshold
	}
	return NearDuplicates(svc.projector.Stages(), threshold)
}

// Import writes a whole snapshot in one repository transaction: missing stages are created,
// existing stages get their title and period updated, events and extras are upserted by id
// (moving events that changed stage), and hidden ids are added.
// The projector is reloaded whatever the outcome.
func (svc *Service) Import(ctx context.Context, snap Snapshot) error {
	importErr := svc.repo.ImportSnapshot(ctx, NormalizeSnapshot(snap))
	if err := svc.Refresh(ctx); err != nil {
		if importErr != nil {
			return errors.Wrapf(importErr, "importing snapshot (reload failed: %v)", err)
		}
		return err
	}
	return errors.Wrap(importErr, "importing snapshot")
}

func findEvent(stg Stage, id string) (Event, bool) {
	for _, cat := range Categories {
		for _, evt := range stg.Events(cat) {
			if evt.ID == id {
				return evt, true
			}
		}
	}
	return Event{}, false
}
