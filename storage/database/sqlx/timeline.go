package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/lichsu/core"
	"github.com/trezcool/lichsu/core/timeline"
)

// eventRow is a stage_events or extra_events row.
type eventRow struct {
	ID          string            `db:"id"`
	StageID     string            `db:"stage_id"`
	Category    timeline.Category `db:"category"`
	Position    int               `db:"position"`
	Title       string            `db:"title"`
	Year        string            `db:"year"`
	Description string            `db:"description"`
}

func (r eventRow) event() timeline.Event {
	return timeline.Event{ID: r.ID, Title: r.Title, Year: r.Year, Description: r.Description}
}

func (r eventRow) extra() timeline.ExtraEvent {
	return timeline.ExtraEvent{Event: r.event(), StageID: r.StageID, Category: r.Category}
}

type timelineRepository struct {
	db core.DB
}

var _ timeline.Repository = (*timelineRepository)(nil)

func NewTimelineRepository(db core.DB) timeline.Repository {
	return &timelineRepository{db: db}
}

func (repo *timelineRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Stages

func (repo *timelineRepository) QueryStages(ctx context.Context) ([]timeline.Stage, error) {
	stages := make([]timeline.Stage, 0)
	q := `SELECT id, title, period FROM stages ORDER BY id`
	if err := repo.db.SelectContext(ctx, &stages, q); err != nil {
		return nil, errors.Wrap(err, "selecting stages")
	}

	var rows []eventRow
	q = `SELECT id, stage_id, category, position, title, year, description
		FROM stage_events ORDER BY stage_id, category, position`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting stage events")
	}

	index := make(map[string]int, len(stages))
	for i := range stages {
		stages[i].DomesticEvents = []timeline.Event{}
		stages[i].WorldEvents = []timeline.Event{}
		index[stages[i].ID] = i
	}
	for _, row := range rows {
		i, ok := index[row.StageID]
		if !ok {
			continue
		}
		if row.Category == timeline.World {
			stages[i].WorldEvents = append(stages[i].WorldEvents, row.event())
		} else {
			stages[i].DomesticEvents = append(stages[i].DomesticEvents, row.event())
		}
	}
	return stages, nil
}

func getStage(ctx context.Context, db core.DBExecutor, id string) (timeline.Stage, error) {
	var stg timeline.Stage
	q := db.Rebind(`SELECT id, title, period FROM stages WHERE id = ?`)
	if err := db.GetContext(ctx, &stg, q, id); err != nil {
		if err == sql.ErrNoRows {
			return timeline.Stage{}, timeline.ErrStageNotFound
		}
		return timeline.Stage{}, errors.Wrap(err, "selecting stage")
	}

	var rows []eventRow
	q = db.Rebind(`SELECT id, stage_id, category, position, title, year, description
		FROM stage_events WHERE stage_id = ? ORDER BY category, position`)
	if err := db.SelectContext(ctx, &rows, q, id); err != nil {
		return timeline.Stage{}, errors.Wrap(err, "selecting stage events")
	}
	stg.DomesticEvents = []timeline.Event{}
	stg.WorldEvents = []timeline.Event{}
	for _, row := range rows {
		if row.Category == timeline.World {
			stg.WorldEvents = append(stg.WorldEvents, row.event())
		} else {
			stg.DomesticEvents = append(stg.DomesticEvents, row.event())
		}
	}
	return stg, nil
}

func (repo *timelineRepository) GetStage(ctx context.Context, id string) (timeline.Stage, error) {
	return getStage(ctx, repo.db, id)
}

func (repo *timelineRepository) CreateStage(ctx context.Context, stg timeline.Stage) (timeline.Stage, error) {
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT COUNT(*) FROM stages WHERE id = ?`, stg.ID)
		if err != nil {
			return errors.Wrap(err, "checking stage")
		}
		if exists {
			return timeline.ErrStageExists
		}
		q := tx.Rebind(`INSERT INTO stages (id, title, period) VALUES (?, ?, ?)`)
		_, err = tx.ExecContext(ctx, q, stg.ID, stg.Title, stg.Period)
		return errors.Wrap(err, "inserting stage")
	})
	if err != nil {
		return timeline.Stage{}, err
	}
	return repo.GetStage(ctx, stg.ID)
}

func (repo *timelineRepository) UpdateStage(ctx context.Context, stg timeline.Stage) (timeline.Stage, error) {
	q := repo.db.Rebind(`UPDATE stages SET title = ?, period = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, stg.Title, stg.Period, stg.ID)
	if err = checkAffected(res, err, timeline.ErrStageNotFound); err != nil {
		return timeline.Stage{}, errors.Wrap(err, "updating stage")
	}
	return repo.GetStage(ctx, stg.ID)
}

func (repo *timelineRepository) AppendEvent(ctx context.Context, stageID string, cat timeline.Category, evt timeline.Event) (timeline.Event, error) {
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT COUNT(*) FROM stages WHERE id = ?`, stageID)
		if err != nil {
			return errors.Wrap(err, "checking stage")
		}
		if !exists {
			return timeline.ErrStageNotFound
		}

		return insertEvent(ctx, tx, stageID, cat, evt)
	})
	if err != nil {
		return timeline.Event{}, err
	}
	return evt, nil
}

func (repo *timelineRepository) UpdateEvent(ctx context.Context, stageID string, evt timeline.Event) (timeline.Event, error) {
	q := repo.db.Rebind(`UPDATE stage_events SET title = ?, year = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stage_id = ?`)
	res, err := repo.db.ExecContext(ctx, q, evt.Title, evt.Year, evt.Description, evt.ID, stageID)
	if err = checkAffected(res, err, timeline.ErrEventNotFound); err != nil {
		return timeline.Event{}, errors.Wrap(err, "updating stage event")
	}
	return evt, nil
}

// Extra events

func (repo *timelineRepository) QueryExtraEvents(ctx context.Context) ([]timeline.ExtraEvent, error) {
	var rows []eventRow
	q := `SELECT id, stage_id, category, position, title, year, description FROM extra_events ORDER BY position`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting extra events")
	}
	extras := make([]timeline.ExtraEvent, 0, len(rows))
	for _, row := range rows {
		extras = append(extras, row.extra())
	}
	return extras, nil
}

func (repo *timelineRepository) GetExtraEvent(ctx context.Context, id string) (timeline.ExtraEvent, error) {
	var row eventRow
	q := repo.db.Rebind(`SELECT id, stage_id, category, position, title, year, description FROM extra_events WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return timeline.ExtraEvent{}, timeline.ErrEventNotFound
		}
		return timeline.ExtraEvent{}, errors.Wrap(err, "selecting extra event")
	}
	return row.extra(), nil
}

func (repo *timelineRepository) CreateExtraEvent(ctx context.Context, extra timeline.ExtraEvent) (timeline.ExtraEvent, error) {
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		return insertExtra(ctx, tx, extra)
	})
	if err != nil {
		return timeline.ExtraEvent{}, err
	}
	return extra, nil
}

func (repo *timelineRepository) UpdateExtraEvent(ctx context.Context, extra timeline.ExtraEvent) (timeline.ExtraEvent, error) {
	if err := updateExtra(ctx, repo.db, extra); err != nil {
		return timeline.ExtraEvent{}, errors.Wrap(err, "updating extra event")
	}
	return extra, nil
}

// Hidden ids

func (repo *timelineRepository) QueryHiddenIDs(ctx context.Context) (timeline.HiddenSet, error) {
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, `SELECT id FROM hidden_ids`); err != nil {
		return nil, errors.Wrap(err, "selecting hidden ids")
	}
	return timeline.NewHiddenSet(ids...), nil
}

func (repo *timelineRepository) HideIDs(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return repo.inTx(ctx, func(tx *sqlx.Tx) error {
		return hideIDs(ctx, tx, ids)
	})
}

func (repo *timelineRepository) UnhideIDs(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM hidden_ids WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	return errors.Wrap(err, "deleting hidden ids")
}

// Import

// ImportSnapshot upserts the whole snapshot in a single transaction.
// An event already stored under another stage or category is moved to the end of its new list.
func (repo *timelineRepository) ImportSnapshot(ctx context.Context, snap timeline.Snapshot) error {
	return repo.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, stg := range snap.Stages {
			if err := importStage(ctx, tx, stg); err != nil {
				return errors.Wrapf(err, "importing stage %q", stg.ID)
			}
		}
		for _, extra := range snap.Extras {
			if err := importExtra(ctx, tx, extra); err != nil {
				return errors.Wrapf(err, "importing extra event %q", extra.ID)
			}
		}
		return hideIDs(ctx, tx, snap.Hidden.IDs())
	})
}

func importStage(ctx context.Context, tx *sqlx.Tx, stg timeline.Stage) error {
	exists, err := rowExists(ctx, tx, `SELECT COUNT(*) FROM stages WHERE id = ?`, stg.ID)
	if err != nil {
		return errors.Wrap(err, "checking stage")
	}
	q := `INSERT INTO stages (title, period, id) VALUES (?, ?, ?)`
	if exists {
		q = `UPDATE stages SET title = ?, period = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(q), stg.Title, stg.Period, stg.ID); err != nil {
		return errors.Wrap(err, "saving stage")
	}

	for _, cat := range timeline.Categories {
		for _, evt := range stg.Events(cat) {
			if err = importEvent(ctx, tx, stg.ID, cat, evt); err != nil {
				return errors.Wrapf(err, "importing event %q", evt.ID)
			}
		}
	}
	return nil
}

func importEvent(ctx context.Context, tx *sqlx.Tx, stageID string, cat timeline.Category, evt timeline.Event) error {
	var cur eventRow
	q := tx.Rebind(`SELECT id, stage_id, category, position FROM stage_events WHERE id = ?`)
	err := tx.GetContext(ctx, &cur, q, evt.ID)
	switch {
	case err == sql.ErrNoRows:
		return insertEvent(ctx, tx, stageID, cat, evt)
	case err != nil:
		return errors.Wrap(err, "selecting stage event")
	case cur.StageID == stageID && cur.Category == cat:
		q = tx.Rebind(`UPDATE stage_events SET title = ?, year = ?, description = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`)
		_, err = tx.ExecContext(ctx, q, evt.Title, evt.Year, evt.Description, evt.ID)
		return errors.Wrap(err, "updating stage event")
	}

	pos, err := nextEventPosition(ctx, tx, stageID, cat)
	if err != nil {
		return err
	}
	q = tx.Rebind(`UPDATE stage_events
		SET stage_id = ?, category = ?, position = ?, title = ?, year = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`)
	_, err = tx.ExecContext(ctx, q, stageID, cat, pos, evt.Title, evt.Year, evt.Description, evt.ID)
	return errors.Wrap(err, "moving stage event")
}

func importExtra(ctx context.Context, tx *sqlx.Tx, extra timeline.ExtraEvent) error {
	exists, err := rowExists(ctx, tx, `SELECT COUNT(*) FROM extra_events WHERE id = ?`, extra.ID)
	if err != nil {
		return errors.Wrap(err, "checking extra event")
	}
	if exists {
		return updateExtra(ctx, tx, extra)
	}
	return insertExtra(ctx, tx, extra)
}

// helpers

func nextEventPosition(ctx context.Context, db core.DBExecutor, stageID string, cat timeline.Category) (int, error) {
	var pos int
	q := db.Rebind(`SELECT COALESCE(MAX(position), 0) + 1 FROM stage_events WHERE stage_id = ? AND category = ?`)
	if err := db.GetContext(ctx, &pos, q, stageID, cat); err != nil {
		return 0, errors.Wrap(err, "selecting next position")
	}
	return pos, nil
}

func insertEvent(ctx context.Context, db core.DBExecutor, stageID string, cat timeline.Category, evt timeline.Event) error {
	pos, err := nextEventPosition(ctx, db, stageID, cat)
	if err != nil {
		return err
	}
	q := db.Rebind(`INSERT INTO stage_events (id, stage_id, category, position, title, year, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = db.ExecContext(ctx, q, evt.ID, stageID, cat, pos, evt.Title, evt.Year, evt.Description)
	return errors.Wrap(err, "inserting stage event")
}

func insertExtra(ctx context.Context, db core.DBExecutor, extra timeline.ExtraEvent) error {
	var pos int
	if err := db.GetContext(ctx, &pos, `SELECT COALESCE(MAX(position), 0) + 1 FROM extra_events`); err != nil {
		return errors.Wrap(err, "selecting next position")
	}
	q := db.Rebind(`INSERT INTO extra_events (id, stage_id, category, position, title, year, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := db.ExecContext(ctx, q,
		extra.ID, extra.StageID, extra.Category, pos, extra.Title, extra.Year, extra.Description)
	return errors.Wrap(err, "inserting extra event")
}

func updateExtra(ctx context.Context, db core.DBExecutor, extra timeline.ExtraEvent) error {
	q := db.Rebind(`UPDATE extra_events
		SET stage_id = ?, category = ?, title = ?, year = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`)
	res, err := db.ExecContext(ctx, q,
		extra.StageID, extra.Category, extra.Title, extra.Year, extra.Description, extra.ID)
	return checkAffected(res, err, timeline.ErrEventNotFound)
}

func hideIDs(ctx context.Context, db core.DBExecutor, ids []string) error {
	q := db.Rebind(`INSERT INTO hidden_ids (id) VALUES (?) ON CONFLICT (id) DO NOTHING`)
	for _, id := range ids {
		if _, err := db.ExecContext(ctx, q, id); err != nil {
			return errors.Wrapf(err, "hiding %q", id)
		}
	}
	return nil
}

func rowExists(ctx context.Context, db core.DBExecutor, query string, args ...interface{}) (bool, error) {
	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(query), args...); err != nil {
		return false, err
	}
	return count > 0, nil
}

func checkAffected(res sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
