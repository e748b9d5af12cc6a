package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap/zaptest"

	"github.com/trezcool/lichsu/core"
	"github.com/trezcool/lichsu/core/timeline"
	logsvc "github.com/trezcool/lichsu/services/logger"
	"github.com/trezcool/lichsu/storage/database"
	inmemdb "github.com/trezcool/lichsu/storage/database/inmem"
	sqlxrepos "github.com/trezcool/lichsu/storage/database/sqlx"
)

// NewLogger returns a logger writing to the test log. Rollbar is disabled.
func NewLogger(t *testing.T) core.Logger {
	t.Helper()
	l := logsvc.NewRollbarLogger(zaptest.NewLogger(t).Sugar(), core.NewTestConfig())
	l.Enable(false)
	return l
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	timeline.InitValidators(validate, translator)
	return validate, translator
}

// OpenDB opens a migrated in-memory database, closed when the test ends.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Setup(context.Background(), core.NewTestConfig())
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewService returns a timeline service backed by a fresh in-memory database.
func NewService(t *testing.T) *timeline.Service {
	t.Helper()
	validate, _ := NewValidator()
	repo := sqlxrepos.NewTimelineRepository(OpenDB(t))
	return timeline.NewService(repo, timeline.NewProjector(), validate)
}

// NewMemService returns a timeline service backed by an in-memory repository.
func NewMemService(t *testing.T) *timeline.Service {
	t.Helper()
	validate, _ := NewValidator()
	return timeline.NewService(inmemdb.NewTimelineRepository(), timeline.NewProjector(), validate)
}

// Fixture is a small timeline covering both categories, an extra event and an orphan.
func Fixture() timeline.Snapshot {
	return timeline.Snapshot{
		Stages: []timeline.Stage{
			{
				ID:     "stage-1945-1954",
				Title:  "Kháng chiến chống thực dân Pháp",
				Period: "1945 - 1954",
				DomesticEvents: []timeline.Event{
					{ID: "e1", Title: "Independence Declared", Year: "02/09/1945"},
					{ID: "e3", Title: "Toàn quốc kháng chiến", Year: "19/12/1946"},
				},
				WorldEvents: []timeline.Event{
					{ID: "w1", Title: "Thành lập NATO", Year: "04/04/1949"},
				},
			},
			{
				ID:     "stage-1954-1975",
				Title:  "Kháng chiến chống Mỹ cứu nước",
				Period: "1954 - 1975",
				DomesticEvents: []timeline.Event{
					{ID: "e4", Title: "Giải phóng hoàn toàn miền Nam", Year: "30/04/1975"},
				},
				WorldEvents: []timeline.Event{
					{ID: "w2", Title: "Thành lập ASEAN", Year: "08/08/1967"},
				},
			},
		},
		Extras: []timeline.ExtraEvent{
			{
				Event:    timeline.Event{ID: "e2", Title: "Dien Bien Phu Victory", Year: "07/05/1954"},
				StageID:  "stage-1945-1954",
				Category: timeline.Domestic,
			},
			{
				Event:    timeline.Event{ID: "x-orphan", Title: "Sự kiện mồ côi", Year: "1930"},
				StageID:  "stage-1930-1945",
				Category: timeline.World,
			},
		},
		Hidden: timeline.HiddenSet{},
	}
}

// SeedFixture imports Fixture into svc.
func SeedFixture(t *testing.T, svc *timeline.Service) {
	t.Helper()
	if err := svc.Import(context.Background(), Fixture()); err != nil {
		t.Fatalf("SeedFixture() failed: %v", err)
	}
}
