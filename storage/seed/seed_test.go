package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lichsu/core/timeline"
	testutil "github.com/trezcool/lichsu/tests"
)

func TestDefault(t *testing.T) {
	snap, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, snap.Stages)

	stages := timeline.Merge(snap.Stages, snap.Extras)
	var found bool
	for _, stg := range stages {
		if stg.ID != "stage-1945-1954" {
			continue
		}
		found = true
		require.GreaterOrEqual(t, len(stg.DomesticEvents), 2)
		ids := make([]string, 0, len(stg.DomesticEvents))
		for _, evt := range stg.DomesticEvents {
			ids = append(ids, evt.ID)
		}
		// Independence Declared comes before Dien Bien Phu Victory
		assert.Less(t, indexOf(ids, "e1"), indexOf(ids, "e2"))
	}
	assert.True(t, found, "stage-1945-1954 not seeded")

	for _, stg := range snap.Stages {
		for _, cat := range timeline.Categories {
			for _, evt := range stg.Events(cat) {
				assert.NotEmpty(t, evt.ID, "%s: %q has no id", stg.ID, evt.Title)
			}
		}
	}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"data/stages.yaml": {Data: []byte(`
- id: s1
  title: Stage one
  period: 1945 - 1954
  domesticEvents:
    - title: Numeric year
      year: 1946
    - id: keep
      title: Keeps its id
      date: 02/09/1945
  worldEvents:
    - title: World
      year: "1950"
      desc: short description
- title: no id, skipped
- just a string
`)},
		"data/extra_events.yaml": {Data: []byte(`
- title: Extra
  year: 07/05/1954
  targetStage: s1
  type: domestic
- id: x2
  title: Extra world
  year: 1947
  stageId: s1
  category: thế giới
`)},
		"data/hidden.yaml": {Data: []byte(`
- keep
- id: x2
- ""
`)},
	}

	got, err := LoadFS(fsys, "data")
	require.NoError(t, err)

	want := timeline.Snapshot{
		Stages: []timeline.Stage{{
			ID:     "s1",
			Title:  "Stage one",
			Period: "1945 - 1954",
			DomesticEvents: []timeline.Event{
				{ID: "s1-domestic-1", Title: "Numeric year", Year: "1946"},
				{ID: "keep", Title: "Keeps its id", Year: "02/09/1945"},
			},
			WorldEvents: []timeline.Event{
				{ID: "s1-world-1", Title: "World", Year: "1950", Description: "short description"},
			},
		}},
		Extras: []timeline.ExtraEvent{
			{
				Event:    timeline.Event{ID: "extra-1", Title: "Extra", Year: "07/05/1954"},
				StageID:  "s1",
				Category: timeline.Domestic,
			},
			{
				Event:    timeline.Event{ID: "x2", Title: "Extra world", Year: "1947"},
				StageID:  "s1",
				Category: timeline.World,
			},
		},
		Hidden: timeline.NewHiddenSet("keep", "x2"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadFS() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFS_missingFiles(t *testing.T) {
	got, err := LoadFS(fstest.MapFS{}, ".")
	require.NoError(t, err)
	assert.Empty(t, got.Stages)
	assert.Empty(t, got.Extras)
	assert.Empty(t, got.Hidden)
}

func TestLoadFS_invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{name: "stages not a list", file: StagesFile, data: "id: s1"},
		{name: "broken yaml", file: ExtrasFile, data: "- [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(fstest.MapFS{tt.file: {Data: []byte(tt.data)}}, ".")
			if err == nil {
				t.Errorf("LoadFS() error = nil, want an error")
			}
		})
	}
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	write(StagesFile, "- id: s1\n  title: one\n")

	reloaded := make(chan timeline.Snapshot, 4)
	w := NewWatcher(dir, testutil.NewLogger(t), func(snap timeline.Snapshot) { reloaded <- snap }).
		WithDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	write("notes.txt", "ignored")
	write(StagesFile, "- id: s1\n  title: one\n- id: s2\n  title: two\n")

	select {
	case snap := <-reloaded:
		assert.Len(t, snap.Stages, 2)
	case err := <-done:
		t.Fatalf("Run() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not reload the seed directory")
	}
}

func TestWatcher_Run_missingDir(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), testutil.NewLogger(t), func(timeline.Snapshot) {})
	if err := w.Run(context.Background()); err == nil {
		t.Errorf("Run() error = nil, want an error")
	}
}
