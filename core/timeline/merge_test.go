package timeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mergeFixture() ([]Stage, []ExtraEvent) {
	stages := []Stage{
		{
			ID:     "stage-1954-1975",
			Period: "1954 - 1975",
			DomesticEvents: []Event{
				{ID: "e4", Title: "Giải phóng miền Nam", Year: "30/04/1975"},
				{ID: "e5", Title: "Đồng Khởi", Year: "1959 - 1960"},
			},
			WorldEvents: []Event{},
		},
		{
			ID:     "stage-1945-1954",
			Period: "1945 - 1954",
			DomesticEvents: []Event{
				{ID: "e1", Title: "Independence Declared", Year: "02/09/1945"},
			},
			WorldEvents: []Event{
				{ID: "w1", Title: "NATO", Year: "1949"},
			},
		},
	}
	extras := []ExtraEvent{
		{Event: Event{ID: "e2", Title: "Dien Bien Phu Victory", Year: "07/05/1954"}, StageID: "stage-1945-1954", Category: Domestic},
		{Event: Event{ID: "w0", Title: "Truman", Year: "03/1947"}, StageID: "stage-1945-1954", Category: World},
		{Event: Event{ID: "x1", Title: "Orphan", Year: "1930"}, StageID: "stage-1930-1945", Category: Domestic},
	}
	return stages, extras
}

func ids(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, evt := range events {
		out = append(out, evt.ID)
	}
	return out
}

func TestMerge(t *testing.T) {
	stages, extras := mergeFixture()
	merged := Merge(stages, extras)

	require.Len(t, merged, 2)
	assert.Equal(t, "stage-1945-1954", merged[0].ID)
	assert.Equal(t, "stage-1954-1975", merged[1].ID)

	assert.Equal(t, []string{"e1", "e2"}, ids(merged[0].DomesticEvents))
	assert.Equal(t, []string{"w0", "w1"}, ids(merged[0].WorldEvents))
	assert.Equal(t, []string{"e5", "e4"}, ids(merged[1].DomesticEvents))
	assert.Empty(t, merged[1].WorldEvents)
}

func TestMerge_doesNotMutate(t *testing.T) {
	stages, extras := mergeFixture()
	wantStages, wantExtras := mergeFixture()

	_ = Merge(stages, extras)

	if diff := cmp.Diff(wantStages, stages); diff != "" {
		t.Errorf("stages mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantExtras, extras); diff != "" {
		t.Errorf("extras mutated (-want +got):\n%s", diff)
	}
}

func TestMerge_idempotent(t *testing.T) {
	stages, extras := mergeFixture()
	once := Merge(stages, extras)
	twice := Merge(once, nil)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("Merge() not idempotent (-once +twice):\n%s", diff)
	}
}

func TestMerge_sorted(t *testing.T) {
	stages, extras := mergeFixture()
	for _, stg := range Merge(stages, extras) {
		for _, cat := range Categories {
			events := stg.Events(cat)
			for i := 1; i < len(events); i++ {
				assert.LessOrEqual(t, events[i-1].DateValue(), events[i].DateValue(), "%s/%s", stg.ID, cat)
			}
		}
	}
}

func TestMerge_stableOnEqualDates(t *testing.T) {
	stages := []Stage{{
		ID: "s",
		DomesticEvents: []Event{
			{ID: "a", Year: "1945"},
			{ID: "undated", Year: "không rõ"},
			{ID: "b", Year: "1945"},
		},
	}}
	extras := []ExtraEvent{{Event: Event{ID: "c", Year: "1945"}, StageID: "s"}}

	merged := Merge(stages, extras)
	assert.Equal(t, []string{"undated", "a", "b", "c"}, ids(merged[0].DomesticEvents))
}

func TestOrphans(t *testing.T) {
	stages, extras := mergeFixture()
	orphans := Orphans(stages, extras)
	require.Len(t, orphans, 1)
	assert.Equal(t, "x1", orphans[0].ID)

	assert.Empty(t, Orphans(stages, extras[:2]))
}

func TestExcludeHidden(t *testing.T) {
	stages, extras := mergeFixture()
	merged := Merge(stages, extras)

	out := ExcludeHidden(merged, NewHiddenSet("stage-1954-1975", "e2", "w1"))
	require.Len(t, out, 1)
	assert.Equal(t, []string{"e1"}, ids(out[0].DomesticEvents))
	assert.Equal(t, []string{"w0"}, ids(out[0].WorldEvents))

	// the input keeps its events
	assert.Equal(t, []string{"e1", "e2"}, ids(merged[0].DomesticEvents))

	assert.Len(t, ExcludeHidden(merged, nil), 2)
}
