package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearDuplicates(t *testing.T) {
	stages := []Stage{
		{
			ID: "stage-1945-1954",
			DomesticEvents: []Event{
				{ID: "e3", Title: "Toàn quốc kháng chiến", Year: "19/12/1946"},
				{ID: "e3-bis", Title: "Toàn quốc kháng chiến!", Year: "1946"},
				{ID: "e5", Title: "Chiến dịch Việt Bắc", Year: "1947"},
			},
			WorldEvents: []Event{
				{ID: "w1", Title: "Toàn quốc kháng chiến", Year: "1946"},
			},
		},
		{
			ID:             "stage-1954-1975",
			DomesticEvents: []Event{{ID: "e6", Title: "Toàn quốc kháng chiến", Year: "1960"}},
		},
	}

	pairs := NearDuplicates(stages, DefaultDuplicateThreshold)
	require.Len(t, pairs, 1)
	assert.Equal(t, "stage-1945-1954", pairs[0].StageID)
	assert.Equal(t, Domestic, pairs[0].Category)
	assert.Equal(t, "e3", pairs[0].First.ID)
	assert.Equal(t, "e3-bis", pairs[0].Second.ID)
	assert.InDelta(t, 42.0/43.0, pairs[0].Ratio, 1e-9)

	assert.Empty(t, NearDuplicates(stages, 1))
	assert.NotNil(t, NearDuplicates(nil, DefaultDuplicateThreshold))
}

func Test_titleRatio(t *testing.T) {
	assert.Equal(t, 1.0, titleRatio("NATO", " nato "))
	assert.Zero(t, titleRatio("", "NATO"))
	assert.Less(t, titleRatio("Thành lập NATO", "Thành lập ASEAN"), DefaultDuplicateThreshold)
}
