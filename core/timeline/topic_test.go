package timeline

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func topicFixture() []Stage {
	return Merge([]Stage{
		{
			ID:     "stage-1945-1954",
			Period: "1945 - 1954",
			DomesticEvents: []Event{
				{ID: "d1", Title: "Cách mạng tháng Tám", Year: "19/08/1945"},
				{ID: "d2", Title: "Tuyên ngôn độc lập", Year: "02/09/1945"},
				{ID: "d3", Title: "Hiệp định Giơ-ne-vơ", Year: "21/07/1954"},
				{ID: "d4", Title: "Nhân dân gửi thư tới Liên Hợp Quốc", Year: "1946"},
			},
			WorldEvents: []Event{
				{ID: "w1", Title: "Thành lập NATO", Year: "04/04/1949"},
				{ID: "w2", Title: "Học thuyết Truman", Year: "12/03/1947"},
				{ID: "w3", Title: "Thành lập nato", Year: "1949"},
			},
		},
		{
			ID:     "stage-1975-2000",
			Period: "1975 - 2000",
			DomesticEvents: []Event{
				{ID: "d5", Title: "Gia nhập ASEAN", Year: "28/07/1995"},
				{ID: "d6", Title: "Thống nhất", Year: "1976", Description: "tham gia Liên Hợp Quốc năm 1977"},
			},
			WorldEvents: []Event{
				{ID: "w4", Title: "Hiệp ước Ba-li", Year: "1976"},
			},
		},
	}, nil)
}

func TestFilterByTopic(t *testing.T) {
	tests := []struct {
		topic    TopicID
		want     map[string][]string // stage id: slot event ids
		wantSlot Category
	}{
		{
			topic:    TopicColdWar,
			want:     map[string][]string{"stage-1945-1954": {"w2", "w1"}},
			wantSlot: World,
		},
		{
			topic: TopicUnitedNations,
			want: map[string][]string{
				"stage-1945-1954": {"d4"},
				"stage-1975-2000": {"d6"},
			},
			wantSlot: World,
		},
		{
			topic:    TopicASEAN,
			want:     map[string][]string{"stage-1975-2000": {"w4", "d5"}},
			wantSlot: World,
		},
		{
			topic:    TopicFrenchWar,
			want:     map[string][]string{"stage-1945-1954": {"d2", "d4", "w2", "w3", "w1", "d3"}},
			wantSlot: Domestic,
		},
		{
			topic:    TopicAmericanWar,
			want:     map[string][]string{"stage-1945-1954": {"d3"}},
			wantSlot: Domestic,
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			out, err := FilterByTopic(topicFixture(), tt.topic)
			require.NoError(t, err)

			got := make(map[string][]string)
			for _, stg := range out {
				other := stg.DomesticEvents
				if tt.wantSlot == Domestic {
					other = stg.WorldEvents
				}
				assert.Empty(t, other, "%s: events outside the slot", stg.ID)
				got[stg.ID] = ids(stg.Events(tt.wantSlot))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterByTopic_periodMustMatch(t *testing.T) {
	stages := []Stage{{
		ID:             "stage-1930-1945",
		Period:         "1930 - 1944",
		DomesticEvents: []Event{{ID: "d1", Title: "Tuyên ngôn độc lập", Year: "02/09/1945"}},
	}}
	out, err := FilterByTopic(stages, TopicFrenchWar)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFilterByTopic_unknown(t *testing.T) {
	_, err := FilterByTopic(topicFixture(), "khong-ton-tai")
	assert.True(t, errors.Is(err, ErrUnknownTopic))

	_, err = GetTopic("")
	assert.True(t, errors.Is(err, ErrUnknownTopic))
}

func TestTopics(t *testing.T) {
	seen := make(map[TopicID]bool)
	for _, topic := range Topics {
		assert.False(t, seen[topic.ID], "duplicate topic %q", topic.ID)
		seen[topic.ID] = true
		assert.True(t, topic.Slot.Valid())
		assert.True(t, topic.isRange() != (len(topic.Keywords) > 0), "%q must use keywords or a range", topic.ID)
	}
}
