package timeline

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lichsu/core"
)

var ErrUnknownTopic = errors.New("unknown topic")

// TopicID identifies one of the predefined thematic slices.
type TopicID string

const (
	TopicUnitedNations TopicID = "united-nations"
	TopicColdWar       TopicID = "cold-war"
	TopicASEAN         TopicID = "asean"
	TopicFrenchWar     TopicID = "french-war"
	TopicAmericanWar   TopicID = "american-war"
)

// Topic is a thematic slice of the timeline.
// Keyword topics match titles and descriptions (case-sensitive).
// Range topics match resolved dates within [From, To] of stages whose period contains one of PeriodMarks.
// All matches land in the Slot list of the output stage.
type Topic struct {
	ID          TopicID  `json:"id"`
	Title       string   `json:"title"`
	Slot        Category `json:"slot"`
	Keywords    []string `json:"keywords,omitempty"`
	From        int      `json:"from,omitempty"`
	To          int      `json:"to,omitempty"`
	PeriodMarks []string `json:"periodMarks,omitempty"`
}

func (t Topic) isRange() bool {
	return t.From > 0 || t.To > 0
}

// Topics is the closed set of thematic slices, in display order.
var Topics = []Topic{
	{
		ID:    TopicUnitedNations,
		Title: "Liên Hợp Quốc",
		Slot:  World,
		Keywords: normalizeAll(
			"Liên Hợp Quốc", "Liên hợp quốc", "LHQ", "United Nations", "Hội đồng Bảo an",
		),
	},
	{
		ID:    TopicColdWar,
		Title: "Chiến tranh lạnh",
		Slot:  World,
		Keywords: normalizeAll(
			"Chiến tranh lạnh", "Chiến tranh Lạnh", "Cold War", "NATO", "Vác-sa-va", "Warszawa",
			"Bức tường Berlin", "Liên Xô", "Truman", "Kế hoạch Mác-san",
		),
	},
	{
		ID:    TopicASEAN,
		Title: "ASEAN",
		Slot:  World,
		Keywords: normalizeAll(
			"ASEAN", "Hiệp hội các quốc gia Đông Nam Á", "Hiệp ước Ba-li", "Bali",
		),
	},
	{
		ID:          TopicFrenchWar,
		Title:       "Kháng chiến chống Pháp (1945 - 1954)",
		Slot:        Domestic,
		From:        19450902,
		To:          19540721,
		PeriodMarks: []string{"1945", "1954"},
	},
	{
		ID:          TopicAmericanWar,
		Title:       "Kháng chiến chống Mỹ (1954 - 1975)",
		Slot:        Domestic,
		From:        19540721,
		To:          19750430,
		PeriodMarks: []string{"1954", "1975"},
	},
}

// GetTopic returns the predefined topic with the given id.
func GetTopic(id TopicID) (Topic, error) {
	for _, t := range Topics {
		if t.ID == id {
			return t, nil
		}
	}
	return Topic{}, errors.Wrapf(ErrUnknownTopic, "%q", id)
}

// FilterByTopic returns the stages restricted to the topic's events.
// Every match is moved into the topic's slot; stages without matches are dropped.
func FilterByTopic(stages []Stage, id TopicID) ([]Stage, error) {
	topic, err := GetTopic(id)
	if err != nil {
		return nil, err
	}
	return topic.Filter(stages), nil
}

// Filter applies the topic to the stages.
func (t Topic) Filter(stages []Stage) []Stage {
	out := make([]Stage, 0)
	for _, stg := range stages {
		if t.isRange() && !t.periodMatches(stg.Period) {
			continue
		}

		matches := make([]Event, 0)
		for _, cat := range Categories {
			for _, evt := range stg.Events(cat) {
				if t.matches(evt) {
					matches = append(matches, evt)
				}
			}
		}
		if len(matches) == 0 {
			continue
		}
		// both source lists are sorted but their concatenation is not
		SortEvents(matches)

		view := Stage{ID: stg.ID, Title: stg.Title, Period: stg.Period, DomesticEvents: []Event{}, WorldEvents: []Event{}}
		if t.Slot == World {
			view.WorldEvents = matches
		} else {
			view.DomesticEvents = matches
		}
		out = append(out, view)
	}
	return out
}

func (t Topic) matches(evt Event) bool {
	if t.isRange() {
		v := ResolveDateValue(evt.Year)
		return v >= t.From && v <= t.To
	}
	title := core.NormalizeText(evt.Title)
	desc := core.NormalizeText(evt.Description)
	for _, kw := range t.Keywords {
		if strings.Contains(title, kw) || strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

func (t Topic) periodMatches(period string) bool {
	for _, mark := range t.PeriodMarks {
		if strings.Contains(period, mark) {
			return true
		}
	}
	return false
}

func normalizeAll(keywords ...string) []string {
	out := make([]string, len(keywords))
	for i, kw := range keywords {
		out[i] = core.NormalizeText(kw)
	}
	return out
}
