package timeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trezcool/lichsu/core"
)

// Document is a loosely typed record as exported by a document store (JSON or YAML).
type Document = map[string]interface{}

// DecodeStage converts a document into a Stage. Missing or mistyped fields default to empty values
// and the id is made canonical.
func DecodeStage(doc Document) Stage {
	return Stage{
		ID:             CleanStageID(str(doc, "id")),
		Title:          core.NormalizeText(str(doc, "title")),
		Period:         str(doc, "period"),
		DomesticEvents: decodeEvents(doc["domesticEvents"]),
		WorldEvents:    decodeEvents(doc["worldEvents"]),
	}
}

// DecodeEvent converts a document into an Event. A numeric year (1945) becomes its text.
func DecodeEvent(doc Document) Event {
	return Event{
		ID:          str(doc, "id"),
		Title:       core.NormalizeText(str(doc, "title")),
		Year:        str(doc, "year", "date"),
		Description: core.NormalizeText(str(doc, "description", "desc")),
	}
}

// DecodeExtraEvent converts a supplementary document. The stage reference is read from
// stageId, targetStage or stage; the category from category or type.
func DecodeExtraEvent(doc Document) ExtraEvent {
	return ExtraEvent{
		Event:    DecodeEvent(doc),
		StageID:  CleanStageID(str(doc, "stageId", "targetStage", "stage")),
		Category: ParseCategory(str(doc, "category", "type")),
	}
}

// DecodeHiddenIDs accepts a list of ids or a list of documents holding an id.
func DecodeHiddenIDs(v interface{}) HiddenSet {
	hs := HiddenSet{}
	list, _ := v.([]interface{})
	for _, item := range list {
		var id string
		switch it := item.(type) {
		case map[string]interface{}:
			id = str(it, "id")
		default:
			id = scalar(it)
		}
		if id = strings.TrimSpace(id); id != "" {
			hs[id] = struct{}{}
		}
	}
	return hs
}

func decodeEvents(v interface{}) []Event {
	list, _ := v.([]interface{})
	events := make([]Event, 0, len(list))
	for _, item := range list {
		if doc, ok := item.(map[string]interface{}); ok {
			events = append(events, DecodeEvent(doc))
		}
	}
	return events
}

// str returns the first present key of doc as trimmed text.
func str(doc Document, keys ...string) string {
	for _, key := range keys {
		if v, ok := doc[key]; ok && v != nil {
			return strings.TrimSpace(scalar(v))
		}
	}
	return ""
}

func scalar(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case map[string]interface{}, []interface{}:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
