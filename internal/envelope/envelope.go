// Package envelope normalizes raw model replies into the canonical
// {content, metadata} envelope returned to API callers.
//
// The pipeline is total: for any input it terminates with a well-formed
// envelope and never returns an error. Replies of unpredictable shape
// (plain text, part lists, object maps, free text with embedded JSON) are
// reduced through an ordered chain of strategies, first success wins.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
)

// placeholder returned for a nil reply.
const noResponse = "No response received"

// Metadata carries the five fixed classification flags. All five keys are
// always present in serialized form.
type Metadata struct {
	UserStory             bool `json:"userstory"`
	TestCase              bool `json:"testcase"`
	DevTask               bool `json:"devtask"`
	NeedsClarification    bool `json:"needs_clarification"`
	NeedsSaveConfirmation bool `json:"needs_save_confirmation"`
}

// Envelope is the canonical result of processing one query.
type Envelope struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Normalize converts an arbitrarily shaped model reply into an Envelope.
func Normalize(raw any) Envelope {
	text := Stringify(raw)

	if obj, ok := ExtractJSON(text); ok {
		return fromObject(obj, text)
	}

	return Classify(text)
}

// Stringify reduces any reply shape to text. It never fails; a nil reply
// becomes a fixed placeholder and serialization problems are converted into
// a diagnostic string.
func Stringify(raw any) string {
	switch v := raw.(type) {
	case nil:
		return noResponse

	case string:
		return v

	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			switch it := item.(type) {
			case map[string]any:
				if content, ok := it["content"]; ok {
					items = append(items, fmt.Sprint(content))
				} else {
					items = append(items, prettyJSON(it))
				}
			case string:
				items = append(items, it)
			default:
				items = append(items, fmt.Sprint(it))
			}
		}
		return strings.Join(items, "\n")

	case map[string]any:
		if content, ok := v["content"]; ok {
			return Stringify(content)
		}
		return prettyJSON(v)

	default:
		return fmt.Sprint(v)
	}
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error processing content: %v", err)
	}
	return string(b)
}

// fromObject builds an Envelope from an extracted JSON object, filling in
// defaults so the five metadata keys are always present.
func fromObject(obj map[string]any, fallback string) Envelope {
	var e Envelope

	if content, ok := obj["content"]; ok {
		e.Content = Stringify(content)
	} else {
		e.Content = fallback
	}

	meta, _ := obj["metadata"].(map[string]any)
	e.Metadata = Metadata{
		UserStory:             boolValue(meta, "userstory"),
		TestCase:              boolValue(meta, "testcase"),
		DevTask:               boolValue(meta, "devtask"),
		NeedsClarification:    boolValue(meta, "needs_clarification"),
		NeedsSaveConfirmation: boolValue(meta, "needs_save_confirmation"),
	}

	return e
}

// boolValue reads a flag from a metadata map, defaulting absent or
// non-boolean values to false.
func boolValue(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}
