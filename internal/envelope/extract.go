package envelope

import (
	"encoding/json"
	"regexp"
	"strings"
)

// extractor attempts to pull a JSON object out of free text.
// Implementations are pure and independently testable.
type extractor func(text string) (map[string]any, bool)

// extraction strategies, evaluated in order; first success wins.
var extractors = []extractor{
	patternExtractor(labeledFencePattern),
	patternExtractor(anyFencePattern),
	patternExtractor(bareContentPattern),
	patternExtractor(bareMetadataPattern),
	wholeString,
	strippedFences,
}

var (
	labeledFencePattern = regexp.MustCompile("(?is)```json\\s*(\\{.*?\\})\\s*```")
	anyFencePattern     = regexp.MustCompile("(?is)```\\s*(\\{.*?\\})\\s*```")
	bareContentPattern  = regexp.MustCompile(`(?is)(\{[^{}]*"content"[^{}]*\})`)
	bareMetadataPattern = regexp.MustCompile(`(?is)(\{.*?"metadata".*?\})`)

	fenceMarkers = regexp.MustCompile("(?i)```json\\s*|\\s*```")
)

// ExtractJSON tries each extraction strategy against the text and returns
// the first JSON object that parses. Parse failures at any step are
// swallowed and the next strategy attempted.
func ExtractJSON(text string) (map[string]any, bool) {
	for _, extract := range extractors {
		if obj, ok := extract(text); ok {
			return obj, true
		}
	}
	return nil, false
}

// patternExtractor builds an extractor from a regex whose first capture
// group is a candidate JSON object.
func patternExtractor(re *regexp.Regexp) extractor {
	return func(text string) (map[string]any, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return nil, false
		}
		return parseObject(m[1])
	}
}

// wholeString parses the entire trimmed text when it looks like an object.
func wholeString(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, false
	}
	return parseObject(trimmed)
}

// strippedFences removes fence markers heuristically and retries a
// whole-string parse.
func strippedFences(text string) (map[string]any, bool) {
	return wholeString(fenceMarkers.ReplaceAllString(text, ""))
}

func parseObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	if obj == nil {
		return nil, false
	}
	return obj, true
}
