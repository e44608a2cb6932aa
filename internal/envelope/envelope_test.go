package envelope_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gurdaan/agentic-workflow-backend/internal/envelope"
)

func TestNormalize_FencedJSON(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"content\": \"hi\", \"metadata\": {\"userstory\": true}}\n```"

	env := envelope.Normalize(raw)

	if env.Content != "hi" {
		t.Errorf("Content = %q", env.Content)
	}
	if !env.Metadata.UserStory {
		t.Error("UserStory = false, want true")
	}
	if env.Metadata.TestCase || env.Metadata.DevTask || env.Metadata.NeedsClarification || env.Metadata.NeedsSaveConfirmation {
		t.Errorf("unset flags should default to false, got %+v", env.Metadata)
	}
}

func TestNormalize_UnlabeledFence(t *testing.T) {
	raw := "```\n{\"content\": \"done\", \"metadata\": {\"devtask\": true}}\n```"

	env := envelope.Normalize(raw)

	if env.Content != "done" {
		t.Errorf("Content = %q", env.Content)
	}
	if !env.Metadata.DevTask {
		t.Error("DevTask = false, want true")
	}
}

func TestNormalize_WholeStringJSON(t *testing.T) {
	raw := `{"content": "the answer", "metadata": {"needs_clarification": true}}`

	env := envelope.Normalize(raw)

	if env.Content != "the answer" {
		t.Errorf("Content = %q", env.Content)
	}
	if !env.Metadata.NeedsClarification {
		t.Error("NeedsClarification = false, want true")
	}
}

func TestNormalize_BareObjectInProse(t *testing.T) {
	raw := `Sure thing: {"content": "created"} let me know if you need more.`

	env := envelope.Normalize(raw)

	if env.Content != "created" {
		t.Errorf("Content = %q", env.Content)
	}
}

func TestNormalize_PlainTextFallsBackToClassification(t *testing.T) {
	raw := "As a user, I want to log in so that I can see my dashboard."

	env := envelope.Normalize(raw)

	if env.Content != raw {
		t.Errorf("Content = %q, want original text", env.Content)
	}
	if !env.Metadata.UserStory {
		t.Error("UserStory = false, want true")
	}
	if env.Metadata.TestCase || env.Metadata.DevTask {
		t.Errorf("unexpected flags set: %+v", env.Metadata)
	}
}

func TestNormalize_NilReply(t *testing.T) {
	env := envelope.Normalize(nil)

	if env.Content != "No response received" {
		t.Errorf("Content = %q", env.Content)
	}
	if env.Metadata != (envelope.Metadata{}) {
		t.Errorf("Metadata = %+v, want all false", env.Metadata)
	}
}

func TestNormalize_NonBooleanFlagsDefaultFalse(t *testing.T) {
	raw := `{"content": "x", "metadata": {"userstory": "yes", "testcase": 1}}`

	env := envelope.Normalize(raw)

	if env.Metadata.UserStory || env.Metadata.TestCase {
		t.Errorf("non-boolean flags should be false, got %+v", env.Metadata)
	}
}

func TestStringify_PartList(t *testing.T) {
	raw := []any{
		map[string]any{"content": "first"},
		"second",
		map[string]any{"kind": "other"},
	}

	text := envelope.Stringify(raw)

	lines := strings.Split(text, "\n")
	if lines[0] != "first" || lines[1] != "second" {
		t.Errorf("lines = %q", lines)
	}
	if !strings.Contains(text, `"kind": "other"`) {
		t.Errorf("contentless part should serialize as JSON, got %q", text)
	}
}

func TestStringify_MapWithContentKey(t *testing.T) {
	raw := map[string]any{"content": "inner", "extra": 1}

	if got := envelope.Stringify(raw); got != "inner" {
		t.Errorf("Stringify = %q", got)
	}
}

func TestMetadata_SerializesAllFiveKeys(t *testing.T) {
	b, err := json.Marshal(envelope.Metadata{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	for _, key := range []string{"userstory", "testcase", "devtask", "needs_clarification", "needs_save_confirmation"} {
		if !strings.Contains(string(b), `"`+key+`"`) {
			t.Errorf("serialized metadata missing %q: %s", key, b)
		}
	}
}

func TestClassify_Flags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want envelope.Metadata
	}{
		{
			name: "test case",
			text: "Given a logged-in user, when they open settings, then preferences load.",
			want: envelope.Metadata{TestCase: true},
		},
		{
			name: "dev task",
			text: "Development task breakdown for the login feature.",
			want: envelope.Metadata{DevTask: true},
		},
		{
			name: "clarification",
			text: "Could you please provide the project name?",
			want: envelope.Metadata{NeedsClarification: true},
		},
		{
			name: "save confirmation",
			text: "Should I create the work item in the project?",
			want: envelope.Metadata{NeedsSaveConfirmation: true},
		},
		{
			name: "no match",
			text: "Hello! How can I help today?",
			want: envelope.Metadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := envelope.Classify(tt.text)
			if env.Metadata != tt.want {
				t.Errorf("Metadata = %+v, want %+v", env.Metadata, tt.want)
			}
			if env.Content != tt.text {
				t.Errorf("Content = %q, want original text", env.Content)
			}
		})
	}
}

func TestExtractJSON_StrippedFences(t *testing.T) {
	raw := "```json\n{\"content\": \"salvaged\", \"metadata\": {}}"

	obj, ok := envelope.ExtractJSON(raw)
	if !ok {
		t.Fatal("ExtractJSON failed")
	}
	if obj["content"] != "salvaged" {
		t.Errorf("content = %v", obj["content"])
	}
}

func TestExtractJSON_NoObject(t *testing.T) {
	if _, ok := envelope.ExtractJSON("just plain prose"); ok {
		t.Error("expected no extraction from plain prose")
	}
}
