package markdown_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gurdaan/agentic-workflow-backend/internal/markdown"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "heading and emphasis",
			source: "# User Story\n\nAs a **user** I want things.",
			want:   []string{"<h1>User Story</h1>", "<strong>user</strong>"},
		},
		{
			name:   "list",
			source: "- first\n- second",
			want:   []string{"<ul>", "<li>first</li>", "<li>second</li>"},
		},
		{
			name:   "gfm table",
			source: "| a | b |\n|---|---|\n| 1 | 2 |",
			want:   []string{"<table>", "<td>1</td>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := markdown.ToHTML(tt.source)
			if err != nil {
				t.Fatalf("ToHTML: %v", err)
			}
			for _, fragment := range tt.want {
				if !strings.Contains(got, fragment) {
					t.Errorf("output missing %q:\n%s", fragment, got)
				}
			}
		})
	}
}

func TestToHTML_Empty(t *testing.T) {
	for _, source := range []string{"", "   ", "\n\t"} {
		got, err := markdown.ToHTML(source)
		if err != nil {
			t.Fatalf("ToHTML(%q): %v", source, err)
		}
		if got != "" {
			t.Errorf("ToHTML(%q) = %q, want empty", source, got)
		}
	}
}

func TestTool_ConvertsMarkdown(t *testing.T) {
	tool := markdown.Tool()

	if tool.Name() != "convert_markdown_to_html" {
		t.Errorf("Name = %q", tool.Name())
	}

	result, err := tool.Invoke(context.Background(), json.RawMessage(`{"markdown_content":"# Title"}`))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	html, ok := result.(string)
	if !ok {
		t.Fatalf("result = %T, want string", result)
	}
	if !strings.Contains(html, "<h1>Title</h1>") {
		t.Errorf("html = %q", html)
	}
}

func TestTool_InvalidArguments(t *testing.T) {
	tool := markdown.Tool()

	if _, err := tool.Invoke(context.Background(), json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected error for invalid arguments")
	}
}
