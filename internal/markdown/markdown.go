// Package markdown converts markdown text to HTML for external systems
// that render rich-text fields, such as Azure Boards descriptions.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var converter = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// ToHTML renders markdown as HTML. Empty or whitespace-only input yields an
// empty string.
func ToHTML(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := converter.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}
