package site

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown renders notice contents. Raw HTML in the source is not rendered.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderMarkdown converts a notice's Markdown content to HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", errors.Wrap(err, "rendering markdown")
	}
	return buf.String(), nil
}

// RenderedNotice is a Notice along with its HTML content.
type RenderedNotice struct {
	Notice
	ContentHTML string `json:"contentHtml"`
}

// RenderNotices renders the content of every notice, keeping their order.
func RenderNotices(notices []Notice) ([]RenderedNotice, error) {
	rendered := make([]RenderedNotice, 0, len(notices))
	for _, n := range notices {
		content, err := RenderMarkdown(n.Content)
		if err != nil {
			return nil, errors.Wrap(err, "notice "+n.ID)
		}
		rendered = append(rendered, RenderedNotice{Notice: n, ContentHTML: content})
	}
	return rendered, nil
}
