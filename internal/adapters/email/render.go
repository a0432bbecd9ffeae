package email

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// mdRenderer keeps messages as paragraphs. Only emphasis, code spans and links are
// recognised; headings, lists and raw HTML are not parsed, so "<", "#" and "1." stay text.
var mdRenderer = goldmark.New(
	goldmark.WithParser(parser.NewParser(
		parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
		parser.WithInlineParsers(
			util.Prioritized(parser.NewCodeSpanParser(), 100),
			util.Prioritized(parser.NewLinkParser(), 200),
			util.Prioritized(parser.NewEmphasisParser(), 500),
		),
		parser.WithParagraphTransformers(parser.DefaultParagraphTransformers()...),
	)),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderHTML turns a notification message into the email body.
// A single plain line renders as one paragraph: "Class starts soon" becomes "<p>Class starts soon</p>".
// PRE: none
// POST: Returns HTML in which every character of message survives, with markup escaped
func RenderHTML(message string) string {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(message), &buf); err != nil || strings.TrimSpace(buf.String()) == "" {
		return "<p>" + html.EscapeString(message) + "</p>"
	}
	return strings.TrimSpace(buf.String())
}
