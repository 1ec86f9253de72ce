// Package richtext converts HTML or markdown input into the structured
// document format that comments are stored in. Conversion is a pure function
// with no I/O.
package richtext

import (
	"regexp"
	"strings"

	"github.com/forecastlabs/commentd/internal/domain"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	blockTagRe   = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|blockquote)>|<br\s*/?>`)
	mdHeadingRe  = regexp.MustCompile(`^#{1,6}\s+`)
	mdEmphasisRe = regexp.MustCompile(`(\*\*|__|\*|_|` + "`" + `)`)
	mdLinkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

// ToDocument converts html or markdown into a Document. When both are given,
// html wins. Returns nil when neither input yields any content.
func ToDocument(html, markdown string) *domain.Document {
	var paragraphs []string
	switch {
	case strings.TrimSpace(html) != "":
		paragraphs = htmlParagraphs(html)
	case strings.TrimSpace(markdown) != "":
		paragraphs = markdownParagraphs(markdown)
	}
	if len(paragraphs) == 0 {
		return nil
	}

	doc := &domain.Document{Type: "doc"}
	for _, p := range paragraphs {
		doc.Content = append(doc.Content, domain.Document{
			Type:    "paragraph",
			Content: []domain.Document{{Type: "text", Text: p}},
		})
	}
	return doc
}

// htmlParagraphs splits HTML on block-level boundaries and strips all
// remaining tags, leaving one string per paragraph.
func htmlParagraphs(html string) []string {
	blocks := blockTagRe.Split(html, -1)
	var out []string
	for _, b := range blocks {
		text := strings.TrimSpace(unescape(tagRe.ReplaceAllString(b, "")))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

// markdownParagraphs splits markdown on blank lines and strips inline
// formatting markers, keeping the readable text.
func markdownParagraphs(markdown string) []string {
	blocks := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n\n")
	var out []string
	for _, b := range blocks {
		lines := strings.Split(b, "\n")
		var cleaned []string
		for _, line := range lines {
			line = mdHeadingRe.ReplaceAllString(line, "")
			line = strings.TrimPrefix(line, "> ")
			line = strings.TrimPrefix(line, "- ")
			line = strings.TrimPrefix(line, "* ")
			line = mdLinkRe.ReplaceAllString(line, "$1")
			line = mdEmphasisRe.ReplaceAllString(line, "")
			line = strings.TrimSpace(line)
			if line != "" {
				cleaned = append(cleaned, line)
			}
		}
		if len(cleaned) > 0 {
			out = append(out, strings.Join(cleaned, " "))
		}
	}
	return out
}

var unescaper = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

func unescape(s string) string {
	return unescaper.Replace(s)
}
