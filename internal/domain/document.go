package domain

import "encoding/json"

// MaxCommentJSONLength bounds the serialized size of a comment document.
// Anything larger is rejected before it reaches storage.
const MaxCommentJSONLength = 20000

// Document is a structured rich-text document: a tree of typed nodes, each
// optionally carrying text, attributes, and child nodes. It is stored and
// broadcast verbatim as JSON.
type Document struct {
	Type    string         `json:"type,omitempty"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Document     `json:"content,omitempty"`
}

// SerializedLen returns the length of the document's JSON encoding, which is
// what the size limit is measured against.
func (d *Document) SerializedLen() int {
	if d == nil {
		return 0
	}
	data, err := json.Marshal(d)
	if err != nil {
		return 0
	}
	return len(data)
}

// TextDocument builds a minimal document wrapping a single paragraph of plain
// text.
func TextDocument(text string) *Document {
	return &Document{
		Type: "doc",
		Content: []Document{
			{
				Type:    "paragraph",
				Content: []Document{{Type: "text", Text: text}},
			},
		},
	}
}
