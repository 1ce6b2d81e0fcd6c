// Package content tracks translatable HTML blocks by content id and keeps the
// voiceover and translation maps aligned with the live set of ids.
package content

import (
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/sanitize"
)

// SubtitledHTML is an HTML fragment tagged with a content id.
type SubtitledHTML struct {
	ContentID string `json:"content_id"`
	HTML      string `json:"html"`
}

// NewSubtitledHTML builds a block with cleaned html.
func NewSubtitledHTML(contentID, html string) SubtitledHTML {
	return SubtitledHTML{ContentID: contentID, HTML: sanitize.Clean(html)}
}

// Validate checks the block is addressable.
func (s SubtitledHTML) Validate() error {
	if s.ContentID == "" {
		return domainerr.Validationf("Expected content id to be a non-empty string, received %q", s.ContentID)
	}
	return nil
}

// IDs returns the content ids of blocks in order.
func IDs(blocks ...SubtitledHTML) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.ContentID)
	}
	return out
}
