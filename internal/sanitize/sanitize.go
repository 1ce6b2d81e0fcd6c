// Package sanitize cleans user supplied HTML before it enters a skill.
package sanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Rich-text components are stored as custom elements carrying JSON-encoded
// "-with-value" attributes.
var components = map[string][]string{
	"oppia-noninteractive-image": {"filepath-with-value", "alt-with-value", "caption-with-value"},
	"oppia-noninteractive-link":  {"url-with-value", "text-with-value"},
	"oppia-noninteractive-math":  {"math_content-with-value"},
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func contentPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		for elem, attrs := range components {
			p.AllowElements(elem)
			p.AllowAttrs(attrs...).OnElements(elem)
		}
		policy = p
	})
	return policy
}

// Clean returns html with every disallowed element and attribute removed.
// Clean is idempotent.
func Clean(html string) string {
	if html == "" {
		return ""
	}
	return contentPolicy().Sanitize(html)
}
