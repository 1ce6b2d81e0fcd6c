// Package validation holds field predicates shared by the domain records.
package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nidhogg/skillbook/internal/domainerr"
)

// InvalidNameChars may not appear anywhere in a name.
var InvalidNameChars = []string{
	":", "#", "/", "|", "_", "%", "<", ">", "[", "]", "{", "}",
	"\ufffd", "\\", "\u007f", "\u0080", "\u0085", "\u009f", "\u00a0", "\u00ad",
}

var adjacentSpaceRe = regexp.MustCompile(`\s\s+`)

// RequireValidName checks name is a display name fit for the field label.
func RequireValidName(name, label string, allowEmpty bool) error {
	if name == "" {
		if allowEmpty {
			return nil
		}
		return domainerr.Validationf("%s field should not be empty.", label)
	}
	first, _ := utf8.DecodeRuneInString(name)
	last, _ := utf8.DecodeLastRuneInString(name)
	if unicode.IsSpace(first) || unicode.IsSpace(last) {
		return domainerr.Validationf("Names should not start or end with whitespace.")
	}
	if adjacentSpaceRe.MatchString(name) {
		return domainerr.Validationf("Adjacent whitespace in %s should be collapsed.", label)
	}
	for _, c := range InvalidNameChars {
		if strings.Contains(name, c) {
			return domainerr.Validationf("Invalid character %s in %s: %s", c, label, name)
		}
	}
	return nil
}
