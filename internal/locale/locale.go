// Package locale answers whether a language code is one this deployment
// accepts for skill content and its translations.
package locale

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/text/language"
)

// DefaultLanguageCode is the language a new skill is written in.
const DefaultLanguageCode = "en"

// DefaultSupported lists the content languages accepted when no
// configuration overrides them.
var DefaultSupported = []string{
	"ar", "bg", "bn", "ca", "cs", "da", "de", "el", "en", "es", "fa", "fi",
	"fr", "he", "hi", "hr", "hu", "id", "it", "ja", "kab", "ko", "lt", "lv",
	"mk", "nl", "no", "pa", "pl", "prs", "pt", "pt-BR", "ro", "ru", "sk",
	"sl", "sq", "sr", "sv", "sw", "th", "tr", "uk", "vi", "zh",
}

// Checker validates language codes against a fixed set.
type Checker struct {
	supported map[string]struct{}
}

// NewChecker builds a Checker from BCP 47 codes. Every code must parse.
func NewChecker(codes []string) (*Checker, error) {
	c := &Checker{supported: make(map[string]struct{}, len(codes))}
	for _, code := range codes {
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("parse language code %q: %w", code, err)
		}
		c.supported[tag.String()] = struct{}{}
	}
	return c, nil
}

// IsValid reports whether code parses and is in the supported set.
func (c *Checker) IsValid(code string) bool {
	if code == "" {
		return false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return false
	}
	_, ok := c.supported[tag.String()]
	return ok
}

// Codes returns the supported set in canonical form.
func (c *Checker) Codes() []string {
	out := make([]string, 0, len(c.supported))
	for code := range c.supported {
		out = append(out, code)
	}
	return out
}

var current atomic.Pointer[Checker]

func init() {
	c, err := NewChecker(DefaultSupported)
	if err != nil {
		panic(err)
	}
	current.Store(c)
}

// SetSupported replaces the process-wide supported set.
func SetSupported(codes []string) error {
	c, err := NewChecker(codes)
	if err != nil {
		return err
	}
	current.Store(c)
	return nil
}

// IsValid checks code against the process-wide supported set.
func IsValid(code string) bool {
	return current.Load().IsValid(code)
}
