package content

import (
	"strings"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/locale"
	"github.com/nidhogg/skillbook/internal/sanitize"
)

// WrittenTranslation is a translated rendition of one content block.
type WrittenTranslation struct {
	HTML        string `json:"html"`
	NeedsUpdate bool   `json:"needs_update"`
}

// NewWrittenTranslation builds a translation with cleaned html.
func NewWrittenTranslation(html string, needsUpdate bool) WrittenTranslation {
	return WrittenTranslation{HTML: sanitize.Clean(html), NeedsUpdate: needsUpdate}
}

// WrittenTranslations maps content id -> language code -> translation.
type WrittenTranslations struct {
	TranslationsMapping map[string]map[string]WrittenTranslation `json:"translations_mapping"`
}

// NewWrittenTranslations returns a map with an empty record for every id.
func NewWrittenTranslations(contentIDs ...string) WrittenTranslations {
	m := make(map[string]map[string]WrittenTranslation, len(contentIDs))
	for _, id := range contentIDs {
		m[id] = map[string]WrittenTranslation{}
	}
	return WrittenTranslations{TranslationsMapping: m}
}

// ContentIDs returns the keys in sorted order.
func (w WrittenTranslations) ContentIDs() []string {
	return sortedKeys(w.TranslationsMapping)
}

// Has reports whether id is tracked.
func (w WrittenTranslations) Has(id string) bool {
	_, ok := w.TranslationsMapping[id]
	return ok
}

// AddContentID starts tracking id with no translations.
func (w *WrittenTranslations) AddContentID(id string) error {
	if w.Has(id) {
		return domainerr.Operationf("add_content_id_for_translation", "The content_id %s already exist.", id)
	}
	if w.TranslationsMapping == nil {
		w.TranslationsMapping = make(map[string]map[string]WrittenTranslation)
	}
	w.TranslationsMapping[id] = map[string]WrittenTranslation{}
	return nil
}

// DeleteContentID stops tracking id and drops its translations.
func (w *WrittenTranslations) DeleteContentID(id string) error {
	if !w.Has(id) {
		return domainerr.Operationf("delete_content_id_for_translation", "The content_id %s does not exist.", id)
	}
	delete(w.TranslationsMapping, id)
	return nil
}

// Validate checks the keys equal expected exactly and every language code is valid.
func (w WrittenTranslations) Validate(expected map[string]struct{}) error {
	for _, id := range w.ContentIDs() {
		if _, ok := expected[id]; !ok {
			return domainerr.Validationf("Expected content_id to be one of %s, received %s",
				strings.Join(sortedKeys(expected), ", "), id)
		}
		for _, lang := range sortedKeys(w.TranslationsMapping[id]) {
			if !locale.IsValid(lang) {
				return domainerr.Validationf("Invalid language_code: %s", lang)
			}
		}
	}
	for _, id := range sortedKeys(expected) {
		if !w.Has(id) {
			return domainerr.Validationf("Expected content_id %s to be a key in translations_mapping", id)
		}
	}
	return nil
}

// ToDict returns the serialized form.
func (w WrittenTranslations) ToDict() dict.Dict {
	mapping := make(dict.Dict, len(w.TranslationsMapping))
	for id, byLang := range w.TranslationsMapping {
		langs := make(dict.Dict, len(byLang))
		for lang, t := range byLang {
			langs[lang] = dict.Dict{"html": t.HTML, "needs_update": t.NeedsUpdate}
		}
		mapping[id] = langs
	}
	return dict.Dict{"translations_mapping": mapping}
}

// Clone deep-copies the mapping.
func (w WrittenTranslations) Clone() WrittenTranslations {
	out := WrittenTranslations{TranslationsMapping: make(map[string]map[string]WrittenTranslation, len(w.TranslationsMapping))}
	for id, byLang := range w.TranslationsMapping {
		cp := make(map[string]WrittenTranslation, len(byLang))
		for lang, t := range byLang {
			cp[lang] = t
		}
		out.TranslationsMapping[id] = cp
	}
	return out
}
