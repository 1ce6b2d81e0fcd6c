package content

import (
	"math"
	"sort"
	"strings"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/locale"
)

// AllowedAudioExtensions lists the audio file types a voiceover may use.
var AllowedAudioExtensions = map[string]struct{}{"mp3": {}}

// Voiceover is a recorded audio rendition of one content block.
type Voiceover struct {
	Filename      string  `json:"filename"`
	FileSizeBytes int     `json:"file_size_bytes"`
	NeedsUpdate   bool    `json:"needs_update"`
	DurationSecs  float64 `json:"duration_secs"`
}

// Validate checks the voiceover file metadata.
func (v Voiceover) Validate() error {
	dot := strings.LastIndex(v.Filename, ".")
	if dot <= 0 {
		return domainerr.Validationf("Invalid audio filename: %s", v.Filename)
	}
	ext := v.Filename[dot+1:]
	if _, ok := AllowedAudioExtensions[ext]; !ok {
		return domainerr.Validationf("Invalid audio filename: it should have one of the following extensions: %s. Received: %s",
			strings.Join(sortedKeys(AllowedAudioExtensions), ", "), v.Filename)
	}
	if v.FileSizeBytes < 0 {
		return domainerr.Validationf("Invalid file size: %d", v.FileSizeBytes)
	}
	if math.IsNaN(v.DurationSecs) || math.IsInf(v.DurationSecs, 0) || v.DurationSecs < 0 {
		return domainerr.Validationf("Expected duration_secs to be a non-negative number, received %v", v.DurationSecs)
	}
	return nil
}

// RecordedVoiceovers maps content id -> language code -> voiceover.
type RecordedVoiceovers struct {
	VoiceoversMapping map[string]map[string]Voiceover `json:"voiceovers_mapping"`
}

// NewRecordedVoiceovers returns a map with an empty record for every id.
func NewRecordedVoiceovers(contentIDs ...string) RecordedVoiceovers {
	m := make(map[string]map[string]Voiceover, len(contentIDs))
	for _, id := range contentIDs {
		m[id] = map[string]Voiceover{}
	}
	return RecordedVoiceovers{VoiceoversMapping: m}
}

// ContentIDs returns the keys in sorted order.
func (r RecordedVoiceovers) ContentIDs() []string {
	return sortedKeys(r.VoiceoversMapping)
}

// Has reports whether id is tracked.
func (r RecordedVoiceovers) Has(id string) bool {
	_, ok := r.VoiceoversMapping[id]
	return ok
}

// AddContentID starts tracking id with no voiceovers.
func (r *RecordedVoiceovers) AddContentID(id string) error {
	if r.Has(id) {
		return domainerr.Operationf("add_content_id_for_voiceover", "The content_id %s already exist.", id)
	}
	if r.VoiceoversMapping == nil {
		r.VoiceoversMapping = make(map[string]map[string]Voiceover)
	}
	r.VoiceoversMapping[id] = map[string]Voiceover{}
	return nil
}

// DeleteContentID stops tracking id and drops its voiceovers.
func (r *RecordedVoiceovers) DeleteContentID(id string) error {
	if !r.Has(id) {
		return domainerr.Operationf("delete_content_id_for_voiceover", "The content_id %s does not exist.", id)
	}
	delete(r.VoiceoversMapping, id)
	return nil
}

// Validate checks the keys equal expected exactly and every voiceover is valid.
func (r RecordedVoiceovers) Validate(expected map[string]struct{}) error {
	for _, id := range r.ContentIDs() {
		if _, ok := expected[id]; !ok {
			return domainerr.Validationf("Expected content_id to be one of %s, received %s",
				strings.Join(sortedKeys(expected), ", "), id)
		}
		byLang := r.VoiceoversMapping[id]
		for _, lang := range sortedKeys(byLang) {
			if !locale.IsValid(lang) {
				return domainerr.Validationf("Invalid language_code: %s", lang)
			}
			if err := byLang[lang].Validate(); err != nil {
				return err
			}
		}
	}
	for _, id := range sortedKeys(expected) {
		if !r.Has(id) {
			return domainerr.Validationf("Expected content_id %s to be a key in voiceovers_mapping", id)
		}
	}
	return nil
}

// ToDict returns the serialized form.
func (r RecordedVoiceovers) ToDict() dict.Dict {
	mapping := make(dict.Dict, len(r.VoiceoversMapping))
	for id, byLang := range r.VoiceoversMapping {
		langs := make(dict.Dict, len(byLang))
		for lang, v := range byLang {
			langs[lang] = dict.Dict{
				"filename":        v.Filename,
				"file_size_bytes": v.FileSizeBytes,
				"needs_update":    v.NeedsUpdate,
				"duration_secs":   v.DurationSecs,
			}
		}
		mapping[id] = langs
	}
	return dict.Dict{"voiceovers_mapping": mapping}
}

// Clone deep-copies the mapping.
func (r RecordedVoiceovers) Clone() RecordedVoiceovers {
	out := RecordedVoiceovers{VoiceoversMapping: make(map[string]map[string]Voiceover, len(r.VoiceoversMapping))}
	for id, byLang := range r.VoiceoversMapping {
		cp := make(map[string]Voiceover, len(byLang))
		for lang, v := range byLang {
			cp[lang] = v
		}
		out.VoiceoversMapping[id] = cp
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
