package skill

import (
	"github.com/nidhogg/skillbook/internal/content"
	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
)

// SkillContents holds the explanation, worked examples and the auxiliary
// voiceover and translation maps keyed by their content ids.
type SkillContents struct {
	explanation         content.SubtitledHTML
	workedExamples      []content.SubtitledHTML
	recordedVoiceovers  content.RecordedVoiceovers
	writtenTranslations content.WrittenTranslations
}

// NewSkillContents builds a SkillContents value.
func NewSkillContents(
	explanation content.SubtitledHTML,
	workedExamples []content.SubtitledHTML,
	vo content.RecordedVoiceovers,
	wt content.WrittenTranslations,
) SkillContents {
	c := SkillContents{
		explanation:         explanation,
		workedExamples:      append([]content.SubtitledHTML{}, workedExamples...),
		recordedVoiceovers:  vo,
		writtenTranslations: wt,
	}
	return c.clone()
}

func (c SkillContents) Explanation() content.SubtitledHTML { return c.explanation }

func (c SkillContents) WorkedExamples() []content.SubtitledHTML {
	return append([]content.SubtitledHTML{}, c.workedExamples...)
}

func (c SkillContents) RecordedVoiceovers() content.RecordedVoiceovers {
	return c.recordedVoiceovers.Clone()
}

func (c SkillContents) WrittenTranslations() content.WrittenTranslations {
	return c.writtenTranslations.Clone()
}

// ContentIDs returns the explanation id followed by the worked example ids.
func (c SkillContents) ContentIDs() []string {
	return append([]string{c.explanation.ContentID}, content.IDs(c.workedExamples...)...)
}

// Validate checks every content id is unique and both auxiliary maps track
// exactly the live ids.
func (c SkillContents) Validate() error {
	if err := c.explanation.Validate(); err != nil {
		return err
	}
	available := map[string]struct{}{c.explanation.ContentID: {}}
	for _, example := range c.workedExamples {
		if _, dup := available[example.ContentID]; dup {
			return domainerr.Validationf("Found a duplicate content id %s", example.ContentID)
		}
		available[example.ContentID] = struct{}{}
		if err := example.Validate(); err != nil {
			return err
		}
	}
	if err := c.recordedVoiceovers.Validate(available); err != nil {
		return err
	}
	return c.writtenTranslations.Validate(available)
}

func (c SkillContents) clone() SkillContents {
	return SkillContents{
		explanation:         c.explanation,
		workedExamples:      append([]content.SubtitledHTML{}, c.workedExamples...),
		recordedVoiceovers:  c.recordedVoiceovers.Clone(),
		writtenTranslations: c.writtenTranslations.Clone(),
	}
}

// ToDict returns the serialized form.
func (c SkillContents) ToDict() dict.Dict {
	examples := make([]interface{}, 0, len(c.workedExamples))
	for _, e := range c.workedExamples {
		examples = append(examples, subtitledToDict(e))
	}
	return dict.Dict{
		"explanation":          subtitledToDict(c.explanation),
		"worked_examples":      examples,
		"recorded_voiceovers":  c.recordedVoiceovers.ToDict(),
		"written_translations": c.writtenTranslations.ToDict(),
	}
}

// SkillContentsFromDict parses a current-schema skill_contents dict.
func SkillContentsFromDict(d dict.Dict) (SkillContents, error) {
	if err := requireKeys(d, "skill_contents", "explanation", "worked_examples", "recorded_voiceovers", "written_translations"); err != nil {
		return SkillContents{}, err
	}
	explanation, err := SubtitledHTMLFromValue(d["explanation"])
	if err != nil {
		return SkillContents{}, err
	}
	examples, err := SubtitledHTMLListFromValue(d["worked_examples"])
	if err != nil {
		return SkillContents{}, err
	}
	var vo content.RecordedVoiceovers
	if err := dict.Decode(d["recorded_voiceovers"], &vo); err != nil {
		return SkillContents{}, domainerr.Validationf("Invalid recorded_voiceovers: %v", err)
	}
	var wt content.WrittenTranslations
	if err := dict.Decode(d["written_translations"], &wt); err != nil {
		return SkillContents{}, domainerr.Validationf("Invalid written_translations: %v", err)
	}
	if vo.VoiceoversMapping == nil {
		vo.VoiceoversMapping = map[string]map[string]content.Voiceover{}
	}
	if wt.TranslationsMapping == nil {
		wt.TranslationsMapping = map[string]map[string]content.WrittenTranslation{}
	}
	for id, byLang := range wt.TranslationsMapping {
		for lang, t := range byLang {
			byLang[lang] = content.NewWrittenTranslation(t.HTML, t.NeedsUpdate)
		}
		wt.TranslationsMapping[id] = byLang
	}
	return NewSkillContents(explanation, examples, vo, wt), nil
}

func subtitledToDict(s content.SubtitledHTML) dict.Dict {
	return dict.Dict{"content_id": s.ContentID, "html": s.HTML}
}

// SubtitledHTMLFromValue parses a {content_id, html} dict, cleaning the html.
func SubtitledHTMLFromValue(v interface{}) (content.SubtitledHTML, error) {
	d, ok := v.(map[string]interface{})
	if !ok {
		return content.SubtitledHTML{}, domainerr.Validationf("Expected a SubtitledHtml dict, received %v", v)
	}
	if err := requireKeys(d, "subtitled_html", "content_id", "html"); err != nil {
		return content.SubtitledHTML{}, err
	}
	id, ok := d["content_id"].(string)
	if !ok {
		return content.SubtitledHTML{}, domainerr.Validationf("Expected content id to be a string, received %v", d["content_id"])
	}
	html, ok := d["html"].(string)
	if !ok {
		return content.SubtitledHTML{}, domainerr.Validationf("Invalid content HTML: %v", d["html"])
	}
	return content.NewSubtitledHTML(id, html), nil
}

// SubtitledHTMLListFromValue parses a list of {content_id, html} dicts.
func SubtitledHTMLListFromValue(v interface{}) ([]content.SubtitledHTML, error) {
	items, ok := v.([]interface{})
	if !ok {
		if v == nil {
			return nil, nil
		}
		if typed, ok := v.([]map[string]interface{}); ok {
			items = make([]interface{}, len(typed))
			for i, item := range typed {
				items[i] = item
			}
		} else {
			return nil, domainerr.Validationf("Expected worked examples to be a list, received %v", v)
		}
	}
	out := make([]content.SubtitledHTML, 0, len(items))
	for _, item := range items {
		block, err := SubtitledHTMLFromValue(item)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}
	return out, nil
}
