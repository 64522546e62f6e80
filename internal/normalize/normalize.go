// Package normalize turns raw model output into a structured WineRecord.
//
// Vision models answer with anything from clean JSON to a fenced markdown
// block to free prose. Extraction tries progressively looser strategies
// and never fails: unparseable input maps to a fixed default record that
// carries the raw text in its description.
package normalize

import (
	"encoding/json"
	"regexp"

	"github.com/vinous-app/vinous-api/internal/model"
)

var (
	fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	// Widest span from first '{' to last '}'. Over-captures when the text
	// holds several objects; such input falls through to the default record.
	braceRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// Extract parses the model's raw reply into a WineRecord.
//
// Strategies, first success wins:
//  1. the whole text is a JSON object
//  2. a fenced code block (``` or ```json) holds a JSON object
//  3. the widest {...} span in the text is a JSON object
//
// When all three fail the default record is returned with the raw text as
// its description. Extract never returns an error.
func Extract(text string) model.WineRecord {
	if rec, ok := tryParse([]byte(text)); ok {
		return rec
	}
	if m := fencedRe.FindStringSubmatch(text); m != nil {
		if rec, ok := tryParse([]byte(m[1])); ok {
			return rec
		}
	}
	if m := braceRe.FindString(text); m != "" {
		if rec, ok := tryParse([]byte(m)); ok {
			return rec
		}
	}
	return DefaultRecord(text)
}

// DefaultRecord is the fallback for unparseable model output. The raw
// text is preserved verbatim in the description.
func DefaultRecord(raw string) model.WineRecord {
	s := func(v string) *string { return &v }
	conf := 0.5
	return model.WineRecord{
		Name:           s("Unknown Wine"),
		Winery:         s("Unknown Winery"),
		Vintage:        s("Unknown"),
		Region:         s("Unknown"),
		Country:        s("Unknown"),
		GrapeVariety:   s("Unknown"),
		AlcoholContent: s("Unknown"),
		WineType:       s("red"),
		Description:    &raw,
		Confidence:     &conf,
	}
}

// tryParse unmarshals data into a WineRecord. Keys outside the record's
// fixed fields are dropped. Empty-string and literal "null" values are
// treated as absent so a present field is always a non-empty string.
func tryParse(data []byte) (model.WineRecord, bool) {
	var rec model.WineRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.WineRecord{}, false
	}
	rec.ID = ""
	clean := func(v **string) {
		if *v != nil && (**v == "" || **v == "null") {
			*v = nil
		}
	}
	clean(&rec.Name)
	clean(&rec.Winery)
	clean(&rec.Vintage)
	clean(&rec.Region)
	clean(&rec.Country)
	clean(&rec.GrapeVariety)
	clean(&rec.AlcoholContent)
	clean(&rec.WineType)
	clean(&rec.Description)
	return rec, true
}
