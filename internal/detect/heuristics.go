package detect

import (
	"regexp"
	"strings"

	"quakeview/internal/model"
)

var reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// aliases maps normalized header spellings to canonical field names.
var aliases = map[string]string{
	"id": model.FieldID, "eventid": model.FieldID, "event": model.FieldID, "code": model.FieldID,
	"time": model.FieldTime, "origintime": model.FieldTime, "datetime": model.FieldTime, "timestamp": model.FieldTime, "date": model.FieldTime,
	"latitude": model.FieldLatitude, "lat": model.FieldLatitude,
	"longitude": model.FieldLongitude, "lon": model.FieldLongitude, "lng": model.FieldLongitude, "long": model.FieldLongitude,
	"depth": model.FieldDepth, "depthkm": model.FieldDepth,
	"mag": model.FieldMag, "magnitude": model.FieldMag, "ml": model.FieldMag,
	"magtype": model.FieldMagType, "magnitudetype": model.FieldMagType,
	"place": model.FieldPlace, "location": model.FieldPlace, "region": model.FieldPlace,
	"net": model.FieldNet, "network": model.FieldNet,
	"status": model.FieldStatus, "reviewstatus": model.FieldStatus,
	"type": model.FieldType, "eventtype": model.FieldType,
	"updated": model.FieldUpdated, "updatedtime": model.FieldUpdated, "lastupdate": model.FieldUpdated,
	"gap": model.QualityGap, "azimuthalgap": model.QualityGap,
	"dmin":            model.QualityDmin,
	"rms":             model.QualityRMS,
	"horizontalerror": model.QualityHorizontalError,
	"deptherror":      model.QualityDepthError,
	"magerror":        model.QualityMagError,
	"nst":             model.QualityNst,
	"magnst":          model.QualityMagNst,
}

// Mapping maps source header names to canonical field names.
type Mapping map[string]string

type Guess struct {
	Mapping    Mapping
	Missing    []string // required fields with no column
	Confidence float64
}

// Complete reports whether every required field has a column.
func (g Guess) Complete() bool { return len(g.Missing) == 0 }

func normalize(h string) string {
	return reNonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "")
}

// Heuristics maps a header row using the alias table. Unknown columns are kept
// under their original name so they still reach the row map.
func Heuristics(header []string) Guess {
	m := Mapping{}
	taken := map[string]bool{}
	for _, h := range header {
		canon, ok := aliases[normalize(h)]
		if !ok || taken[canon] {
			m[h] = h
			continue
		}
		m[h] = canon
		taken[canon] = true
	}
	return guessFrom(m, taken)
}

func guessFrom(m Mapping, taken map[string]bool) Guess {
	var missing []string
	for _, f := range model.RequiredFields {
		if !taken[f] {
			missing = append(missing, f)
		}
	}
	found := len(model.RequiredFields) - len(missing)
	return Guess{Mapping: m, Missing: missing, Confidence: float64(found) / float64(len(model.RequiredFields))}
}

// Merge overlays other onto m for columns that m left unmapped.
func (m Mapping) Merge(other Mapping) Mapping {
	out := Mapping{}
	taken := map[string]bool{}
	for h, c := range m {
		out[h] = c
		if h != c || isCanonical(c) {
			taken[c] = true
		}
	}
	for h, c := range other {
		if cur, ok := out[h]; ok && cur != h {
			continue
		}
		if !isCanonical(c) || taken[c] {
			continue
		}
		out[h] = c
		taken[c] = true
	}
	return out
}

// Guess re-evaluates the mapping against the required fields.
func (m Mapping) Guess() Guess {
	taken := map[string]bool{}
	for _, c := range m {
		if isCanonical(c) {
			taken[c] = true
		}
	}
	return guessFrom(m, taken)
}

// Row builds a RawRow from one CSV record using header positions.
func (m Mapping) Row(header, fields []string) model.RawRow {
	row := make(model.RawRow, len(header))
	for i, h := range header {
		if i >= len(fields) {
			break
		}
		name, ok := m[h]
		if !ok {
			name = h
		}
		row[name] = fields[i]
	}
	return row
}

func isCanonical(name string) bool {
	for _, c := range aliases {
		if c == name {
			return true
		}
	}
	return false
}
