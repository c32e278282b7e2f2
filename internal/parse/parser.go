package parse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"quakeview/internal/model"
)

// Reason enumerates why a row was rejected.
type Reason int

const (
	ReasonMissingField Reason = iota + 1
	ReasonNotNumeric
	ReasonOutOfRange
)

func (r Reason) String() string {
	switch r {
	case ReasonMissingField:
		return "missing required field"
	case ReasonNotNumeric:
		return "non-numeric value"
	case ReasonOutOfRange:
		return "value out of range"
	}
	return "unknown"
}

// RejectError is the only error Parse returns.
type RejectError struct {
	Reason Reason
	Field  string
	Value  string
}

func (e *RejectError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Field)
	}
	return fmt.Sprintf("%s: %s=%q", e.Reason, e.Field, e.Value)
}

// Soft bounds; values outside them are kept but flagged.
const (
	minDepth = -10.0
	maxDepth = 1000.0
	minMag   = -5.0
	maxMag   = 10.0
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// Parse converts a raw row into a Record. It never panics; every failure is
// reported as a *RejectError.
func Parse(row model.RawRow) (model.Record, error) {
	for _, f := range model.RequiredFields {
		if strings.TrimSpace(row[f]) == "" {
			return model.Record{}, &RejectError{Reason: ReasonMissingField, Field: f}
		}
	}
	lat, err := number(row, model.FieldLatitude)
	if err != nil {
		return model.Record{}, err
	}
	lon, err := number(row, model.FieldLongitude)
	if err != nil {
		return model.Record{}, err
	}
	mag, err := number(row, model.FieldMag)
	if err != nil {
		return model.Record{}, err
	}
	if lat < -90 || lat > 90 {
		return model.Record{}, &RejectError{Reason: ReasonOutOfRange, Field: model.FieldLatitude, Value: row[model.FieldLatitude]}
	}
	if lon < -180 || lon > 180 {
		return model.Record{}, &RejectError{Reason: ReasonOutOfRange, Field: model.FieldLongitude, Value: row[model.FieldLongitude]}
	}
	ts, ok := parseTime(row[model.FieldTime])
	if !ok {
		return model.Record{}, &RejectError{Reason: ReasonMissingField, Field: model.FieldTime, Value: row[model.FieldTime]}
	}

	r := model.Record{
		ID:        strings.TrimSpace(row[model.FieldID]),
		Time:      ts,
		TimeRaw:   strings.TrimSpace(row[model.FieldTime]),
		Latitude:  lat,
		Longitude: lon,
		Magnitude: mag,
		MagType:   strings.TrimSpace(row[model.FieldMagType]),
		Place:     strings.TrimSpace(row[model.FieldPlace]),
		Net:       strings.TrimSpace(row[model.FieldNet]),
		Status:    strings.TrimSpace(row[model.FieldStatus]),
		EventType: strings.TrimSpace(row[model.FieldType]),
		Updated:   ts,
	}
	// depth is non-fatal: unparsable means 0
	if d, ok := optional(row[model.FieldDepth]); ok {
		r.Depth = d
	}
	if u, ok := parseTime(row[model.FieldUpdated]); ok {
		r.Updated = u
	}
	r.DepthSuspect = r.Depth < minDepth || r.Depth > maxDepth
	r.MagnitudeSuspect = mag < minMag || mag > maxMag
	for _, q := range model.QualityFields {
		if v, ok := optional(row[q]); ok {
			if r.Quality == nil {
				r.Quality = make(map[string]float64, len(model.QualityFields))
			}
			r.Quality[q] = v
		}
	}
	return r, nil
}

func number(row model.RawRow, field string) (float64, error) {
	raw := strings.TrimSpace(row[field])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &RejectError{Reason: ReasonNotNumeric, Field: field, Value: raw}
	}
	return v, nil
}

func optional(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	// epoch milliseconds, as served by the GeoJSON-derived feeds
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}
