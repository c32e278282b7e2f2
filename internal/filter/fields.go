package filter

import (
	"cmp"
	"strconv"
	"strings"

	"quakeview/internal/model"
)

// Text renders one field of r for display, search and export.
func Text(r model.Record, field string) string {
	switch field {
	case model.FieldID:
		return r.ID
	case model.FieldTime:
		if r.TimeRaw != "" {
			return r.TimeRaw
		}
		return r.Time.UTC().Format("2006-01-02T15:04:05.000Z")
	case model.FieldLatitude:
		return formatFloat(r.Latitude, 4)
	case model.FieldLongitude:
		return formatFloat(r.Longitude, 4)
	case model.FieldDepth:
		return formatFloat(r.Depth, 2)
	case model.FieldMag:
		return formatFloat(r.Magnitude, 1)
	case model.FieldMagType:
		return r.MagType
	case model.FieldPlace:
		return r.Place
	case model.FieldNet:
		return r.Net
	case model.FieldStatus:
		return r.Status
	case model.FieldType:
		return r.EventType
	case model.FieldUpdated:
		return r.Updated.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	if v, ok := r.QualityValue(field); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// Comparator orders records by field. Ties fall back to id so the order is
// total. Records lacking an optional field sort after those that have it.
func Comparator(field string, desc bool) func(a, b model.Record) int {
	base := fieldCompare(field)
	return func(a, b model.Record) int {
		c := base(a, b)
		if desc {
			c = -c
		}
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		return c
	}
}

func fieldCompare(field string) func(a, b model.Record) int {
	switch field {
	case model.FieldTime:
		return func(a, b model.Record) int { return a.Time.Compare(b.Time) }
	case model.FieldUpdated:
		return func(a, b model.Record) int { return a.Updated.Compare(b.Updated) }
	case model.FieldMag:
		return func(a, b model.Record) int { return cmp.Compare(a.Magnitude, b.Magnitude) }
	case model.FieldDepth:
		return func(a, b model.Record) int { return cmp.Compare(a.Depth, b.Depth) }
	case model.FieldLatitude:
		return func(a, b model.Record) int { return cmp.Compare(a.Latitude, b.Latitude) }
	case model.FieldLongitude:
		return func(a, b model.Record) int { return cmp.Compare(a.Longitude, b.Longitude) }
	case model.FieldID, "":
		return func(a, b model.Record) int { return 0 }
	}
	for _, q := range model.QualityFields {
		if q == field {
			return func(a, b model.Record) int {
				av, aok := a.QualityValue(field)
				bv, bok := b.QualityValue(field)
				switch {
				case aok && bok:
					return cmp.Compare(av, bv)
				case aok:
					return -1
				case bok:
					return 1
				}
				return 0
			}
		}
	}
	return func(a, b model.Record) int {
		return strings.Compare(strings.ToLower(Text(a, field)), strings.ToLower(Text(b, field)))
	}
}

// SortFields lists the fields the UI cycles through.
var SortFields = []string{model.FieldTime, model.FieldMag, model.FieldDepth, model.FieldPlace, model.FieldUpdated}
