package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Canonical field names. Source headers are mapped onto these before a row
// reaches the codec.
const (
	FieldID        = "id"
	FieldTime      = "time"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldDepth     = "depth"
	FieldMag       = "mag"
	FieldMagType   = "magType"
	FieldPlace     = "place"
	FieldNet       = "net"
	FieldStatus    = "status"
	FieldType      = "type"
	FieldUpdated   = "updated"
)

// Optional numeric quality fields.
const (
	QualityGap             = "gap"
	QualityDmin            = "dmin"
	QualityRMS             = "rms"
	QualityHorizontalError = "horizontalError"
	QualityDepthError      = "depthError"
	QualityMagError        = "magError"
	QualityNst             = "nst"
	QualityMagNst          = "magNst"
)

// RequiredFields must be present for a row to become a Record.
var RequiredFields = []string{FieldID, FieldTime, FieldLatitude, FieldLongitude, FieldMag}

// QualityFields lists the optional numeric columns in display order.
var QualityFields = []string{
	QualityGap, QualityDmin, QualityRMS, QualityHorizontalError,
	QualityDepthError, QualityMagError, QualityNst, QualityMagNst,
}

// RawRow is one source line keyed by canonical field name.
type RawRow map[string]string

// Record is an immutable, validated event.
type Record struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	TimeRaw   string    `json:"-"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Depth     float64   `json:"depth"`
	Magnitude float64   `json:"mag"`
	MagType   string    `json:"magType,omitempty"`
	Place     string    `json:"place,omitempty"`
	Net       string    `json:"net,omitempty"`
	Status    string    `json:"status,omitempty"`
	EventType string    `json:"type,omitempty"`
	Updated   time.Time `json:"updated"`

	// Quality holds the optional numeric fields that were present and numeric.
	// A missing key means absent, which is not the same as zero.
	Quality map[string]float64 `json:"quality,omitempty"`

	DepthSuspect     bool `json:"depthSuspect,omitempty"`
	MagnitudeSuspect bool `json:"magSuspect,omitempty"`
}

// QualityValue reports the value of an optional field and whether it was present.
func (r Record) QualityValue(name string) (float64, bool) {
	v, ok := r.Quality[name]
	return v, ok
}

// NewerThan reports whether r supersedes o under the keep-latest-updated rule.
func (r Record) NewerThan(o Record) bool {
	return r.Updated.After(o.Updated)
}

func (r Record) PrettyJSON() string {
	b, _ := json.MarshalIndent(r, "", "  ")
	return string(b)
}

// Chunk is a bounded batch of freshly validated records from one ingestion
// generation. RowsSeen is cumulative for the generation.
type Chunk struct {
	Gen      uint64
	Records  []Record
	RowsSeen int
	Rejected int
	Final    bool
	Warning  *RejectWarning
}

// RejectWarning is attached to a chunk when too many rows since the previous
// chunk failed validation.
type RejectWarning struct {
	Rows     int
	Rejected int
	Ratio    float64
}

// ColumnOrder returns the preferred column order followed by any extra
// columns, sorted, that are not already listed.
func ColumnOrder(extra []string) []string {
	pref := []string{FieldTime, FieldMag, FieldPlace, FieldDepth, FieldLatitude, FieldLongitude, FieldMagType, FieldNet, FieldStatus, FieldType, FieldID, FieldUpdated}
	rest := make([]string, 0, len(extra))
	for _, c := range extra {
		if indexOf(pref, c) > len(pref) && indexOf(rest, c) > len(rest) {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(pref, rest...)
}

func indexOf(arr []string, s string) int {
	for i, v := range arr {
		if v == s {
			return i
		}
	}
	return len(arr) + 1
}
