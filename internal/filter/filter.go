package filter

import (
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"

	"quakeview/internal/model"
)

type Criteria struct {
	Query    string // plain contains or regex if UseRegex
	UseRegex bool
	Field    string // when set, apply Query only to this field
	MinMag   *float64
	MaxMag   *float64
	MaxDepth *float64
	Statuses map[string]bool // e.g. reviewed, automatic
	Expr     string          // govaluate expression over field names
}

// Empty reports whether c matches everything.
func (c Criteria) Empty() bool {
	return c.Query == "" && c.MinMag == nil && c.MaxMag == nil && c.MaxDepth == nil &&
		len(c.Statuses) == 0 && strings.TrimSpace(c.Expr) == ""
}

type Evaluator struct {
	c    Criteria
	re   *regexp.Regexp
	expr *govaluate.EvaluableExpression
}

func NewEvaluator(c Criteria) (*Evaluator, error) {
	var re *regexp.Regexp
	var expr *govaluate.EvaluableExpression
	var err error
	if c.UseRegex && c.Query != "" {
		re, err = regexp.Compile(c.Query)
		if err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(c.Expr) != "" {
		expr, err = govaluate.NewEvaluableExpression(c.Expr)
		if err != nil {
			return nil, err
		}
	}
	return &Evaluator{c: c, re: re, expr: expr}, nil
}

// Predicate compiles c into a record predicate. An empty Criteria yields nil,
// which callers treat as match-all.
func Predicate(c Criteria) (func(model.Record) bool, error) {
	if c.Empty() {
		return nil, nil
	}
	e, err := NewEvaluator(c)
	if err != nil {
		return nil, err
	}
	return e.Match, nil
}

func (e *Evaluator) Match(r model.Record) bool {
	c := e.c
	if c.MinMag != nil && r.Magnitude < *c.MinMag {
		return false
	}
	if c.MaxMag != nil && r.Magnitude > *c.MaxMag {
		return false
	}
	if c.MaxDepth != nil && r.Depth > *c.MaxDepth {
		return false
	}
	if len(c.Statuses) > 0 && !c.Statuses[strings.ToLower(r.Status)] {
		return false
	}
	if c.Query != "" {
		var text string
		if c.Field != "" {
			text = Text(r, c.Field)
		} else {
			text = strings.Join([]string{r.ID, r.Place, r.MagType, r.Net, r.Status, r.EventType}, " ")
		}
		if e.re != nil {
			if !e.re.MatchString(text) {
				return false
			}
		} else if !strings.Contains(strings.ToLower(text), strings.ToLower(c.Query)) {
			return false
		}
	}
	if e.expr != nil {
		result, err := e.expr.Evaluate(Params(r))
		if err != nil {
			return false
		}
		b, ok := result.(bool)
		if !ok || !b {
			return false
		}
	}
	return true
}

// Params exposes a record to govaluate. Absent quality fields are omitted, so
// expressions referencing them fail and the record does not match.
func Params(r model.Record) map[string]any {
	p := map[string]any{
		model.FieldID:        r.ID,
		model.FieldTime:      r.Time.Format("2006-01-02T15:04:05Z07:00"),
		model.FieldLatitude:  r.Latitude,
		model.FieldLongitude: r.Longitude,
		model.FieldDepth:     r.Depth,
		model.FieldMag:       r.Magnitude,
		model.FieldMagType:   r.MagType,
		model.FieldPlace:     r.Place,
		model.FieldNet:       r.Net,
		model.FieldStatus:    r.Status,
		model.FieldType:      r.EventType,
	}
	for k, v := range r.Quality {
		p[k] = v
	}
	return p
}
