package ui

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"quakeview/internal/filter"
	"quakeview/internal/model"
)

func getCol(r model.Record, c string) string {
	switch c {
	case model.FieldTime:
		return r.Time.UTC().Format("2006-01-02 15:04:05")
	case model.FieldUpdated:
		return humanize.Time(r.Updated)
	}
	return filter.Text(r, c)
}

// fit truncates or pads s to exactly w terminal cells.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) > w {
		s = runewidth.Truncate(s, w, "…")
	}
	return runewidth.FillRight(s, w)
}

// fitLeft right-aligns s in w cells; used for numbers.
func fitLeft(s string, w int) string {
	if runewidth.StringWidth(s) > w {
		return runewidth.Truncate(s, w, "…")
	}
	return runewidth.FillLeft(s, w)
}

func numeric(c string) bool {
	switch c {
	case model.FieldMag, model.FieldDepth, model.FieldLatitude, model.FieldLongitude:
		return true
	}
	return false
}
