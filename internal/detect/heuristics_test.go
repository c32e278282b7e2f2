package detect

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"quakeview/internal/model"
)

func TestHeuristicsUSGSHeader(t *testing.T) {
	header := []string{"time", "latitude", "longitude", "depth", "mag", "magType", "nst", "gap", "dmin", "rms", "net", "id", "updated", "place", "type", "horizontalError", "depthError", "magError", "magNst", "status", "locationSource", "magSource"}
	g := Heuristics(header)
	if !g.Complete() || g.Confidence != 1 {
		t.Fatalf("expected complete mapping, missing=%v", g.Missing)
	}
	if g.Mapping["magType"] != model.FieldMagType || g.Mapping["horizontalError"] != model.QualityHorizontalError {
		t.Fatalf("unexpected mapping: %v", g.Mapping)
	}
	if g.Mapping["locationSource"] != "locationSource" {
		t.Fatalf("unknown column should keep its name")
	}
}

func TestHeuristicsAliases(t *testing.T) {
	g := Heuristics([]string{"Event ID", "Origin Time", "Lat", "Lon", "Magnitude", "Depth (km)"})
	want := Mapping{
		"Event ID":    model.FieldID,
		"Origin Time": model.FieldTime,
		"Lat":         model.FieldLatitude,
		"Lon":         model.FieldLongitude,
		"Magnitude":   model.FieldMag,
		"Depth (km)":  model.FieldDepth,
	}
	if diff := cmp.Diff(want, g.Mapping); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestHeuristicsMissing(t *testing.T) {
	g := Heuristics([]string{"when", "lat", "lon", "size"})
	if g.Complete() {
		t.Fatalf("expected incomplete mapping")
	}
	if diff := cmp.Diff([]string{model.FieldID, model.FieldTime, model.FieldMag}, g.Missing); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFillsOnlyUnmapped(t *testing.T) {
	base := Heuristics([]string{"when", "lat", "lon", "size", "key"}).Mapping
	merged := base.Merge(Mapping{"when": model.FieldTime, "size": model.FieldMag, "key": model.FieldID, "lat": model.FieldLongitude})
	if merged["lat"] != model.FieldLatitude {
		t.Fatalf("existing mapping must win, got %q", merged["lat"])
	}
	if !merged.Guess().Complete() {
		t.Fatalf("merged mapping should be complete: %v", merged)
	}
}

func TestRowUsesMapping(t *testing.T) {
	header := []string{"Lat", "Lon", "extra"}
	m := Heuristics(header).Mapping
	row := m.Row(header, []string{"1.5", "2.5"})
	want := model.RawRow{model.FieldLatitude: "1.5", model.FieldLongitude: "2.5"}
	if diff := cmp.Diff(want, row); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}
