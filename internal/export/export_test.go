package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"quakeview/internal/model"
)

func sample() []model.Record {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []model.Record{
		{ID: "us1", Time: t0, Latitude: 35.25, Longitude: -117.5, Depth: 8.125, Magnitude: 4.25,
			Place: "10 km N of Ridgecrest, CA", Updated: t0, Quality: map[string]float64{model.QualityRMS: 0.21}},
		{ID: "us2", Time: t0.Add(time.Minute), Latitude: -3, Longitude: 140, Depth: 33, Magnitude: 6.1,
			Place: "Papua New Guinea", Updated: t0},
	}
}

func TestCSVHeaderAndPrecision(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, sample()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	want := append(model.ColumnOrder(nil), model.QualityRMS)
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	col := func(name string) int {
		for i, c := range rows[0] {
			if c == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	if got := rows[1][col(model.FieldMag)]; got != "4.25" {
		t.Fatalf("mag = %q", got)
	}
	if got := rows[1][col(model.FieldPlace)]; got != "10 km N of Ridgecrest, CA" {
		t.Fatalf("place = %q", got)
	}
	if got := rows[2][col(model.QualityRMS)]; got != "" {
		t.Fatalf("absent rms should be empty, got %q", got)
	}
}

func TestNDJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatNDJSON, sample()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	var r model.Record
	if err := json.Unmarshal([]byte(lines[1]), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.ID != "us2" || r.Magnitude != 6.1 {
		t.Fatalf("record = %+v", r)
	}
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	if err := ToFile(filepath.Join(dir, "none.csv"), FormatCSV, nil); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("err = %v", err)
	}
	if err := ToFile(filepath.Join(dir, "x.xml"), "xml", sample()); err == nil {
		t.Fatalf("expected unknown format error")
	}
	path := filepath.Join(dir, "out.ndjson")
	if err := ToFile(path, FormatNDJSON, sample()); err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(b), `"id":"us1"`) {
		t.Fatalf("file = %q err=%v", b, err)
	}
}
