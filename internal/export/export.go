// Package export writes the current ordered, filtered view to disk.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"quakeview/internal/filter"
	"quakeview/internal/model"
)

const (
	FormatCSV    = "csv"
	FormatNDJSON = "ndjson"
)

var ErrNoRecords = errors.New("no records")

// ToFile writes records to path in the given format.
func ToFile(path, format string, records []model.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, format, records); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

func Write(w io.Writer, format string, records []model.Record) error {
	switch format {
	case FormatCSV, "":
		return ToCSV(w, records)
	case FormatNDJSON, "json":
		return ToNDJSON(w, records)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// ToCSV writes a header of canonical field names, so the output can be
// loaded again.
func ToCSV(out io.Writer, records []model.Record) error {
	w := csv.NewWriter(out)
	cols := columns(records)
	if err := w.Write(cols); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for _, r := range records {
		for i, c := range cols {
			row[i] = cell(r, c)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func ToNDJSON(out io.Writer, records []model.Record) error {
	bw := bufio.NewWriter(out)
	enc := json.NewEncoder(bw)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// cell keeps full numeric precision, unlike the display text.
func cell(r model.Record, field string) string {
	switch field {
	case model.FieldLatitude:
		return strconv.FormatFloat(r.Latitude, 'f', -1, 64)
	case model.FieldLongitude:
		return strconv.FormatFloat(r.Longitude, 'f', -1, 64)
	case model.FieldDepth:
		return strconv.FormatFloat(r.Depth, 'f', -1, 64)
	case model.FieldMag:
		return strconv.FormatFloat(r.Magnitude, 'f', -1, 64)
	}
	return filter.Text(r, field)
}

// columns lists the preferred fields first, then any quality field present
// in at least one record.
func columns(records []model.Record) []string {
	seen := map[string]struct{}{}
	var extra []string
	for _, r := range records {
		for k := range r.Quality {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				extra = append(extra, k)
			}
		}
	}
	return model.ColumnOrder(extra)
}
