package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quakeview/internal/model"
)

const header = "time,latitude,longitude,depth,mag,magType,place,id,updated\n"

func row(i int) string {
	return fmt.Sprintf("2024-03-01T10:%02d:%02d.000Z,%d.5,-%d.25,%d.0,%.1f,ml,\"%d km N of Town, CA\",ev%04d,2024-03-02T00:00:00.000Z\n",
		(i/60)%60, i%60, i%80, i%170, i%600, float64(i%70)/10, i%50, i)
}

func badRow(i int) string {
	return fmt.Sprintf("2024-03-01T10:00:00.000Z,north,10,5,1.0,ml,Nowhere,bad%04d,\n", i)
}

// catalog builds n data rows; rows whose index is in bad are malformed.
func catalog(n int, bad map[int]bool) string {
	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < n; i++ {
		if bad[i] {
			b.WriteString(badRow(i))
			continue
		}
		b.WriteString(row(i))
	}
	return b.String()
}

func TestChunksCountValidRecords(t *testing.T) {
	bad := map[int]bool{3: true, 50: true, 120: true, 200: true, 251: true}
	in := New(Options{ChunkSize: 100})
	s := in.Start(context.Background(), BufferSource{Data: []byte(catalog(252, bad))})

	chunks, last := Drain(context.Background(), s)
	var sizes []int
	for _, c := range chunks {
		sizes = append(sizes, len(c.Records))
		if c.Gen != s.Gen() {
			t.Fatalf("chunk gen = %d, want %d", c.Gen, s.Gen())
		}
	}
	if fmt.Sprint(sizes) != "[100 100 47]" {
		t.Fatalf("chunk sizes = %v", sizes)
	}
	if !chunks[2].Final || chunks[0].Final || chunks[1].Final {
		t.Fatalf("only the last chunk should be final")
	}
	if last.Kind != KindComplete || last.RowsSeen != 252 || last.Rejected != 5 {
		t.Fatalf("terminal = %+v", last)
	}
	if chunks[0].RowsSeen >= chunks[1].RowsSeen || chunks[1].RowsSeen >= chunks[2].RowsSeen {
		t.Fatalf("rows seen not increasing")
	}
	if s.BytesRead() != int64(len(catalog(252, bad))) {
		t.Fatalf("bytes read = %d", s.BytesRead())
	}
}

func TestTerminalEventRepeats(t *testing.T) {
	s := New(Options{}).Start(context.Background(), BufferSource{Data: []byte(catalog(3, nil))})
	_, last := Drain(context.Background(), s)
	for i := 0; i < 3; i++ {
		if ev := s.Next(context.Background()); ev.Kind != last.Kind || ev.RowsSeen != last.RowsSeen {
			t.Fatalf("Next after terminal = %+v", ev)
		}
	}
}

func TestFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want error
	}{
		{"empty", BufferSource{}, ErrEmptySource},
		{"blank lines", BufferSource{Data: []byte("\n\n")}, ErrEmptySource},
		{"header only", BufferSource{Data: []byte(header)}, ErrNoValidRows},
		{"all rejected", BufferSource{Data: []byte(catalog(4, map[int]bool{0: true, 1: true, 2: true, 3: true}))}, ErrNoValidRows},
		{"missing file", FileSource{Path: filepath.Join(t.TempDir(), "nope.csv")}, ErrUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{}).Start(context.Background(), tt.src)
			chunks, last := Drain(context.Background(), s)
			if len(chunks) != 0 {
				t.Fatalf("unexpected chunks: %d", len(chunks))
			}
			if last.Kind != KindFailed || !errors.Is(last.Err, tt.want) {
				t.Fatalf("terminal = %v %v, want %v", last.Kind, last.Err, tt.want)
			}
		})
	}
}

func TestRejectWarning(t *testing.T) {
	bad := map[int]bool{1: true, 4: true, 7: true}
	s := New(Options{ChunkSize: 100}).Start(context.Background(), BufferSource{Data: []byte(catalog(15, bad))})
	chunks, last := Drain(context.Background(), s)
	if last.Kind != KindComplete || len(chunks) != 1 {
		t.Fatalf("terminal=%v chunks=%d", last.Kind, len(chunks))
	}
	w := chunks[0].Warning
	if w == nil || w.Rows != 15 || w.Rejected != 3 {
		t.Fatalf("warning = %+v", w)
	}

	s = New(Options{ChunkSize: 100}).Start(context.Background(), BufferSource{Data: []byte(catalog(30, map[int]bool{2: true}))})
	chunks, _ = Drain(context.Background(), s)
	if chunks[0].Warning != nil {
		t.Fatalf("unexpected warning at low reject rate")
	}
}

func TestStartCancelsPreviousGeneration(t *testing.T) {
	in := New(Options{ChunkSize: 10})
	first := in.Start(context.Background(), BufferSource{Data: []byte(catalog(500, nil))})
	second := in.Start(context.Background(), BufferSource{Data: []byte(catalog(20, nil))})
	if first.Gen() != 1 || second.Gen() != 2 || in.Current() != 2 {
		t.Fatalf("gens: %d %d current %d", first.Gen(), second.Gen(), in.Current())
	}
	_, last := Drain(context.Background(), first)
	if last.Kind != KindFailed || !errors.Is(last.Err, context.Canceled) {
		t.Fatalf("superseded stream terminal = %v %v", last.Kind, last.Err)
	}
	chunks, last := Drain(context.Background(), second)
	if last.Kind != KindComplete || len(chunks) != 2 {
		t.Fatalf("current stream: %v, %d chunks", last.Kind, len(chunks))
	}
	for _, c := range chunks {
		if c.Gen != 2 {
			t.Fatalf("chunk from gen %d", c.Gen)
		}
	}
}

func TestByteOrderMarkIsStripped(t *testing.T) {
	data := "\ufeff" + catalog(2, nil)
	chunks, last := Drain(context.Background(), New(Options{}).Start(context.Background(), BufferSource{Data: []byte(data)}))
	if last.Kind != KindComplete {
		t.Fatalf("terminal = %v %v", last.Kind, last.Err)
	}
	if got := chunks[0].Records[0].ID; got != "ev0000" {
		t.Fatalf("first id = %q", got)
	}
	if got := chunks[0].Records[0].Place; got != "0 km N of Town, CA" {
		t.Fatalf("quoted place = %q", got)
	}
}

func TestAliasedHeader(t *testing.T) {
	data := "Event ID,Origin Time,Lat,Lon,Magnitude\nx1,2024-01-01T00:00:00Z,1,2,3.5\n"
	chunks, last := Drain(context.Background(), New(Options{}).Start(context.Background(), BufferSource{Data: []byte(data)}))
	if last.Kind != KindComplete {
		t.Fatalf("terminal = %v %v", last.Kind, last.Err)
	}
	r := chunks[0].Records[0]
	if r.ID != "x1" || r.Magnitude != 3.5 {
		t.Fatalf("record = %+v", r)
	}
}

func TestFollowFlushesPartialChunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.csv")
	if err := os.WriteFile(path, []byte(catalog(3, nil)), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := New(Options{ChunkSize: 100, FlushInterval: 50 * time.Millisecond}).Start(ctx, FileSource{Path: path, Follow: true})
	defer s.Cancel()
	if !s.Follows() {
		t.Fatalf("file source with follow should follow")
	}
	got := collectRecords(t, ctx, s, 3)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(row(3) + row(4))
	f.Close()
	got = append(got, collectRecords(t, ctx, s, 2)...)
	if got[4].ID != "ev0004" {
		t.Fatalf("last id = %q", got[4].ID)
	}

	s.Cancel()
	if ev := s.Next(ctx); ev.Kind != KindFailed {
		t.Fatalf("after cancel: %v", ev.Kind)
	}
}

func collectRecords(t *testing.T, ctx context.Context, s *Stream, n int) []model.Record {
	t.Helper()
	var out []model.Record
	for len(out) < n {
		ev := s.Next(ctx)
		if ev.Kind != KindChunk {
			t.Fatalf("expected chunk, got %v %v", ev.Kind, ev.Err)
		}
		if ev.Chunk.Final {
			t.Fatalf("follow chunks are never final")
		}
		out = append(out, ev.Chunk.Records...)
	}
	return out
}

func TestLatin1CatalogIsDecoded(t *testing.T) {
	data := []byte(header)
	data = append(data, row(0)...)
	// "Ñuñoa, Chile" in ISO-8859-1
	data = append(data, []byte("2024-03-01T11:00:00.000Z,-33.4,-70.6,10.0,4.1,ml,\"\xd1u\xf1oa, Chile\",cl0001,\n")...)
	s := New(Options{}).Start(context.Background(), BufferSource{Data: data})
	chunks, last := Drain(context.Background(), s)
	if last.Kind != KindComplete || len(chunks) != 1 || len(chunks[0].Records) != 2 {
		t.Fatalf("last=%+v chunks=%d", last, len(chunks))
	}
	if got := chunks[0].Records[1].Place; got != "Ñuñoa, Chile" {
		t.Fatalf("place = %q", got)
	}
}

func TestValidUTF8Prefix(t *testing.T) {
	cut := []byte("Ñuñoa")[:2+1+1] // ends inside the two-byte ñ
	cases := []struct {
		in   []byte
		want bool
	}{
		{[]byte("plain ascii"), true},
		{[]byte("Ñuñoa"), true},
		{cut, true},
		{[]byte("\xd1u\xf1oa"), false},
	}
	for _, c := range cases {
		if got := validUTF8Prefix(c.in); got != c.want {
			t.Errorf("validUTF8Prefix(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
