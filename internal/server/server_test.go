package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quakeview/internal/ingest"
	"quakeview/internal/model"
	"quakeview/internal/session"
	"quakeview/internal/view"
)

func catalog(n int) ingest.BufferSource {
	var b strings.Builder
	b.WriteString("id,time,latitude,longitude,depth,mag,place,updated\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "ev%04d,2024-01-01T%02d:%02d:00Z,%d,%d,10,%.1f,Place %d,\n",
			i, (i/60)%24, i%60, i%90, i%180, float64(i%80)/10, i)
	}
	return ingest.BufferSource{Label: "fixture", Data: []byte(b.String())}
}

func newLoadedServer(t *testing.T, n int) *Server {
	t.Helper()
	view.Debug = true
	sess := session.New(session.Options{
		PageSize:        50,
		ItemHeight:      1,
		ContainerHeight: 10,
		Overscan:        2,
		SortField:       model.FieldTime,
		Ingest:          ingest.Options{ChunkSize: 100},
	})
	s := New(sess)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	if n > 0 {
		st := s.Load(catalog(n), true)
		if err := s.Wait(context.Background(), st.Gen()); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestFrameAfterLoad(t *testing.T) {
	s := newLoadedServer(t, 120)
	w := do(t, s, http.MethodGet, "/api/frame?view=secondary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
	f := decodeBody[session.Frame](t, w)
	if f.Range != (view.Range{Start: 0, End: 12}) || f.TotalExtent != 120 || len(f.VisibleSlice) != 12 {
		t.Fatalf("frame range=%+v extent=%d", f.Range, f.TotalExtent)
	}
	if f.Status.State != session.StateComplete || f.Status.RowsSeen != 120 {
		t.Fatalf("status = %+v", f.Status)
	}
}

func TestScrollAndResize(t *testing.T) {
	s := newLoadedServer(t, 120)
	off := 500
	f := decodeBody[session.Frame](t, do(t, s, http.MethodPost, "/api/scroll", ScrollRequest{Offset: &off}))
	if f.ScrollOffset != 110 {
		t.Fatalf("offset = %d, want clamped 110", f.ScrollOffset)
	}
	f = decodeBody[session.Frame](t, do(t, s, http.MethodPost, "/api/resize", ResizeRequest{ContainerHeight: 20}))
	if f.ScrollOffset != 100 || f.Range.End != 120 {
		t.Fatalf("offset=%d range=%+v", f.ScrollOffset, f.Range)
	}
	if w := do(t, s, http.MethodPost, "/api/resize", ResizeRequest{ContainerHeight: -1}); w.Code != http.StatusBadRequest {
		t.Fatalf("negative height status = %d", w.Code)
	}
}

func TestSelectJumpsToPage(t *testing.T) {
	s := newLoadedServer(t, 120)
	on := true
	f := decodeBody[session.Frame](t, do(t, s, http.MethodPost, "/api/page", PageRequest{Paginated: &on}))
	if !f.Paginated || f.TotalPages != 3 {
		t.Fatalf("paginated=%v pages=%d", f.Paginated, f.TotalPages)
	}
	resp := decodeBody[SelectResponse](t, do(t, s, http.MethodPost, "/api/select", SelectRequest{ID: "ev0090", Source: "secondary"}))
	if !resp.Reposition.PageChanged || resp.Frame.CurrentPage != 2 || resp.Frame.ScrollOffset != 0 {
		t.Fatalf("reposition=%+v page=%d", resp.Reposition, resp.Frame.CurrentPage)
	}
	if resp.Frame.Selection.ID != "ev0090" || resp.Frame.Selection.Source != view.SourceSecondary {
		t.Fatalf("selection = %+v", resp.Frame.Selection)
	}

	f = decodeBody[session.Frame](t, do(t, s, http.MethodDelete, "/api/select", nil))
	if f.Selection.ID != "" || f.CurrentPage != 2 {
		t.Fatalf("clear: selection=%+v page=%d", f.Selection, f.CurrentPage)
	}
	f = decodeBody[session.Frame](t, do(t, s, http.MethodPost, "/api/page", PageRequest{Action: "next"}))
	if f.CurrentPage != 3 || len(f.VisibleSlice) != 12 || f.TotalExtent != 20 {
		t.Fatalf("page=%d extent=%d", f.CurrentPage, f.TotalExtent)
	}
	if w := do(t, s, http.MethodPost, "/api/page", PageRequest{Action: "sideways"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad action status = %d", w.Code)
	}
}

func TestSelectGuardForRenderingView(t *testing.T) {
	s := newLoadedServer(t, 120)
	do(t, s, http.MethodGet, "/api/frame?view=secondary", nil)
	resp := decodeBody[SelectResponse](t, do(t, s, http.MethodPost, "/api/select", SelectRequest{ID: "ev0003", Source: "secondary"}))
	if !resp.Reposition.Suppressed || resp.Frame.ScrollOffset != 0 {
		t.Fatalf("reposition = %+v", resp.Reposition)
	}
	resp = decodeBody[SelectResponse](t, do(t, s, http.MethodPost, "/api/select", SelectRequest{ID: "ev0060", Source: "secondary"}))
	if resp.Reposition.Suppressed || resp.Frame.ScrollOffset != 55 {
		t.Fatalf("reposition=%+v offset=%d", resp.Reposition, resp.Frame.ScrollOffset)
	}
}

func TestSortAndFilter(t *testing.T) {
	s := newLoadedServer(t, 120)
	if w := do(t, s, http.MethodPost, "/api/sort", SortRequest{Field: "color"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown sort field status = %d", w.Code)
	}
	f := decodeBody[session.Frame](t, do(t, s, http.MethodPost, "/api/sort", SortRequest{Field: model.FieldMag, Desc: true}))
	if f.SortField != model.FieldMag || f.VisibleSlice[0].Magnitude != 7.9 {
		t.Fatalf("sort=%s first=%v", f.SortField, f.VisibleSlice[0].Magnitude)
	}

	minMag := 7.5
	f = decodeBody[session.Frame](t, do(t, s, http.MethodPost, "/api/filter", FilterRequest{MinMag: &minMag}))
	for _, r := range f.VisibleSlice {
		if r.Magnitude < 7.5 {
			t.Fatalf("filter let through %v", r.Magnitude)
		}
	}
	if f.TotalExtent != 5 {
		t.Fatalf("filtered extent = %d", f.TotalExtent)
	}

	w := do(t, s, http.MethodPost, "/api/filter", FilterRequest{Expr: "mag >"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad expr status = %d", w.Code)
	}
	if e := decodeBody[ErrorResponse](t, w); e.Error != "invalid_filter" {
		t.Fatalf("error = %+v", e)
	}
}

func TestRecordLookup(t *testing.T) {
	s := newLoadedServer(t, 10)
	w := do(t, s, http.MethodGet, "/api/records/ev0004", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if r := decodeBody[model.Record](t, w); r.ID != "ev0004" || r.Place != "Place 4" {
		t.Fatalf("record = %+v", r)
	}
	if w := do(t, s, http.MethodGet, "/api/records/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing record status = %d", w.Code)
	}
}

func TestRefresh(t *testing.T) {
	empty := newLoadedServer(t, 0)
	if w := do(t, empty, http.MethodPost, "/api/refresh", nil); w.Code != http.StatusConflict {
		t.Fatalf("refresh without source status = %d", w.Code)
	}

	s := newLoadedServer(t, 30)
	if err := s.RefreshAndWait(context.Background()); err != nil {
		t.Fatalf("RefreshAndWait: %v", err)
	}
	st := decodeBody[StatusResponse](t, do(t, s, http.MethodGet, "/api/status", nil))
	if st.Session.Gen != 2 || st.Session.State != session.StateComplete || st.Collected != 30 {
		t.Fatalf("status = %+v", st)
	}
	if st.Refresh != nil {
		t.Fatalf("no scheduler configured, got %+v", st.Refresh)
	}
}

type pipedCatalog struct{ ingest.BufferSource }

func (pipedCatalog) OneShot() bool { return true }

func TestRefreshOneShotSourceConflicts(t *testing.T) {
	s := newLoadedServer(t, 0)
	st := s.Load(pipedCatalog{catalog(15)}, true)
	if err := s.Wait(context.Background(), st.Gen()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if w := do(t, s, http.MethodPost, "/api/refresh", nil); w.Code != http.StatusConflict {
		t.Fatalf("refresh of one-shot source status = %d", w.Code)
	}
	if err := s.RefreshAndWait(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Fatalf("RefreshAndWait err = %v", err)
	}
}
