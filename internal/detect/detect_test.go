package detect

import (
	"context"
	"testing"

	"quakeview/internal/model"
)

func TestResolveUsesCache(t *testing.T) {
	dir := t.TempDir()
	header := []string{"key", "when", "lat", "lon", "size"}
	if err := SaveMappingToCache(dir, header, Mapping{"key": model.FieldID, "when": model.FieldTime, "size": model.FieldMag}); err != nil {
		t.Fatalf("save: %v", err)
	}
	r := &Resolver{CacheDir: dir}
	g := r.Resolve(context.Background(), header, nil)
	if !g.Complete() {
		t.Fatalf("expected complete mapping from cache, missing=%v", g.Missing)
	}
	if g.Mapping["when"] != model.FieldTime {
		t.Fatalf("when -> %q", g.Mapping["when"])
	}
}

func TestResolveNoCacheSkipsLookup(t *testing.T) {
	dir := t.TempDir()
	header := []string{"key", "when", "lat", "lon", "size"}
	_ = SaveMappingToCache(dir, header, Mapping{"key": model.FieldID, "when": model.FieldTime, "size": model.FieldMag})
	r := &Resolver{CacheDir: dir, NoCache: true}
	if g := r.Resolve(context.Background(), header, nil); g.Complete() {
		t.Fatalf("cache should be ignored")
	}
}

func TestResolveDisabledAI(t *testing.T) {
	r := &Resolver{AI: NewOpenAIClient("", "", "m", 0)}
	g := r.Resolve(context.Background(), []string{"a", "b"}, nil)
	if g.Complete() || len(g.Missing) != len(model.RequiredFields) {
		t.Fatalf("unexpected guess: %+v", g)
	}
}

func TestToMappingFiltersUnknown(t *testing.T) {
	m := toMapping([]string{"when", "size"}, aiResponse{Mapping: map[string]string{"when": "time", "size": "bigness", "ghost": "id"}})
	if len(m) != 1 || m["when"] != model.FieldTime {
		t.Fatalf("unexpected mapping: %v", m)
	}
}
