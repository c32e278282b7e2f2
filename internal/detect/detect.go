package detect

import (
	"context"

	"quakeview/internal/util/logx"
)

// Resolver turns a source header into a Mapping: heuristics first, then the
// on-disk cache, then the OpenAI fallback when configured.
type Resolver struct {
	AI       *OpenAIClient
	CacheDir string
	NoCache  bool
}

// Resolve never fails outright. An incomplete mapping is returned as-is and
// the rows it produces are rejected for missing fields.
func (r *Resolver) Resolve(ctx context.Context, header []string, sample [][]string) Guess {
	g := Heuristics(header)
	if g.Complete() || r == nil {
		return g
	}
	logx.Debugf("detect: heuristics missing %v", g.Missing)
	if !r.NoCache {
		if m, ok := LoadMappingFromCache(r.CacheDir, header); ok {
			if cg := g.Mapping.Merge(m).Guess(); cg.Complete() {
				logx.Infof("detect: using cached header mapping")
				return cg
			}
		}
	}
	if r.AI == nil {
		return g
	}
	m, err := r.AI.InferMapping(ctx, header, sample)
	if err != nil {
		logx.Warnf("detect: openai fallback failed: %v", err)
		return g
	}
	ag := g.Mapping.Merge(m).Guess()
	if ag.Complete() && !r.NoCache {
		if err := SaveMappingToCache(r.CacheDir, header, ag.Mapping); err != nil {
			logx.Warnf("detect: cache save failed: %v", err)
		}
	}
	return ag
}
