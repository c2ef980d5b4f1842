package tools

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// Policy names the tool-narrowing strategy a Selector applies.
type Policy string

const (
	PolicyAll             Policy = "all"
	PolicyKeywordCategory  Policy = "keyword-category"
	PolicySemantic         Policy = "semantic"
)

// Selector narrows the full tool set down to what a given turn's prompt
// should offer the LLM.
type Selector interface {
	Select(ctx context.Context, prompt string, all []Definition) ([]Definition, error)
}

// AllSelector is the identity selection: every registered tool is offered
// every turn.
type AllSelector struct{}

func (AllSelector) Select(_ context.Context, _ string, all []Definition) ([]Definition, error) {
	return all, nil
}

// KeywordCategorySelector offers only the tools whose Category name (or
// name) appears as a keyword in the prompt, plus any tool with no category
// (always offered, since an uncategorized tool can't be matched by keyword).
type KeywordCategorySelector struct{}

func (KeywordCategorySelector) Select(_ context.Context, prompt string, all []Definition) ([]Definition, error) {
	lower := strings.ToLower(prompt)
	var out []Definition
	for _, d := range all {
		if d.Category == "" {
			out = append(out, d)
			continue
		}
		if strings.Contains(lower, strings.ToLower(d.Category)) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Embedder computes a vector embedding for a piece of text. Implemented by
// an LLM provider's embedding endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SemanticSelector ranks tools by cosine similarity between the prompt's
// embedding and each tool's description embedding, keeping the top TopK
// among those meeting Threshold. Tool embeddings are computed lazily and
// cached keyed by name+description, so a changed description under the same
// name naturally misses the cache instead of serving a stale vector.
type SemanticSelector struct {
	embedder  Embedder
	topK      int
	threshold float32

	cacheMu sync.RWMutex
	cache   map[string][]float32
}

// NewSemanticSelector builds a selector that keeps at most topK tools whose
// similarity score is at least threshold. threshold may be 0 to disable the
// floor (every tool within topK qualifies, as before).
func NewSemanticSelector(embedder Embedder, topK int, threshold float32) *SemanticSelector {
	if topK <= 0 {
		topK = 10
	}
	return &SemanticSelector{embedder: embedder, topK: topK, threshold: threshold, cache: make(map[string][]float32)}
}

func (s *SemanticSelector) Select(ctx context.Context, prompt string, all []Definition) ([]Definition, error) {
	if len(all) <= s.topK {
		return all, nil
	}

	promptVec, err := s.embedder.Embed(ctx, prompt)
	if err != nil {
		return nil, err
	}

	type scored struct {
		def   Definition
		score float32
	}
	ranked := make([]scored, 0, len(all))
	for _, d := range all {
		vec, err := s.toolVector(ctx, d)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, scored{def: d, score: cosineSimilarity(promptVec, vec)})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if s.threshold > 0 {
		qualifying := ranked[:0:0]
		for _, r := range ranked {
			if r.score >= s.threshold {
				qualifying = append(qualifying, r)
			}
		}
		if len(qualifying) == 0 {
			// No result meets the threshold: offer the full, unfiltered list
			// rather than narrowing to nothing useful.
			return all, nil
		}
		ranked = qualifying
	}

	if len(ranked) > s.topK {
		ranked = ranked[:s.topK]
	}

	out := make([]Definition, len(ranked))
	for i, r := range ranked {
		out[i] = r.def
	}
	return out, nil
}

func (s *SemanticSelector) toolVector(ctx context.Context, d Definition) ([]float32, error) {
	key := d.Name + "\x00" + d.Description
	s.cacheMu.RLock()
	vec, ok := s.cache[key]
	s.cacheMu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := s.embedder.Embed(ctx, d.Name+": "+d.Description)
	if err != nil {
		return nil, err
	}
	s.cacheMu.Lock()
	s.cache[key] = vec
	s.cacheMu.Unlock()
	return vec, nil
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (sqrt32(normA) * sqrt32(normB))
}

func sqrt32(v float32) float32 { return float32(math.Sqrt(float64(v))) }
