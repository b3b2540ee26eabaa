// Package fuzzy resolves each source string to its best match in a target
// list, memoizing results through a matchcache.Store.
package fuzzy

import (
	"context"
	"math"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/hbollon/go-edlib"

	clovererrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/matchcache"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// NoMatch is the sentinel value for strings that resolved to nothing.
const NoMatch = "None"

// Scorer returns a 0-100 similarity between two strings.
type Scorer func(a, b string) int

// LevenshteinRatio is the default scorer, a normalized Levenshtein
// similarity scaled to 0-100.
func LevenshteinRatio(a, b string) int {
	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return int(math.Round(float64(sim) * 100))
}

// Config tunes matcher behavior.
type Config struct {
	// Scorer overrides the similarity function. Defaults to LevenshteinRatio.
	Scorer Scorer
	// SaveRetryDelay is the wait before retrying a failed cache save.
	// Defaults to 2s.
	SaveRetryDelay time.Duration
}

// Matcher scores source strings against a target list.
type Matcher struct {
	store          matchcache.Store
	scorer         Scorer
	logger         ectologger.Logger
	saveRetryDelay time.Duration
}

// NewMatcher creates a matcher with default configuration.
func NewMatcher(store matchcache.Store, logger ectologger.Logger) *Matcher {
	return NewMatcherWithConfig(Config{}, store, logger)
}

// NewMatcherWithConfig creates a matcher with explicit configuration.
func NewMatcherWithConfig(cfg Config, store matchcache.Store, logger ectologger.Logger) *Matcher {
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = LevenshteinRatio
	}
	retryDelay := cfg.SaveRetryDelay
	if retryDelay == 0 {
		retryDelay = 2 * time.Second
	}
	return &Matcher{
		store:          store,
		scorer:         scorer,
		logger:         logger,
		saveRetryDelay: retryDelay,
	}
}

// BestMatchAll resolves every source string to its best target match.
// Resolution order per string: empty string maps to NoMatch; a verbatim
// target match maps to itself; a cached result is reused; otherwise every
// target is scored, sub-threshold scores clamp to zero, and the first
// maximum in target order wins. All-zero scores map to NoMatch. The
// returned map always holds an entry for every distinct source string.
//
// Newly scored results are persisted through the store unless the
// namespace is matchcache.NoStore. A save failure is retried once and then
// logged; it never fails the run.
func (m *Matcher) BestMatchAll(ctx context.Context, source, target []string, threshold int, namespace string) (map[string]string, error) {
	ctx, span := tracing.StartSpan(ctx, "fuzzy.Matcher.BestMatchAll")
	defer span.End()

	if threshold < 0 || threshold > 100 {
		return nil, clovererrors.NewMatchConfigErrorf("threshold %d is outside 0-100", threshold).AddParameter("threshold")
	}
	if namespace == "" {
		return nil, clovererrors.NewMatchConfigError("namespace is required (use matchcache.NoStore to disable persistence)").AddParameter("namespace")
	}

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"namespace":    namespace,
		"source_count": len(source),
		"target_count": len(target),
		"threshold":    threshold,
	})

	cache := map[string]string{}
	if namespace != matchcache.NoStore {
		loaded, err := m.store.Load(ctx, namespace)
		if err != nil {
			log.WithError(err).Warn("Failed to load fuzzy cache, starting empty")
		} else {
			cache = loaded
		}
	}

	targetSet := make(map[string]bool, len(target))
	for _, t := range target {
		targetSet[t] = true
	}

	resolved := make(map[string]string, len(source))
	scored := 0

	for _, s := range source {
		if _, done := resolved[s]; done {
			continue
		}
		if s == "" {
			resolved[s] = NoMatch
			continue
		}
		if targetSet[s] {
			resolved[s] = s
			continue
		}
		if hit, ok := cache[s]; ok {
			resolved[s] = hit
			continue
		}

		best := m.bestMatch(s, target, threshold)
		cache[s] = best
		resolved[s] = best
		scored++
	}

	log.WithFields(map[string]any{
		"resolved": len(resolved),
		"scored":   scored,
	}).Debug("Fuzzy matching complete")

	if namespace != matchcache.NoStore && scored > 0 {
		m.persist(ctx, namespace, cache)
	}

	return resolved, nil
}

// bestMatch scores one string against every target and picks the first
// maximum in target order.
func (m *Matcher) bestMatch(s string, target []string, threshold int) string {
	bestScore := 0
	bestValue := NoMatch

	for _, t := range target {
		score := m.scorer(s, t)
		if score < threshold {
			score = 0
		}
		if score > bestScore {
			bestScore = score
			bestValue = t
		}
	}

	return bestValue
}

func (m *Matcher) persist(ctx context.Context, namespace string, cache map[string]string) {
	err := m.store.Save(ctx, namespace, cache)
	if err == nil {
		return
	}

	log := m.logger.WithContext(ctx).WithField("namespace", namespace)
	log.WithError(err).Warn("Failed to save fuzzy cache, retrying once")

	select {
	case <-ctx.Done():
		return
	case <-time.After(m.saveRetryDelay):
	}

	if err := m.store.Save(ctx, namespace, cache); err != nil {
		log.WithError(err).Error("Failed to save fuzzy cache after retry, continuing without persistence")
	}
}
