// Package search implements the tiered place lookup: exact name, exact
// category element, broad substring match, and the expansion fallback,
// with a uniform ranking and an open-right-now post-filter.
package search

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Agustinnra/turicanje-bot/internal/geo"
	"github.com/Agustinnra/turicanje-bot/internal/hours"
	"github.com/Agustinnra/turicanje-bot/internal/logger"
	"github.com/Agustinnra/turicanje-bot/internal/models"
)

// DefaultLimit is how many candidates each tier fetches. The cap applies
// before the open-now filter, so callers over-fetch relative to the page
// size they display.
const DefaultLimit = 10

// maxExpansionTerms caps the synonym list the expander may contribute
const maxExpansionTerms = 4

// Tier identifies which stage of the cascade produced a result set
type Tier int

const (
	TierNone Tier = iota
	// TierName: exact (accent-folded) business-name equality
	TierName
	// TierCategory: exact element match in the categories collection
	TierCategory
	// TierBroad: substring match across categories/products/category
	TierBroad
	// TierExpanded: broad match rerun with LLM-expanded synonyms
	TierExpanded
	// TierNearby: craving ignored, anything currently open near the user
	TierNearby
)

func (t Tier) String() string {
	switch t {
	case TierName:
		return "name"
	case TierCategory:
		return "category"
	case TierBroad:
		return "broad"
	case TierExpanded:
		return "expanded"
	case TierNearby:
		return "nearby"
	}
	return "none"
}

// Catalog is the queryable store of places. Every method returns
// candidates already ordered by cashback desc, priority desc, id asc;
// the engine re-ranks by distance when the user location is known.
type Catalog interface {
	ByExactName(ctx context.Context, folded string, limit int) ([]models.Place, error)
	ByCategoryExact(ctx context.Context, terms []string, limit int) ([]models.Place, error)
	ByBroadMatch(ctx context.Context, terms []string, limit int) ([]models.Place, error)
	AnyRanked(ctx context.Context, limit int) ([]models.Place, error)
}

// Expander supplies up to four same-dish synonyms for a craving term
type Expander interface {
	Expand(ctx context.Context, term string) ([]string, error)
}

// Result is a place annotated at query time
type Result struct {
	Place models.Place
	// Open and Hint come from the hours resolver at query time
	Open bool
	Hint string
	// DistanceMeters is geo.Unknown when the user location or the place
	// coordinates are missing
	DistanceMeters float64
	DistanceText   string
}

// ResultSet is the ranked, open-only outcome of one cascade run
type ResultSet struct {
	Query string
	Tier  Tier
	// UsedExpansion tells the caller to soften its copy: the results
	// came from synonym expansion, not the literal term
	UsedExpansion bool
	// MatchedCount is how many candidates matched before the open-now
	// filter; MatchedCount > 0 with empty Results means everything that
	// matched is closed right now
	MatchedCount int
	Results      []Result
}

// Options tunes one search
type Options struct {
	// Location enables distance ranking and the nearby fallback
	Location *geo.Point
	// Limit caps candidates per tier; DefaultLimit when zero
	Limit int
	// BusinessName makes the engine try exact-name resolution first
	BusinessName bool
}

// Engine runs the cascade against a catalog
type Engine struct {
	catalog  Catalog
	expander Expander
	now      func() time.Time
	log      *zap.SugaredLogger
}

// NewEngine builds a search engine. expander may be nil, which disables
// the expansion fallback.
func NewEngine(catalog Catalog, expander Expander) *Engine {
	return &Engine{
		catalog:  catalog,
		expander: expander,
		now:      time.Now,
		log:      logger.GetLogger("search"),
	}
}

// WithClock overrides the engine's notion of "now" (tests)
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Search runs the tier cascade for the query term. Each tier
// short-circuits on the first non-empty candidate set; the returned
// results are ranked and contain only places open right now.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*ResultSet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	set := &ResultSet{Query: query, Tier: TierNone}

	candidates, tier, usedExpansion, err := e.cascade(ctx, query, limit, opts.BusinessName)
	if err != nil {
		return nil, err
	}
	set.Tier = tier
	set.UsedExpansion = usedExpansion
	set.MatchedCount = len(candidates)

	ranked := e.rank(e.annotate(candidates, opts.Location), opts.Location)
	set.Results = FilterOpen(ranked)

	// Everything that matched is closed: with a location we can still
	// offer whatever is open nearby, craving ignored.
	if len(set.Results) == 0 && len(candidates) > 0 && opts.Location != nil {
		e.log.Infof("all %d matches for %q closed, falling back to nearby", len(candidates), query)
		nearby, err := e.catalog.AnyRanked(ctx, limit)
		if err != nil {
			return nil, err
		}
		set.Tier = TierNearby
		set.Results = FilterOpen(e.rank(e.annotate(nearby, opts.Location), opts.Location))
	}

	e.log.Infof("search %q tier=%s matched=%d open=%d", query, set.Tier, set.MatchedCount, len(set.Results))
	return set, nil
}

// cascade walks the tiers until one yields candidates
func (e *Engine) cascade(ctx context.Context, query string, limit int, businessName bool) ([]models.Place, Tier, bool, error) {
	if businessName {
		places, err := e.catalog.ByExactName(ctx, Fold(query), limit)
		if err != nil {
			return nil, TierNone, false, err
		}
		if len(places) > 0 {
			return places, TierName, false, nil
		}
	}

	terms := Variants(query)
	if len(terms) == 0 {
		return nil, TierNone, false, nil
	}

	places, err := e.catalog.ByCategoryExact(ctx, terms, limit)
	if err != nil {
		return nil, TierNone, false, err
	}
	if len(places) > 0 {
		return places, TierCategory, false, nil
	}

	places, err = e.catalog.ByBroadMatch(ctx, terms, limit)
	if err != nil {
		return nil, TierNone, false, err
	}
	if len(places) > 0 {
		return places, TierBroad, false, nil
	}

	if e.expander == nil {
		return nil, TierNone, false, nil
	}

	expanded := e.expandTerms(ctx, query)
	if len(expanded) == 0 {
		return nil, TierNone, false, nil
	}
	places, err = e.catalog.ByBroadMatch(ctx, expanded, limit)
	if err != nil {
		return nil, TierNone, false, err
	}
	if len(places) > 0 {
		return places, TierExpanded, true, nil
	}
	return nil, TierNone, false, nil
}

// expandTerms asks the expander for synonyms; on failure the search just
// proceeds without expansion.
func (e *Engine) expandTerms(ctx context.Context, query string) []string {
	extra, err := e.expander.Expand(ctx, query)
	if err != nil {
		e.log.Warnf("term expansion for %q failed: %v", query, err)
		return nil
	}

	terms := Variants(query)
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		seen[t] = true
	}
	added := 0
	for _, t := range extra {
		if added >= maxExpansionTerms {
			break
		}
		t = Fold(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
		added++
	}
	if added == 0 {
		return nil
	}
	return terms
}

// annotate stamps open status and distance onto each candidate
func (e *Engine) annotate(places []models.Place, loc *geo.Point) []Result {
	now := e.now()
	results := make([]Result, 0, len(places))
	for _, p := range places {
		st := hours.Resolve(&p, now)
		r := Result{
			Place:          p,
			Open:           st.Open,
			Hint:           st.Hint,
			DistanceMeters: geo.Unknown,
		}
		if loc != nil {
			r.DistanceMeters = geo.DistanceTo(*loc, p.Lat, p.Lng)
			r.DistanceText = geo.FormatDistance(r.DistanceMeters)
		}
		results = append(results, r)
	}
	return results
}

// rank orders results: cashback first, then priority descending, then
// distance ascending when a location is known. The sort is stable, so
// without a location the catalog's deterministic id order survives.
func (e *Engine) rank(results []Result, loc *geo.Point) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Place.Cashback != b.Place.Cashback {
			return a.Place.Cashback
		}
		if a.Place.Priority != b.Place.Priority {
			return a.Place.Priority > b.Place.Priority
		}
		if loc != nil && a.DistanceMeters != b.DistanceMeters {
			return a.DistanceMeters < b.DistanceMeters
		}
		return false
	})
	return results
}

// FilterOpen removes results that are closed right now. A list that is
// already open-only comes back unchanged.
func FilterOpen(results []Result) []Result {
	allOpen := true
	for _, r := range results {
		if !r.Open {
			allOpen = false
			break
		}
	}
	if allOpen {
		return results
	}
	open := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Open {
			open = append(open, r)
		}
	}
	return open
}
