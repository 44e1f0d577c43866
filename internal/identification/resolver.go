package identification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shelfscan/internal/coalesce"
	"shelfscan/internal/config"
	"shelfscan/internal/identification/overrides"
	"shelfscan/internal/identification/tmdb"
	"shelfscan/internal/logging"
	"shelfscan/internal/matching"
	"shelfscan/internal/services"
	"shelfscan/internal/titles"
	"shelfscan/internal/upc"
)

const (
	defaultRateLimit = 250 * time.Millisecond
	overrideScore    = 100
)

// Resolver turns barcodes into identified titles.
type Resolver struct {
	upc            upc.Looker
	search         *tmdbSearch
	overrides      *overrides.Catalog
	cache          coalesce.Cache
	group          *coalesce.Group
	upcTTL         time.Duration
	thresholds     matching.Thresholds
	shortCircuit   float64
	includePersons bool
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRateLimit sets the minimum spacing between TMDB calls. Zero disables it.
func WithRateLimit(interval time.Duration) Option {
	return func(r *Resolver) {
		if interval >= 0 {
			r.search.rateLimit = interval
		}
	}
}

// WithClock overrides the time source used for year bounds and timing.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithOverrides attaches a barcode pin catalog.
func WithOverrides(catalog *overrides.Catalog) Option {
	return func(r *Resolver) {
		r.overrides = catalog
	}
}

// WithGroup shares a coalescing group with other components.
func WithGroup(group *coalesce.Group) Option {
	return func(r *Resolver) {
		if group != nil {
			r.group = group
			r.search.group = group
		}
	}
}

// NewResolver builds a resolver with real UPC and TMDB clients.
func NewResolver(cfg *config.Config, cache coalesce.Cache, logger *slog.Logger, opts ...Option) (*Resolver, error) {
	if err := cfg.RequireTMDB(); err != nil {
		return nil, err
	}
	tmdbClient, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
		tmdb.WithTimeout(time.Duration(cfg.TMDB.RequestTimeoutSeconds)*time.Second))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "identification", "tmdb client", "", err)
	}
	upcClient, err := upc.New(cfg.UPC.BaseURL, cfg.UPC.APIKey,
		upc.WithTimeout(time.Duration(cfg.UPC.RequestTimeoutSeconds)*time.Second))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "identification", "upc client", "", err)
	}
	opts = append([]Option{WithOverrides(overrides.NewCatalog(cfg.Identification.OverridesPath, logger))}, opts...)
	return NewResolverWithDependencies(cfg, cache, logger, upcClient, tmdbClient, opts...), nil
}

// NewResolverWithDependencies allows injecting the UPC and TMDB clients (used in tests).
func NewResolverWithDependencies(cfg *config.Config, cache coalesce.Cache, logger *slog.Logger, looker upc.Looker, searcher tmdb.Searcher, opts ...Option) *Resolver {
	group := &coalesce.Group{}
	r := &Resolver{
		upc:   looker,
		cache: cache,
		group: group,
		search: &tmdbSearch{
			client:     searcher,
			cache:      cache,
			group:      group,
			searchTTL:  cfg.NamespaceTTL(searchNamespace),
			detailsTTL: cfg.NamespaceTTL(detailsNamespace),
			rateLimit:  defaultRateLimit,
		},
		upcTTL: cfg.NamespaceTTL(upcNamespace),
		thresholds: matching.Thresholds{
			MinScore:      cfg.Identification.ReviewThreshold,
			YearTolerance: cfg.Identification.YearTolerance,
			MinPopularity: cfg.Identification.MinPopularity,
		},
		shortCircuit:   cfg.Identification.ShortCircuitScore,
		includePersons: cfg.Identification.IncludePersonStrategies,
		logger:         logging.NewComponentLogger(logger, "identification"),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type searchOutcome struct {
	best      *matching.Match
	strategy  string
	legacy    bool
	attempted int
	failed    int
}

// Resolve identifies barcode. It fails on an invalid barcode, a UPC lookup
// failure or a detail fetch failure; a search that finds nothing yields a
// placeholder candidate that needs review.
func (r *Resolver) Resolve(ctx context.Context, barcode string) (*Resolution, error) {
	start := r.now()
	code, err := upc.ValidateBarcode(barcode)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	ctx = services.WithBarcode(services.WithRequestID(ctx, requestID), code)
	logger := logging.WithContext(ctx, r.logger)

	product, err := coalesce.Through(ctx, r.cache, r.group, upcNamespace, code, r.upcTTL,
		func(ctx context.Context) (*upc.ProductRecord, error) {
			return r.upc.Lookup(ctx, code)
		})
	if err != nil {
		logger.Warn("upc lookup failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "upc_lookup_failed"),
			logging.String(logging.FieldErrorHint, "check the barcode or the upc service status"),
			logging.String(logging.FieldImpact, "barcode cannot be identified"))
		return nil, err
	}

	cleanTitle := titles.CleanTitle(product.RawTitle)
	year, _ := titles.ExtractYearAt(product.RawTitle, r.now())
	res := &Resolution{
		RequestID:       requestID,
		Barcode:         code,
		UPCData:         product,
		PhysicalEdition: titles.ExtractPhysicalEdition(product.Texts()...),
		CleanTitle:      cleanTitle,
		ExtractedYear:   year,
	}
	logger.Debug("product title normalized",
		logging.String("raw_title", product.RawTitle),
		logging.String("clean_title", cleanTitle),
		logging.Int("extracted_year", year))

	if pinned, ok := r.lookupOverride(logger, code); ok {
		return r.finishMatch(ctx, logger, res, pinned, matching.Decision{Reason: "pinned by override"}, "override", start)
	}

	outcome, err := r.runStrategies(ctx, logger, cleanTitle, year, titles.ExtractCredits(product.Description))
	if err != nil {
		return nil, err
	}
	if outcome.best == nil {
		return r.finishPlaceholder(logger, res, product, outcome, start)
	}

	decision := r.thresholds.Review(outcome.best, false, year)
	if outcome.legacy {
		logger.Debug("confidence recomputed for legacy cache entry",
			logging.Int64("tmdb_id", outcome.best.ExternalID),
			logging.Float64("confidence", outcome.best.Score))
	}
	return r.finishMatch(ctx, logger, res, *outcome.best, decision, outcome.strategy, start)
}

// runStrategies executes the search plan in order. A strategy whose call
// fails or finds nothing usable is skipped.
func (r *Resolver) runStrategies(ctx context.Context, logger *slog.Logger, title string, year int, credits titles.Credits) (searchOutcome, error) {
	var outcome searchOutcome
	plan := buildStrategies(title, year, credits, r.includePersons)

	attrs := []logging.Attr{
		logging.String("query", title),
		logging.Int("year", year),
		logging.Int("strategy_count", len(plan)),
		logging.String(logging.FieldEventType, "decision_summary"),
	}
	attrs = append(attrs, logging.DecisionAttrs("tmdb_search", "planned", fmt.Sprintf("cast=%d directors=%d", len(credits.Cast), len(credits.Directors)))...)
	for idx, st := range plan {
		attrs = append(attrs, logging.String(fmt.Sprintf("strategy_%d", idx+1), st.name))
	}
	logger.Debug("tmdb search plan", logging.Args(attrs...)...)

	for _, st := range plan {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		outcome.attempted++
		record, err := r.search.search(ctx, st.query, title, year)
		if err != nil {
			outcome.failed++
			logger.Warn("tmdb search attempt failed",
				logging.String("strategy", st.name),
				logging.String("query", st.query),
				logging.Error(err),
				logging.String(logging.FieldEventType, "tmdb_search_failed"),
				logging.String(logging.FieldErrorHint, "verify TMDB credentials and connectivity"),
				logging.String(logging.FieldImpact, "trying next search strategy"))
			continue
		}
		match, legacy, ok := bestOfRecord(record, title, year)
		if !ok {
			logger.Debug("search strategy returned no usable results",
				logging.String("strategy", st.name),
				logging.String("query", st.query))
			continue
		}
		logger.Debug("search strategy scored",
			logging.String("strategy", st.name),
			logging.Int64("tmdb_id", match.ExternalID),
			logging.String("title", match.Title),
			logging.Float64("score", match.Score))
		if outcome.best == nil || match.Score > outcome.best.Score {
			outcome.best = &match
			outcome.strategy = st.name
			outcome.legacy = legacy
		}
		if st.highPriority && match.Score > r.shortCircuit {
			logger.Debug("search short-circuited",
				logging.String("strategy", st.name),
				logging.Float64("score", match.Score),
				logging.Float64("threshold", r.shortCircuit))
			break
		}
	}
	return outcome, nil
}

func (r *Resolver) lookupOverride(logger *slog.Logger, code string) (matching.Match, bool) {
	pinned, ok, err := r.overrides.Lookup(code)
	if err != nil {
		logger.Warn("barcode override lookup failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "override_lookup_failed"),
			logging.String(logging.FieldErrorHint, "fix the overrides file"),
			logging.String(logging.FieldImpact, "falling back to search"))
		return matching.Match{}, false
	}
	if !ok {
		return matching.Match{}, false
	}
	logger.Info("barcode pinned by override",
		logging.Int64("tmdb_id", pinned.TMDBID),
		logging.String("media_type", pinned.MediaType))
	return matching.Match{
		Candidate: matching.Candidate{
			ExternalID: pinned.TMDBID,
			Title:      pinned.Title,
			MediaType:  pinned.MediaType,
		},
		Score: overrideScore,
	}, true
}

func (r *Resolver) finishMatch(ctx context.Context, logger *slog.Logger, res *Resolution, match matching.Match, decision matching.Decision, strategy string, start time.Time) (*Resolution, error) {
	raw, err := r.search.details(ctx, match.MediaType, match.ExternalID)
	if err != nil {
		logger.Warn("tmdb detail fetch failed",
			logging.Int64("tmdb_id", match.ExternalID),
			logging.String("media_type", match.MediaType),
			logging.Error(err),
			logging.String(logging.FieldEventType, "tmdb_details_failed"),
			logging.String(logging.FieldErrorHint, "retry the scan"),
			logging.String(logging.FieldImpact, "identification aborted after a candidate was chosen"))
		return nil, services.Wrap(services.ErrDetailFetchFailed, "identification", "fetch details",
			detailsCacheKey(match.MediaType, match.ExternalID), err)
	}
	overlaid, err := overlayDetails(raw, match.Score, match.MediaType)
	if err != nil {
		return nil, services.Wrap(services.ErrDetailFetchFailed, "identification", "decode details",
			detailsCacheKey(match.MediaType, match.ExternalID), err)
	}
	if match.Title == "" {
		match.Title = detailTitle(raw)
	}

	res.TMDBData = overlaid
	res.Candidate = matchCandidate(match, decision.NeedsReview)
	res.Confidence = match.Score
	res.NeedsReview = decision.NeedsReview
	res.ReviewReason = decision.Reason
	res.Strategy = strategy
	res.Elapsed = r.now().Sub(start)
	r.logResolution(logger, res)
	return res, nil
}

func (r *Resolver) finishPlaceholder(logger *slog.Logger, res *Resolution, product *upc.ProductRecord, outcome searchOutcome, start time.Time) (*Resolution, error) {
	name := res.CleanTitle
	if name == "" {
		name = product.RawTitle
	}
	decision := r.thresholds.Review(nil, true, res.ExtractedYear)
	record, err := json.Marshal(placeholderRecord{Title: name, NeedsManualReview: true, Placeholder: true})
	if err != nil {
		return nil, fmt.Errorf("marshal placeholder: %w", err)
	}
	logger.Info("no tmdb match, routing to review",
		logging.String("title", name),
		logging.Int("strategies_attempted", outcome.attempted),
		logging.Int("strategies_failed", outcome.failed),
		logging.Alert("review"))

	res.TMDBData = record
	res.Candidate = placeholderCandidate(name)
	res.Confidence = 0
	res.NeedsReview = true
	res.ReviewReason = decision.Reason
	res.Elapsed = r.now().Sub(start)
	r.logResolution(logger, res)
	return res, nil
}

func (r *Resolver) logResolution(logger *slog.Logger, res *Resolution) {
	result := "accepted"
	if res.NeedsReview {
		result = "review"
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "decision_summary"),
		logging.String("clean_title", res.CleanTitle),
		logging.String("candidate_kind", string(res.Candidate.Kind)),
		logging.String("candidate_title", res.Candidate.Title),
		logging.Float64("confidence", res.Confidence),
		logging.String("strategy", res.Strategy),
		logging.Duration("elapsed", res.Elapsed),
	}
	attrs = append(attrs, logging.DecisionAttrs("manual_review", result, res.ReviewReason)...)
	logger.Info("barcode resolved", logging.Args(attrs...)...)
}
