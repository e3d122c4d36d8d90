package taxonomy

import (
	"context"
	"log/slog"
	"time"

	"taxsun/internal/hits"
	"taxsun/internal/slogutil"
)

// Result is the aggregation output for one dataset.
type Result struct {
	Lineages       []Lineage   `json:"lns" yaml:"lns"`
	Taxa           TaxonSet    `json:"taxSet" yaml:"taxSet"`
	ScoresEnabled  bool        `json:"eValueEnabled" yaml:"eValueEnabled"`
	HeadersEnabled bool        `json:"fastaEnabled" yaml:"fastaEnabled"`
	RankPattern    RankPattern `json:"rankPatternFull" yaml:"rankPatternFull"`
}

// Summary is a compact description of a Result.
type Summary struct {
	Taxa     int `json:"taxa" yaml:"taxa"`
	Lineages int `json:"lineages" yaml:"lineages"`
	Hits     int `json:"hits" yaml:"hits"`
}

// Summary counts taxa, lineages and hits. Hits is the root's total.
func (r *Result) Summary() Summary {
	s := Summary{Taxa: len(r.Taxa), Lineages: len(r.Lineages)}
	if root, ok := r.Taxa[RootKey]; ok {
		s.Hits = root.TotCount
	}
	return s
}

// Engine runs the aggregation pipeline. It holds no per-dataset state and is
// safe for concurrent use when its resolver is.
type Engine struct {
	resolver Resolver
	ranks    RankPattern
	logger   *slog.Logger
}

// NewEngine creates an engine. A nil or empty rank pattern selects
// DefaultRankPattern.
func NewEngine(resolver Resolver, ranks RankPattern, logger *slog.Logger) *Engine {
	if len(ranks) == 0 {
		ranks = DefaultRankPattern()
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Engine{
		resolver: resolver,
		ranks:    ranks.WithRoot(),
		logger:   logger,
	}
}

// RankPattern returns the pattern used for collapsing.
func (e *Engine) RankPattern() RankPattern {
	return e.ranks
}

// Run parses header and lines and aggregates the records. Zero data lines
// yield a root-only result.
func (e *Engine) Run(ctx context.Context, header string, lines []string) (*Result, error) {
	cols, records, err := hits.Parse(header, lines)
	if err != nil {
		return nil, err
	}
	return e.Aggregate(ctx, cols, records)
}

// Aggregate runs the pipeline over already parsed records.
func (e *Engine) Aggregate(ctx context.Context, cols hits.Columns, records []hits.Record) (*Result, error) {
	start := time.Now()

	raw, err := BuildRawIndex(ctx, e.resolver, cols, records, e.logger)
	if err != nil {
		return nil, err
	}

	taxa, trimmed := Collapse(raw, e.ranks)
	e.logger.Debug("Lineages collapsed", "taxa", len(taxa))

	lineages := Canonicalize(trimmed)
	e.logger.Debug("Lineages canonicalized", "before", len(trimmed), "after", len(lineages))

	if err := Propagate(lineages, taxa); err != nil {
		return nil, err
	}
	NormalizeHitOrder(taxa)

	res := &Result{
		Lineages:       lineages,
		Taxa:           taxa,
		ScoresEnabled:  cols.Scores,
		HeadersEnabled: cols.Headers,
		RankPattern:    append(RankPattern(nil), e.ranks...),
	}
	sum := res.Summary()
	e.logger.Info("Dataset aggregated",
		"records", len(records),
		"taxa", sum.Taxa,
		"lineages", sum.Lineages,
		"hits", sum.Hits,
		"duration", time.Since(start),
	)
	return res, nil
}
