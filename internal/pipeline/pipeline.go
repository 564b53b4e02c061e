// Package pipeline runs the analysis end to end: load inputs, map barcodes
// to the pool, aggregate gene fitness, classify essential genes, rank
// combined scores and optionally query STRING for the selected genes.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rbseq/phbfit/internal/annotation"
	"github.com/rbseq/phbfit/internal/barseq"
	"github.com/rbseq/phbfit/internal/essential"
	"github.com/rbseq/phbfit/internal/fitness"
	"github.com/rbseq/phbfit/internal/input"
	"github.com/rbseq/phbfit/internal/mapper"
	"github.com/rbseq/phbfit/internal/pool"
	"github.com/rbseq/phbfit/internal/rank"
	"github.com/rbseq/phbfit/internal/stringdb"
)

// Result holds every table a run produced. Tables whose inputs were not
// configured are nil.
type Result struct {
	Pool       *pool.Pool
	Mapped     []mapper.MappedBarcode
	GeneCounts []mapper.GeneCount
	Diversity  []mapper.SampleDiversity
	ColumnSums []barseq.ColumnSum

	Annotations annotation.Index
	Records     []fitness.Record
	Summaries   []fitness.Summary

	// EssentialityRecords come from Inputs.Essentiality, never from the
	// screen in Records.
	EssentialityRecords []fitness.Record
	Essentiality        []essential.Flag

	// Ranked holds every combined score in rank order; Selected is the
	// top-N or threshold subset of it.
	Ranked   []rank.Score
	Selected []rank.Score
	Sampled  []rank.Score

	Interactions []stringdb.Interaction
	NetworkErr   error // set when the STRING step failed; the run still succeeds
}

type runner struct {
	cfg    Config
	opener *input.Opener
	logger *zap.Logger
}

// Run executes every step whose inputs are configured.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	r := &runner{cfg: cfg, opener: cfg.Opener, logger: cfg.Logger}
	if r.opener == nil {
		r.opener = input.NewOpener(cfg.S3)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	res := &Result{}
	steps := []struct {
		name string
		fn   func(context.Context, *Result) error
	}{
		{"map", r.mapBarcodes},
		{"aggregate", r.aggregate},
		{"essential", r.classify},
		{"rank", r.rank},
		{"network", r.network},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.fn(ctx, res); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return res, nil
}

// load opens path and passes its contents to fn.
func (r *runner) load(ctx context.Context, path string, fn func(io.Reader) error) error {
	rc, err := r.opener.Open(ctx, path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := fn(rc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (r *runner) mapBarcodes(ctx context.Context, res *Result) error {
	in := r.cfg.Inputs
	if in.ColSums != "" {
		if err := r.load(ctx, in.ColSums, func(rd io.Reader) (err error) {
			res.ColumnSums, err = barseq.LoadColSums(rd)
			return err
		}); err != nil {
			return err
		}
	}
	if in.Pool == "" || (in.PoolCount == "" && in.Codes == "") {
		return nil
	}

	if err := r.load(ctx, in.Pool, func(rd io.Reader) (err error) {
		res.Pool, err = pool.Load(rd)
		return err
	}); err != nil {
		return err
	}
	if n := res.Pool.Duplicates(); n > 0 {
		r.logger.Warn("dropped duplicate pool barcodes", zap.Int("duplicates", n))
	}

	if in.Genes != "" {
		var genes []*pool.Gene
		if err := r.load(ctx, in.Genes, func(rd io.Reader) (err error) {
			genes, err = pool.LoadGenes(rd)
			return err
		}); err != nil {
			return err
		}
		res.Pool.AssignLoci(pool.NewLocator(genes), r.cfg.Locus.MinFraction, r.cfg.Locus.MaxFraction, r.logger)
	}

	var obs []barseq.BarcodeCount
	if in.PoolCount != "" {
		if err := r.load(ctx, in.PoolCount, func(rd io.Reader) error {
			records, err := barseq.LoadPoolCount(rd)
			obs = barseq.Observations(records)
			return err
		}); err != nil {
			return err
		}
	} else {
		if err := r.load(ctx, in.Codes, func(rd io.Reader) (err error) {
			obs, err = barseq.LoadCodes(rd, in.CodesSample)
			return err
		}); err != nil {
			return err
		}
	}

	res.Mapped = mapper.Map(obs, res.Pool)
	res.GeneCounts = mapper.GeneCounts(res.Mapped)
	res.Diversity = mapper.Diversity(res.Mapped)

	unmapped := 0
	for _, m := range res.Mapped {
		if !m.Mapped {
			unmapped++
		}
	}
	r.logger.Info("mapped barcodes to pool",
		zap.Int("observations", len(res.Mapped)),
		zap.Int("unmapped", unmapped),
		zap.Int("pool_size", res.Pool.Len()))
	return nil
}

func (r *runner) aggregate(ctx context.Context, res *Result) error {
	in := r.cfg.Inputs
	if in.Fitness == "" {
		return nil
	}
	if in.Annotation != "" {
		if err := r.load(ctx, in.Annotation, func(rd io.Reader) error {
			idx, dropped, err := annotation.Load(in.Annotation, rd)
			if dropped > 0 {
				r.logger.Warn("dropped duplicate annotation rows", zap.Int("dropped", dropped))
			}
			res.Annotations = idx
			return err
		}); err != nil {
			return err
		}
	}
	if err := r.load(ctx, in.Fitness, func(rd io.Reader) (err error) {
		res.Records, err = fitness.Load(rd)
		return err
	}); err != nil {
		return err
	}

	agg := fitness.NewAggregator(res.Annotations)
	agg.SetLogger(r.logger)
	res.Summaries = agg.Summarize(res.Records)
	r.logger.Info("aggregated gene fitness",
		zap.Int("records", len(res.Records)),
		zap.Int("summaries", len(res.Summaries)))
	return nil
}

func (r *runner) classify(ctx context.Context, res *Result) error {
	path := r.cfg.Inputs.Essentiality
	if path == "" {
		return nil
	}
	if err := r.load(ctx, path, func(rd io.Reader) (err error) {
		res.EssentialityRecords, err = fitness.Load(rd)
		return err
	}); err != nil {
		return err
	}
	res.Essentiality = essential.Classify(res.EssentialityRecords, r.cfg.Essential)
	set := essential.NewSet(res.Essentiality)
	r.logger.Info("classified essential genes",
		zap.Float64("cutoff", r.cfg.Essential.Cutoff),
		zap.String("time", r.cfg.Essential.Time),
		zap.Int("essential", set.Count()))
	return nil
}

func (r *runner) rank(_ context.Context, res *Result) error {
	rk := r.cfg.Ranking
	if res.Summaries == nil || rk.ConditionA == "" || rk.ConditionB == "" {
		return nil
	}

	a := selectCondition(res.Summaries, rk.ConditionA, rk.Fraction)
	b := selectCondition(res.Summaries, rk.ConditionB, rk.Fraction)
	if len(a) == 0 || len(b) == 0 {
		return fmt.Errorf("no fitness summaries for conditions %q and %q (fraction %q)",
			rk.ConditionA, rk.ConditionB, rk.Fraction)
	}

	scores := rank.Combine(a, b, rk.Stat)
	switch {
	case rk.ExcludeEssential && res.Essentiality == nil:
		r.logger.Warn("no essentiality table configured, essential genes are not excluded")
	case rk.ExcludeEssential:
		substrates := r.cfg.Essential.Substrates
		if len(substrates) == 0 {
			substrates = []string{rk.ConditionA, rk.ConditionB}
		}
		before := len(scores)
		scores = rank.ExcludeEssential(scores, essential.NewSet(res.Essentiality), substrates, rk.ExcludeMode)
		r.logger.Info("excluded essential genes from ranking",
			zap.Int("excluded", before-len(scores)),
			zap.Strings("substrates", substrates),
			zap.String("mode", string(rk.ExcludeMode)))
	}

	res.Ranked = rank.Rank(scores, rk.Direction)
	switch {
	case rk.UseThreshold:
		res.Selected = rank.Threshold(res.Ranked, rk.Direction, rk.Threshold)
	case rk.TopN > 0:
		res.Selected = rank.Top(res.Ranked, rk.TopN)
	default:
		res.Selected = res.Ranked
	}
	if r.cfg.Sample.N > 0 {
		res.Sampled = rank.Sample(res.Selected, r.cfg.Sample.N, r.cfg.Sample.Seed)
	}

	r.logger.Info("ranked combined scores",
		zap.String("direction", string(rk.Direction)),
		zap.Int("scored", len(res.Ranked)),
		zap.Int("selected", len(res.Selected)))
	return nil
}

// selectCondition keeps one summary per locus for a condition. With no
// fraction set, the first fraction in sort order is used per locus.
func selectCondition(summaries []fitness.Summary, condition, fraction string) []fitness.Summary {
	if fraction != "" {
		return fitness.Filter(summaries, condition, fraction)
	}
	seen := make(map[string]bool)
	var out []fitness.Summary
	for _, s := range summaries {
		if s.Condition == condition && !seen[s.LocusTag] {
			seen[s.LocusTag] = true
			out = append(out, s)
		}
	}
	return out
}

func (r *runner) network(ctx context.Context, res *Result) error {
	nc := r.cfg.Network
	if !nc.Enabled || len(res.Selected) == 0 {
		return nil
	}

	client := stringdb.NewClient(nc.BaseURL)
	client.SetLogger(r.logger)
	client.SetRequiredScore(nc.RequiredScore)
	if nc.Timeout > 0 {
		client.SetTimeout(nc.Timeout)
	}

	ids := make([]string, len(res.Selected))
	for i, s := range res.Selected {
		ids[i] = s.LocusTag
	}
	edges, err := client.Network(ctx, ids, nc.Taxon)
	if err != nil {
		res.NetworkErr = err
		r.logger.Warn("skipping STRING network step", zap.Error(err))
		return nil
	}
	res.Interactions = edges
	return nil
}
