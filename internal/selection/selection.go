// Package selection evaluates a whole catalogue against one job context.
package selection

import (
	"context"
	"runtime"

	"github.com/TimurManjosov/packgenie/internal/engine"
	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/sourcegraph/conc/pool"
)

// Options controls a selection run.
type Options struct {
	// IncludeDisabled evaluates packs whose Enabled flag is false.
	IncludeDisabled bool
	// Workers bounds concurrent evaluations. Zero means GOMAXPROCS.
	Workers int
}

// PackResult is the outcome for one pack. Verdict is nil when the pack
// was skipped.
type PackResult struct {
	PackID  string          `json:"packId"`
	Title   string          `json:"title"`
	Enabled bool            `json:"enabled"`
	Skipped bool            `json:"skipped"`
	Verdict *engine.Verdict `json:"verdict,omitempty"`
}

// Result lists every pack in catalogue order plus the ids that should be
// included in the job.
type Result struct {
	Results  []PackResult `json:"results"`
	Selected []string     `json:"selected"`
}

// Select evaluates packs against jobCtx on a bounded pool. Results keep the
// order of packs regardless of completion order. A cancelled ctx stops
// outstanding evaluations and returns ctx.Err().
func Select(ctx context.Context, packs []store.Pack, jobCtx engine.Context, opts Options) (Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]PackResult, len(packs))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(workers).WithCancelOnError()

	for i := range packs {
		pack := &packs[i]
		results[i] = PackResult{PackID: pack.ID, Title: pack.Title, Enabled: pack.Enabled}
		if !pack.Enabled && !opts.IncludeDisabled {
			results[i].Skipped = true
			continue
		}
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			verdict := engine.EvaluatePack(pack, jobCtx)
			results[i].Verdict = &verdict
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return Result{}, err
	}

	selected := make([]string, 0, len(results))
	for _, r := range results {
		if r.Verdict != nil && r.Verdict.ShouldInclude {
			selected = append(selected, r.PackID)
		}
	}
	return Result{Results: results, Selected: selected}, nil
}

// Counts summarises a result for logging and metrics.
func (r Result) Counts() (included, excluded, skipped int) {
	for _, pr := range r.Results {
		switch {
		case pr.Skipped:
			skipped++
		case pr.Verdict.ShouldInclude:
			included++
		default:
			excluded++
		}
	}
	return included, excluded, skipped
}
