// internal/engine/batch.go
package engine

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/types"
)

/*
 * Batch evaluation.
 *
 * A period close evaluates thousands of duty records; each one is
 * independent, so records fan out across a fixed worker pool. Errors are
 * isolated per record: a missing delay code in one record produces one
 * failed BatchResult and never aborts its siblings. Only context
 * cancellation stops the batch early, and even then every submitted index
 * gets a result (ctx.Err() for the records never evaluated).
 *
 * Results come back positionally, matching the input slice, so callers can
 * line failures back up with their source records without an id scheme.
 */

// BatchResult pairs one input record's outcome with its input position.
type BatchResult struct {
	Index       int
	Calculation *types.PayCalculation
	Err         error
}

// EvaluateBatch evaluates every record concurrently on the configured
// worker pool. The returned slice is ordered by input index and always has
// len(records) entries.
func (e *Engine) EvaluateBatch(ctx context.Context, records []types.DutyFacts) []BatchResult {
	results := make([]BatchResult, len(records))
	if len(records) == 0 {
		return results
	}

	workers := e.opts.Workers
	if workers > len(records) {
		workers = len(records)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					results[i] = BatchResult{Index: i, Err: err}
					continue
				}
				calc, err := e.EvaluatePay(records[i])
				results[i] = BatchResult{Index: i, Calculation: calc, Err: err}
				if err != nil {
					e.log.Warn("batch record failed", "index", i, "error", err)
				}
			}
		}()
	}

	for i := range records {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}

// DetectBatch runs discrepancy detection over paired expected-input and
// actual-paid records. Records and actuals must be the same length; the
// result slice is ordered by input index.
func (e *Engine) DetectBatch(ctx context.Context, records []types.DutyFacts, actuals []decimal.Decimal) []BatchDetectResult {
	results := make([]BatchDetectResult, len(records))
	if len(records) == 0 {
		return results
	}

	workers := e.opts.Workers
	if workers > len(records) {
		workers = len(records)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					results[i] = BatchDetectResult{Index: i, Err: err}
					continue
				}
				d, err := e.Detect(records[i], actuals[i])
				results[i] = BatchDetectResult{Index: i, Discrepancy: d, Err: err}
			}
		}()
	}

	for i := range records {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}

// BatchDetectResult pairs one detection outcome with its input position.
// Discrepancy is nil when the record's pay matched within tolerance.
type BatchDetectResult struct {
	Index       int
	Discrepancy *types.Discrepancy
	Err         error
}
